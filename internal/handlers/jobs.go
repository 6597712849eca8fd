package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/devashishk/podcast-forge/internal/config"
	"github.com/devashishk/podcast-forge/internal/jobs"
	"github.com/devashishk/podcast-forge/internal/types"
	"github.com/devashishk/podcast-forge/internal/validate"
)

// JobsHandler exposes the job API
type JobsHandler struct {
	registry *jobs.Registry
	pool     *jobs.WorkerPool
	cfg      *config.Config
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(registry *jobs.Registry, pool *jobs.WorkerPool, cfg *config.Config) *JobsHandler {
	return &JobsHandler{
		registry: registry,
		pool:     pool,
		cfg:      cfg,
	}
}

// Submit accepts a brief, creates a job and enqueues it
func (h *JobsHandler) Submit(c *fiber.Ctx) error {
	var brief types.Brief
	if err := c.BodyParser(&brief); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
			"code":  "ERR_INVALID_BODY",
		})
	}
	brief.Topic = strings.TrimSpace(brief.Topic)

	result := validate.Brief(brief, h.cfg)
	if !result.Valid {
		return c.Status(400).JSON(fiber.Map{
			"error":   "Brief failed validation",
			"code":    "ERR_VALIDATION",
			"kind":    types.ErrKindValidation,
			"details": result.Errors,
		})
	}

	job := h.registry.Create(brief)
	h.pool.Enqueue(job.ID)

	log.Printf("Job %s accepted (topic: %q, %d chapters, %d min)",
		job.ID, brief.Topic, brief.Chapters, brief.DurationMin)

	return c.JSON(fiber.Map{
		"job_id":   job.ID,
		"status":   job.State.String(),
		"warnings": result.Warnings,
		"message":  "Brief accepted, generation started",
	})
}

// Validate checks a brief without creating a job
func (h *JobsHandler) Validate(c *fiber.Ctx) error {
	var brief types.Brief
	if err := c.BodyParser(&brief); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
			"code":  "ERR_INVALID_BODY",
		})
	}
	return c.JSON(validate.Brief(brief, h.cfg))
}

// Status returns the lifecycle state of a job
func (h *JobsHandler) Status(c *fiber.Ctx) error {
	job := h.registry.Get(c.Params("id"))
	if job == nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "Job not found",
			"code":  "ERR_NOT_FOUND",
		})
	}
	return c.JSON(job)
}

// Artifacts returns the pipeline documents of a completed job
func (h *JobsHandler) Artifacts(c *fiber.Ctx) error {
	job := h.registry.Get(c.Params("id"))
	if job == nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "Job not found",
			"code":  "ERR_NOT_FOUND",
		})
	}
	if job.State != jobs.StateCompleted || job.Artifacts == nil {
		return c.Status(409).JSON(fiber.Map{
			"error": "Artifacts are only available for completed jobs",
			"code":  "ERR_NOT_COMPLETED",
			"state": job.State.String(),
		})
	}
	return c.JSON(job.Artifacts)
}

// Audio streams the final MP3 of a completed job
func (h *JobsHandler) Audio(c *fiber.Ctx) error {
	job := h.registry.Get(c.Params("id"))
	if job == nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "Job not found",
			"code":  "ERR_NOT_FOUND",
		})
	}
	if job.State != jobs.StateCompleted || job.AudioPath == "" {
		return c.Status(409).JSON(fiber.Map{
			"error": "Audio is only available for completed jobs",
			"code":  "ERR_NOT_COMPLETED",
			"state": job.State.String(),
		})
	}
	return c.SendFile(job.AudioPath)
}

// Cancel requests termination of a job
func (h *JobsHandler) Cancel(c *fiber.Ctx) error {
	state, err := h.registry.Cancel(c.Params("id"))
	if err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "Job not found",
			"code":  "ERR_NOT_FOUND",
		})
	}
	return c.JSON(fiber.Map{"state": state.String()})
}

// List returns job summaries, most recent first
func (h *JobsHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)
	return c.JSON(h.registry.List(limit, offset))
}
