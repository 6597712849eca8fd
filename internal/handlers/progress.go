package handlers

import (
	"encoding/json"
	"log"

	"github.com/gofiber/websocket/v2"

	"github.com/devashishk/podcast-forge/internal/jobs"
)

// ProgressHandler streams job progress events over WebSocket
type ProgressHandler struct {
	registry *jobs.Registry
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(registry *jobs.Registry) *ProgressHandler {
	return &ProgressHandler{registry: registry}
}

// Handle pushes progress events for one job until it reaches a terminal state
func (h *ProgressHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	jobID := c.Params("id")
	job := h.registry.Get(jobID)
	if job == nil {
		c.WriteMessage(websocket.TextMessage, []byte(`{"error":"job not found"}`))
		return
	}

	// Send the current snapshot first so late subscribers see where the job is.
	snapshot := jobs.ProgressEvent{
		JobID:          job.ID,
		State:          job.State,
		Step:           job.CurrentStep,
		StepsCompleted: job.StepsCompleted,
		TotalSteps:     job.TotalSteps,
		Error:          job.ErrMessage,
	}
	if err := writeEvent(c, snapshot); err != nil {
		return
	}
	if job.State.Terminal() {
		return
	}

	events, unsubscribe := h.registry.Subscribe(jobID)
	defer unsubscribe()

	for event := range events {
		if err := writeEvent(c, event); err != nil {
			log.Printf("WebSocket write failed for job %s: %v", jobID, err)
			return
		}
	}
}

func writeEvent(c *websocket.Conn, event jobs.ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, data)
}
