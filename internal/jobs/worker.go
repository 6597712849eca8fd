package jobs

import (
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"github.com/devashishk/podcast-forge/internal/types"
)

// WorkerPool bounds how many jobs generate concurrently. Each worker runs
// one pipeline at a time; the fan-out inside a job is bounded separately.
type WorkerPool struct {
	jobQueue     chan string
	workerCount  int
	orchestrator *Orchestrator
	registry     *Registry
}

// NewWorkerPool creates a worker pool over the orchestrator.
func NewWorkerPool(workerCount int, orchestrator *Orchestrator, registry *Registry) *WorkerPool {
	return &WorkerPool{
		jobQueue:     make(chan string, 100),
		workerCount:  workerCount,
		orchestrator: orchestrator,
		registry:     registry,
	}
}

// Start initializes all workers
func (wp *WorkerPool) Start() {
	log.Printf("Starting worker pool with %d workers", wp.workerCount)
	for i := 0; i < wp.workerCount; i++ {
		go wp.worker(i)
	}
}

// Enqueue adds a job to the queue.
func (wp *WorkerPool) Enqueue(jobID string) {
	wp.jobQueue <- jobID
	log.Printf("Job %s enqueued", jobID)
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(id int) {
	log.Printf("Worker %d started", id)

	for jobID := range wp.jobQueue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Worker %d: PANIC processing job %s: %v\n%s",
						id, jobID, r, string(debug.Stack()))
					wp.registry.Update(jobID, func(j *Job) error {
						j.State = StateFailed
						j.ErrKind = types.ErrKindInternal
						j.ErrMessage = fmt.Sprintf("worker panic: %v", r)
						now := time.Now()
						j.CompletedAt = &now
						return nil
					})
				}
			}()

			log.Printf("Worker %d: processing job %s", id, jobID)
			wp.orchestrator.Run(jobID)
		}()
	}
}
