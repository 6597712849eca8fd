package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devashishk/podcast-forge/internal/types"
)

// ProgressEvent is pushed to subscribers whenever a job's visible state
// changes. Events for a single job arrive in non-decreasing step order.
type ProgressEvent struct {
	JobID          string `json:"job_id"`
	State          State  `json:"state"`
	Step           string `json:"step,omitempty"`
	StepsCompleted int    `json:"steps_completed"`
	TotalSteps     int    `json:"total_steps"`
	Error          string `json:"error,omitempty"`
}

// Registry is the thread-safe owner of all job state. The orchestrator and
// handlers never hold a *Job directly; they read snapshots and mutate
// through Update.
type Registry struct {
	mu          sync.Mutex
	jobs        map[string]*Job
	cancels     map[string]context.CancelFunc
	subscribers map[string][]chan ProgressEvent
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		jobs:        make(map[string]*Job),
		cancels:     make(map[string]context.CancelFunc),
		subscribers: make(map[string][]chan ProgressEvent),
	}
}

// Create registers a new queued job for the brief and returns its snapshot.
func (r *Registry) Create(brief types.Brief) *Job {
	job := &Job{
		ID:         uuid.New().String(),
		Brief:      brief,
		State:      StateQueued,
		TotalSteps: TotalSteps,
		CreatedAt:  time.Now(),
	}

	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()

	return job.clone()
}

// Get returns a snapshot of the job, or nil when unknown.
func (r *Registry) Get(id string) *Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[id]; ok {
		return job.clone()
	}
	return nil
}

// List returns job summaries, most recent first.
func (r *Registry) List(limit, offset int) []Summary {
	r.mu.Lock()
	all := make([]*Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		all = append(all, j)
	}
	r.mu.Unlock()

	sort.Slice(all, func(i, k int) bool {
		return all[i].CreatedAt.After(all[k].CreatedAt)
	})

	if offset >= len(all) {
		return []Summary{}
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}

	summaries := make([]Summary, len(all))
	for i, j := range all {
		summaries[i] = j.Summarize()
	}
	return summaries
}

// ErrTerminal is returned for writes against a job in a terminal state.
var ErrTerminal = fmt.Errorf("job is in a terminal state")

// ErrUnknownJob is returned for operations on an id the registry never issued.
var ErrUnknownJob = fmt.Errorf("unknown job")

// Update atomically mutates the job. Writes against terminal jobs are
// rejected, except when the mutator itself performs the transition into the
// terminal state (the completion instant attaches artifacts in the same
// mutation). Transitions must follow the state machine.
func (r *Registry) Update(id string, mutate func(*Job) error) error {
	r.mu.Lock()
	job, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return ErrUnknownJob
	}
	if job.State.Terminal() {
		r.mu.Unlock()
		return ErrTerminal
	}

	before := job.State
	if err := mutate(job); err != nil {
		r.mu.Unlock()
		return err
	}
	if job.State != before && !before.CanTransitionTo(job.State) {
		attempted := job.State
		job.State = before
		r.mu.Unlock()
		return fmt.Errorf("illegal transition %s to %s", before, attempted)
	}

	event := ProgressEvent{
		JobID:          job.ID,
		State:          job.State,
		Step:           job.CurrentStep,
		StepsCompleted: job.StepsCompleted,
		TotalSteps:     job.TotalSteps,
		Error:          job.ErrMessage,
	}
	subs := append([]chan ProgressEvent(nil), r.subscribers[id]...)
	terminal := job.State.Terminal()
	r.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default: // slow subscriber, drop rather than stall the pipeline
		}
	}
	if terminal {
		r.closeSubscribers(id)
	}
	return nil
}

// BindCancel stores the cancel function for a job's pipeline context.
func (r *Registry) BindCancel(id string, cancel context.CancelFunc) {
	r.mu.Lock()
	r.cancels[id] = cancel
	r.mu.Unlock()
}

// ReleaseCancel drops the stored cancel function once the pipeline exits.
func (r *Registry) ReleaseCancel(id string) {
	r.mu.Lock()
	delete(r.cancels, id)
	r.mu.Unlock()
}

// Cancel requests termination. Valid from queued or processing; on a
// terminal job it is idempotent and reports the existing state.
func (r *Registry) Cancel(id string) (State, error) {
	r.mu.Lock()
	job, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return 0, ErrUnknownJob
	}
	if job.State.Terminal() {
		state := job.State
		r.mu.Unlock()
		return state, nil
	}

	job.State = StateCancelled
	job.ErrKind = types.ErrKindCancelled
	job.ErrMessage = "cancelled by user"
	now := time.Now()
	job.CompletedAt = &now
	cancel := r.cancels[id]
	delete(r.cancels, id)

	event := ProgressEvent{
		JobID:          job.ID,
		State:          job.State,
		StepsCompleted: job.StepsCompleted,
		TotalSteps:     job.TotalSteps,
		Error:          job.ErrMessage,
	}
	subs := append([]chan ProgressEvent(nil), r.subscribers[id]...)
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
	r.closeSubscribers(id)
	return StateCancelled, nil
}

// Subscribe returns a progress channel for the job and an unsubscribe
// function. The channel is closed when the job reaches a terminal state.
func (r *Registry) Subscribe(id string) (<-chan ProgressEvent, func()) {
	ch := make(chan ProgressEvent, 16)

	r.mu.Lock()
	job, ok := r.jobs[id]
	if ok && job.State.Terminal() {
		r.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	r.subscribers[id] = append(r.subscribers[id], ch)
	r.mu.Unlock()

	return ch, func() {
		r.mu.Lock()
		subs := r.subscribers[id]
		for i, c := range subs {
			if c == ch {
				r.subscribers[id] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		r.mu.Unlock()
	}
}

func (r *Registry) closeSubscribers(id string) {
	r.mu.Lock()
	subs := r.subscribers[id]
	delete(r.subscribers, id)
	r.mu.Unlock()
	for _, ch := range subs {
		close(ch)
	}
}
