// Package jobs holds the job model, the registry that owns all job state,
// the worker pool, and the orchestrator that drives the generation pipeline.
package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/devashishk/podcast-forge/internal/types"
)

// State is the job lifecycle state. Terminal states are absorbing.
type State int

const (
	StateQueued State = iota
	StateProcessing
	StateCompleted
	StateFailed
	StateCancelled
)

var stateNames = map[State]string{
	StateQueued:     "queued",
	StateProcessing: "processing",
	StateCompleted:  "completed",
	StateFailed:     "failed",
	StateCancelled:  "cancelled",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalJSON renders the state name.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Terminal reports whether the state is absorbing.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// CanTransitionTo enforces the closed state machine:
// queued → processing | cancelled; processing → completed | failed | cancelled.
func (s State) CanTransitionTo(t State) bool {
	switch s {
	case StateQueued:
		return t == StateProcessing || t == StateCancelled
	case StateProcessing:
		return t == StateCompleted || t == StateFailed || t == StateCancelled
	default:
		return false
	}
}

// TotalSteps is the number of pipeline stages reported in progress events.
const TotalSteps = 7

// Step names in pipeline order
var StepNames = []string{"plan", "research", "outline", "script", "tone", "edit", "audio"}

// Job is one episode generation request. It is exclusively owned by the
// Registry; the orchestrator mutates it through Registry.Update.
type Job struct {
	ID             string                 `json:"id"`
	Brief          types.Brief            `json:"brief"`
	State          State                  `json:"state"`
	CurrentStep    string                 `json:"current_step,omitempty"`
	StepsCompleted int                    `json:"steps_completed"`
	TotalSteps     int                    `json:"total_steps"`
	Artifacts      *types.Artifacts       `json:"-"`
	AudioPath      string                 `json:"audio_path,omitempty"`
	Metadata       *types.EpisodeMetadata `json:"metadata,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	StartedAt      *time.Time             `json:"started_at,omitempty"`
	CompletedAt    *time.Time             `json:"completed_at,omitempty"`
	ErrKind        string                 `json:"error_kind,omitempty"`
	ErrMessage     string                 `json:"error,omitempty"`
}

// Summary is the listing form of a job.
type Summary struct {
	ID          string     `json:"id"`
	Topic       string     `json:"topic"`
	State       State      `json:"state"`
	Chapters    int        `json:"chapters"`
	DurationMin int        `json:"duration_min"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Summarize builds the listing form.
func (j *Job) Summarize() Summary {
	return Summary{
		ID:          j.ID,
		Topic:       j.Brief.Topic,
		State:       j.State,
		Chapters:    j.Brief.Chapters,
		DurationMin: j.Brief.DurationMin,
		CreatedAt:   j.CreatedAt,
		CompletedAt: j.CompletedAt,
	}
}

// clone copies the job so registry readers never share memory with the
// orchestrator's mutations.
func (j *Job) clone() *Job {
	c := *j
	if j.Artifacts != nil {
		a := *j.Artifacts
		a.Scripts = append([]string(nil), j.Artifacts.Scripts...)
		c.Artifacts = &a
	}
	if j.Metadata != nil {
		m := *j.Metadata
		c.Metadata = &m
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
