// Package agents implements the pipeline stages: planner, researcher,
// outliner, scripter, tone annotator and editor. Every agent runs through
// the shared Runtime, which owns backend selection and retries.
package agents

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/devashishk/podcast-forge/internal/llm"
	"github.com/devashishk/podcast-forge/internal/types"
)

const maxAttempts = 3

// StageError carries the failing stage name and a stable error kind for the
// job record.
type StageError struct {
	Stage string
	Kind  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// NewStageError wraps err with the stage name and kind.
func NewStageError(stage, kind string, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

// Profile parameterizes one agent: its contract prompt, sampling knobs and
// optional remote agent id.
type Profile struct {
	Name          string
	SystemPrompt  string
	MaxTokens     int
	Temperature   float64
	RemoteAgentID string
}

// Runtime executes agent calls against the configured backends with retry.
type Runtime struct {
	chat        llm.ChatBackend
	assistant   *llm.AssistantClient
	model       string
	maxTokens   int
	callTimeout time.Duration
}

// NewRuntime creates the shared agent runtime. assistant may be nil when no
// remote-agent service is configured.
func NewRuntime(chat llm.ChatBackend, assistant *llm.AssistantClient, model string, maxTokens int, callTimeout time.Duration) *Runtime {
	return &Runtime{
		chat:        chat,
		assistant:   assistant,
		model:       model,
		maxTokens:   maxTokens,
		callTimeout: callTimeout,
	}
}

// Execute runs one agent call: remote agent first when configured and
// available, generic chat otherwise. Up to 3 attempts with exponential
// backoff plus jitter; 400/401/403-equivalent failures are not retried.
func (r *Runtime) Execute(ctx context.Context, profile Profile, userPrompt string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(1<<(attempt-2))*time.Second +
				time.Duration(rand.Float64()*float64(time.Second))
			log.Printf("Agent %s: attempt %d/%d after %v (previous error: %v)",
				profile.Name, attempt, maxAttempts, backoff.Round(time.Millisecond), lastErr)
			select {
			case <-ctx.Done():
				return "", NewStageError(profile.Name, types.ErrKindCancelled, ctx.Err())
			case <-time.After(backoff):
			}
		}

		content, err := r.callOnce(ctx, profile, userPrompt)
		if err == nil {
			return content, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", NewStageError(profile.Name, types.ErrKindCancelled, ctx.Err())
		}
		if llm.IsNonRetryable(err) {
			break
		}
	}

	return "", NewStageError(profile.Name, errKindFor(lastErr), lastErr)
}

// callOnce issues one backend call with the per-call timeout applied.
func (r *Runtime) callOnce(ctx context.Context, profile Profile, userPrompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	if profile.RemoteAgentID != "" && r.assistant != nil && r.assistant.Available() {
		content, err := r.runRemote(callCtx, profile, userPrompt)
		if err == nil {
			return content, nil
		}
		// Soft failure: fall through to the chat backend.
		log.Printf("Agent %s: remote agent call failed (%v), falling back to chat", profile.Name, err)
	}

	temperature := profile.Temperature
	maxTokens := profile.MaxTokens
	if maxTokens == 0 {
		maxTokens = r.maxTokens
	}

	result, err := r.chat.Chat(callCtx, []llm.Message{
		{Role: "system", Content: profile.SystemPrompt},
		{Role: "user", Content: userPrompt},
	}, llm.ChatOptions{
		Model:       r.model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}
	return trimContent(result.Content), nil
}

func (r *Runtime) runRemote(ctx context.Context, profile Profile, userPrompt string) (string, error) {
	threadID, err := r.assistant.CreateThread(ctx, map[string]string{"agent": profile.Name})
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			r.assistant.MarkUnavailable()
		}
		return "", err
	}
	if err := r.assistant.CreateMessage(ctx, threadID, userPrompt, "user"); err != nil {
		return "", err
	}
	run, err := r.assistant.RunAndWait(ctx, threadID, profile.RemoteAgentID, profile.SystemPrompt)
	if err != nil {
		return "", err
	}
	return trimContent(run.ResponseText), nil
}

// errKindFor maps a final error to the stable kind surfaced on the job.
func errKindFor(err error) string {
	var se *llm.StatusError
	if errors.As(err, &se) {
		return types.ErrKindBackend
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return types.ErrKindBackend
	}
	return types.ErrKindAgent
}

// trimContent trims whitespace and strips a single outer code fence, which
// chat backends occasionally wrap markdown in.
func trimContent(s string) string {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "```") {
		if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
			inner := trimmed[nl+1:]
			if end := strings.LastIndex(inner, "```"); end >= 0 {
				inner = inner[:end]
			}
			trimmed = strings.TrimSpace(inner)
		}
	}
	return trimmed
}
