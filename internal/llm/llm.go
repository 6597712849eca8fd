// Package llm provides the model backend clients: a generic chat completion
// client, a specialized remote-agent (assistant threads/runs) client, and a
// speech synthesis client. Agents pick between the two text backends at call
// time; TTS always goes through the speech client.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions are the sampling knobs for a chat call.
type ChatOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
	TopP        float64
	Stop        []string
}

// Usage is the token accounting a backend reports.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResult is the outcome of a chat call.
type ChatResult struct {
	Content      string
	Usage        Usage
	Model        string
	FinishReason string
}

// ChatBackend produces a completion for a system+user exchange.
type ChatBackend interface {
	Chat(ctx context.Context, messages []Message, opts ChatOptions) (*ChatResult, error)
}

// StatusError is an HTTP-level failure from a backend.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Code, e.Body)
}

// IsNonRetryable reports whether an error must not be retried. Bad requests
// and auth failures never succeed on retry; everything else, including
// timeouts, is retryable.
func IsNonRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case 400, 401, 403:
			return true
		}
	}
	return false
}
