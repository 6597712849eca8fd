package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync/atomic"
	"time"
)

// ErrRunFailed is returned when a remote run finishes with a failed status.
// Agents treat it as a soft failure and fall back to the chat backend.
var ErrRunFailed = fmt.Errorf("remote run failed")

// AssistantClient talks to the specialized remote-agent service using the
// thread → message → run protocol.
type AssistantClient struct {
	apiKey      string
	baseURL     string
	client      *http.Client
	unavailable atomic.Bool
}

// NewAssistantClient creates a remote-agent client.
func NewAssistantClient(apiKey, baseURL string, timeout time.Duration) *AssistantClient {
	return &AssistantClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Available reports whether the remote service is usable. It is marked
// unavailable after a failed Probe or a failed thread creation, which routes
// all subsequent calls to the chat fallback.
func (a *AssistantClient) Available() bool {
	return a.apiKey != "" && !a.unavailable.Load()
}

// MarkUnavailable flips the availability flag.
func (a *AssistantClient) MarkUnavailable() {
	if a.unavailable.CompareAndSwap(false, true) {
		log.Println("WARNING: remote agent service marked unavailable, falling back to chat backend")
	}
}

// Probe checks the service by listing assistants.
func (a *AssistantClient) Probe(ctx context.Context) error {
	req, err := a.newRequest(ctx, http.MethodGet, "/assistants?limit=1", nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		a.MarkUnavailable()
		return fmt.Errorf("probing remote agent service: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		a.MarkUnavailable()
		return fmt.Errorf("remote agent probe returned status %d", resp.StatusCode)
	}
	return nil
}

type thread struct {
	ID string `json:"id"`
}

type runStatus struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Usage  Usage  `json:"usage"`
}

type messageList struct {
	Data []struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text struct {
				Value string `json:"value"`
			} `json:"text"`
		} `json:"content"`
	} `json:"data"`
}

// RunResult is the outcome of a remote-agent run.
type RunResult struct {
	Status       string
	ResponseText string
	Usage        Usage
}

// CreateThread opens a new conversation thread.
func (a *AssistantClient) CreateThread(ctx context.Context, metadata map[string]string) (string, error) {
	body := map[string]any{}
	if len(metadata) > 0 {
		body["metadata"] = metadata
	}
	var t thread
	if err := a.post(ctx, "/threads", body, &t); err != nil {
		return "", fmt.Errorf("creating thread: %w", err)
	}
	return t.ID, nil
}

// CreateMessage appends a user message to a thread.
func (a *AssistantClient) CreateMessage(ctx context.Context, threadID, content, role string) error {
	body := map[string]any{"role": role, "content": content}
	if err := a.post(ctx, "/threads/"+threadID+"/messages", body, nil); err != nil {
		return fmt.Errorf("creating message: %w", err)
	}
	return nil
}

// RunAndWait creates a run on the thread and polls it to completion, then
// reads back the assistant's reply.
func (a *AssistantClient) RunAndWait(ctx context.Context, threadID, agentID, instructions string) (*RunResult, error) {
	body := map[string]any{"assistant_id": agentID}
	if instructions != "" {
		body["additional_instructions"] = instructions
	}

	var run runStatus
	if err := a.post(ctx, "/threads/"+threadID+"/runs", body, &run); err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}

	for run.Status == "queued" || run.Status == "in_progress" || run.Status == "" {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
		if err := a.get(ctx, "/threads/"+threadID+"/runs/"+run.ID, &run); err != nil {
			return nil, fmt.Errorf("polling run: %w", err)
		}
	}

	if run.Status != "completed" {
		return &RunResult{Status: run.Status, Usage: run.Usage}, ErrRunFailed
	}

	var msgs messageList
	if err := a.get(ctx, "/threads/"+threadID+"/messages?order=desc&limit=5", &msgs); err != nil {
		return nil, fmt.Errorf("reading run output: %w", err)
	}
	for _, m := range msgs.Data {
		if m.Role != "assistant" {
			continue
		}
		for _, c := range m.Content {
			if c.Type == "text" && c.Text.Value != "" {
				return &RunResult{Status: run.Status, ResponseText: c.Text.Value, Usage: run.Usage}, nil
			}
		}
	}
	return nil, fmt.Errorf("run completed but no assistant message found")
}

func (a *AssistantClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OpenAI-Beta", "assistants=v2")
	return req, nil
}

func (a *AssistantClient) post(ctx context.Context, path string, body any, out any) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := a.newRequest(ctx, http.MethodPost, path, bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	return a.do(req, out)
}

func (a *AssistantClient) get(ctx context.Context, path string, out any) error {
	req, err := a.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return a.do(req, out)
}

func (a *AssistantClient) do(req *http.Request, out any) error {
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
