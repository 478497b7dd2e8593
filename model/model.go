package model

import (
	"context"
	"fmt"
	"time"
)

// Message is a single turn of provider-neutral conversation text. Workers
// build their prompts as message slices so provider adapters stay trivial.
type Message struct {
	Role string `json:"role"` // "system", "user" or "assistant"
	Text string `json:"text"`
}

// Request captures the normalized model input produced by workers.
type Request struct {
	Instructions string    `json:"instructions"` // system prompt prepended by adapters
	Messages     []Message `json:"messages"`
	Stream       bool      `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a model. For streaming
// requests partial chunks carry deltas and the final chunk carries the full
// accumulated text.
type Response struct {
	Partial      bool        `json:"partial"`
	Text         string      `json:"text"`
	FinishReason string      `json:"finish_reason"` // "stop", "length", etc.
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Model is the minimal interface workers use to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// Complete drains a non-streaming Generate call down to the final text.
// Convenience for workers that have no use for partial chunks.
func Complete(ctx context.Context, m Model, req Request) (string, error) {
	req.Stream = false
	respCh, errCh := m.Generate(ctx, req)
	var final string
	for resp := range respCh {
		if !resp.Partial {
			final = resp.Text
		}
	}
	if err := <-errCh; err != nil {
		return "", err
	}
	return final, nil
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
type MockModel struct {
	info      Info
	responses map[string]string
	delay     time.Duration
	err       error
}

// NewMockModel constructs a MockModel identified by name.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: "mock"},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
// The key is matched against the last message's text.
func (m *MockModel) AddResponse(prompt, response string) { m.responses[prompt] = response }

// SetDelay makes every Generate call stall before answering, for exercising
// invocation deadlines.
func (m *MockModel) SetDelay(d time.Duration) { m.delay = d }

// SetError makes every Generate call fail, for exercising collaborator
// outage paths.
func (m *MockModel) SetError(err error) { m.err = err }

// Generate implements Model; emits optional streaming char chunks then the
// final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)
		if m.delay > 0 {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case <-time.After(m.delay):
			}
		}
		if m.err != nil {
			errCh <- m.err
			return
		}
		if len(req.Messages) == 0 {
			errCh <- fmt.Errorf("no messages provided")
			return
		}
		last := req.Messages[len(req.Messages)-1].Text
		full := m.responses[last]
		if full == "" {
			full = fmt.Sprintf("Mock response to: %s", last)
		}
		if req.Stream {
			for _, r := range full {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{Partial: true, Text: string(r)}:
				}
			}
		}
		respCh <- Response{Partial: false, Text: full, FinishReason: "stop"}
	}()
	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
