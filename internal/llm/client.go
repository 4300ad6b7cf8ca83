// Package llm provides completion client interfaces and implementations.
package llm

import (
	"context"
)

// StreamCallback is called for each token during streaming. Returning an
// error stops the stream; the error is propagated to the caller.
type StreamCallback func(token string, index int) error

// ChatMessage represents one chat message sent to a completion backend.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature *float64
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content   string
	Model     string
	LatencyMs int64
}

// Client is the interface for completion providers.
type Client interface {
	// Complete sends a non-streaming completion request.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// CompleteStream streams a completion, invoking callback per token.
	CompleteStream(ctx context.Context, req *CompletionRequest, callback StreamCallback) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string
}

// Temp is a convenience for building temperature pointers.
func Temp(v float64) *float64 {
	return &v
}
