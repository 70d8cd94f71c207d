package handler

import (
	"context"

	"completion-proxy/backend"
)

const (
	DefaultMaxTokens = 50

	DefaultMaxBodyBytes = 10 << 20

	InvalidBackendResponse = "Invalid response from VLLM"
	TooManyRequests        = "Too many requests in queue"
)

// PromptRequest represents the expected JSON structure in the request body.
// Pointers distinguish a missing field from its zero value.
type PromptRequest struct {
	Prompt    *string `json:"prompt" validate:"required"`
	MaxTokens *int    `json:"max_tokens" validate:"omitempty,gte=0"`
}

// Payload builds the backend payload for model.
func (p PromptRequest) Payload(model string) backend.Payload {
	maxTokens := DefaultMaxTokens
	if p.MaxTokens != nil {
		maxTokens = *p.MaxTokens
	}
	return backend.Payload{
		Model:     model,
		Prompt:    *p.Prompt,
		MaxTokens: maxTokens,
	}
}

// ErrorBody is returned for backend and capacity failures.
type ErrorBody struct {
	Error string `json:"error"`
}

// ValidationIssue describes one rejected field of the request body.
type ValidationIssue struct {
	Type string `json:"type"`
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
}

// ValidationErrorBody is the 422 response body.
type ValidationErrorBody struct {
	Detail []ValidationIssue `json:"detail"`
}

// DetailBody is used for routing errors (404, 405).
type DetailBody struct {
	Detail string `json:"detail"`
}

// Completer sends a payload to a completion backend.
type Completer interface {
	Complete(ctx context.Context, payload backend.Payload) (*backend.Response, error)
}
