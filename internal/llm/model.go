package llm

import (
	"context"

	"github.com/Harshitk-cp/agente-basico/internal/domain"
)

// Provider constants
const (
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// ToolChoiceNone keeps the tool definitions in the request but forbids
// the model from calling any of them.
const ToolChoiceNone = "none"

// Request is a provider-neutral model call.
type Request struct {
	System     string
	Messages   []domain.Message
	Tools      []domain.ToolDefinition
	ToolChoice string
	MaxTokens  int64
}

type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Response is the assistant turn returned by a model.
type Response struct {
	Content    string
	ToolCalls  []domain.ToolCall
	StopReason string
	Usage      Usage
}

// Model is the remote language model an agent talks to.
type Model interface {
	ID() string
	Provider() string
	Response(ctx context.Context, req Request) (*Response, error)
}
