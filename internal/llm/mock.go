package llm

import (
	"context"
	"errors"
	"sync"
)

// ErrNoMockResponse is returned when a MockModel runs out of scripted responses
// and has no DefaultResponse.
var ErrNoMockResponse = errors.New("mock model: no scripted response left")

// MockModel is a scripted Model for testing.
// Responses are returned in order; once exhausted DefaultResponse is used.
type MockModel struct {
	ModelID         string
	Responses       []*Response
	DefaultResponse *Response
	Err             error

	mu sync.Mutex
	// Call tracking for assertions
	Requests []Request
}

func NewMockModel(id string) *MockModel {
	if id == "" {
		id = "mock-model"
	}
	return &MockModel{
		ModelID:         id,
		DefaultResponse: &Response{Content: "Mock response", StopReason: "end_turn"},
	}
}

func (m *MockModel) ID() string { return m.ModelID }

func (m *MockModel) Provider() string { return ProviderMock }

func (m *MockModel) Response(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) > 0 {
		resp := m.Responses[0]
		m.Responses = m.Responses[1:]
		return resp, nil
	}
	if m.DefaultResponse == nil {
		return nil, ErrNoMockResponse
	}
	return m.DefaultResponse, nil
}

// Calls returns a copy of the captured requests.
func (m *MockModel) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.Requests))
	copy(out, m.Requests)
	return out
}
