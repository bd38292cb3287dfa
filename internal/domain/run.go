package domain

import "time"

type RunStatus string

const (
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusError     RunStatus = "ERROR"
)

// Run is one request/response exchange with an agent.
type Run struct {
	ID        string     `json:"run_id"`
	SessionID string     `json:"session_id"`
	AgentID   string     `json:"agent_id"`
	UserID    string     `json:"user_id,omitempty"`
	Input     string     `json:"input"`
	Content   string     `json:"content"`
	Model     string     `json:"model"`
	Messages  []Message  `json:"messages,omitempty"`
	Metrics   RunMetrics `json:"metrics"`
	Status    RunStatus  `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

type RunMetrics struct {
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	TotalTokens  int64   `json:"total_tokens"`
	ToolCalls    int     `json:"tool_calls"`
	Duration     float64 `json:"duration"`
}

// HistoryMessages returns the user and assistant turns of a run, marked as
// history, without tool traffic.
func (r *Run) HistoryMessages() []Message {
	out := make([]Message, 0, len(r.Messages))
	for _, m := range r.Messages {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			continue
		}
		if m.FromHistory || len(m.ToolCalls) > 0 || m.Content == "" {
			continue
		}
		m.FromHistory = true
		out = append(out, m)
	}
	return out
}
