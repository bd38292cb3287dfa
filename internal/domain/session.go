package domain

import "time"

// Session groups the runs of one conversation.
type Session struct {
	ID        string          `json:"session_id"`
	AgentID   string          `json:"agent_id"`
	UserID    string          `json:"user_id,omitempty"`
	Name      string          `json:"session_name,omitempty"`
	Summary   *SessionSummary `json:"session_summary,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SessionSummary is a model-written digest of a session.
type SessionSummary struct {
	Summary   string    `json:"summary"`
	Topics    []string  `json:"topics,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SessionListOpts struct {
	AgentID string
	UserID  string
	Limit   int
}
