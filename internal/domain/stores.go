package domain

import "context"

// SessionStore persists sessions and their runs.
type SessionStore interface {
	UpsertSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	ListSessions(ctx context.Context, opts SessionListOpts) ([]Session, error)
	DeleteSession(ctx context.Context, id string) error

	CreateRun(ctx context.Context, r *Run) error
	ListRuns(ctx context.Context, sessionID string) ([]Run, error)
	// RecentRuns returns the last n completed runs of a session, oldest first.
	RecentRuns(ctx context.Context, sessionID string, n int) ([]Run, error)

	Ping(ctx context.Context) error
	Close() error
	Info() DBInfo
}
