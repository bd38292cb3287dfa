package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Harshitk-cp/agente-basico/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS agno_sessions (
	session_id   TEXT PRIMARY KEY,
	agent_id     TEXT NOT NULL,
	user_id      TEXT NOT NULL DEFAULT '',
	session_name TEXT NOT NULL DEFAULT '',
	summary      JSONB,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_agno_sessions_agent ON agno_sessions (agent_id, updated_at);

CREATE TABLE IF NOT EXISTS agno_runs (
	run_id     TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES agno_sessions (session_id) ON DELETE CASCADE,
	agent_id   TEXT NOT NULL,
	user_id    TEXT NOT NULL DEFAULT '',
	input      TEXT NOT NULL,
	content    TEXT NOT NULL,
	model      TEXT NOT NULL DEFAULT '',
	messages   JSONB NOT NULL DEFAULT '[]',
	metrics    JSONB NOT NULL DEFAULT '{}',
	status     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_agno_runs_session ON agno_runs (session_id, created_at);
`

// PostgresDb is the session store used when DATABASE_URL is set.
type PostgresDb struct {
	db *pgxpool.Pool
}

// NewPostgresDb connects to dbURL, pings and applies the schema.
func NewPostgresDb(ctx context.Context, dbURL string) (*PostgresDb, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return &PostgresDb{db: pool}, nil
}

func (s *PostgresDb) Info() domain.DBInfo {
	return domain.DBInfo{Type: "postgres"}
}

func (s *PostgresDb) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresDb) Close() error {
	s.db.Close()
	return nil
}

func (s *PostgresDb) UpsertSession(ctx context.Context, sess *domain.Session) error {
	summary, err := encodeSummary(sess.Summary)
	if err != nil {
		return err
	}

	return s.db.QueryRow(ctx,
		`INSERT INTO agno_sessions (session_id, agent_id, user_id, session_name, summary)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (session_id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			session_name = EXCLUDED.session_name,
			summary = EXCLUDED.summary,
			updated_at = NOW()
		 RETURNING created_at, updated_at`,
		sess.ID, sess.AgentID, sess.UserID, sess.Name, summary,
	).Scan(&sess.CreatedAt, &sess.UpdatedAt)
}

func (s *PostgresDb) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	row := s.db.QueryRow(ctx,
		`SELECT session_id, agent_id, user_id, session_name, summary, created_at, updated_at
		 FROM agno_sessions WHERE session_id = $1`, id)

	sess, err := scanPostgresSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

func (s *PostgresDb) ListSessions(ctx context.Context, opts domain.SessionListOpts) ([]domain.Session, error) {
	query := `SELECT session_id, agent_id, user_id, session_name, summary, created_at, updated_at FROM agno_sessions`
	var (
		where []string
		args  []any
	)
	if opts.AgentID != "" {
		args = append(args, opts.AgentID)
		where = append(where, fmt.Sprintf("agent_id = $%d", len(args)))
	}
	if opts.UserID != "" {
		args = append(args, opts.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSessionLimit
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY updated_at DESC LIMIT $%d", len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		sess, err := scanPostgresSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

func (s *PostgresDb) DeleteSession(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM agno_sessions WHERE session_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresDb) CreateRun(ctx context.Context, r *domain.Run) error {
	messages, metrics, err := encodeRunPayload(r)
	if err != nil {
		return err
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO agno_runs (run_id, session_id, agent_id, user_id, input, content, model, messages, metrics, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		r.ID, r.SessionID, r.AgentID, r.UserID, r.Input, r.Content, r.Model,
		messages, metrics, string(r.Status), r.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

func (s *PostgresDb) ListRuns(ctx context.Context, sessionID string) ([]domain.Run, error) {
	return s.queryRuns(ctx,
		`SELECT run_id, session_id, agent_id, user_id, input, content, model, messages, metrics, status, created_at
		 FROM agno_runs WHERE session_id = $1 ORDER BY created_at, run_id`, sessionID)
}

func (s *PostgresDb) RecentRuns(ctx context.Context, sessionID string, n int) ([]domain.Run, error) {
	if n <= 0 {
		return nil, nil
	}
	runs, err := s.queryRuns(ctx,
		`SELECT run_id, session_id, agent_id, user_id, input, content, model, messages, metrics, status, created_at
		 FROM agno_runs WHERE session_id = $1 AND status = $2
		 ORDER BY created_at DESC, run_id DESC LIMIT $3`, sessionID, string(domain.RunStatusCompleted), n)
	if err != nil {
		return nil, err
	}
	reverseRuns(runs)
	return runs, nil
}

func (s *PostgresDb) queryRuns(ctx context.Context, query string, args ...any) ([]domain.Run, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		var (
			r                 domain.Run
			messages, metrics []byte
			status            string
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &r.AgentID, &r.UserID, &r.Input, &r.Content, &r.Model,
			&messages, &metrics, &status, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := decodeRunPayload(&r, messages, metrics); err != nil {
			return nil, err
		}
		r.Status = domain.RunStatus(status)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func scanPostgresSession(row pgx.Row) (*domain.Session, error) {
	var (
		sess    domain.Session
		summary []byte
	)
	if err := row.Scan(&sess.ID, &sess.AgentID, &sess.UserID, &sess.Name, &summary, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		return nil, err
	}
	s, err := decodeSummary(summary)
	if err != nil {
		return nil, err
	}
	sess.Summary = s
	return &sess, nil
}
