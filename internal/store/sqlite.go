package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Harshitk-cp/agente-basico/internal/domain"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS agno_sessions (
	session_id   TEXT PRIMARY KEY,
	agent_id     TEXT NOT NULL,
	user_id      TEXT NOT NULL DEFAULT '',
	session_name TEXT NOT NULL DEFAULT '',
	summary      TEXT,
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_agno_sessions_agent ON agno_sessions (agent_id, updated_at);

CREATE TABLE IF NOT EXISTS agno_runs (
	run_id     TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	agent_id   TEXT NOT NULL,
	user_id    TEXT NOT NULL DEFAULT '',
	input      TEXT NOT NULL,
	content    TEXT NOT NULL,
	model      TEXT NOT NULL DEFAULT '',
	messages   TEXT NOT NULL DEFAULT '[]',
	metrics    TEXT NOT NULL DEFAULT '{}',
	status     TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_agno_runs_session ON agno_runs (session_id, created_at);
`

// SqliteDb is the single-file session store. The file is created on open.
type SqliteDb struct {
	DBFile string
	db     *sql.DB
}

// NewSqliteDb opens (or creates) dbFile and applies the schema.
func NewSqliteDb(ctx context.Context, dbFile string) (*SqliteDb, error) {
	if strings.TrimSpace(dbFile) == "" {
		return nil, errors.New("sqlite: db file is required")
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", filepath.ToSlash(dbFile))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbFile, err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite %s: %w", dbFile, err)
	}

	return &SqliteDb{DBFile: dbFile, db: db}, nil
}

func (s *SqliteDb) Info() domain.DBInfo {
	return domain.DBInfo{Type: "sqlite", Path: s.DBFile}
}

func (s *SqliteDb) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SqliteDb) Close() error {
	return s.db.Close()
}

func (s *SqliteDb) UpsertSession(ctx context.Context, sess *domain.Session) error {
	summary, err := encodeSummary(sess.Summary)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now

	var createdAt int64
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO agno_sessions (session_id, agent_id, user_id, session_name, summary, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (session_id) DO UPDATE SET
			user_id = excluded.user_id,
			session_name = excluded.session_name,
			summary = excluded.summary,
			updated_at = excluded.updated_at
		 RETURNING created_at`,
		sess.ID, sess.AgentID, sess.UserID, sess.Name, nullableText(summary),
		sess.CreatedAt.UnixNano(), sess.UpdatedAt.UnixNano(),
	).Scan(&createdAt)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	sess.CreatedAt = time.Unix(0, createdAt).UTC()
	return nil
}

func (s *SqliteDb) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, agent_id, user_id, session_name, summary, created_at, updated_at
		 FROM agno_sessions WHERE session_id = ?`, id)

	sess, err := scanSqliteSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

func (s *SqliteDb) ListSessions(ctx context.Context, opts domain.SessionListOpts) ([]domain.Session, error) {
	query := `SELECT session_id, agent_id, user_id, session_name, summary, created_at, updated_at FROM agno_sessions`
	var (
		where []string
		args  []any
	)
	if opts.AgentID != "" {
		where = append(where, "agent_id = ?")
		args = append(args, opts.AgentID)
	}
	if opts.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, opts.UserID)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSessionLimit
	}
	query += " ORDER BY updated_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []domain.Session
	for rows.Next() {
		sess, err := scanSqliteSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

func (s *SqliteDb) DeleteSession(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete session: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM agno_sessions WHERE session_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM agno_runs WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete session runs: %w", err)
	}
	return tx.Commit()
}

func (s *SqliteDb) CreateRun(ctx context.Context, r *domain.Run) error {
	messages, metrics, err := encodeRunPayload(r)
	if err != nil {
		return err
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO agno_runs (run_id, session_id, agent_id, user_id, input, content, model, messages, metrics, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SessionID, r.AgentID, r.UserID, r.Input, r.Content, r.Model,
		string(messages), string(metrics), string(r.Status), r.CreatedAt.UnixNano(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrConflict
		}
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

func (s *SqliteDb) ListRuns(ctx context.Context, sessionID string) ([]domain.Run, error) {
	return s.queryRuns(ctx,
		`SELECT run_id, session_id, agent_id, user_id, input, content, model, messages, metrics, status, created_at
		 FROM agno_runs WHERE session_id = ? ORDER BY created_at, run_id`, sessionID)
}

func (s *SqliteDb) RecentRuns(ctx context.Context, sessionID string, n int) ([]domain.Run, error) {
	if n <= 0 {
		return nil, nil
	}
	runs, err := s.queryRuns(ctx,
		`SELECT run_id, session_id, agent_id, user_id, input, content, model, messages, metrics, status, created_at
		 FROM agno_runs WHERE session_id = ? AND status = ?
		 ORDER BY created_at DESC, run_id DESC LIMIT ?`, sessionID, string(domain.RunStatusCompleted), n)
	if err != nil {
		return nil, err
	}
	reverseRuns(runs)
	return runs, nil
}

func (s *SqliteDb) queryRuns(ctx context.Context, query string, args ...any) ([]domain.Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []domain.Run
	for rows.Next() {
		var (
			r                 domain.Run
			messages, metrics string
			status            string
			createdAt         int64
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &r.AgentID, &r.UserID, &r.Input, &r.Content, &r.Model,
			&messages, &metrics, &status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := decodeRunPayload(&r, []byte(messages), []byte(metrics)); err != nil {
			return nil, err
		}
		r.Status = domain.RunStatus(status)
		r.CreatedAt = time.Unix(0, createdAt).UTC()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSqliteSession(row rowScanner) (*domain.Session, error) {
	var (
		sess                 domain.Session
		summary              sql.NullString
		createdAt, updatedAt int64
	)
	if err := row.Scan(&sess.ID, &sess.AgentID, &sess.UserID, &sess.Name, &summary, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	s, err := decodeSummary([]byte(summary.String))
	if err != nil {
		return nil, err
	}
	sess.Summary = s
	sess.CreatedAt = time.Unix(0, createdAt).UTC()
	sess.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &sess, nil
}

func nullableText(b []byte) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
