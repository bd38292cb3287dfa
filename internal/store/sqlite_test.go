package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Harshitk-cp/agente-basico/internal/domain"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSqliteDb(t *testing.T) *SqliteDb {
	t.Helper()
	db, err := NewSqliteDb(context.Background(), filepath.Join(t.TempDir(), "agente.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNewSqliteDb_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agente.db")
	db, err := NewSqliteDb(context.Background(), path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Ping(context.Background()))
	_, err = os.Stat(path)
	assert.NoError(t, err)
	assert.Equal(t, path, db.DBFile)
	assert.Equal(t, domain.DBInfo{Type: "sqlite", Path: path}, db.Info())
}

func TestNewSqliteDb_EmptyPath(t *testing.T) {
	_, err := NewSqliteDb(context.Background(), " ")
	assert.Error(t, err)
}

func TestNewSqliteDb_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "agente.db")

	db, err := NewSqliteDb(ctx, path)
	require.NoError(t, err)
	require.NoError(t, db.UpsertSession(ctx, &domain.Session{ID: "s1", AgentID: "agente-basico"}))
	require.NoError(t, db.Close())

	db, err = NewSqliteDb(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	sess, err := db.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "agente-basico", sess.AgentID)
}

func TestSqliteDb_UpsertSession(t *testing.T) {
	db := newTestSqliteDb(t)
	ctx := context.Background()

	sess := &domain.Session{ID: "s1", AgentID: "agente-basico", UserID: "u1"}
	require.NoError(t, db.UpsertSession(ctx, sess))
	created := sess.CreatedAt
	assert.False(t, created.IsZero())

	sess2 := &domain.Session{
		ID:      "s1",
		AgentID: "agente-basico",
		UserID:  "u1",
		Summary: &domain.SessionSummary{Summary: "talked about MCP", Topics: []string{"mcp"}},
	}
	require.NoError(t, db.UpsertSession(ctx, sess2))
	assert.Equal(t, created.UnixNano(), sess2.CreatedAt.UnixNano())

	got, err := db.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got.Summary)
	assert.Equal(t, "talked about MCP", got.Summary.Summary)
	assert.Equal(t, []string{"mcp"}, got.Summary.Topics)
	assert.Equal(t, "u1", got.UserID)
}

func TestSqliteDb_GetSession_NotFound(t *testing.T) {
	db := newTestSqliteDb(t)

	_, err := db.GetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSqliteDb_ListSessions_Filters(t *testing.T) {
	db := newTestSqliteDb(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertSession(ctx, &domain.Session{ID: "a", AgentID: "agente-basico", UserID: "u1"}))
	require.NoError(t, db.UpsertSession(ctx, &domain.Session{ID: "b", AgentID: "agente-basico", UserID: "u2"}))
	require.NoError(t, db.UpsertSession(ctx, &domain.Session{ID: "c", AgentID: "other", UserID: "u1"}))

	all, err := db.ListSessions(ctx, domain.SessionListOpts{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byAgent, err := db.ListSessions(ctx, domain.SessionListOpts{AgentID: "agente-basico"})
	require.NoError(t, err)
	assert.Len(t, byAgent, 2)

	byBoth, err := db.ListSessions(ctx, domain.SessionListOpts{AgentID: "agente-basico", UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, byBoth, 1)
	assert.Equal(t, "a", byBoth[0].ID)

	limited, err := db.ListSessions(ctx, domain.SessionListOpts{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSqliteDb_Runs(t *testing.T) {
	db := newTestSqliteDb(t)
	ctx := context.Background()
	require.NoError(t, db.UpsertSession(ctx, &domain.Session{ID: "s1", AgentID: "agente-basico"}))

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		r := &domain.Run{
			ID:        ulid.Make().String(),
			SessionID: "s1",
			AgentID:   "agente-basico",
			Input:     string(rune('a' + i)),
			Content:   "answer",
			Messages: []domain.Message{
				{Role: domain.RoleUser, Content: string(rune('a' + i))},
				{Role: domain.RoleAssistant, Content: "answer"},
			},
			Metrics:   domain.RunMetrics{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
			Status:    domain.RunStatusCompleted,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, db.CreateRun(ctx, r))
	}

	all, err := db.ListRuns(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "a", all[0].Input)
	assert.Equal(t, "e", all[4].Input)
	assert.Len(t, all[0].Messages, 2)
	assert.Equal(t, int64(15), all[0].Metrics.TotalTokens)
	assert.Equal(t, domain.RunStatusCompleted, all[0].Status)

	recent, err := db.RecentRuns(ctx, "s1", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []string{"c", "d", "e"}, []string{recent[0].Input, recent[1].Input, recent[2].Input})

	none, err := db.RecentRuns(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSqliteDb_CreateRun_Duplicate(t *testing.T) {
	db := newTestSqliteDb(t)
	ctx := context.Background()

	r := &domain.Run{ID: "r1", SessionID: "s1", AgentID: "a", Status: domain.RunStatusCompleted}
	require.NoError(t, db.CreateRun(ctx, r))
	assert.ErrorIs(t, db.CreateRun(ctx, r), ErrConflict)
}

func TestSqliteDb_DeleteSession(t *testing.T) {
	db := newTestSqliteDb(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertSession(ctx, &domain.Session{ID: "s1", AgentID: "agente-basico"}))
	require.NoError(t, db.CreateRun(ctx, &domain.Run{ID: "r1", SessionID: "s1", AgentID: "agente-basico", Status: domain.RunStatusCompleted}))

	require.NoError(t, db.DeleteSession(ctx, "s1"))

	_, err := db.GetSession(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
	runs, err := db.ListRuns(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, runs)

	assert.ErrorIs(t, db.DeleteSession(ctx, "s1"), ErrNotFound)
}

func TestSqliteDb_RecentRuns_SkipsFailed(t *testing.T) {
	db := newTestSqliteDb(t)
	ctx := context.Background()

	base := time.Now().UTC()
	statuses := []domain.RunStatus{
		domain.RunStatusCompleted,
		domain.RunStatusCompleted,
		domain.RunStatusCompleted,
		domain.RunStatusError,
	}
	for i, status := range statuses {
		require.NoError(t, db.CreateRun(ctx, &domain.Run{
			ID:        ulid.Make().String(),
			SessionID: "s1",
			AgentID:   "agente-basico",
			Input:     string(rune('a' + i)),
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	recent, err := db.RecentRuns(ctx, "s1", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{recent[0].Input, recent[1].Input, recent[2].Input})

	all, err := db.ListRuns(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}
