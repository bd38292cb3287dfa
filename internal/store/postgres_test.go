package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Harshitk-cp/agente-basico/internal/domain"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPostgresDb connects to DATABASE_URL. Every test uses its own
// session ids so a shared database is safe.
func newTestPostgresDb(t *testing.T) *PostgresDb {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	db, err := NewPostgresDb(context.Background(), dbURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newSessionID(t *testing.T, db *PostgresDb) string {
	t.Helper()
	id := "test-" + uuid.New().String()
	t.Cleanup(func() { _ = db.DeleteSession(context.Background(), id) })
	return id
}

func TestPostgresDb_Info(t *testing.T) {
	db := newTestPostgresDb(t)

	require.NoError(t, db.Ping(context.Background()))
	assert.Equal(t, domain.DBInfo{Type: "postgres"}, db.Info())
}

func TestPostgresDb_UpsertSession(t *testing.T) {
	db := newTestPostgresDb(t)
	ctx := context.Background()
	id := newSessionID(t, db)

	sess := &domain.Session{ID: id, AgentID: "agente-basico", UserID: "u1"}
	require.NoError(t, db.UpsertSession(ctx, sess))
	created := sess.CreatedAt
	assert.False(t, created.IsZero())

	sess2 := &domain.Session{
		ID:      id,
		AgentID: "agente-basico",
		UserID:  "u1",
		Summary: &domain.SessionSummary{Summary: "talked about MCP", Topics: []string{"mcp"}},
	}
	require.NoError(t, db.UpsertSession(ctx, sess2))
	assert.True(t, created.Equal(sess2.CreatedAt))

	got, err := db.GetSession(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got.Summary)
	assert.Equal(t, "talked about MCP", got.Summary.Summary)
	assert.Equal(t, []string{"mcp"}, got.Summary.Topics)
	assert.Equal(t, "u1", got.UserID)
}

func TestPostgresDb_GetSession_NotFound(t *testing.T) {
	db := newTestPostgresDb(t)

	_, err := db.GetSession(context.Background(), "missing-"+uuid.New().String())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresDb_ListSessions_Filters(t *testing.T) {
	db := newTestPostgresDb(t)
	ctx := context.Background()
	agentID := "agent-" + uuid.New().String()

	a, b := newSessionID(t, db), newSessionID(t, db)
	require.NoError(t, db.UpsertSession(ctx, &domain.Session{ID: a, AgentID: agentID, UserID: "u1"}))
	require.NoError(t, db.UpsertSession(ctx, &domain.Session{ID: b, AgentID: agentID, UserID: "u2"}))

	byAgent, err := db.ListSessions(ctx, domain.SessionListOpts{AgentID: agentID})
	require.NoError(t, err)
	assert.Len(t, byAgent, 2)

	byBoth, err := db.ListSessions(ctx, domain.SessionListOpts{AgentID: agentID, UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, byBoth, 1)
	assert.Equal(t, a, byBoth[0].ID)

	limited, err := db.ListSessions(ctx, domain.SessionListOpts{AgentID: agentID, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestPostgresDb_Runs(t *testing.T) {
	db := newTestPostgresDb(t)
	ctx := context.Background()
	id := newSessionID(t, db)
	require.NoError(t, db.UpsertSession(ctx, &domain.Session{ID: id, AgentID: "agente-basico"}))

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		status := domain.RunStatusCompleted
		if i == 4 {
			status = domain.RunStatusError
		}
		require.NoError(t, db.CreateRun(ctx, &domain.Run{
			ID:        ulid.Make().String(),
			SessionID: id,
			AgentID:   "agente-basico",
			Input:     string(rune('a' + i)),
			Content:   "answer",
			Messages: []domain.Message{
				{Role: domain.RoleUser, Content: string(rune('a' + i))},
				{Role: domain.RoleAssistant, Content: "answer"},
			},
			Metrics:   domain.RunMetrics{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	all, err := db.ListRuns(ctx, id)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "a", all[0].Input)
	assert.Len(t, all[0].Messages, 2)
	assert.Equal(t, int64(15), all[0].Metrics.TotalTokens)
	assert.Equal(t, domain.RunStatusError, all[4].Status)

	recent, err := db.RecentRuns(ctx, id, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []string{"b", "c", "d"}, []string{recent[0].Input, recent[1].Input, recent[2].Input})

	none, err := db.RecentRuns(ctx, id, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPostgresDb_CreateRun_Duplicate(t *testing.T) {
	db := newTestPostgresDb(t)
	ctx := context.Background()
	id := newSessionID(t, db)
	require.NoError(t, db.UpsertSession(ctx, &domain.Session{ID: id, AgentID: "agente-basico"}))

	r := &domain.Run{ID: ulid.Make().String(), SessionID: id, AgentID: "agente-basico", Status: domain.RunStatusCompleted}
	require.NoError(t, db.CreateRun(ctx, r))
	assert.ErrorIs(t, db.CreateRun(ctx, r), ErrConflict)
}

func TestPostgresDb_DeleteSession(t *testing.T) {
	db := newTestPostgresDb(t)
	ctx := context.Background()
	id := "test-" + uuid.New().String()

	require.NoError(t, db.UpsertSession(ctx, &domain.Session{ID: id, AgentID: "agente-basico"}))
	require.NoError(t, db.CreateRun(ctx, &domain.Run{ID: ulid.Make().String(), SessionID: id, AgentID: "agente-basico", Status: domain.RunStatusCompleted}))

	require.NoError(t, db.DeleteSession(ctx, id))

	_, err := db.GetSession(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	runs, err := db.ListRuns(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, runs)

	assert.ErrorIs(t, db.DeleteSession(ctx, id), ErrNotFound)
}
