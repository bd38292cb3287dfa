package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Harshitk-cp/agente-basico/internal/domain"
	"github.com/Harshitk-cp/agente-basico/internal/llm"
	"github.com/Harshitk-cp/agente-basico/internal/store"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"
)

const (
	BasicAgentID          = "agente-basico"
	BasicAgentName        = "Agente Básico"
	BasicAgentDescription = "Um agente básico para demonstração do framework Agno"

	// DefaultMaxToolRounds bounds the model/tool loop of a single run.
	DefaultMaxToolRounds = 10

	persistTimeout = 10 * time.Second
)

var (
	ErrEmptyMessage    = errors.New("message is required")
	ErrSessionNotFound = errors.New("session not found")
	ErrNoModel         = errors.New("agent has no model")
)

// Toolkit is a set of tools an agent can offer to its model.
type Toolkit interface {
	Name() string
	Info() domain.ToolInfo
	Connect(ctx context.Context) error
	Definitions(ctx context.Context) ([]domain.ToolDefinition, error)
	Call(ctx context.Context, name string, args json.RawMessage) (output string, isError bool, err error)
	Close() error
}

// Agent is a model with tools, storage and context options.
type Agent struct {
	ID          string
	Name        string
	Description string
	Model       llm.Model
	DB          domain.SessionStore
	Tools       []Toolkit

	AddHistoryToContext    bool
	NumHistoryRuns         int
	AddDatetimeToContext   bool
	EnableSessionSummaries bool
	Markdown               bool

	MaxToolRounds int
	Logger        *zap.Logger

	now func() time.Time
}

// NewBasicAgent builds the "Agente Básico" descriptor on Claude.
func NewBasicAgent(apiKey string, db domain.SessionStore, tools ...Toolkit) *Agent {
	return &Agent{
		ID:                     BasicAgentID,
		Name:                   BasicAgentName,
		Description:            BasicAgentDescription,
		Model:                  llm.NewClaude(apiKey, llm.WithModelID(llm.DefaultClaudeModel)),
		DB:                     db,
		Tools:                  tools,
		AddHistoryToContext:    true,
		NumHistoryRuns:         3,
		AddDatetimeToContext:   true,
		EnableSessionSummaries: true,
		Markdown:               true,
		MaxToolRounds:          DefaultMaxToolRounds,
		Logger:                 zap.NewNop(),
	}
}

func (a *Agent) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

func (a *Agent) clock() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now()
}

// Info is the serialisable descriptor served by the hosting API.
func (a *Agent) Info() domain.AgentInfo {
	info := domain.AgentInfo{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		Tools:       make([]domain.ToolInfo, 0, len(a.Tools)),
		Settings: domain.AgentOptions{
			AddHistoryToContext:    a.AddHistoryToContext,
			NumHistoryRuns:         a.NumHistoryRuns,
			AddDatetimeToContext:   a.AddDatetimeToContext,
			EnableSessionSummaries: a.EnableSessionSummaries,
			Markdown:               a.Markdown,
		},
	}
	if a.Model != nil {
		info.Model = domain.ModelInfo{ID: a.Model.ID(), Provider: a.Model.Provider()}
	}
	if a.DB != nil {
		db := a.DB.Info()
		info.Database = &db
	}
	for _, t := range a.Tools {
		info.Tools = append(info.Tools, t.Info())
	}
	return info
}

type RunInput struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

// Run sends one user message through the model/tool loop and persists the
// resulting run in the agent's session store.
func (a *Agent) Run(ctx context.Context, in RunInput) (*domain.Run, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if a.Model == nil {
		return nil, ErrNoModel
	}

	started := a.clock()
	sessionID := in.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	sess, err := a.loadSession(ctx, sessionID, in.UserID)
	if err != nil {
		return nil, err
	}

	history, err := a.history(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	defs, toolIndex := a.toolDefinitions(ctx)

	run := &domain.Run{
		ID:        ulid.Make().String(),
		SessionID: sessionID,
		AgentID:   a.ID,
		UserID:    in.UserID,
		Input:     message,
		Model:     a.Model.ID(),
		CreatedAt: started.UTC(),
	}

	msgs := append(history, domain.Message{Role: domain.RoleUser, Content: message})
	newFrom := len(history)

	req := llm.Request{System: a.systemPrompt(sess), Tools: defs}
	var loopErr error
	for round := 0; ; round++ {
		if round >= a.maxToolRounds() && len(req.Tools) > 0 {
			req.ToolChoice = llm.ToolChoiceNone
		}
		req.Messages = msgs

		resp, err := a.Model.Response(ctx, req)
		if err != nil {
			loopErr = err
			break
		}
		run.Metrics.InputTokens += resp.Usage.InputTokens
		run.Metrics.OutputTokens += resp.Usage.OutputTokens

		final := len(resp.ToolCalls) == 0 || len(req.Tools) == 0 || req.ToolChoice == llm.ToolChoiceNone
		reply := domain.Message{Role: domain.RoleAssistant, Content: resp.Content}
		if !final {
			reply.ToolCalls = resp.ToolCalls
		}
		msgs = append(msgs, reply)
		if final {
			run.Content = resp.Content
			break
		}

		run.Metrics.ToolCalls += len(resp.ToolCalls)
		results := iter.Map(resp.ToolCalls, func(tc *domain.ToolCall) domain.Message {
			return a.callTool(ctx, toolIndex, *tc)
		})
		msgs = append(msgs, results...)
	}

	run.Messages = msgs[newFrom:]
	run.Metrics.TotalTokens = run.Metrics.InputTokens + run.Metrics.OutputTokens
	run.Metrics.Duration = a.clock().Sub(started).Seconds()
	run.Status = domain.RunStatusCompleted
	if loopErr != nil {
		run.Status = domain.RunStatusError
		run.Content = loopErr.Error()
	}

	if err := a.persist(ctx, sess, run); err != nil {
		return nil, err
	}

	if loopErr != nil {
		return run, fmt.Errorf("model %s: %w", a.Model.ID(), loopErr)
	}

	if a.EnableSessionSummaries {
		if err := a.updateSummary(ctx, sess); err != nil {
			a.logger().Warn("session summary failed",
				zap.String("session_id", sess.ID),
				zap.Error(err),
			)
		}
	}

	a.logger().Info("run completed",
		zap.String("agent_id", a.ID),
		zap.String("run_id", run.ID),
		zap.String("session_id", sessionID),
		zap.Int("tool_calls", run.Metrics.ToolCalls),
		zap.Int64("total_tokens", run.Metrics.TotalTokens),
	)
	return run, nil
}

func (a *Agent) maxToolRounds() int {
	if a.MaxToolRounds <= 0 {
		return DefaultMaxToolRounds
	}
	return a.MaxToolRounds
}

func (a *Agent) loadSession(ctx context.Context, id, userID string) (*domain.Session, error) {
	if a.DB == nil {
		return &domain.Session{ID: id, AgentID: a.ID, UserID: userID}, nil
	}
	sess, err := a.DB.GetSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return &domain.Session{ID: id, AgentID: a.ID, UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if userID != "" {
		sess.UserID = userID
	}
	return sess, nil
}

func (a *Agent) history(ctx context.Context, sessionID string) ([]domain.Message, error) {
	if !a.AddHistoryToContext || a.DB == nil || a.NumHistoryRuns <= 0 {
		return nil, nil
	}
	runs, err := a.DB.RecentRuns(ctx, sessionID, a.NumHistoryRuns)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	var out []domain.Message
	for i := range runs {
		out = append(out, runs[i].HistoryMessages()...)
	}
	return out, nil
}

func (a *Agent) toolDefinitions(ctx context.Context) ([]domain.ToolDefinition, map[string]Toolkit) {
	var defs []domain.ToolDefinition
	index := make(map[string]Toolkit)
	for _, t := range a.Tools {
		tdefs, err := t.Definitions(ctx)
		if err != nil {
			a.logger().Warn("tools unavailable for run",
				zap.String("toolkit", t.Name()),
				zap.Error(err),
			)
			continue
		}
		for _, d := range tdefs {
			if _, dup := index[d.Name]; dup {
				continue
			}
			index[d.Name] = t
			defs = append(defs, d)
		}
	}
	return defs, index
}

func (a *Agent) callTool(ctx context.Context, index map[string]Toolkit, tc domain.ToolCall) domain.Message {
	msg := domain.Message{Role: domain.RoleTool, ToolCallID: tc.ID, ToolName: tc.Name}

	t, ok := index[tc.Name]
	if !ok {
		msg.Content = fmt.Sprintf("tool %s is not available", tc.Name)
		msg.IsError = true
		return msg
	}

	out, isErr, err := t.Call(ctx, tc.Name, tc.Arguments)
	if err != nil {
		a.logger().Warn("tool call failed",
			zap.String("tool", tc.Name),
			zap.Error(err),
		)
		msg.Content = err.Error()
		msg.IsError = true
		return msg
	}
	msg.Content = out
	msg.IsError = isErr
	return msg
}

func (a *Agent) persist(ctx context.Context, sess *domain.Session, run *domain.Run) error {
	if a.DB == nil {
		return nil
	}
	// The run context may already be done when the model timed out.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := a.DB.UpsertSession(ctx, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if err := a.DB.CreateRun(ctx, run); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// Sessions lists this agent's sessions, most recently updated first.
func (a *Agent) Sessions(ctx context.Context, userID string, limit int) ([]domain.Session, error) {
	if a.DB == nil {
		return nil, nil
	}
	return a.DB.ListSessions(ctx, domain.SessionListOpts{AgentID: a.ID, UserID: userID, Limit: limit})
}

func (a *Agent) Session(ctx context.Context, id string) (*domain.Session, error) {
	if a.DB == nil {
		return nil, ErrSessionNotFound
	}
	sess, err := a.DB.GetSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if sess.AgentID != a.ID {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (a *Agent) SessionRuns(ctx context.Context, id string) ([]domain.Run, error) {
	if _, err := a.Session(ctx, id); err != nil {
		return nil, err
	}
	return a.DB.ListRuns(ctx, id)
}

func (a *Agent) DeleteSession(ctx context.Context, id string) error {
	if _, err := a.Session(ctx, id); err != nil {
		return err
	}
	err := a.DB.DeleteSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrSessionNotFound
	}
	return err
}
