package agentos

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/Harshitk-cp/agente-basico/internal/agent"
	"github.com/Harshitk-cp/agente-basico/internal/buildconfig"
	"github.com/Harshitk-cp/agente-basico/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxRunBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

func (o *AgentOS) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, db := range o.databases() {
		if err := db.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": buildconfig.VersionInfo(),
	})
}

type configResponse struct {
	OSID        string             `json:"os_id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Databases   []domain.DBInfo    `json:"databases"`
	Agents      []domain.AgentInfo `json:"agents"`
	Chat        *ChatConfig        `json:"chat,omitempty"`
	Models      []string           `json:"available_models,omitempty"`
}

func (o *AgentOS) handleConfig(w http.ResponseWriter, r *http.Request) {
	resp := configResponse{
		OSID:        o.ID,
		Name:        o.ID,
		Description: o.Description,
		Databases:   []domain.DBInfo{},
		Agents:      o.agentInfos(),
	}
	for _, db := range o.databases() {
		resp.Databases = append(resp.Databases, db.Info())
	}
	if o.Config != nil {
		resp.Chat = o.Config.Chat
		resp.Models = o.Config.AvailableModels
	}
	writeJSON(w, http.StatusOK, resp)
}

func (o *AgentOS) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	uptime := time.Since(o.startTime)
	writeJSON(w, http.StatusOK, map[string]any{
		"uptime_seconds": uptime.Seconds(),
		"uptime_human":   uptime.Round(time.Second).String(),
		"http":           o.metrics.Snapshot(),
		"goroutines":     runtime.NumGoroutine(),
		"memory": map[string]any{
			"alloc_mb": float64(memStats.Alloc) / 1024 / 1024,
			"sys_mb":   float64(memStats.Sys) / 1024 / 1024,
			"num_gc":   memStats.NumGC,
		},
		"go_version": runtime.Version(),
	})
}

func (o *AgentOS) agentInfos() []domain.AgentInfo {
	out := make([]domain.AgentInfo, 0, len(o.Agents))
	for _, a := range o.Agents {
		out = append(out, a.Info())
	}
	return out
}

func (o *AgentOS) handleListAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, o.agentInfos())
}

func (o *AgentOS) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	a := o.agent(chi.URLParam(r, "agent_id"))
	if a == nil {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, a.Info())
}

// decodeRunInput accepts JSON or form bodies.
func decodeRunInput(w http.ResponseWriter, r *http.Request) (agent.RunInput, error) {
	var in agent.RunInput
	r.Body = http.MaxBytesReader(w, r.Body, maxRunBody)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		err := json.NewDecoder(r.Body).Decode(&in)
		return in, err
	}

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxRunBody); err != nil {
			return in, err
		}
	} else if err := r.ParseForm(); err != nil {
		return in, err
	}
	in.Message = r.FormValue("message")
	in.SessionID = r.FormValue("session_id")
	in.UserID = r.FormValue("user_id")
	return in, nil
}

func (o *AgentOS) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	a := o.agent(chi.URLParam(r, "agent_id"))
	if a == nil {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}

	in, err := decodeRunInput(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), o.opts.RunTimeout)
	defer cancel()

	run, err := a.Run(ctx, in)
	o.metrics.RecordRun(err != nil)
	if err != nil {
		if errors.Is(err, agent.ErrEmptyMessage) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		o.logger.Error("agent run failed",
			zap.String("agent_id", a.ID),
			zap.String("session_id", in.SessionID),
			zap.Error(err),
		)
		if errors.Is(err, context.DeadlineExceeded) {
			writeError(w, http.StatusGatewayTimeout, "agent run timed out")
			return
		}
		writeError(w, http.StatusInternalServerError, "agent run failed")
		return
	}

	writeJSON(w, http.StatusOK, run)
}

func (o *AgentOS) handleListSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	agents := o.Agents
	if id := q.Get("agent_id"); id != "" {
		a := o.agent(id)
		if a == nil {
			writeError(w, http.StatusNotFound, "agent not found")
			return
		}
		agents = []*agent.Agent{a}
	}

	sessions := []domain.Session{}
	for _, a := range agents {
		s, err := a.Sessions(r.Context(), q.Get("user_id"), limit)
		if err != nil {
			o.logger.Error("list sessions failed", zap.String("agent_id", a.ID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list sessions")
			return
		}
		sessions = append(sessions, s...)
	}
	writeJSON(w, http.StatusOK, sessions)
}

// findSession returns the agent owning the session.
func (o *AgentOS) findSession(ctx context.Context, id string) (*agent.Agent, *domain.Session, error) {
	for _, a := range o.Agents {
		sess, err := a.Session(ctx, id)
		if errors.Is(err, agent.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		return a, sess, nil
	}
	return nil, nil, agent.ErrSessionNotFound
}

func (o *AgentOS) sessionOr404(w http.ResponseWriter, r *http.Request) (*agent.Agent, *domain.Session, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "session_id"))
	a, sess, err := o.findSession(r.Context(), id)
	if errors.Is(err, agent.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, nil, false
	}
	if err != nil {
		o.logger.Error("get session failed", zap.String("session_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get session")
		return nil, nil, false
	}
	return a, sess, true
}

func (o *AgentOS) handleGetSession(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := o.sessionOr404(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (o *AgentOS) handleSessionRuns(w http.ResponseWriter, r *http.Request) {
	a, sess, ok := o.sessionOr404(w, r)
	if !ok {
		return
	}
	runs, err := a.SessionRuns(r.Context(), sess.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []domain.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (o *AgentOS) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	a, sess, ok := o.sessionOr404(w, r)
	if !ok {
		return
	}
	if err := a.DeleteSession(r.Context(), sess.ID); err != nil {
		if errors.Is(err, agent.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
