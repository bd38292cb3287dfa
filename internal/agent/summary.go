package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/agente-basico/internal/domain"
	"github.com/Harshitk-cp/agente-basico/internal/llm"
)

const summaryMaxTokens = 1024

// updateSummary asks the model to digest the whole session and stores the result.
func (a *Agent) updateSummary(ctx context.Context, sess *domain.Session) error {
	if a.DB == nil {
		return nil
	}
	runs, err := a.DB.ListRuns(ctx, sess.ID)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	transcript := formatTranscript(runs)
	if transcript == "" {
		return nil
	}

	resp, err := a.Model.Response(ctx, llm.Request{
		Messages: []domain.Message{{
			Role:    domain.RoleUser,
			Content: fmt.Sprintf(llm.SessionSummaryPrompt, transcript),
		}},
		MaxTokens: summaryMaxTokens,
	})
	if err != nil {
		return err
	}

	summary, err := parseSummary(resp.Content)
	if err != nil {
		return err
	}
	summary.UpdatedAt = a.clock().UTC()
	sess.Summary = summary

	return a.DB.UpsertSession(ctx, sess)
}

func formatTranscript(runs []domain.Run) string {
	var b strings.Builder
	for i := range runs {
		if runs[i].Status != domain.RunStatusCompleted {
			continue
		}
		for _, m := range runs[i].HistoryMessages() {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
	}
	return strings.TrimSpace(b.String())
}

func parseSummary(content string) (*domain.SessionSummary, error) {
	var out struct {
		Summary string   `json:"summary"`
		Topics  []string `json:"topics"`
	}
	if err := json.Unmarshal([]byte(llm.StripFences(content)), &out); err != nil {
		return nil, fmt.Errorf("parse session summary: %w", err)
	}
	if strings.TrimSpace(out.Summary) == "" {
		return nil, errors.New("session summary is empty")
	}
	return &domain.SessionSummary{Summary: out.Summary, Topics: out.Topics}, nil
}
