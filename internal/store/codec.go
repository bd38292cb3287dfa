package store

import (
	"encoding/json"
	"fmt"

	"github.com/Harshitk-cp/agente-basico/internal/domain"
)

func encodeSummary(s *domain.SessionSummary) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal session summary: %w", err)
	}
	return b, nil
}

func decodeSummary(b []byte) (*domain.SessionSummary, error) {
	if len(b) == 0 || string(b) == "null" {
		return nil, nil
	}
	var s domain.SessionSummary
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session summary: %w", err)
	}
	return &s, nil
}

func encodeRunPayload(r *domain.Run) (messages, metrics []byte, err error) {
	messages, err = json.Marshal(r.Messages)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal run messages: %w", err)
	}
	metrics, err = json.Marshal(r.Metrics)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal run metrics: %w", err)
	}
	return messages, metrics, nil
}

func decodeRunPayload(r *domain.Run, messages, metrics []byte) error {
	if len(messages) > 0 {
		if err := json.Unmarshal(messages, &r.Messages); err != nil {
			return fmt.Errorf("unmarshal run messages: %w", err)
		}
	}
	if len(metrics) > 0 {
		if err := json.Unmarshal(metrics, &r.Metrics); err != nil {
			return fmt.Errorf("unmarshal run metrics: %w", err)
		}
	}
	return nil
}

func reverseRuns(runs []domain.Run) {
	for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
		runs[i], runs[j] = runs[j], runs[i]
	}
}

const defaultSessionLimit = 100
