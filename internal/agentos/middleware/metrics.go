package middleware

import (
	"net/http"
	"sync/atomic"
)

// MetricsCollector counts requests, errors and in-flight agent runs.
type MetricsCollector struct {
	requests atomic.Int64
	errors   atomic.Int64
	inFlight atomic.Int64
	runs     atomic.Int64
	runErrs  atomic.Int64
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

type MetricsSnapshot struct {
	RequestCount  int64 `json:"request_count"`
	ErrorCount    int64 `json:"error_count"`
	InFlight      int64 `json:"in_flight"`
	RunCount      int64 `json:"run_count"`
	RunErrorCount int64 `json:"run_error_count"`
}

func (mc *MetricsCollector) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		RequestCount:  mc.requests.Load(),
		ErrorCount:    mc.errors.Load(),
		InFlight:      mc.inFlight.Load(),
		RunCount:      mc.runs.Load(),
		RunErrorCount: mc.runErrs.Load(),
	}
}

// RecordRun counts a finished agent run.
func (mc *MetricsCollector) RecordRun(failed bool) {
	mc.runs.Add(1)
	if failed {
		mc.runErrs.Add(1)
	}
}

// Middleware counts requests and errors (4xx and 5xx).
func (mc *MetricsCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mc.requests.Add(1)
		mc.inFlight.Add(1)
		defer mc.inFlight.Add(-1)

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		if rw.statusCode >= 400 {
			mc.errors.Add(1)
		}
	})
}
