package agentos

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Harshitk-cp/agente-basico/internal/agent"
	"github.com/Harshitk-cp/agente-basico/internal/domain"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

const limiterCleanupInterval = 10 * time.Minute

// ServeOptions controls the HTTP listener.
type ServeOptions struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	// Ready, when set, receives the bound address once listening.
	Ready func(addr string)
}

// Serve connects tools, listens and blocks until ctx is cancelled, then
// shuts down gracefully and releases tools and databases.
func (o *AgentOS) Serve(ctx context.Context, opts ServeOptions) error {
	host := opts.Host
	if host == "" {
		host = DefaultHost
	}
	port := opts.Port
	if port < 0 {
		return fmt.Errorf("agentos: invalid port %d", port)
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	o.connectTools(ctx)
	defer o.release()

	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("agentos: listen: %w", err)
	}

	srv := &http.Server{
		Handler:           o.GetApp(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	limiterCtx, stopLimiter := context.WithCancel(ctx)
	defer stopLimiter()
	if o.limiter.Enabled() {
		go o.limiter.Run(limiterCtx, limiterCleanupInterval)
	}

	errCh := make(chan error, 1)
	go func() {
		o.logger.Info("server starting",
			zap.String("os_id", o.ID),
			zap.String("addr", ln.Addr().String()),
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	if opts.Ready != nil {
		opts.Ready(ln.Addr().String())
	}

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("agentos: serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	o.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("agentos: shutdown: %w", err)
	}
	o.logger.Info("server stopped")
	return nil
}

// connectTools opens every toolkit concurrently. Failures are logged; the
// agents connect lazily on their next run.
func (o *AgentOS) connectTools(ctx context.Context) {
	var wg conc.WaitGroup
	for _, t := range o.toolkits() {
		wg.Go(func() {
			if err := t.Connect(ctx); err != nil {
				o.logger.Warn("tool connect failed",
					zap.String("toolkit", t.Name()),
					zap.Error(err),
				)
			}
		})
	}
	wg.Wait()
}

func (o *AgentOS) release() {
	var wg conc.WaitGroup
	for _, t := range o.toolkits() {
		wg.Go(func() {
			if err := t.Close(); err != nil {
				o.logger.Warn("tool close failed", zap.String("toolkit", t.Name()), zap.Error(err))
			}
		})
	}
	wg.Wait()

	for _, db := range o.databases() {
		if err := db.Close(); err != nil {
			o.logger.Warn("database close failed", zap.String("type", db.Info().Type), zap.Error(err))
		}
	}
}

func (o *AgentOS) toolkits() []agent.Toolkit {
	seen := make(map[agent.Toolkit]bool)
	var out []agent.Toolkit
	for _, a := range o.Agents {
		for _, t := range a.Tools {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

func (o *AgentOS) databases() []domain.SessionStore {
	seen := make(map[domain.SessionStore]bool)
	var out []domain.SessionStore
	for _, a := range o.Agents {
		if a.DB != nil && !seen[a.DB] {
			seen[a.DB] = true
			out = append(out, a.DB)
		}
	}
	return out
}
