package agentos

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Harshitk-cp/agente-basico/internal/agent"
	mw "github.com/Harshitk-cp/agente-basico/internal/agentos/middleware"
	"go.uber.org/zap"
)

const (
	BasicOSID          = "agentos-basico"
	BasicOSDescription = "AgentOS básico com Claude e MCP"

	DefaultHost = "0.0.0.0"
	DefaultPort = 7777

	defaultRunTimeout = 5 * time.Minute
)

// Options configures an AgentOS.
type Options struct {
	ID          string
	Description string
	Agents      []*agent.Agent
	Config      *OSConfig

	SecurityKey    string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	RunTimeout     time.Duration

	Logger *zap.Logger
}

// AgentOS hosts a set of agents behind an HTTP API.
type AgentOS struct {
	ID          string
	Description string
	Agents      []*agent.Agent
	Config      *OSConfig

	opts      Options
	logger    *zap.Logger
	metrics   *mw.MetricsCollector
	limiter   *mw.RateLimiter
	startTime time.Time

	appOnce sync.Once
	app     http.Handler
	docs    []routeDoc
}

func New(opts Options) (*AgentOS, error) {
	if opts.ID == "" {
		return nil, errors.New("agentos: id is required")
	}
	if len(opts.Agents) == 0 {
		return nil, errors.New("agentos: at least one agent is required")
	}

	known := make(map[string]bool, len(opts.Agents))
	for _, a := range opts.Agents {
		if a == nil || a.ID == "" {
			return nil, errors.New("agentos: agents must have an id")
		}
		if known[a.ID] {
			return nil, fmt.Errorf("agentos: duplicate agent id %q", a.ID)
		}
		known[a.ID] = true
	}
	if err := opts.Config.validateAgents(known); err != nil {
		return nil, err
	}

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = defaultRunTimeout
	}

	return &AgentOS{
		ID:          opts.ID,
		Description: opts.Description,
		Agents:      opts.Agents,
		Config:      opts.Config,
		opts:        opts,
		logger:      opts.Logger,
		metrics:     mw.NewMetricsCollector(),
		limiter:     mw.NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		startTime:   time.Now(),
	}, nil
}

// GetApp returns the HTTP application. It is built once.
func (o *AgentOS) GetApp() http.Handler {
	o.appOnce.Do(func() {
		o.app = o.newRouter()
	})
	return o.app
}

func (o *AgentOS) agent(id string) *agent.Agent {
	for _, a := range o.Agents {
		if a.ID == id {
			return a
		}
	}
	return nil
}
