package app

import (
	"context"
	"fmt"

	"github.com/Harshitk-cp/agente-basico/internal/agent"
	"github.com/Harshitk-cp/agente-basico/internal/agentos"
	"github.com/Harshitk-cp/agente-basico/internal/config"
	"github.com/Harshitk-cp/agente-basico/internal/domain"
	"github.com/Harshitk-cp/agente-basico/internal/store"
	"github.com/Harshitk-cp/agente-basico/internal/tools/mcp"
	"go.uber.org/zap"
)

// Bootstrap step names, in the order Build runs them.
const (
	StepGuard       = "guard"
	StepPersistence = "persistence"
	StepTools       = "tools"
	StepAgent       = "agent"
	StepAgentOS     = "agentos"
)

// App is the fully wired server.
type App struct {
	Settings *config.Settings
	DB       domain.SessionStore
	Tools    *mcp.MCPTools
	Agent    *agent.Agent
	OS       *agentos.AgentOS

	// Steps records the construction order.
	Steps []string
}

// Build constructs the credential guard, persistence handle, tools, agent
// and AgentOS, strictly in that order. No network call is made.
func Build(ctx context.Context, logger *zap.Logger, settings *config.Settings) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Settings: settings}

	apiKey, err := config.RequireAnthropicAPIKey()
	if err != nil {
		return nil, err
	}
	a.Steps = append(a.Steps, StepGuard)

	db, err := openStore(ctx, settings)
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.Steps = append(a.Steps, StepPersistence)
	logger.Info("database ready", zap.String("type", db.Info().Type), zap.String("path", db.Info().Path))

	tools, err := mcp.NewMCPTools(mcp.TransportStreamableHTTP, settings.MCPURL, logger.Named("mcp"))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	a.Tools = tools
	a.Steps = append(a.Steps, StepTools)

	ag := agent.NewBasicAgent(apiKey, db, tools)
	ag.Logger = logger.Named("agent")
	a.Agent = ag
	a.Steps = append(a.Steps, StepAgent)

	osConfig, err := agentos.LoadOSConfig(settings.ConfigFile)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	hosting, err := agentos.New(agentos.Options{
		ID:             agentos.BasicOSID,
		Description:    agentos.BasicOSDescription,
		Agents:         []*agent.Agent{ag},
		Config:         osConfig,
		SecurityKey:    settings.SecurityKey,
		CORSOrigins:    settings.CORSOrigins,
		RateLimitRPS:   settings.RateLimitRPS,
		RateLimitBurst: settings.RateLimitBurst,
		RunTimeout:     settings.RunTimeout,
		Logger:         logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	a.OS = hosting
	a.Steps = append(a.Steps, StepAgentOS)

	return a, nil
}

func openStore(ctx context.Context, settings *config.Settings) (domain.SessionStore, error) {
	if url := config.DatabaseURL(); url != "" {
		db, err := store.NewPostgresDb(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return db, nil
	}
	db, err := store.NewSqliteDb(ctx, settings.DBFile)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Close releases the tools and the database.
func (a *App) Close() error {
	if a.Tools != nil {
		_ = a.Tools.Close()
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
