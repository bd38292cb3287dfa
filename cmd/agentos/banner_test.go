package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Harshitk-cp/agente-basico/internal/app"
	"github.com/Harshitk-cp/agente-basico/internal/config"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestApp(t *testing.T) (*app.App, *config.Settings) {
	t.Helper()
	color.NoColor = true
	t.Setenv(config.AnthropicAPIKeyEnv, "sk-ant-test")
	t.Setenv("DATABASE_URL", "")
	os.Unsetenv("DATABASE_URL")

	settings := &config.Settings{
		Host:   "0.0.0.0",
		Port:   7777,
		DBFile: filepath.Join(t.TempDir(), "agente.db"),
		MCPURL: "https://docs.agno.com/mcp",
	}
	a, err := app.Build(context.Background(), nil, settings)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, settings
}

func TestPrintBanner(t *testing.T) {
	a, settings := buildTestApp(t)

	var buf bytes.Buffer
	printBanner(&buf, a, settings)
	out := buf.String()

	assert.Contains(t, out, "Agente 'Agente Básico' (ID: agente-basico) criado com sucesso!")
	assert.Contains(t, out, "Modelo: claude-sonnet-4-5")
	assert.Contains(t, out, "Database: "+settings.DBFile)
	assert.Contains(t, out, "Historico: ultimas 3 interacoes")
	assert.Contains(t, out, "http://localhost:7777\n")
	assert.Contains(t, out, "http://localhost:7777/docs")
	assert.Contains(t, out, "salvo automaticamente no SQLite")
}

func TestPrintCheck(t *testing.T) {
	a, _ := buildTestApp(t)

	var buf bytes.Buffer
	printCheck(&buf, a)
	out := buf.String()

	assert.Contains(t, out, "guard -> persistence -> tools -> agent -> agentos")
	assert.Contains(t, out, "AgentOS ID: agentos-basico")
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "http://localhost:7777", publicURL(&config.Settings{Host: "0.0.0.0", Port: 7777}))
	assert.Equal(t, "http://127.0.0.1:8080", publicURL(&config.Settings{Host: "127.0.0.1", Port: 8080}))
	assert.Equal(t, "http://[::1]:7777", publicURL(&config.Settings{Host: "::1", Port: 7777}))
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(&config.Settings{Env: "production", LogLevel: "warn"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))

	logger, err = newLogger(&config.Settings{LogLevel: "bogus"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}
