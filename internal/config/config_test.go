package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireAnthropicAPIKey_Missing(t *testing.T) {
	t.Setenv(AnthropicAPIKeyEnv, "")

	_, err := RequireAnthropicAPIKey()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
	assert.Contains(t, err.Error(), ".env.example")
	assert.True(t, errors.Is(err, ErrMissingCredential))

	var mce *MissingCredentialError
	require.True(t, errors.As(err, &mce))
	assert.Equal(t, AnthropicAPIKeyEnv, mce.Name)
}

func TestRequireAnthropicAPIKey_Whitespace(t *testing.T) {
	t.Setenv(AnthropicAPIKeyEnv, "   ")

	_, err := RequireAnthropicAPIKey()
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestRequireAnthropicAPIKey_Present(t *testing.T) {
	t.Setenv(AnthropicAPIKeyEnv, "sk-ant-test-key")

	key, err := RequireAnthropicAPIKey()
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-test-key", key)
}

func TestGet_Defaults(t *testing.T) {
	for _, k := range []string{"AGENTOS_ENV", "AGENTOS_HOST", "AGENTOS_PORT", "AGENTOS_DB_FILE", "AGENTOS_MCP_URL", "AGENTOS_RUN_TIMEOUT"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	s, err := Get()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", s.Host)
	assert.Equal(t, 7777, s.Port)
	assert.Equal(t, "agente.db", s.DBFile)
	assert.Equal(t, "https://docs.agno.com/mcp", s.MCPURL)
	assert.Equal(t, 5*time.Minute, s.RunTimeout)
	assert.Equal(t, Development, s.Environment())
	assert.Equal(t, "0.0.0.0:7777", s.Addr())
	assert.True(t, s.ReloadAllowed())
}

func TestGet_InvalidPort(t *testing.T) {
	t.Setenv("AGENTOS_PORT", "not-a-port")

	_, err := Get()
	assert.Error(t, err)
}

func TestReloadAllowed_Production(t *testing.T) {
	s := &Settings{Env: "production"}
	assert.False(t, s.ReloadAllowed())

	s.Env = "Staging"
	assert.True(t, s.ReloadAllowed())
}

func TestParseEnvironment(t *testing.T) {
	assert.Equal(t, Production, ParseEnvironment(" PRODUCTION "))
	assert.Equal(t, Testing, ParseEnvironment("testing"))
	assert.Equal(t, Development, ParseEnvironment("whatever"))
}

func TestLoad_ReadsEnvFileWithoutOverriding(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("AGENTOS_TEST_FROM_FILE=file\nAGENTOS_TEST_PRESET=file\n"), 0o600))
	require.NoError(t, os.WriteFile(envFile+".secret", []byte("AGENTOS_TEST_SECRET=hidden\n"), 0o600))

	t.Setenv("AGENTOS_ENV_FILE", envFile)
	t.Setenv("AGENTOS_TEST_PRESET", "process")
	t.Setenv("AGENTOS_TEST_FROM_FILE", "")
	os.Unsetenv("AGENTOS_TEST_FROM_FILE")
	t.Setenv("AGENTOS_TEST_SECRET", "")
	os.Unsetenv("AGENTOS_TEST_SECRET")

	require.NoError(t, Load())
	assert.Equal(t, "file", os.Getenv("AGENTOS_TEST_FROM_FILE"))
	assert.Equal(t, "process", os.Getenv("AGENTOS_TEST_PRESET"))
	assert.Equal(t, "hidden", os.Getenv("AGENTOS_TEST_SECRET"))
}
