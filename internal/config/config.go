package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const namespace = "AGENTOS"

// AnthropicAPIKeyEnv is the only credential the server cannot start without.
const AnthropicAPIKeyEnv = "ANTHROPIC_API_KEY"

// ErrMissingCredential matches any *MissingCredentialError via errors.Is.
var ErrMissingCredential = errors.New("missing credential")

// MissingCredentialError is returned by the credential guard.
type MissingCredentialError struct {
	Name string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("%s não encontrada! Copie .env.example para .env e adicione sua chave API.", e.Name)
}

func (e *MissingCredentialError) Is(target error) bool {
	return target == ErrMissingCredential
}

// Settings holds the AGENTOS_* environment.
type Settings struct {
	Env            string        `envconfig:"ENV" default:"development"`
	Host           string        `envconfig:"HOST" default:"0.0.0.0"`
	Port           int           `envconfig:"PORT" default:"7777"`
	DBFile         string        `envconfig:"DB_FILE" default:"agente.db"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	SecurityKey    string        `envconfig:"SECURITY_KEY"`
	CORSOrigins    []string      `envconfig:"CORS_ORIGINS" default:"https://os.agno.com,http://localhost:3000"`
	RateLimitRPS   float64       `envconfig:"RATE_LIMIT_RPS" default:"100"`
	RateLimitBurst int           `envconfig:"RATE_LIMIT_BURST" default:"20"`
	ConfigFile     string        `envconfig:"CONFIG_FILE"`
	MCPURL         string        `envconfig:"MCP_URL" default:"https://docs.agno.com/mcp"`
	RunTimeout     time.Duration `envconfig:"RUN_TIMEOUT" default:"5m"`
}

// Load reads the .env file specified by AGENTOS_ENV_FILE (or .env by default),
// then loads the corresponding .secret file if it exists.
// Variables already present in the process environment win.
func Load() error {
	envFile := EnvFile()

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

// EnvFile returns the settings file read by Load.
func EnvFile() string {
	envFile := os.Getenv("AGENTOS_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	return envFile
}

// Get parses the AGENTOS_* variables into Settings.
func Get() (*Settings, error) {
	var s Settings
	if err := envconfig.Process(namespace, &s); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &s, nil
}

// RequireAnthropicAPIKey is the credential guard. It must run before any
// other component is constructed.
func RequireAnthropicAPIKey() (string, error) {
	key := strings.TrimSpace(os.Getenv(AnthropicAPIKeyEnv))
	if key == "" {
		return "", &MissingCredentialError{Name: AnthropicAPIKeyEnv}
	}
	return key, nil
}

// DatabaseURL selects the Postgres backend when set.
func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// Environment returns the parsed deployment environment.
func (s *Settings) Environment() Environment {
	return ParseEnvironment(s.Env)
}

// Addr returns host:port for the HTTP listener.
func (s *Settings) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ReloadAllowed reports whether hot reload may be enabled.
// Production never reloads, whatever the flags say.
func (s *Settings) ReloadAllowed() bool {
	return !s.Environment().IsProduction()
}
