package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/Harshitk-cp/agente-basico/internal/buildconfig"
	"github.com/Harshitk-cp/agente-basico/internal/domain"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

const (
	TransportStreamableHTTP = "streamable-http"
	TransportSSE            = "sse"

	clientName = "agente-basico"
)

var (
	ErrNotConnected         = errors.New("mcp tools: not connected")
	ErrUnsupportedTransport = errors.New("mcp tools: unsupported transport")
	ErrUnknownTool          = errors.New("mcp tools: unknown tool")
)

// MCPTools exposes the tools of a remote MCP server to an agent.
// The session is opened lazily on first use, or eagerly with Connect.
type MCPTools struct {
	Transport  string
	URL        string
	HTTPClient *http.Client
	Logger     *zap.Logger

	// dial is replaced in tests to use in-memory transports.
	dial func(ctx context.Context) (mcpsdk.Transport, error)

	mu      sync.Mutex
	session *mcpsdk.ClientSession
	tools   []domain.ToolDefinition
}

// NewMCPTools validates the transport but does not touch the network.
func NewMCPTools(transport, url string, logger *zap.Logger) (*MCPTools, error) {
	switch transport {
	case TransportStreamableHTTP, TransportSSE:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTransport, transport)
	}
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("mcp tools: url is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MCPTools{Transport: transport, URL: url, Logger: logger}, nil
}

func (t *MCPTools) Name() string { return "MCPTools" }

func (t *MCPTools) Info() domain.ToolInfo {
	return domain.ToolInfo{
		Name:        t.Name(),
		Transport:   t.Transport,
		URL:         t.URL,
		Description: "Tools served by a remote MCP server",
	}
}

func (t *MCPTools) transport(ctx context.Context) (mcpsdk.Transport, error) {
	if t.dial != nil {
		return t.dial(ctx)
	}
	switch t.Transport {
	case TransportStreamableHTTP:
		return &mcpsdk.StreamableClientTransport{Endpoint: t.URL, HTTPClient: t.HTTPClient}, nil
	case TransportSSE:
		return &mcpsdk.SSEClientTransport{Endpoint: t.URL, HTTPClient: t.HTTPClient}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTransport, t.Transport)
	}
}

// Connect opens the client session and caches the remote tool list.
// Calling it on a connected instance is a no-op.
func (t *MCPTools) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connectLocked(ctx)
}

func (t *MCPTools) connectLocked(ctx context.Context) error {
	if t.session != nil {
		return nil
	}

	tr, err := t.transport(ctx)
	if err != nil {
		return err
	}

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: clientName, Version: buildconfig.Version()}, nil)
	session, err := client.Connect(ctx, tr, nil)
	if err != nil {
		return fmt.Errorf("mcp connect %s: %w", t.URL, err)
	}

	res, err := session.ListTools(ctx, &mcpsdk.ListToolsParams{})
	if err != nil {
		_ = session.Close()
		return fmt.Errorf("mcp list tools: %w", err)
	}

	defs := make([]domain.ToolDefinition, 0, len(res.Tools))
	for _, tool := range res.Tools {
		params, err := schemaMap(tool.InputSchema)
		if err != nil {
			_ = session.Close()
			return fmt.Errorf("mcp tool %s schema: %w", tool.Name, err)
		}
		defs = append(defs, domain.ToolDefinition{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  params,
		})
	}

	t.session = session
	t.tools = defs
	t.Logger.Info("mcp tools connected",
		zap.String("url", t.URL),
		zap.String("transport", t.Transport),
		zap.Int("tools", len(defs)),
	)
	return nil
}

// Tools returns the cached tool definitions, or ErrNotConnected.
func (t *MCPTools) Tools() ([]domain.ToolDefinition, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session == nil {
		return nil, ErrNotConnected
	}
	out := make([]domain.ToolDefinition, len(t.tools))
	copy(out, t.tools)
	return out, nil
}

// Definitions connects if needed and returns the tool definitions.
func (t *MCPTools) Definitions(ctx context.Context) ([]domain.ToolDefinition, error) {
	if err := t.Connect(ctx); err != nil {
		return nil, err
	}
	return t.Tools()
}

// Call executes a remote tool and flattens its text content.
// A tool-level failure is returned as output with isError set, not as err.
func (t *MCPTools) Call(ctx context.Context, name string, args json.RawMessage) (output string, isError bool, err error) {
	t.mu.Lock()
	if err := t.connectLocked(ctx); err != nil {
		t.mu.Unlock()
		return "", false, err
	}
	session := t.session
	known := false
	for _, def := range t.tools {
		if def.Name == name {
			known = true
			break
		}
	}
	t.mu.Unlock()

	if !known {
		return "", false, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	arguments := map[string]any{}
	if len(args) > 0 && string(args) != "null" {
		if err := json.Unmarshal(args, &arguments); err != nil {
			return "", false, fmt.Errorf("mcp tool %s arguments: %w", name, err)
		}
	}

	res, err := session.CallTool(ctx, &mcpsdk.CallToolParams{Name: name, Arguments: arguments})
	if err != nil {
		return "", false, fmt.Errorf("mcp call %s: %w", name, err)
	}

	var parts []string
	for _, c := range res.Content {
		if text, ok := c.(*mcpsdk.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n"), res.IsError, nil
}

// Connected reports whether a session is open.
func (t *MCPTools) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session != nil
}

func (t *MCPTools) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session == nil {
		return nil
	}
	err := t.session.Close()
	t.session = nil
	t.tools = nil
	return err
}

func schemaMap(schema any) (map[string]any, error) {
	if schema == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}, nil
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{"type": "object"}
	}
	return out, nil
}
