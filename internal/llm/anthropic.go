package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/agente-basico/internal/domain"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
)

const (
	DefaultClaudeModel = "claude-sonnet-4-5"
	defaultMaxTokens   = 4096
)

// Claude is the Anthropic Messages API model reference.
type Claude struct {
	client    anthropic.Client
	id        string
	maxTokens int64
}

type ClaudeOption func(*claudeOptions)

type claudeOptions struct {
	id         string
	maxTokens  int64
	clientOpts []option.RequestOption
}

func WithModelID(id string) ClaudeOption {
	return func(o *claudeOptions) {
		if id != "" {
			o.id = id
		}
	}
}

func WithMaxTokens(n int64) ClaudeOption {
	return func(o *claudeOptions) {
		if n > 0 {
			o.maxTokens = n
		}
	}
}

// WithRequestOptions passes options straight to the SDK client (base URL, retries, HTTP client).
func WithRequestOptions(opts ...option.RequestOption) ClaudeOption {
	return func(o *claudeOptions) {
		o.clientOpts = append(o.clientOpts, opts...)
	}
}

// NewClaude builds a Claude reference. No request is made until Response is called.
func NewClaude(apiKey string, opts ...ClaudeOption) *Claude {
	o := claudeOptions{id: DefaultClaudeModel, maxTokens: defaultMaxTokens}
	for _, fn := range opts {
		fn(&o)
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	clientOpts = append(clientOpts, o.clientOpts...)

	return &Claude{
		client:    anthropic.NewClient(clientOpts...),
		id:        o.id,
		maxTokens: o.maxTokens,
	}
}

func (c *Claude) ID() string { return c.id }

func (c *Claude) Provider() string { return ProviderAnthropic }

func (c *Claude) Response(ctx context.Context, req Request) (*Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.id),
		MaxTokens: maxTokens,
		Messages:  buildMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
		if req.ToolChoice == ToolChoiceNone {
			none := anthropic.NewToolChoiceNoneParam()
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfNone: &none}
		}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	out := &Response{
		StopReason: string(resp.StopReason),
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}

	var text []string
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			if t := block.AsText().Text; t != "" {
				text = append(text, t)
			}
		case "tool_use":
			tu := block.AsToolUse()
			args, err := json.Marshal(tu.Input)
			if err != nil {
				return nil, fmt.Errorf("marshal tool input for %s: %w", tu.Name, err)
			}
			out.ToolCalls = append(out.ToolCalls, domain.ToolCall{
				ID:        tu.ID,
				Name:      tu.Name,
				Arguments: args,
			})
		}
	}
	out.Content = strings.Join(text, "\n")

	return out, nil
}

type turn struct {
	role   domain.Role
	blocks []anthropic.ContentBlockParamUnion
}

// buildMessages folds domain messages into alternating Anthropic turns.
// Tool results travel in user turns right after the assistant tool_use.
func buildMessages(msgs []domain.Message) []anthropic.MessageParam {
	var turns []turn
	push := func(role domain.Role, blocks ...anthropic.ContentBlockParamUnion) {
		if len(blocks) == 0 {
			return
		}
		if n := len(turns); n > 0 && turns[n-1].role == role {
			turns[n-1].blocks = append(turns[n-1].blocks, blocks...)
			return
		}
		turns = append(turns, turn{role: role, blocks: blocks})
	}

	for _, m := range msgs {
		switch m.Role {
		case domain.RoleSystem:
			continue
		case domain.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var input any = map[string]any{}
				if len(tc.Arguments) > 0 {
					if err := json.Unmarshal(tc.Arguments, &input); err != nil {
						input = string(tc.Arguments)
					}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			push(domain.RoleAssistant, blocks...)
		case domain.RoleTool:
			push(domain.RoleUser, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, m.IsError))
		default:
			if m.Content != "" {
				push(domain.RoleUser, anthropic.NewTextBlock(m.Content))
			}
		}
	}

	out := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		if t.role == domain.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(t.blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(t.blocks...))
		}
	}
	return out
}

func buildTools(tools []domain.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		schema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}
		if props, ok := t.Parameters["properties"]; ok {
			schema.Properties = props
		}
		schema.Required = requiredFields(t.Parameters["required"])

		out[i] = anthropic.ToolUnionParamOfTool(schema, t.Name)
		if t.Description != "" && out[i].OfTool != nil {
			out[i].OfTool.Description = anthropic.String(t.Description)
		}
	}
	return out
}

func requiredFields(v any) []string {
	switch req := v.(type) {
	case []string:
		return req
	case []any:
		var out []string
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
