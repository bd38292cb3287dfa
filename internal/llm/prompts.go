package llm

import "strings"

const SessionSummaryPrompt = `You are a conversation summarizer. Given the conversation between a user and an assistant below, write a concise summary of what was discussed and note the main topics.

Respond ONLY with a JSON object. No markdown, no explanation. Example:
{"summary":"The user asked how to configure MCP tools in an agent.","topics":["mcp","tools"]}

Conversation:
%s`

// StripFences removes markdown code fences a model may wrap JSON in.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
