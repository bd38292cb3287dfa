package domain

// AgentInfo is the serialisable view of an agent descriptor returned by the
// hosting API.
type AgentInfo struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Model       ModelInfo    `json:"model"`
	Database    *DBInfo      `json:"db,omitempty"`
	Tools       []ToolInfo   `json:"tools"`
	Settings    AgentOptions `json:"settings"`
}

type ModelInfo struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
}

type DBInfo struct {
	Type string `json:"type"`
	Path string `json:"path,omitempty"`
}

type ToolInfo struct {
	Name        string `json:"name"`
	Transport   string `json:"transport,omitempty"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
}

// AgentOptions are the behavioural flags of an agent.
type AgentOptions struct {
	AddHistoryToContext    bool `json:"add_history_to_context"`
	NumHistoryRuns         int  `json:"num_history_runs"`
	AddDatetimeToContext   bool `json:"add_datetime_to_context"`
	EnableSessionSummaries bool `json:"enable_session_summaries"`
	Markdown               bool `json:"markdown"`
}
