package agentos

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const maxQuickPrompts = 3

// OSConfig is the optional YAML file tuning what the UI shows.
type OSConfig struct {
	AvailableModels []string    `yaml:"available_models,omitempty" json:"available_models,omitempty"`
	Chat            *ChatConfig `yaml:"chat,omitempty" json:"chat,omitempty"`
}

type ChatConfig struct {
	// QuickPrompts maps an agent id to suggested first messages.
	QuickPrompts map[string][]string `yaml:"quick_prompts" json:"quick_prompts"`
}

// LoadOSConfig reads path. An empty path yields a nil config.
func LoadOSConfig(path string) (*OSConfig, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read os config: %w", err)
	}

	var cfg OSConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse os config %s: %w", path, err)
	}
	if cfg.Chat != nil {
		for agentID, prompts := range cfg.Chat.QuickPrompts {
			if len(prompts) > maxQuickPrompts {
				return nil, fmt.Errorf("os config: agent %s has %d quick prompts, max is %d", agentID, len(prompts), maxQuickPrompts)
			}
		}
	}
	return &cfg, nil
}

// validateAgents checks that quick prompts only reference known agents.
func (c *OSConfig) validateAgents(known map[string]bool) error {
	if c == nil || c.Chat == nil {
		return nil
	}
	for agentID := range c.Chat.QuickPrompts {
		if !known[agentID] {
			return fmt.Errorf("os config: quick prompts reference unknown agent %q", agentID)
		}
	}
	return nil
}
