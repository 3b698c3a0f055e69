package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AgentConfig is one agent's entry in the workforce file. Schedule
// overrides the agent's built-in default; Enabled defaults to true when
// absent. Settings is free-form agent configuration, rendered back
// through the API only after secret redaction.
type AgentConfig struct {
	Schedule string         `yaml:"schedule"`
	Enabled  *bool          `yaml:"enabled"`
	Settings map[string]any `yaml:"settings"`
}

// IsEnabled resolves the tri-state Enabled flag.
func (a AgentConfig) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

// Workforce is the parsed workforce YAML file: per-agent overrides keyed
// by agent name. Agents absent from the file run with their defaults.
type Workforce struct {
	Agents map[string]AgentConfig `yaml:"agents"`
}

// Agent returns the config entry for name. A zero entry (default
// schedule, enabled, no settings) is returned for unknown names.
func (w Workforce) Agent(name string) AgentConfig {
	return w.Agents[name]
}

// LoadWorkforce reads and parses the workforce file at path. A missing
// file is an error: the workforce file is the operator's manifest of
// what should be running.
func LoadWorkforce(path string) (Workforce, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Workforce{}, fmt.Errorf("config: read workforce file: %w", err)
	}
	var w Workforce
	if err := yaml.Unmarshal(data, &w); err != nil {
		return Workforce{}, fmt.Errorf("config: parse workforce file %s: %w", path, err)
	}
	if w.Agents == nil {
		w.Agents = map[string]AgentConfig{}
	}
	return w, nil
}
