// Package model defines the core domain types for Koyomi.
//
// Types are plain structs with strong typing (time.Time, enums) and no
// behavior beyond validation; all state handling lives in the packages
// that own it.
package model

import "fmt"

// AgentState is the derived execution state of an agent.
type AgentState string

const (
	StateIdle    AgentState = "idle"
	StateRunning AgentState = "running"
	StateError   AgentState = "error"
)

// AgentStatus is the read-only projection of an agent's current state,
// served by the monitoring API and the CLI status table.
type AgentStatus struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Schedule    string     `json:"schedule"`
	RunCount    int        `json:"run_count"`
	LastRun     *string    `json:"last_run"` // RFC3339, nil before the first run
	Enabled     bool       `json:"enabled"`
	Status      AgentState `json:"status"`
}

// maxAgentNameLen bounds agent names; names are used as map keys, cron job
// labels, and URL path segments.
const maxAgentNameLen = 64

// ValidateAgentName checks that a name is a safe identifier: ASCII letters,
// digits, and underscores, starting with a letter, at most 64 characters.
// The restrictive pattern is what makes the name safe to embed in URL paths
// without escaping.
func ValidateAgentName(name string) error {
	if name == "" {
		return fmt.Errorf("agent name is required")
	}
	if len(name) > maxAgentNameLen {
		return fmt.Errorf("agent name must be at most %d characters", maxAgentNameLen)
	}
	c := name[0]
	if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
		return fmt.Errorf("agent name must start with a letter")
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') && c != '_' {
			return fmt.Errorf("agent name contains invalid character at position %d: %q", i, c)
		}
	}
	return nil
}
