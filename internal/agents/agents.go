// Package agents contains the built-in workforce: the concrete agent
// definitions registered by default. Each agent wires its behavior
// through the shared toolkit; none of them talks to an external service
// directly.
package agents

import (
	"github.com/ashita-ai/koyomi/internal/agent"
)

// All returns the built-in agent definitions, configured from the
// per-agent settings maps in the workforce file. settings may be nil.
func All(settings func(name string) map[string]any) []agent.Definition {
	if settings == nil {
		settings = func(string) map[string]any { return nil }
	}
	return []agent.Definition{
		NewJobHunter(settings("job_hunter")),
		NewTradingMonitor(settings("trading_monitor")),
		NewSocialMedia(settings("social_media")),
		NewResearchScout(settings("research_scout")),
		NewInboxManager(settings("inbox_manager")),
	}
}

// strSetting reads a string setting with a default.
func strSetting(settings map[string]any, key, def string) string {
	if v, ok := settings[key].(string); ok && v != "" {
		return v
	}
	return def
}

// strSliceSetting reads a []string setting with a default.
func strSliceSetting(settings map[string]any, key string, def []string) []string {
	raw, ok := settings[key].([]any)
	if !ok {
		return def
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
