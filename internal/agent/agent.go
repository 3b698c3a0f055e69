// Package agent defines the contract every workforce agent implements
// and the runtime that wraps an agent with scheduling state: single
// flight execution, a bounded run history, and status reporting.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ashita-ai/koyomi/internal/executor"
	"github.com/ashita-ai/koyomi/internal/memory"
	"github.com/ashita-ai/koyomi/internal/notify"
)

// Definition is the behavior an agent author supplies. The runtime owns
// everything else: locking, counters, history, notifications.
type Definition interface {
	// Name uniquely identifies the agent. It is used as a map key, an
	// API path segment, and a memory namespace.
	Name() string
	Description() string

	// DefaultSchedule is the agent's schedule expression when config
	// does not override it.
	DefaultSchedule() string

	// BehaviorSpec describes the agent's task scope. The toolkit
	// prepends it to every executor task as standing instructions; the
	// scheduler treats it as opaque.
	BehaviorSpec() string

	// Operations lists the callable operations the agent exposes to
	// its task executor.
	Operations() []string

	// Run performs one unit of work. The returned value is agent
	// specific; the runtime serializes it to a short summary for the
	// run history.
	Run(ctx context.Context, tk *Toolkit) (any, error)
}

// Toolkit bundles the shared dependencies an agent may use during a
// run. One executor, memory store, and notifier are shared across all
// agents; the toolkit scopes them to the calling agent.
type Toolkit struct {
	agentName string
	behavior  string
	exec      executor.Executor
	mem       memory.Store
	notifier  notify.Notifier
	logger    *slog.Logger
}

// NewToolkit scopes the shared collaborators to one agent. The behavior
// spec becomes the standing instructions for every task the agent
// executes.
func NewToolkit(agentName, behavior string, exec executor.Executor, mem memory.Store, notifier notify.Notifier, logger *slog.Logger) *Toolkit {
	return &Toolkit{
		agentName: agentName,
		behavior:  behavior,
		exec:      exec,
		mem:       mem,
		notifier:  notifier,
		logger:    logger,
	}
}

// Execute runs a task through the shared executor, prefixed with the
// agent's behavior spec. Failures come back as an error-prefixed result
// string rather than an error so that one failed model call does not
// abort the whole run.
func (t *Toolkit) Execute(ctx context.Context, task string, complexity executor.Complexity) string {
	prompt := task
	if t.behavior != "" {
		prompt = t.behavior + "\n\n" + task
	}
	out, err := t.exec.Execute(ctx, prompt, complexity)
	if err != nil {
		t.logger.Warn("task execution failed",
			slog.String("agent", t.agentName),
			slog.String("error", err.Error()),
		)
		return fmt.Sprintf("Error: %v", err)
	}
	return out
}

// Notify sends a message to the operator attributed to this agent.
func (t *Toolkit) Notify(ctx context.Context, message string) error {
	return t.notifier.Notify(ctx, message, t.agentName)
}

// RequestApproval asks the operator to approve an action before the
// agent takes it.
func (t *Toolkit) RequestApproval(ctx context.Context, action, details string) (bool, error) {
	return t.notifier.RequestApproval(ctx, t.agentName, action, details)
}

// Remember stores content in the agent's memory namespace. Shared
// entries land in the namespace visible to all agents.
func (t *Toolkit) Remember(ctx context.Context, content string, metadata map[string]any, shared bool) error {
	return t.mem.Store(ctx, t.agentName, content, metadata, shared)
}

// Recall retrieves memories relevant to the query from the agent's
// namespace, or the shared namespace when shared is set.
func (t *Toolkit) Recall(ctx context.Context, query string, limit int, shared bool) ([]memory.Memory, error) {
	return t.mem.Recall(ctx, t.agentName, query, limit, shared)
}

// summarize renders an agent result as a short text summary. Strings
// pass through; everything else is JSON-encoded with a formatting
// fallback.
func summarize(result any) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	default:
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
		return fmt.Sprintf("%v", v)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
