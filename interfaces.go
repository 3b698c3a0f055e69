package koyomi

import "context"

// Complexity hints which backend should handle a task.
type Complexity string

const (
	ComplexityAuto    Complexity = "auto"
	ComplexitySimple  Complexity = "simple"
	ComplexityComplex Complexity = "complex"
)

// Executor runs natural-language tasks. When provided via WithExecutor,
// it replaces the auto-detected Ollama/OpenAI/static backend for every
// agent.
type Executor interface {
	Execute(ctx context.Context, task string, complexity Complexity) (string, error)
	Name() string
}

// Notifier delivers operator notifications and approval requests. When
// provided via WithNotifier, it replaces the Telegram/log notifier.
type Notifier interface {
	Notify(ctx context.Context, message, source string) error
	RequestApproval(ctx context.Context, source, action, details string) (bool, error)
}

// Toolkit is the set of shared capabilities handed to an agent's Run.
// Calls are scoped to the running agent: notifications carry its name
// and memories land in its namespace.
type Toolkit interface {
	// Execute runs a task; failures come back as an error-prefixed
	// result string rather than an error.
	Execute(ctx context.Context, task string, complexity Complexity) string
	Notify(ctx context.Context, message string) error
	RequestApproval(ctx context.Context, action, details string) (bool, error)
	Remember(ctx context.Context, content string, metadata map[string]any, shared bool) error
	Recall(ctx context.Context, query string, limit int, shared bool) ([]Memory, error)
}

// Agent is a workforce agent registered via WithAgent. The scheduler
// owns locking, run history, and status; implementations supply only
// behavior.
type Agent interface {
	Name() string
	Description() string
	DefaultSchedule() string
	BehaviorSpec() string
	Operations() []string
	Run(ctx context.Context, tk Toolkit) (any, error)
}
