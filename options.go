package koyomi

import "log/slog"

// Option configures an App.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults.
// Unexported; callers use the With* functions.
type resolvedOptions struct {
	port          int
	workforcePath string
	logger        *slog.Logger
	version       string
	executor      Executor
	notifier      Notifier
	extraAgents   []Agent
	noBuiltins    bool
}

// WithPort overrides the TCP port from config (KOYOMI_PORT env var).
func WithPort(port int) Option {
	return func(o *resolvedOptions) { o.port = port }
}

// WithWorkforcePath overrides the workforce file path from config
// (KOYOMI_WORKFORCE env var).
func WithWorkforcePath(path string) Option {
	return func(o *resolvedOptions) { o.workforcePath = path }
}

// WithLogger sets the structured logger for the App.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version string reported in logs and the MCP
// server handshake.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithExecutor replaces the auto-detected task executor (Ollama/OpenAI/
// static) with a custom implementation.
func WithExecutor(e Executor) Option {
	return func(o *resolvedOptions) { o.executor = e }
}

// WithNotifier replaces the configured notifier (Telegram or log) with
// a custom implementation.
func WithNotifier(n Notifier) Option {
	return func(o *resolvedOptions) { o.notifier = n }
}

// WithAgent registers an additional agent alongside the built-in
// workforce. Multiple agents may be registered.
func WithAgent(a Agent) Option {
	return func(o *resolvedOptions) { o.extraAgents = append(o.extraAgents, a) }
}

// WithoutBuiltinAgents skips registration of the built-in workforce,
// leaving only agents registered via WithAgent.
func WithoutBuiltinAgents() Option {
	return func(o *resolvedOptions) { o.noBuiltins = true }
}
