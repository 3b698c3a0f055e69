// Package koyomi is the public API for embedding the Koyomi agent
// workforce.
//
// Consumers import this package to run the scheduler with their own
// agents or backends without forking:
//
//	app, err := koyomi.New(
//	    koyomi.WithVersion(version),
//	    koyomi.WithLogger(logger),
//	    koyomi.WithAgent(myAgent{}),
//	)
//	if err != nil { ... }
//	if err := app.Run(ctx); err != nil { ... }
//
// The import graph enforces a strict no-cycle rule: koyomi (root)
// imports internal/*, but internal/* never imports koyomi (root).
// Public types (AgentStatus, Outcome, etc.) are standalone structs;
// conversion helpers live here because this is the only package that
// sees both sides of the boundary.
package koyomi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"github.com/ashita-ai/koyomi/internal/agent"
	"github.com/ashita-ai/koyomi/internal/agents"
	"github.com/ashita-ai/koyomi/internal/archive"
	"github.com/ashita-ai/koyomi/internal/config"
	"github.com/ashita-ai/koyomi/internal/embedding"
	"github.com/ashita-ai/koyomi/internal/executor"
	"github.com/ashita-ai/koyomi/internal/mcp"
	"github.com/ashita-ai/koyomi/internal/memory"
	"github.com/ashita-ai/koyomi/internal/notify"
	"github.com/ashita-ai/koyomi/internal/orchestrator"
	"github.com/ashita-ai/koyomi/internal/server"
	"github.com/ashita-ai/koyomi/internal/telemetry"
)

const shutdownTimeout = 15 * time.Second

// App is the Koyomi workforce lifecycle. Construct with New(), run with
// Run(). App has no public fields; use New() options to configure it.
type App struct {
	cfg          config.Config
	workforce    config.Workforce
	orch         *orchestrator.Orchestrator
	srv          *server.Server
	arc          *archive.Archive    // nil when archiving is disabled
	qdrant       *memory.QdrantStore // nil when the local store is used
	otelShutdown telemetry.Shutdown
	logger       *slog.Logger
	version      string
}

// New initialises the workforce: loads configuration, builds the shared
// executor/memory/notifier, and registers every agent. It does NOT
// start the scheduler or accept HTTP connections; call Run().
func New(opts ...Option) (*App, error) {
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.port != 0 {
		cfg.Port = o.port
	}
	if o.workforcePath != "" {
		cfg.WorkforcePath = o.workforcePath
	}
	version := o.version
	if version == "" {
		version = "dev"
	}

	logger.Info("koyomi starting", "version", version, "port", cfg.Port)

	otelShutdown, err := telemetry.Init(context.Background(), cfg.OTELEndpoint, cfg.ServiceName, version, true)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	// The workforce file is the operator's manifest; a missing file is
	// fatal here rather than silently running nothing.
	workforce, err := config.LoadWorkforce(cfg.WorkforcePath)
	if err != nil {
		_ = otelShutdown(context.Background())
		return nil, err
	}

	// Shared dependencies: one executor, one memory store, one notifier
	// for the whole workforce.
	var exec executor.Executor
	if o.executor != nil {
		exec = &executorAdapter{e: o.executor}
	} else {
		exec = newExecutor(cfg, logger)
	}

	var notifier notify.Notifier
	if o.notifier != nil {
		notifier = &notifierAdapter{n: o.notifier}
	} else {
		notifier = newNotifier(cfg, logger)
	}

	mem, qdrant, err := newMemoryStore(cfg, logger)
	if err != nil {
		_ = otelShutdown(context.Background())
		return nil, err
	}

	// Run archive (optional). Failure to open is non-fatal: the
	// workforce runs with in-memory history only.
	var arc *archive.Archive
	if cfg.ArchivePath != "" {
		arc, err = archive.Open(cfg.ArchivePath, logger)
		if err != nil {
			logger.Warn("run archive disabled", "error", err.Error())
			arc = nil
		} else {
			logger.Info("run archive enabled", "path", cfg.ArchivePath)
		}
	}

	orch := orchestrator.New(exec, mem, notifier, arc, logger)

	var defs []agent.Definition
	if !o.noBuiltins {
		defs = agents.All(func(name string) map[string]any {
			return workforce.Agent(name).Settings
		})
	}
	for _, a := range o.extraAgents {
		defs = append(defs, &agentAdapter{a: a})
	}

	// Per-agent registration failures are logged and skipped; one bad
	// agent must not keep the rest of the workforce down.
	for _, def := range defs {
		entry := workforce.Agent(def.Name())
		if err := orch.Register(def, entry.Schedule, entry.IsEnabled()); err != nil {
			logger.Error("agent registration failed, skipping",
				"agent", def.Name(),
				"error", err.Error(),
			)
		}
	}

	mcpSrv := mcp.New(orch, version, logger)

	srvCfg := server.ServerConfig{
		Orchestrator: orch,
		Workforce:    workforce,
		Archive:      arc,
		MCPServer:    mcpSrv.MCPServer(),
		Logger:       logger,
		Port:         cfg.Port,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	// Assigned only when non-nil: a typed nil pointer in the interface
	// field would read as a configured backend.
	if qdrant != nil {
		srvCfg.Memory = qdrant
	}
	srv := server.New(srvCfg)

	return &App{
		cfg:          cfg,
		workforce:    workforce,
		orch:         orch,
		srv:          srv,
		arc:          arc,
		qdrant:       qdrant,
		otelShutdown: otelShutdown,
		logger:       logger,
		version:      version,
	}, nil
}

// Run starts the scheduler and the HTTP server, then blocks until ctx
// is cancelled or a fatal server error occurs. On return, Shutdown has
// been called; callers should not call it separately.
func (a *App) Run(ctx context.Context) error {
	if err := a.orch.Start(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		_ = a.Shutdown(context.Background())
		return err
	}

	return a.Shutdown(context.Background())
}

// Shutdown performs a phased graceful shutdown: stop accepting HTTP
// requests, stop the scheduler and drain in-flight runs, then release
// storage and telemetry.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("koyomi shutting down")

	httpCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	if err := a.srv.Shutdown(httpCtx); err != nil {
		a.logger.Error("http shutdown error", "error", err.Error())
	}
	cancel()

	orchCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	err := a.orch.Shutdown(orchCtx)
	cancel()

	a.Close()
	return err
}

// Close releases storage and telemetry resources. Safe to call after
// New() without Run() (the CLI status and one-shot paths do this).
func (a *App) Close() {
	if a.arc != nil {
		if err := a.arc.Close(); err != nil {
			a.logger.Warn("archive close error", "error", err.Error())
		}
	}
	if a.qdrant != nil {
		if err := a.qdrant.Close(); err != nil {
			a.logger.Warn("qdrant close error", "error", err.Error())
		}
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(context.Background()); err != nil {
			a.logger.Warn("telemetry shutdown error", "error", err.Error())
		}
	}
}

// Statuses returns the current status of every registered agent.
func (a *App) Statuses() []AgentStatus {
	internal := a.orch.Statuses()
	out := make([]AgentStatus, 0, len(internal))
	for _, st := range internal {
		out = append(out, toPublicStatus(st))
	}
	return out
}

// RunAgentOnce executes one run of the named agent synchronously and
// returns its outcome. Unknown names yield a not_found outcome.
func (a *App) RunAgentOnce(ctx context.Context, name string) Outcome {
	return toPublicOutcome(a.orch.RunAgent(ctx, name))
}

// RunHistory returns the named agent's most recent run records, newest
// first. Returns nil for unknown agents.
func (a *App) RunHistory(name string, limit int) []RunRecord {
	rt, ok := a.orch.Agent(name)
	if !ok {
		return nil
	}
	return toPublicRecords(rt.History(limit))
}

// newExecutor builds the task executor from config. In auto mode a
// reachable Ollama serves simple tasks and OpenAI (when keyed) serves
// complex ones; with neither available the static executor keeps the
// workforce alive for development.
func newExecutor(cfg config.Config, logger *slog.Logger) executor.Executor {
	switch cfg.ExecutorProvider {
	case "ollama":
		logger.Info("task executor: ollama", "url", cfg.OllamaURL, "model", cfg.OllamaModel)
		return executor.NewOllama(cfg.OllamaURL, cfg.OllamaModel)
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			logger.Error("OPENAI_API_KEY required when KOYOMI_EXECUTOR=openai, using static executor")
			return &executor.Static{}
		}
		logger.Info("task executor: openai", "model", cfg.OpenAIModel)
		return executor.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	case "static":
		logger.Info("task executor: static (development mode)")
		return &executor.Static{}
	default:
		var local, hosted executor.Executor
		if embedding.Reachable(cfg.OllamaURL) {
			local = executor.NewOllama(cfg.OllamaURL, cfg.OllamaModel)
			logger.Info("task executor: ollama (auto-detected)", "url", cfg.OllamaURL, "model", cfg.OllamaModel)
		}
		if cfg.OpenAIAPIKey != "" {
			hosted = executor.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel)
			logger.Info("task executor: openai (auto-detected)", "model", cfg.OpenAIModel)
		}
		if local == nil && hosted == nil {
			logger.Warn("no task executor available, using static executor")
			return &executor.Static{}
		}
		router, err := executor.NewRouter(local, hosted)
		if err != nil {
			return &executor.Static{}
		}
		return router
	}
}

// newEmbeddingProvider builds the embedding provider backing the vector
// memory store.
func newEmbeddingProvider(cfg config.Config, logger *slog.Logger) embedding.Provider {
	dims := cfg.EmbeddingDimensions

	switch cfg.EmbeddingProvider {
	case "openai":
		provider, err := embedding.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.EmbeddingModel, dims)
		if err != nil {
			logger.Error("openai embedding provider unavailable, using noop", "error", err.Error())
			return embedding.NewNoopProvider(dims)
		}
		logger.Info("embedding provider: openai", "model", cfg.EmbeddingModel, "dimensions", dims)
		return provider
	case "ollama":
		logger.Info("embedding provider: ollama", "url", cfg.OllamaURL, "model", cfg.OllamaEmbedModel, "dimensions", dims)
		return embedding.NewOllamaProvider(cfg.OllamaURL, cfg.OllamaEmbedModel, dims)
	case "noop":
		logger.Info("embedding provider: noop")
		return embedding.NewNoopProvider(dims)
	default:
		if embedding.Reachable(cfg.OllamaURL) {
			logger.Info("embedding provider: ollama (auto-detected)", "url", cfg.OllamaURL, "model", cfg.OllamaEmbedModel, "dimensions", dims)
			return embedding.NewOllamaProvider(cfg.OllamaURL, cfg.OllamaEmbedModel, dims)
		}
		if cfg.OpenAIAPIKey != "" {
			provider, err := embedding.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.EmbeddingModel, dims)
			if err == nil {
				logger.Info("embedding provider: openai (auto-detected)", "model", cfg.EmbeddingModel, "dimensions", dims)
				return provider
			}
		}
		logger.Warn("no embedding provider available, using noop")
		return embedding.NewNoopProvider(dims)
	}
}

// newMemoryStore builds the shared memory store. Qdrant is used when
// configured; otherwise agents share the in-process store, which covers
// development and keeps the memory interface live without external
// services.
func newMemoryStore(cfg config.Config, logger *slog.Logger) (memory.Store, *memory.QdrantStore, error) {
	useQdrant := cfg.MemoryBackend == "qdrant" || (cfg.MemoryBackend == "auto" && cfg.QdrantURL != "")
	if !useQdrant {
		logger.Info("memory store: local in-process")
		return memory.NewLocalStore(), nil, nil
	}
	if cfg.QdrantURL == "" {
		return nil, nil, fmt.Errorf("memory: QDRANT_URL required when KOYOMI_MEMORY=qdrant")
	}

	embedder := newEmbeddingProvider(cfg, logger)
	store, err := memory.NewQdrantStore(memory.QdrantConfig{
		URL:        cfg.QdrantURL,
		APIKey:     cfg.QdrantAPIKey,
		Collection: cfg.QdrantCollection,
	}, embedder, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("memory: %w", err)
	}
	if err := store.EnsureCollection(context.Background()); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("memory: ensure collection: %w", err)
	}
	logger.Info("memory store: qdrant", "collection", cfg.QdrantCollection)
	return store, store, nil
}

// newNotifier builds the notifier. Telegram when configured, otherwise
// notifications land in the log.
func newNotifier(cfg config.Config, logger *slog.Logger) notify.Notifier {
	if cfg.TelegramBotToken != "" {
		logger.Info("notifier: telegram")
		return notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, logger)
	}
	logger.Info("notifier: log only (no TELEGRAM_BOT_TOKEN)")
	return notify.NewLogNotifier(logger)
}

// executorAdapter bridges a public Executor into the internal interface.
type executorAdapter struct {
	e Executor
}

func (a *executorAdapter) Name() string { return a.e.Name() }

func (a *executorAdapter) Execute(ctx context.Context, task string, complexity executor.Complexity) (string, error) {
	return a.e.Execute(ctx, task, Complexity(complexity))
}

// notifierAdapter bridges a public Notifier into the internal interface.
type notifierAdapter struct {
	n Notifier
}

func (a *notifierAdapter) Notify(ctx context.Context, message, source string) error {
	return a.n.Notify(ctx, message, source)
}

func (a *notifierAdapter) RequestApproval(ctx context.Context, source, action, details string) (bool, error) {
	return a.n.RequestApproval(ctx, source, action, details)
}

// agentAdapter bridges a public Agent into the internal Definition.
type agentAdapter struct {
	a Agent
}

func (ad *agentAdapter) Name() string            { return ad.a.Name() }
func (ad *agentAdapter) Description() string     { return ad.a.Description() }
func (ad *agentAdapter) DefaultSchedule() string { return ad.a.DefaultSchedule() }
func (ad *agentAdapter) BehaviorSpec() string    { return ad.a.BehaviorSpec() }
func (ad *agentAdapter) Operations() []string    { return ad.a.Operations() }

func (ad *agentAdapter) Run(ctx context.Context, tk *agent.Toolkit) (any, error) {
	return ad.a.Run(ctx, &toolkitAdapter{tk: tk})
}

// toolkitAdapter exposes the internal toolkit through the public
// interface.
type toolkitAdapter struct {
	tk *agent.Toolkit
}

func (t *toolkitAdapter) Execute(ctx context.Context, task string, complexity Complexity) string {
	return t.tk.Execute(ctx, task, executor.Complexity(complexity))
}

func (t *toolkitAdapter) Notify(ctx context.Context, message string) error {
	return t.tk.Notify(ctx, message)
}

func (t *toolkitAdapter) RequestApproval(ctx context.Context, action, details string) (bool, error) {
	return t.tk.RequestApproval(ctx, action, details)
}

func (t *toolkitAdapter) Remember(ctx context.Context, content string, metadata map[string]any, shared bool) error {
	return t.tk.Remember(ctx, content, metadata, shared)
}

func (t *toolkitAdapter) Recall(ctx context.Context, query string, limit int, shared bool) ([]Memory, error) {
	recalled, err := t.tk.Recall(ctx, query, limit, shared)
	if err != nil {
		return nil, err
	}
	out := make([]Memory, 0, len(recalled))
	for _, m := range recalled {
		out = append(out, Memory{
			Content:   m.Content,
			Metadata:  m.Metadata,
			Relevance: m.Relevance,
		})
	}
	return out, nil
}
