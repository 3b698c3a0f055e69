package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/koyomi/internal/archive"
	"github.com/ashita-ai/koyomi/internal/config"
	"github.com/ashita-ai/koyomi/internal/orchestrator"
)

// Server is the Koyomi monitoring HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a
// Server. Optional fields (nil-safe): Archive, MCPServer.
type ServerConfig struct {
	// Required dependencies.
	Orchestrator *orchestrator.Orchestrator
	Workforce    config.Workforce
	Logger       *slog.Logger

	// Optional dependencies (nil = disabled).
	Archive   *archive.Archive
	Memory    MemoryHealth
	MCPServer *mcpserver.MCPServer

	// HTTP server settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(cfg.Orchestrator, cfg.Workforce, cfg.Archive, cfg.Memory, cfg.Logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", h.HandleHealth)
	mux.HandleFunc("GET /api/agents", h.HandleListAgents)
	mux.HandleFunc("GET /api/agents/{name}", h.HandleAgentDetail)
	mux.HandleFunc("POST /api/agents/{name}/run", h.HandleTriggerRun)
	mux.HandleFunc("GET /api/agents/{name}/runs", h.HandleRunHistory)
	mux.HandleFunc("GET /api/agents/{name}/config", h.HandleAgentConfig)

	// MCP StreamableHTTP transport.
	if cfg.MCPServer != nil {
		mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(cfg.MCPServer))
	}

	// Human dashboard. Registered last so API routes take priority via
	// the mux's longest-match rule.
	mux.HandleFunc("GET /", h.HandleDashboard)

	// Middleware chain (outermost executes first):
	// request ID → tracing → logging → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
