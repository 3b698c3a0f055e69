// Package mcp implements the Model Context Protocol surface for Koyomi.
//
// It exposes the orchestrator's monitoring and trigger operations as MCP
// tools so MCP-compatible assistants can inspect and drive the workforce.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/koyomi/internal/model"
	"github.com/ashita-ai/koyomi/internal/orchestrator"
)

// Server wraps the MCP server with the orchestrator.
type Server struct {
	mcpServer *mcpserver.MCPServer
	orch      *orchestrator.Orchestrator
	logger    *slog.Logger
}

// New creates and configures an MCP server with all tools registered.
func New(orch *orchestrator.Orchestrator, version string, logger *slog.Logger) *Server {
	s := &Server{orch: orch, logger: logger}

	s.mcpServer = mcpserver.NewMCPServer(
		"koyomi",
		version,
		mcpserver.WithToolCapabilities(true),
	)
	s.registerTools()
	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	// koyomi_list_agents: snapshot of every registered agent.
	s.mcpServer.AddTool(
		mcplib.NewTool("koyomi_list_agents",
			mcplib.WithDescription("List every registered agent with its schedule, run count, and current status."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
		),
		s.handleListAgents,
	)

	// koyomi_agent_status: one agent's status projection.
	s.mcpServer.AddTool(
		mcplib.NewTool("koyomi_agent_status",
			mcplib.WithDescription("Get the current status of a single agent: schedule, run count, last run, and whether it is running."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("agent",
				mcplib.Description("Agent name, e.g. job_hunter"),
				mcplib.Required(),
			),
		),
		s.handleAgentStatus,
	)

	// koyomi_run_agent: trigger one run and wait for its outcome.
	s.mcpServer.AddTool(
		mcplib.NewTool("koyomi_run_agent",
			mcplib.WithDescription(`Run an agent once, synchronously, and return the outcome.

If the agent is already mid-run the call returns a skipped outcome
immediately instead of queueing a second run.`),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithString("agent",
				mcplib.Description("Agent name to run"),
				mcplib.Required(),
			),
		),
		s.handleRunAgent,
	)

	// koyomi_run_history: recent run records for one agent.
	s.mcpServer.AddTool(
		mcplib.NewTool("koyomi_run_history",
			mcplib.WithDescription("Get an agent's most recent run records, newest first."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("agent",
				mcplib.Description("Agent name"),
				mcplib.Required(),
			),
			mcplib.WithNumber("limit",
				mcplib.Description("Maximum number of records to return"),
				mcplib.Min(1),
				mcplib.Max(100),
				mcplib.DefaultNumber(20),
			),
		),
		s.handleRunHistory,
	)
}

func (s *Server) handleListAgents(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	return jsonResult(s.orch.Statuses())
}

func (s *Server) handleAgentStatus(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	name := request.GetString("agent", "")
	rt, ok := s.lookup(name)
	if !ok {
		return errorResult(fmt.Sprintf("agent not found: %s", name)), nil
	}
	return jsonResult(rt.Status())
}

func (s *Server) handleRunAgent(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	name := request.GetString("agent", "")
	if err := model.ValidateAgentName(name); err != nil {
		return errorResult(err.Error()), nil
	}

	outcome := s.orch.RunAgent(ctx, name)
	if outcome.Status == model.OutcomeNotFound {
		return errorResult(outcome.Reason), nil
	}
	return jsonResult(outcome)
}

func (s *Server) handleRunHistory(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	name := request.GetString("agent", "")
	rt, ok := s.lookup(name)
	if !ok {
		return errorResult(fmt.Sprintf("agent not found: %s", name)), nil
	}
	limit := request.GetInt("limit", 20)
	return jsonResult(rt.History(limit))
}

func (s *Server) lookup(name string) (statusReader, bool) {
	if model.ValidateAgentName(name) != nil {
		return nil, false
	}
	rt, ok := s.orch.Agent(name)
	if !ok {
		return nil, false
	}
	return rt, true
}

// statusReader is the read-only slice of the agent runtime the MCP
// handlers need.
type statusReader interface {
	Status() model.AgentStatus
	History(limit int) []model.RunRecord
}

func jsonResult(v any) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("encode result: %v", err)), nil
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}, nil
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
