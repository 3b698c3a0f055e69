package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ashita-ai/koyomi/internal/agent"
	"github.com/ashita-ai/koyomi/internal/archive"
	"github.com/ashita-ai/koyomi/internal/config"
	"github.com/ashita-ai/koyomi/internal/model"
	"github.com/ashita-ai/koyomi/internal/orchestrator"
)

const (
	detailRunCount   = 10
	defaultRunsLimit = 20
)

// MemoryHealth reports reachability of the vector memory backend.
// The in-process store has nothing to probe and passes nil.
type MemoryHealth interface {
	Healthy(ctx context.Context) error
}

// Handlers holds the HTTP handler dependencies. The orchestrator is a
// live shared reference; handlers read through it and never copy its
// state.
type Handlers struct {
	orch      *orchestrator.Orchestrator
	workforce config.Workforce
	arc       *archive.Archive // nil when archiving is disabled
	mem       MemoryHealth     // nil for the in-process store
	logger    *slog.Logger
}

func NewHandlers(orch *orchestrator.Orchestrator, workforce config.Workforce, arc *archive.Archive, mem MemoryHealth, logger *slog.Logger) *Handlers {
	return &Handlers{orch: orch, workforce: workforce, arc: arc, mem: mem, logger: logger}
}

// HandleHealth reports scheduler liveness. A stopped scheduler is a
// degraded service, not a dead one: the process is up but no runs fire.
// Memory backend reachability is reported but does not degrade the
// service; agents keep running and surface memory failures per run.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := model.HealthResponse{
		Status:        "ok",
		UptimeSeconds: int64(h.orch.Uptime().Seconds()),
		AgentCount:    h.orch.AgentCount(),
	}
	status := http.StatusOK
	if !h.orch.Running() {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	if h.mem != nil {
		if err := h.mem.Healthy(r.Context()); err == nil {
			resp.Memory = "connected"
		} else {
			resp.Memory = "disconnected"
		}
	}
	writeJSON(w, r, status, resp)
}

// HandleListAgents returns status projections for every registered
// agent.
func (h *Handlers) HandleListAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.orch.Statuses())
}

// HandleAgentDetail returns an agent's status, redacted config, and
// most recent runs. When the archive is enabled the lifetime run count
// is included.
func (h *Handlers) HandleAgentDetail(w http.ResponseWriter, r *http.Request) {
	rt, ok := h.lookupAgent(w, r)
	if !ok {
		return
	}

	name := rt.Name()
	recent := rt.History(detailRunCount)
	if len(recent) == 0 && h.arc != nil {
		// Before the first run of this process, fall back to archived
		// runs so the detail view stays useful across restarts. The
		// archive never rehydrates the in-memory history.
		archived, err := h.arc.Recent(r.Context(), name, detailRunCount)
		if err == nil {
			recent = archived
		} else {
			h.logger.Warn("archived runs unavailable",
				"agent", name,
				"error", err.Error(),
			)
		}
	}
	resp := model.AgentDetailResponse{
		AgentStatus: rt.Status(),
		Config:      RedactConfig(h.workforce.Agent(name).Settings),
		RecentRuns:  recent,
	}
	if h.arc != nil {
		if n, err := h.arc.CountRuns(r.Context(), name); err == nil {
			resp.LifetimeRuns = &n
		} else {
			h.logger.Warn("lifetime run count unavailable",
				"agent", name,
				"error", err.Error(),
			)
		}
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// HandleTriggerRun starts a manual run without waiting for it. An agent
// already mid-run yields 409 rather than queueing a second run.
func (h *Handlers) HandleTriggerRun(w http.ResponseWriter, r *http.Request) {
	rt, ok := h.lookupAgent(w, r)
	if !ok {
		return
	}

	if rt.Status().Status == model.StateRunning {
		writeError(w, r, http.StatusConflict, model.ErrCodeConflict, "agent is already running")
		return
	}
	h.orch.TriggerAsync(rt.Name())
	writeJSON(w, r, http.StatusAccepted, model.TriggerResponse{
		Status: "started",
		Agent:  rt.Name(),
	})
}

// HandleRunHistory returns an agent's run records, newest first. limit
// defaults to 20 and is clamped to [1, 100].
func (h *Handlers) HandleRunHistory(w http.ResponseWriter, r *http.Request) {
	rt, ok := h.lookupAgent(w, r)
	if !ok {
		return
	}

	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "limit must be an integer")
			return
		}
		limit = n
	}
	writeJSON(w, r, http.StatusOK, rt.History(limit))
}

// HandleAgentConfig returns the agent's raw workforce configuration
// after secret redaction.
func (h *Handlers) HandleAgentConfig(w http.ResponseWriter, r *http.Request) {
	rt, ok := h.lookupAgent(w, r)
	if !ok {
		return
	}
	entry := h.workforce.Agent(rt.Name())
	writeJSON(w, r, http.StatusOK, map[string]any{
		"schedule": rt.Schedule(),
		"enabled":  rt.Enabled(),
		"settings": RedactConfig(entry.Settings),
	})
}

// lookupAgent resolves the {name} path segment to a registered runtime,
// writing the 400/404 response itself when resolution fails.
func (h *Handlers) lookupAgent(w http.ResponseWriter, r *http.Request) (*agent.Runtime, bool) {
	name := r.PathValue("name")
	if err := model.ValidateAgentName(name); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return nil, false
	}
	rt, ok := h.orch.Agent(name)
	if !ok {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "agent not found: "+name)
		return nil, false
	}
	return rt, true
}
