package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/koyomi/internal/agent"
	"github.com/ashita-ai/koyomi/internal/archive"
	"github.com/ashita-ai/koyomi/internal/config"
	"github.com/ashita-ai/koyomi/internal/executor"
	"github.com/ashita-ai/koyomi/internal/memory"
	"github.com/ashita-ai/koyomi/internal/model"
	"github.com/ashita-ai/koyomi/internal/notify"
	"github.com/ashita-ai/koyomi/internal/orchestrator"
	"github.com/ashita-ai/koyomi/internal/server"
)

type testDef struct {
	name    string
	blockOn chan struct{} // when set, Run blocks until closed
	started chan struct{}
	fail    bool
}

func (d *testDef) Name() string            { return d.name }
func (d *testDef) Description() string     { return "test agent " + d.name }
func (d *testDef) DefaultSchedule() string { return "every 6 hours" }
func (d *testDef) BehaviorSpec() string    { return "test behavior" }
func (d *testDef) Operations() []string    { return []string{"noop"} }

func (d *testDef) Run(ctx context.Context, tk *agent.Toolkit) (any, error) {
	if d.started != nil {
		close(d.started)
	}
	if d.blockOn != nil {
		<-d.blockOn
	}
	if d.fail {
		return nil, fmt.Errorf("simulated failure")
	}
	return "3 items processed", nil
}

type testEnv struct {
	srv  *httptest.Server
	orch *orchestrator.Orchestrator
	defs map[string]*testDef
}

// envOptions carries the optional server dependencies a test wants
// enabled.
type envOptions struct {
	arc *archive.Archive
	mem server.MemoryHealth
}

func newTestEnv(t *testing.T, workforce config.Workforce, defs ...*testDef) *testEnv {
	return newTestEnvOpts(t, workforce, envOptions{}, defs...)
}

func newTestEnvOpts(t *testing.T, workforce config.Workforce, opts envOptions, defs ...*testDef) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	orch := orchestrator.New(&executor.Static{}, memory.NewLocalStore(), notify.NewLogNotifier(logger), opts.arc, logger)

	byName := make(map[string]*testDef, len(defs))
	for _, d := range defs {
		entry := workforce.Agent(d.name)
		require.NoError(t, orch.Register(d, entry.Schedule, entry.IsEnabled()))
		byName[d.name] = d
	}
	require.NoError(t, orch.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = orch.Shutdown(ctx)
	})

	s := server.New(server.ServerConfig{
		Orchestrator: orch,
		Workforce:    workforce,
		Archive:      opts.arc,
		Memory:       opts.mem,
		Logger:       logger,
		Port:         0,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{srv: ts, orch: orch, defs: byName}
}

func (e *testEnv) get(t *testing.T, path string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	require.NoError(t, err)
	if out != nil {
		defer func() { _ = resp.Body.Close() }()
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (e *testEnv) post(t *testing.T, path string, out any) *http.Response {
	t.Helper()
	resp, err := http.Post(e.srv.URL+path, "application/json", nil)
	require.NoError(t, err)
	if out != nil {
		defer func() { _ = resp.Body.Close() }()
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, config.Workforce{}, &testDef{name: "job_hunter"})

	var health model.HealthResponse
	resp := env.get(t, "/api/health", &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.AgentCount)
	assert.GreaterOrEqual(t, health.UptimeSeconds, int64(0))
	assert.Empty(t, health.Memory) // in-process store, nothing to probe
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

// fakeMemoryHealth stands in for a vector memory backend probe.
type fakeMemoryHealth struct {
	err error
}

func (f *fakeMemoryHealth) Healthy(ctx context.Context) error { return f.err }

func TestHealthReportsMemoryBackend(t *testing.T) {
	env := newTestEnvOpts(t, config.Workforce{},
		envOptions{mem: &fakeMemoryHealth{}},
		&testDef{name: "job_hunter"},
	)

	var health model.HealthResponse
	resp := env.get(t, "/api/health", &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "connected", health.Memory)

	down := newTestEnvOpts(t, config.Workforce{},
		envOptions{mem: &fakeMemoryHealth{err: fmt.Errorf("connection refused")}},
		&testDef{name: "job_hunter"},
	)
	resp = down.get(t, "/api/health", &health)
	// A memory outage alone does not degrade the service; agents keep
	// running and surface memory failures per run.
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "disconnected", health.Memory)
}

func TestHealthDegradedAfterShutdown(t *testing.T) {
	env := newTestEnv(t, config.Workforce{}, &testDef{name: "job_hunter"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, env.orch.Shutdown(ctx))

	var health model.HealthResponse
	resp := env.get(t, "/api/health", &health)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "degraded", health.Status)
}

func TestListAgents(t *testing.T) {
	env := newTestEnv(t, config.Workforce{},
		&testDef{name: "job_hunter"},
		&testDef{name: "trading_monitor"},
	)

	var agents []model.AgentStatus
	resp := env.get(t, "/api/agents", &agents)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, agents, 2)
	assert.Equal(t, "job_hunter", agents[0].Name)
	assert.Equal(t, "trading_monitor", agents[1].Name)
	assert.Equal(t, model.StateIdle, agents[0].Status)
}

func TestAgentDetailIncludesRedactedConfig(t *testing.T) {
	workforce := config.Workforce{Agents: map[string]config.AgentConfig{
		"job_hunter": {
			Schedule: "every 2 hours",
			Settings: map[string]any{
				"boards":  []any{"remoteok"},
				"api_key": "hunter2",
			},
		},
	}}
	env := newTestEnv(t, workforce, &testDef{name: "job_hunter"})

	out := env.orch.RunAgent(context.Background(), "job_hunter")
	require.Equal(t, model.OutcomeCompleted, out.Status)

	var detail model.AgentDetailResponse
	resp := env.get(t, "/api/agents/job_hunter", &detail)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "every 2 hours", detail.Schedule)
	assert.Equal(t, "***REDACTED***", detail.Config["api_key"])
	assert.Equal(t, []any{"remoteok"}, detail.Config["boards"])
	require.Len(t, detail.RecentRuns, 1)
	assert.Equal(t, model.RunCompleted, detail.RecentRuns[0].Status)
	assert.Nil(t, detail.LifetimeRuns)
}

func TestAgentDetailFallsBackToArchive(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	arc, err := archive.Open(filepath.Join(t.TempDir(), "runs.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = arc.Close() })

	errMsg := "upstream timeout"
	for _, rec := range []model.RunRecord{
		{RunNumber: 1, Timestamp: "2026-08-29T10:00:00Z", Status: model.RunCompleted, ResultSummary: "12 postings reviewed", DurationSeconds: 1.25},
		{RunNumber: 2, Timestamp: "2026-08-29T16:00:00Z", Status: model.RunError, DurationSeconds: 0.4, Error: &errMsg},
	} {
		require.NoError(t, arc.Record(context.Background(), "job_hunter", rec))
	}

	env := newTestEnvOpts(t, config.Workforce{}, envOptions{arc: arc}, &testDef{name: "job_hunter"})

	// No runs this process: the detail view serves archived records.
	var detail model.AgentDetailResponse
	resp := env.get(t, "/api/agents/job_hunter", &detail)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, detail.RecentRuns, 2)
	assert.Equal(t, 2, detail.RecentRuns[0].RunNumber)
	assert.Equal(t, "12 postings reviewed", detail.RecentRuns[1].ResultSummary)
	require.NotNil(t, detail.LifetimeRuns)
	assert.Equal(t, int64(2), *detail.LifetimeRuns)

	// Once the process has history of its own, it takes precedence.
	out := env.orch.RunAgent(context.Background(), "job_hunter")
	require.Equal(t, model.OutcomeCompleted, out.Status)
	env.get(t, "/api/agents/job_hunter", &detail)
	require.Len(t, detail.RecentRuns, 1)
	assert.Equal(t, 1, detail.RecentRuns[0].RunNumber)
}

func TestAgentDetailValidation(t *testing.T) {
	env := newTestEnv(t, config.Workforce{}, &testDef{name: "job_hunter"})

	resp := env.get(t, "/api/agents/bad-name", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var apiErr model.APIError
	resp = env.get(t, "/api/agents/ghost", &apiErr)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, model.ErrCodeNotFound, apiErr.Error.Code)
	assert.NotEmpty(t, apiErr.Meta.RequestID)
}

func TestTriggerRun(t *testing.T) {
	env := newTestEnv(t, config.Workforce{}, &testDef{name: "job_hunter"})

	var trig model.TriggerResponse
	resp := env.post(t, "/api/agents/job_hunter/run", &trig)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "started", trig.Status)
	assert.Equal(t, "job_hunter", trig.Agent)

	resp = env.post(t, "/api/agents/ghost/run", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTriggerRunConflictWhileRunning(t *testing.T) {
	def := &testDef{
		name:    "slow",
		blockOn: make(chan struct{}),
		started: make(chan struct{}),
	}
	env := newTestEnv(t, config.Workforce{}, def)

	resp := env.post(t, "/api/agents/slow/run", nil)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	<-def.started

	var apiErr model.APIError
	resp = env.post(t, "/api/agents/slow/run", &apiErr)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, model.ErrCodeConflict, apiErr.Error.Code)

	close(def.blockOn)
}

func TestRunHistoryLimit(t *testing.T) {
	env := newTestEnv(t, config.Workforce{}, &testDef{name: "job_hunter"})

	for i := 0; i < 5; i++ {
		env.orch.RunAgent(context.Background(), "job_hunter")
	}

	var runs []model.RunRecord
	resp := env.get(t, "/api/agents/job_hunter/runs?limit=3", &runs)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, runs, 3)
	assert.Equal(t, 5, runs[0].RunNumber)
	assert.Equal(t, 3, runs[2].RunNumber)

	// Default limit.
	env.get(t, "/api/agents/job_hunter/runs", &runs)
	assert.Len(t, runs, 5)

	// Oversized limit is clamped, not rejected.
	resp = env.get(t, "/api/agents/job_hunter/runs?limit=5000", &runs)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.get(t, "/api/agents/job_hunter/runs?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAgentConfigEndpoint(t *testing.T) {
	workforce := config.Workforce{Agents: map[string]config.AgentConfig{
		"job_hunter": {Settings: map[string]any{
			"telegram_token": "abc123",
			"interval":       42,
		}},
	}}
	env := newTestEnv(t, workforce, &testDef{name: "job_hunter"})

	var cfg map[string]any
	resp := env.get(t, "/api/agents/job_hunter/config", &cfg)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	settings, ok := cfg["settings"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "***REDACTED***", settings["telegram_token"])
	assert.Equal(t, float64(42), settings["interval"])
	assert.Equal(t, true, cfg["enabled"])
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t, config.Workforce{}, &testDef{name: "job_hunter"})

	resp, err := http.Get(env.srv.URL + "/")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}
