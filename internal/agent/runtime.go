package agent

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/ashita-ai/koyomi/internal/model"
)

const (
	historyCapacity  = 1000
	summaryMaxLen    = 200
	memorySummaryLen = 500

	minHistoryLimit = 1
	maxHistoryLimit = 100
)

// Runtime wraps a Definition with execution state. All scheduler and
// API interactions go through the runtime, never the definition
// directly.
type Runtime struct {
	def      Definition
	schedule string
	enabled  bool
	toolkit  *Toolkit
	logger   *slog.Logger

	// OnRecord, when set, observes every appended run record. It is
	// assigned once before the scheduler starts and called outside the
	// state lock.
	OnRecord func(rec model.RunRecord)

	// execMu enforces at-most-one in-flight run. It is tried, never
	// awaited: a second caller gets a skipped outcome instead of
	// queueing behind a stuck run.
	execMu sync.Mutex

	// mu guards the observable state below, separately from execMu so
	// status reads never block on a long run.
	mu        sync.RWMutex
	runCount  int
	lastRun   time.Time
	running   bool
	lastError *string
	history   []model.RunRecord // ring buffer, oldest-first from head
	head      int
	size      int
}

// NewRuntime builds a runtime for def. The schedule is the effective
// schedule expression after config overrides.
func NewRuntime(def Definition, schedule string, enabled bool, tk *Toolkit, logger *slog.Logger) *Runtime {
	if schedule == "" {
		schedule = def.DefaultSchedule()
	}
	return &Runtime{
		def:      def,
		schedule: schedule,
		enabled:  enabled,
		toolkit:  tk,
		logger:   logger.With(slog.String("agent", def.Name())),
		history:  make([]model.RunRecord, historyCapacity),
	}
}

func (r *Runtime) Name() string           { return r.def.Name() }
func (r *Runtime) Schedule() string       { return r.schedule }
func (r *Runtime) Enabled() bool          { return r.enabled }
func (r *Runtime) Definition() Definition { return r.def }

// ScheduledRun executes one run of the agent. If a run is already in
// flight it returns a skipped outcome immediately without touching any
// state. Errors from the agent are contained: they are recorded and
// reported, never propagated.
func (r *Runtime) ScheduledRun(ctx context.Context) model.Outcome {
	if !r.execMu.TryLock() {
		r.logger.Info("run skipped, already in progress")
		return model.Outcome{
			Status: model.OutcomeSkipped,
			Agent:  r.def.Name(),
			Reason: "agent is already running",
		}
	}
	defer r.execMu.Unlock()

	start := time.Now()

	r.mu.Lock()
	r.runCount++
	runNumber := r.runCount
	r.lastRun = start
	r.running = true
	r.lastError = nil
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	r.logger.Info("run started", slog.Int("run_number", runNumber))

	result, err := r.runContained(ctx)
	duration := roundSeconds(time.Since(start))

	if err != nil {
		msg := err.Error()
		rec := model.RunRecord{
			RunNumber:       runNumber,
			Timestamp:       start.UTC().Format(time.RFC3339),
			Status:          model.RunError,
			DurationSeconds: duration,
			Error:           &msg,
		}
		r.recordRun(rec, &msg)
		if r.OnRecord != nil {
			r.OnRecord(rec)
		}

		r.logger.Error("run failed",
			slog.Int("run_number", runNumber),
			slog.Float64("duration_seconds", duration),
			slog.String("error", msg),
		)
		r.notifyFailure(ctx, runNumber, msg)

		return model.Outcome{
			Status: model.OutcomeError,
			Agent:  r.def.Name(),
			Error:  msg,
		}
	}

	summary := summarize(result)
	rec := model.RunRecord{
		RunNumber:       runNumber,
		Timestamp:       start.UTC().Format(time.RFC3339),
		Status:          model.RunCompleted,
		ResultSummary:   truncate(summary, summaryMaxLen),
		DurationSeconds: duration,
	}
	r.recordRun(rec, nil)
	if r.OnRecord != nil {
		r.OnRecord(rec)
	}

	r.logger.Info("run completed",
		slog.Int("run_number", runNumber),
		slog.Float64("duration_seconds", duration),
	)
	r.storeRunMemory(ctx, runNumber, summary)

	return model.Outcome{
		Status: model.OutcomeCompleted,
		Agent:  r.def.Name(),
		Result: truncate(summary, summaryMaxLen),
	}
}

// runContained invokes the agent's Run and converts panics into plain
// errors so a buggy agent cannot take down the scheduler.
func (r *Runtime) runContained(ctx context.Context) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("agent panicked: %v", rec)
		}
	}()
	return r.def.Run(ctx, r.toolkit)
}

func (r *Runtime) recordRun(rec model.RunRecord, lastErr *string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tail := (r.head + r.size) % historyCapacity
	r.history[tail] = rec
	if r.size < historyCapacity {
		r.size++
	} else {
		r.head = (r.head + 1) % historyCapacity
	}
	r.lastError = lastErr
}

func (r *Runtime) notifyFailure(ctx context.Context, runNumber int, msg string) {
	text := fmt.Sprintf("run %d failed: %s", runNumber, msg)
	if err := r.toolkit.Notify(ctx, text); err != nil {
		r.logger.Warn("failure notification not delivered", slog.String("error", err.Error()))
	}
}

func (r *Runtime) storeRunMemory(ctx context.Context, runNumber int, summary string) {
	if summary == "" {
		return
	}
	meta := map[string]any{"run_number": runNumber}
	if err := r.toolkit.Remember(ctx, truncate(summary, memorySummaryLen), meta, false); err != nil {
		r.logger.Warn("run memory not stored", slog.String("error", err.Error()))
	}
}

// Status is a snapshot projection of the runtime's current fields.
func (r *Runtime) Status() model.AgentStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var lastRun *string
	if !r.lastRun.IsZero() {
		s := r.lastRun.UTC().Format(time.RFC3339)
		lastRun = &s
	}

	state := model.StateIdle
	switch {
	case r.running:
		state = model.StateRunning
	case r.lastError != nil:
		state = model.StateError
	}

	return model.AgentStatus{
		Name:        r.def.Name(),
		Description: r.def.Description(),
		Schedule:    r.schedule,
		RunCount:    r.runCount,
		LastRun:     lastRun,
		Enabled:     r.enabled,
		Status:      state,
	}
}

// History returns up to limit of the most recent run records, newest
// first. The limit is clamped to [1, 100]. The returned slice holds
// copies; mutating it does not affect the runtime.
func (r *Runtime) History(limit int) []model.RunRecord {
	if limit < minHistoryLimit {
		limit = minHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	n := min(limit, r.size)
	out := make([]model.RunRecord, 0, n)
	for i := 0; i < n; i++ {
		idx := (r.head + r.size - 1 - i) % historyCapacity
		out = append(out, r.history[idx])
	}
	return out
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
