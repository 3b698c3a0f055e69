// Package orchestrator owns the set of registered agents and the cron
// scheduler that fires their recurring runs. It is the single authority
// over agent state; the monitoring API and the CLI read through it.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/ashita-ai/koyomi/internal/agent"
	"github.com/ashita-ai/koyomi/internal/archive"
	"github.com/ashita-ai/koyomi/internal/executor"
	"github.com/ashita-ai/koyomi/internal/memory"
	"github.com/ashita-ai/koyomi/internal/model"
	"github.com/ashita-ai/koyomi/internal/notify"
	"github.com/ashita-ai/koyomi/internal/schedule"
	"github.com/ashita-ai/koyomi/internal/telemetry"
)

const heartbeatInterval = 5 * time.Minute

// Orchestrator registers agents, schedules their recurring runs, and
// dispatches manual triggers.
type Orchestrator struct {
	logger   *slog.Logger
	cron     *cron.Cron
	exec     executor.Executor
	mem      memory.Store
	notifier notify.Notifier
	arc      *archive.Archive // nil when archiving is disabled

	mu        sync.RWMutex
	agents    map[string]*agent.Runtime
	running   bool
	startedAt time.Time

	// runCtx bounds all agent work started by this orchestrator. It is
	// cancelled at shutdown so in-flight and manually triggered runs
	// observe the stop.
	runCtx context.Context
	cancel context.CancelFunc
	tasks  sync.WaitGroup

	runCounter otelmetric.Int64Counter
}

// New builds an orchestrator around the shared agent dependencies. One
// executor, memory store, and notifier serve every agent. arc may be
// nil to run without the persistent archive.
func New(exec executor.Executor, mem memory.Store, notifier notify.Notifier, arc *archive.Archive, logger *slog.Logger) *Orchestrator {
	runCtx, cancel := context.WithCancel(context.Background())
	runCounter, _ := telemetry.Meter("koyomi/orchestrator").Int64Counter("koyomi.agent.runs",
		otelmetric.WithDescription("Agent run outcomes by status"),
	)
	return &Orchestrator{
		logger:   logger,
		cron:     cron.New(),
		exec:     exec,
		mem:      mem,
		notifier: notifier,
		arc:      arc,
		agents:   make(map[string]*agent.Runtime),
		runCtx:   runCtx,
		cancel:   cancel,

		runCounter: runCounter,
	}
}

// Register instantiates def with the shared dependencies and, unless
// its schedule is manual, binds a recurring cron job to it. A disabled
// agent is skipped without error. Registration errors are per-agent:
// the caller logs and moves on so one bad agent cannot block the rest.
func (o *Orchestrator) Register(def agent.Definition, scheduleOverride string, enabled bool) error {
	name := def.Name()
	if err := model.ValidateAgentName(name); err != nil {
		return fmt.Errorf("orchestrator: register: %w", err)
	}
	if !enabled {
		o.logger.Info("agent disabled, skipping", slog.String("agent", name))
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.agents[name]; exists {
		return fmt.Errorf("orchestrator: register: agent %q already registered", name)
	}

	tk := agent.NewToolkit(name, def.BehaviorSpec(), o.exec, o.mem, o.notifier, o.logger)
	rt := agent.NewRuntime(def, scheduleOverride, enabled, tk, o.logger)
	if o.arc != nil {
		rt.OnRecord = func(rec model.RunRecord) {
			if err := o.arc.Record(o.runCtx, name, rec); err != nil {
				o.logger.Warn("run not archived",
					slog.String("agent", name),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	trigger := schedule.Parse(rt.Schedule())
	if trigger.Fallback {
		o.logger.Warn("schedule not understood, using default interval",
			slog.String("agent", name),
			slog.String("schedule", rt.Schedule()),
		)
	}
	if trigger.Kind != schedule.TriggerNone {
		if _, err := o.cron.AddFunc(trigger.CronSpec(), func() {
			o.observeRun(o.runCtx, rt)
		}); err != nil {
			return fmt.Errorf("orchestrator: register %s: schedule job: %w", name, err)
		}
	}

	o.agents[name] = rt
	o.logger.Info("agent registered",
		slog.String("agent", name),
		slog.String("schedule", rt.Schedule()),
		slog.String("trigger", trigger.String()),
	)
	return nil
}

// Agent returns the runtime for name, if registered.
func (o *Orchestrator) Agent(name string) (*agent.Runtime, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	rt, ok := o.agents[name]
	return rt, ok
}

// Statuses returns a snapshot of every registered agent's status,
// sorted by name.
func (o *Orchestrator) Statuses() []model.AgentStatus {
	o.mu.RLock()
	runtimes := make([]*agent.Runtime, 0, len(o.agents))
	for _, rt := range o.agents {
		runtimes = append(runtimes, rt)
	}
	o.mu.RUnlock()

	out := make([]model.AgentStatus, 0, len(runtimes))
	for _, rt := range runtimes {
		out = append(out, rt.Status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AgentCount returns the number of registered agents.
func (o *Orchestrator) AgentCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.agents)
}

// RunAgent executes one run of the named agent synchronously. Unknown
// names yield a not_found outcome rather than an error so callers can
// treat every result uniformly.
func (o *Orchestrator) RunAgent(ctx context.Context, name string) model.Outcome {
	rt, ok := o.Agent(name)
	if !ok {
		return model.Outcome{
			Status: model.OutcomeNotFound,
			Agent:  name,
			Reason: fmt.Sprintf("agent %q is not registered", name),
		}
	}
	return o.observeRun(ctx, rt)
}

// observeRun executes one run and records the outcome metric.
func (o *Orchestrator) observeRun(ctx context.Context, rt *agent.Runtime) model.Outcome {
	out := rt.ScheduledRun(ctx)
	o.runCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("agent", rt.Name()),
		attribute.String("status", string(out.Status)),
	))
	return out
}

// TriggerAsync starts a manual run of the named agent without waiting
// for it. The skip guarantee still applies: if the agent is mid-run the
// triggered run resolves to a skipped outcome. Returns false when the
// agent is unknown.
func (o *Orchestrator) TriggerAsync(name string) bool {
	rt, ok := o.Agent(name)
	if !ok {
		return false
	}
	o.tasks.Add(1)
	go func() {
		defer o.tasks.Done()
		o.observeRun(o.runCtx, rt)
	}()
	return true
}

// Running reports whether the scheduler has been started and not yet
// shut down.
func (o *Orchestrator) Running() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.running
}

// Uptime is the time since Start. Zero before the first Start.
func (o *Orchestrator) Uptime() time.Duration {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.startedAt.IsZero() {
		return 0
	}
	return time.Since(o.startedAt)
}

// Start launches the cron scheduler and the heartbeat, then announces
// startup through the notifier. Registration must happen before Start.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator: already started")
	}
	o.running = true
	o.startedAt = time.Now()
	count := len(o.agents)
	o.mu.Unlock()

	o.cron.Start()
	o.tasks.Add(1)
	go o.heartbeat()

	o.logger.Info("orchestrator started", slog.Int("agents", count))
	msg := fmt.Sprintf("workforce online: %d agents scheduled", count)
	if err := o.notifier.Notify(ctx, msg, "orchestrator"); err != nil {
		o.logger.Warn("startup notification not delivered", slog.String("error", err.Error()))
	}
	return nil
}

func (o *Orchestrator) heartbeat() {
	defer o.tasks.Done()
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-o.runCtx.Done():
			return
		case <-ticker.C:
			var running int
			for _, st := range o.Statuses() {
				if st.Status == model.StateRunning {
					running++
				}
			}
			o.logger.Info("heartbeat",
				slog.Int("agents", o.AgentCount()),
				slog.Int("in_flight", running),
			)
		}
	}
}

// Shutdown stops the scheduler, waits out in-flight cron jobs up to the
// context deadline, cancels any remaining work, and announces the stop.
// In-flight runs past the deadline are abandoned rather than awaited
// forever.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return nil
	}
	o.running = false
	o.mu.Unlock()

	o.logger.Info("orchestrator stopping")
	if err := o.notifier.Notify(ctx, "workforce shutting down", "orchestrator"); err != nil {
		o.logger.Warn("shutdown notification not delivered", slog.String("error", err.Error()))
	}

	cronDone := o.cron.Stop()
	select {
	case <-cronDone.Done():
	case <-ctx.Done():
		o.logger.Warn("in-flight scheduled runs did not drain in time")
	}

	o.cancel()

	tasksDone := make(chan struct{})
	go func() {
		o.tasks.Wait()
		close(tasksDone)
	}()
	select {
	case <-tasksDone:
	case <-ctx.Done():
		o.logger.Warn("background tasks did not drain in time")
		return ctx.Err()
	}
	return nil
}
