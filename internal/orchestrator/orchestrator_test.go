package orchestrator

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ashita-ai/koyomi/internal/agent"
	"github.com/ashita-ai/koyomi/internal/executor"
	"github.com/ashita-ai/koyomi/internal/memory"
	"github.com/ashita-ai/koyomi/internal/model"
	"github.com/ashita-ai/koyomi/internal/notify"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type stubDef struct {
	name     string
	schedule string
	run      func(ctx context.Context, tk *agent.Toolkit) (any, error)
}

func (d *stubDef) Name() string        { return d.name }
func (d *stubDef) Description() string { return "test agent" }
func (d *stubDef) DefaultSchedule() string {
	if d.schedule == "" {
		return "manual"
	}
	return d.schedule
}
func (d *stubDef) BehaviorSpec() string { return "test" }
func (d *stubDef) Operations() []string { return nil }
func (d *stubDef) Run(ctx context.Context, tk *agent.Toolkit) (any, error) {
	if d.run != nil {
		return d.run(ctx, tk)
	}
	return "done", nil
}

func newTestOrchestrator() *Orchestrator {
	logger := testLogger()
	return New(&executor.Static{}, memory.NewLocalStore(), notify.NewLogNotifier(logger), nil, logger)
}

func TestRegisterAndRun(t *testing.T) {
	o := newTestOrchestrator()
	if err := o.Register(&stubDef{name: "job_hunter"}, "", true); err != nil {
		t.Fatalf("Register: %v", err)
	}

	out := o.RunAgent(context.Background(), "job_hunter")
	if out.Status != model.OutcomeCompleted {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if out.Result != "done" {
		t.Fatalf("result = %q", out.Result)
	}
}

func TestRegisterRejectsInvalidName(t *testing.T) {
	o := newTestOrchestrator()
	err := o.Register(&stubDef{name: "../escape"}, "", true)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if o.AgentCount() != 0 {
		t.Fatal("invalid agent must not be registered")
	}
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	o := newTestOrchestrator()
	if err := o.Register(&stubDef{name: "dup"}, "", true); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := o.Register(&stubDef{name: "dup"}, "", true); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestRegisterSkipsDisabled(t *testing.T) {
	o := newTestOrchestrator()
	if err := o.Register(&stubDef{name: "dormant"}, "", false); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if o.AgentCount() != 0 {
		t.Fatal("disabled agent should not be registered")
	}
	if _, ok := o.Agent("dormant"); ok {
		t.Fatal("disabled agent should not be resolvable")
	}
}

func TestRegisterAppliesScheduleOverride(t *testing.T) {
	o := newTestOrchestrator()
	if err := o.Register(&stubDef{name: "custom", schedule: "every 6 hours"}, "every 30 minutes", true); err != nil {
		t.Fatalf("Register: %v", err)
	}
	rt, _ := o.Agent("custom")
	if rt.Schedule() != "every 30 minutes" {
		t.Fatalf("schedule = %q, want override", rt.Schedule())
	}
}

func TestRunAgentNotFound(t *testing.T) {
	o := newTestOrchestrator()
	out := o.RunAgent(context.Background(), "ghost")
	if out.Status != model.OutcomeNotFound {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if !strings.Contains(out.Reason, "ghost") {
		t.Fatalf("reason should name the agent: %q", out.Reason)
	}
}

func TestTriggerAsync(t *testing.T) {
	done := make(chan struct{})
	def := &stubDef{
		name: "bg",
		run: func(ctx context.Context, tk *agent.Toolkit) (any, error) {
			close(done)
			return "ok", nil
		},
	}
	o := newTestOrchestrator()
	if err := o.Register(def, "", true); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if !o.TriggerAsync("bg") {
		t.Fatal("TriggerAsync should find the agent")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("triggered run never executed")
	}

	if o.TriggerAsync("ghost") {
		t.Fatal("TriggerAsync should report unknown agents")
	}
}

func TestStatusesSorted(t *testing.T) {
	o := newTestOrchestrator()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := o.Register(&stubDef{name: name}, "", true); err != nil {
			t.Fatalf("Register %s: %v", name, err)
		}
	}
	sts := o.Statuses()
	if len(sts) != 3 {
		t.Fatalf("got %d statuses", len(sts))
	}
	if sts[0].Name != "alpha" || sts[2].Name != "zeta" {
		t.Fatalf("statuses not sorted: %+v", sts)
	}
}

func TestStartAndShutdown(t *testing.T) {
	o := newTestOrchestrator()
	if err := o.Register(&stubDef{name: "worker", schedule: "every 6 hours"}, "", true); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if o.Running() {
		t.Fatal("should not report running before Start")
	}
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !o.Running() {
		t.Fatal("should report running after Start")
	}
	if o.Uptime() <= 0 {
		t.Fatal("uptime should advance after Start")
	}
	if err := o.Start(context.Background()); err == nil {
		t.Fatal("second Start should fail")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if o.Running() {
		t.Fatal("should not report running after Shutdown")
	}
	// Shutdown is idempotent.
	if err := o.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}
