package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ashita-ai/koyomi"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	configPath := flag.String("config", "", "path to the workforce YAML file (overrides KOYOMI_WORKFORCE)")
	status := flag.Bool("status", false, "print agent statuses and exit")
	agentName := flag.String("agent", "", "run the named agent once and exit")
	flag.Parse()

	level := slog.LevelInfo
	if os.Getenv("KOYOMI_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger, *configPath, *status, *agentName); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger, configPath string, status bool, agentName string) error {
	opts := []koyomi.Option{
		koyomi.WithVersion(version),
		koyomi.WithLogger(logger),
	}
	if configPath != "" {
		opts = append(opts, koyomi.WithWorkforcePath(configPath))
	}

	app, err := koyomi.New(opts...)
	if err != nil {
		return err
	}

	// One-shot modes skip the scheduler and server entirely.
	if status {
		defer app.Close()
		printStatuses(app.Statuses())
		return nil
	}
	if agentName != "" {
		defer app.Close()
		out := app.RunAgentOnce(ctx, agentName)
		fmt.Printf("agent:   %s\n", out.Agent)
		fmt.Printf("status:  %s\n", out.Status)
		if out.Result != "" {
			fmt.Printf("result:  %s\n", out.Result)
		}
		if out.Reason != "" {
			fmt.Printf("reason:  %s\n", out.Reason)
		}
		return nil
	}

	return app.Run(ctx)
}

func printStatuses(statuses []koyomi.AgentStatus) {
	fmt.Printf("%-20s %-8s %-10s %-22s %-6s %s\n", "AGENT", "ENABLED", "STATE", "SCHEDULE", "RUNS", "LAST RUN")
	for _, st := range statuses {
		lastRun := "-"
		if st.LastRun != nil {
			lastRun = *st.LastRun
		}
		fmt.Printf("%-20s %-8t %-10s %-22s %-6d %s\n", st.Name, st.Enabled, st.Status, st.Schedule, st.RunCount, lastRun)
	}
}
