package archive

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ashita-ai/koyomi/internal/model"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	a, err := Open(filepath.Join(t.TempDir(), "runs.db"), logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestArchiveRecordAndCount(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		rec := model.RunRecord{
			RunNumber:       i,
			Timestamp:       "2026-08-30T10:00:00Z",
			Status:          model.RunCompleted,
			ResultSummary:   "ok",
			DurationSeconds: 1.25,
		}
		if err := a.Record(ctx, "job_hunter", rec); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := a.Record(ctx, "trading_monitor", model.RunRecord{RunNumber: 1, Timestamp: "2026-08-30T11:00:00Z", Status: model.RunCompleted}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	n, err := a.CountRuns(ctx, "job_hunter")
	if err != nil {
		t.Fatalf("CountRuns: %v", err)
	}
	if n != 3 {
		t.Fatalf("CountRuns = %d, want 3", n)
	}

	n, err = a.CountRuns(ctx, "research_scout")
	if err != nil {
		t.Fatalf("CountRuns: %v", err)
	}
	if n != 0 {
		t.Fatalf("CountRuns for unknown agent = %d, want 0", n)
	}
}

func TestArchiveRecentNewestFirst(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()

	errMsg := "rate limited"
	records := []model.RunRecord{
		{RunNumber: 1, Timestamp: "2026-08-30T08:00:00Z", Status: model.RunCompleted, ResultSummary: "first", DurationSeconds: 0.5},
		{RunNumber: 2, Timestamp: "2026-08-30T09:00:00Z", Status: model.RunError, DurationSeconds: 2.0, Error: &errMsg},
		{RunNumber: 3, Timestamp: "2026-08-30T10:00:00Z", Status: model.RunCompleted, ResultSummary: "third", DurationSeconds: 0.75},
	}
	for _, rec := range records {
		if err := a.Record(ctx, "social_media", rec); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := a.Recent(ctx, "social_media", 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent returned %d records, want 2", len(got))
	}
	if got[0].RunNumber != 3 || got[1].RunNumber != 2 {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[1].Error == nil || *got[1].Error != "rate limited" {
		t.Fatalf("error column not round-tripped: %+v", got[1])
	}
}

func TestArchiveSurvivesReopen(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	path := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()

	a, err := Open(path, logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := a.Record(ctx, "inbox_manager", model.RunRecord{RunNumber: 1, Timestamp: "2026-08-30T10:00:00Z", Status: model.RunCompleted}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	a, err = Open(path, logger)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = a.Close() }()

	n, err := a.CountRuns(ctx, "inbox_manager")
	if err != nil {
		t.Fatalf("CountRuns: %v", err)
	}
	if n != 1 {
		t.Fatalf("count after reopen = %d, want 1", n)
	}
}
