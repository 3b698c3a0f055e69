package memory

import (
	"context"
	"fmt"
	"testing"
)

func TestLocalStoreRecallRanksByOverlap(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore()

	entries := []string{
		"scanned crypto markets, no significant movement",
		"found three senior golang positions in Berlin",
		"posted weekly thread about agent scheduling",
	}
	for _, e := range entries {
		if err := s.Store(ctx, "job_hunter", e, nil, false); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}

	got, err := s.Recall(ctx, "job_hunter", "golang positions berlin", 2, false)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Content != entries[1] {
		t.Fatalf("expected job posting first, got %q", got[0].Content)
	}
	if got[0].Relevance == nil || *got[0].Relevance <= 0 {
		t.Fatal("expected positive relevance on the top hit")
	}
}

func TestLocalStoreNamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore()

	if err := s.Store(ctx, "trading_monitor", "btc alert at 60k", nil, false); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, err := s.Recall(ctx, "job_hunter", "btc alert", 5, false)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no cross-namespace results, got %d", len(got))
	}
}

func TestLocalStoreSharedNamespace(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore()

	if err := s.Store(ctx, "trading_monitor", "family calendar moved to sunday", nil, true); err != nil {
		t.Fatalf("Store: %v", err)
	}

	// Any agent can read the shared namespace.
	got, err := s.Recall(ctx, "job_hunter", "family calendar", 5, true)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 shared result, got %d", len(got))
	}
}

func TestLocalStoreEviction(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore()

	for i := 0; i < maxLocalEntries+10; i++ {
		if err := s.Store(ctx, "a", fmt.Sprintf("entry %d", i), nil, false); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}

	s.mu.RLock()
	n := len(s.namespaces["a"])
	s.mu.RUnlock()
	if n != maxLocalEntries {
		t.Fatalf("expected %d entries after eviction, got %d", maxLocalEntries, n)
	}
}
