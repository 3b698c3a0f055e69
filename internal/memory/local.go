package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// maxLocalEntries bounds the per-namespace entry count. Oldest entries are
// evicted first; the store is a working set, not an archive.
const maxLocalEntries = 2000

// LocalStore is an in-process Store used when Qdrant is not configured.
// Recall ranks by token overlap between query and content, breaking ties
// by recency. Good enough for a single-machine deployment; semantic
// recall requires the Qdrant backend.
type LocalStore struct {
	mu         sync.RWMutex
	namespaces map[string][]localEntry
}

type localEntry struct {
	content  string
	metadata map[string]any
	storedAt time.Time
}

// NewLocalStore creates an empty in-process memory store.
func NewLocalStore() *LocalStore {
	return &LocalStore{namespaces: make(map[string][]localEntry)}
}

// Store saves an entry, evicting the oldest when the namespace is full.
func (s *LocalStore) Store(ctx context.Context, namespace, content string, metadata map[string]any, shared bool) error {
	ns := resolveNamespace(namespace, shared)

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := append(s.namespaces[ns], localEntry{
		content:  content,
		metadata: metadata,
		storedAt: time.Now().UTC(),
	})
	if len(entries) > maxLocalEntries {
		entries = entries[len(entries)-maxLocalEntries:]
	}
	s.namespaces[ns] = entries
	return nil
}

// Recall returns up to limit entries ranked by token overlap with the
// query, most relevant first.
func (s *LocalStore) Recall(ctx context.Context, namespace, query string, limit int, shared bool) ([]Memory, error) {
	if limit <= 0 {
		limit = 5
	}
	ns := resolveNamespace(namespace, shared)
	queryTokens := tokenize(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.namespaces[ns]
	type scored struct {
		entry localEntry
		score float32
	}
	candidates := make([]scored, 0, len(entries))
	for _, e := range entries {
		candidates = append(candidates, scored{entry: e, score: overlap(queryTokens, tokenize(e.content))})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].entry.storedAt.After(candidates[j].entry.storedAt)
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]Memory, len(candidates))
	for i, c := range candidates {
		score := c.score
		out[i] = Memory{Content: c.entry.content, Metadata: c.entry.metadata, Relevance: &score}
	}
	return out, nil
}

func tokenize(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		tok = strings.Trim(tok, ".,!?:;\"'()")
		if len(tok) > 2 {
			tokens[tok] = struct{}{}
		}
	}
	return tokens
}

// overlap is the fraction of query tokens present in the content.
func overlap(query, content map[string]struct{}) float32 {
	if len(query) == 0 {
		return 0
	}
	var hits int
	for tok := range query {
		if _, ok := content[tok]; ok {
			hits++
		}
	}
	return float32(hits) / float32(len(query))
}
