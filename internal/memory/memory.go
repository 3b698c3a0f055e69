// Package memory provides the agent memory store: per-agent namespaces plus
// one shared cross-agent namespace, with semantic recall.
//
// Two implementations exist: QdrantStore (vector search over a Qdrant
// collection) and LocalStore (bounded in-process store used when Qdrant is
// not configured). Both are safe for concurrent use by all agents; every
// call is parameterized by the calling agent's namespace, so the store
// itself holds no agent-specific mutable state.
package memory

import "context"

// SharedNamespace is the single cross-agent namespace all agents can
// read and write.
const SharedNamespace = "shared"

// Memory is one recalled entry.
type Memory struct {
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	Relevance *float32       `json:"relevance"` // nil when the backend has no similarity score
}

// Store is the agent memory interface.
type Store interface {
	// Store saves a memory entry. The namespace is the calling agent's
	// name unless shared is true, in which case the entry lands in the
	// shared namespace.
	Store(ctx context.Context, namespace, content string, metadata map[string]any, shared bool) error

	// Recall returns up to limit entries relevant to the query, most
	// relevant first.
	Recall(ctx context.Context, namespace, query string, limit int, shared bool) ([]Memory, error)
}

// resolveNamespace applies the shared-namespace override.
func resolveNamespace(namespace string, shared bool) string {
	if shared {
		return SharedNamespace
	}
	return namespace
}
