package memory

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"golang.org/x/sync/singleflight"

	"github.com/ashita-ai/koyomi/internal/embedding"
)

// QdrantConfig holds configuration for connecting to Qdrant.
type QdrantConfig struct {
	URL        string // e.g. "http://localhost:6333" or "https://xyz.cloud.qdrant.io:6333"
	APIKey     string
	Collection string
}

// QdrantStore implements Store backed by a single Qdrant collection.
// Namespaces are an indexed payload field, not separate collections, so
// one HNSW index serves the whole workforce.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	embedder   embedding.Provider
	logger     *slog.Logger

	healthGroup singleflight.Group
	healthErr   atomic.Value // stores *error; inner error may be nil
	healthAt    atomic.Int64 // unix nanos of last check
}

// parseQdrantURL extracts host, port, and TLS flag from a Qdrant URL.
// The REST port (6333) is mapped to the gRPC port (6334).
func parseQdrantURL(rawURL string) (host string, port int, useTLS bool, err error) {
	u, parseErr := url.Parse(rawURL)
	if parseErr != nil || u.Host == "" {
		return "", 0, false, fmt.Errorf("memory: invalid qdrant URL: %q", rawURL)
	}

	useTLS = u.Scheme == "https"
	host = u.Hostname()

	if portStr := u.Port(); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return "", 0, false, fmt.Errorf("memory: invalid port in qdrant URL: %q", portStr)
		}
		if p == 6333 {
			port = 6334
		} else {
			port = p
		}
	} else {
		port = 6334
	}

	return host, port, useTLS, nil
}

// NewQdrantStore connects to Qdrant via gRPC.
func NewQdrantStore(cfg QdrantConfig, embedder embedding.Provider, logger *slog.Logger) (*QdrantStore, error) {
	host, port, useTLS, err := parseQdrantURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("memory: connect to qdrant at %s:%d: %w", host, port, err)
	}

	return &QdrantStore{
		client:     client,
		collection: cfg.Collection,
		embedder:   embedder,
		logger:     logger,
	}, nil
}

// Close releases the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// EnsureCollection creates the collection if it doesn't exist and ensures
// the namespace payload index is present. CreateFieldIndex is idempotent
// on Qdrant, so the index is safely re-asserted on every startup.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("memory: check collection exists: %w", err)
	}

	if !exists {
		if err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(s.embedder.Dimensions()), //nolint:gosec // validated positive in config
				Distance: qdrant.Distance_Cosine,
			}),
		}); err != nil {
			return fmt.Errorf("memory: create collection %q: %w", s.collection, err)
		}
		s.logger.Info("qdrant: created collection", "collection", s.collection, "dims", s.embedder.Dimensions())
	}

	keywordType := qdrant.FieldType_FieldTypeKeyword
	if _, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.collection,
		FieldName:      "namespace",
		FieldType:      &keywordType,
	}); err != nil {
		return fmt.Errorf("memory: ensure namespace index: %w", err)
	}

	return nil
}

// Store embeds the content and upserts a point tagged with the namespace.
func (s *QdrantStore) Store(ctx context.Context, namespace, content string, metadata map[string]any, shared bool) error {
	ns := resolveNamespace(namespace, shared)

	vec, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("memory: embed content: %w", err)
	}

	payload := map[string]any{
		"namespace": ns,
		"agent":     namespace,
		"content":   content,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range metadata {
		payload["meta_"+k] = v
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewID(uuid.New().String()),
			Vectors: qdrant.NewVectorsDense(vec),
			Payload: qdrant.NewValueMap(payload),
		}},
	})
	if err != nil {
		return fmt.Errorf("memory: qdrant upsert: %w", err)
	}
	return nil
}

// Recall embeds the query and returns the nearest entries in the namespace.
func (s *QdrantStore) Recall(ctx context.Context, namespace, query string, limit int, shared bool) ([]Memory, error) {
	if limit <= 0 {
		limit = 5
	}
	ns := resolveNamespace(namespace, shared)

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("memory: embed query: %w", err)
	}

	fetchLimit := uint64(limit) //nolint:gosec // limit is bounded by callers
	scored, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQueryDense(vec),
		Filter: &qdrant.Filter{Must: []*qdrant.Condition{
			qdrant.NewMatch("namespace", ns),
		}},
		Limit:       &fetchLimit,
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("memory: qdrant query: %w", err)
	}

	out := make([]Memory, 0, len(scored))
	for _, sp := range scored {
		payload := sp.Payload
		content := payload["content"].GetStringValue()
		if content == "" {
			continue
		}
		meta := make(map[string]any)
		for k, v := range payload {
			if rest, ok := cutMetaPrefix(k); ok {
				meta[rest] = valueToAny(v)
			}
		}
		if ts := payload["timestamp"].GetStringValue(); ts != "" {
			meta["timestamp"] = ts
		}
		score := sp.Score
		out = append(out, Memory{Content: content, Metadata: meta, Relevance: &score})
	}
	return out, nil
}

// Healthy returns nil if Qdrant is reachable. Results are cached for 5
// seconds; concurrent checks after expiry are collapsed via singleflight.
func (s *QdrantStore) Healthy(ctx context.Context) error {
	if time.Since(time.Unix(0, s.healthAt.Load())) < 5*time.Second {
		return s.loadHealthErr()
	}

	// context.Background() instead of the caller's ctx: singleflight reuses
	// the first caller's context, and its cancellation would poison every
	// waiter's result.
	result, _, _ := s.healthGroup.Do("health", func() (any, error) {
		checkCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		_, err := s.client.HealthCheck(checkCtx)
		s.healthErr.Store(&err)
		s.healthAt.Store(time.Now().UnixNano())
		return err, nil
	})

	if err, ok := result.(error); ok && err != nil {
		return fmt.Errorf("memory: qdrant health: %w", err)
	}
	return nil
}

func (s *QdrantStore) loadHealthErr() error {
	if p, ok := s.healthErr.Load().(*error); ok && p != nil && *p != nil {
		return fmt.Errorf("memory: qdrant health: %w", *p)
	}
	return nil
}

func cutMetaPrefix(k string) (string, bool) {
	const prefix = "meta_"
	if len(k) > len(prefix) && k[:len(prefix)] == prefix {
		return k[len(prefix):], true
	}
	return "", false
}

// valueToAny converts a qdrant payload value to a plain Go value for
// the Memory metadata map.
func valueToAny(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	default:
		return v.String()
	}
}
