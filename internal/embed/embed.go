// Package embed turns text into fixed-dimension vectors, batching and
// caching calls to an HTTP embedding provider, grounded on raggo's
// embedder.go/rag/embed.go functional-options provider registry and
// rag/providers/openai.go's client shape.
package embed

import (
	"context"
	"crypto/sha256"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/citeassist/engine/internal/citeerr"
)

// maxBatchInFlight bounds concurrent in-flight embed calls during a batch,
// per spec.md §4.3 "batch size caps at 32".
const maxBatchInFlight = 32

// Provider is the narrow capability an embedding backend exposes: one text
// to one vector. Concrete providers (OpenAIProvider) implement this; the
// Service wraps a Provider with caching and bounded batch dispatch.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Service is the C3 Embedder: embed/embed_batch with an LRU content-hash
// cache in front of a Provider.
type Service struct {
	provider Provider
	cache    *lruCache
	logger   logger
}

type logger interface {
	Debug(msg string, kv ...interface{})
	Error(msg string, kv ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Error(string, ...interface{}) {}

// Option configures a Service.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(l logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithCacheSize overrides the default ~1000-entry LRU.
func WithCacheSize(n int) Option {
	return func(s *Service) { s.cache = newLRUCache(n) }
}

// NewService wraps provider with a 1000-entry LRU cache, matching spec.md
// §4.3's "in-memory LRU keyed by a content hash ... holds the most recent
// ~1000 vectors".
func NewService(provider Provider, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		cache:    newLRUCache(1000),
		logger:   nopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dimension reports D, the configured embedding dimension.
func (s *Service) Dimension() int { return s.provider.Dimension() }

// contentHash is the stable digest used as the cache key: a fixed-width
// digest over stable bytes, per spec.md §4.3.
func contentHash(text string) [32]byte {
	return sha256.Sum256([]byte(text))
}

// Embed returns a cached vector on hit, otherwise calls the provider and
// populates the cache.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	key := contentHash(text)
	if v, ok := s.cache.get(key); ok {
		return v, nil
	}

	vec, err := s.provider.Embed(ctx, text)
	if err != nil {
		return nil, citeerr.New(citeerr.Transient, "embedding", "", fmt.Errorf("embed: %w", err))
	}
	s.cache.put(key, vec)
	return vec, nil
}

// EmbedBatch embeds every text, fanning out across a bounded worker pool
// (errgroup, capped at maxBatchInFlight in-flight calls), populating the
// cache per element. Per-item failures propagate as errors rather than
// producing silent zero vectors, per spec.md §4.3.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxBatchInFlight)

	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			vec, err := s.Embed(ctx, text)
			if err != nil {
				s.logger.Error("embed batch item failed", "index", i, "error", err)
				return err
			}
			results[i] = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
