// Package retrieval is the C8 Retrieval Engine: orchestrates the embedder,
// vector store, and BM25 index (optionally hybrid-fused), then optionally
// reranks, then ranks, classifies, and caps the result. Grounded on
// legacyraggo's rag.go hybridSearch/simpleSearch/processResults shape
// (embed query -> search -> filter by MinScore -> build result),
// generalized to spec.md §4.8's two-path (baseline/enhanced) contract, and
// on rag/reranker.go's RRFReranker for weight-normalisation/dual-list-merge
// structure, adapted to the max-normalise weighted-sum fuse §4.8 calls for.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/citeassist/engine/internal/citeerr"
	"github.com/citeassist/engine/internal/domain"
	"github.com/citeassist/engine/internal/rerank"
	"github.com/citeassist/engine/internal/sparse"
	"github.com/citeassist/engine/internal/store"
)

// Strategy selects which retrieval path feeds the candidate pool.
type Strategy string

const (
	StrategyVector Strategy = "vector"
	StrategyBM25   Strategy = "bm25"
	StrategyHybrid Strategy = "hybrid"
)

const (
	minSimilarity          = 0.35
	rerankCandidatePoolSize = 100
	rerankTopCandidates     = 50
	classifyDropBelow       = 0.50
	baselineCap             = 10
	enhancedCap             = 15
)

// Options configures one GetSuggestionsEnhanced call. Zero-value weights are
// replaced by spec.md §4.8's defaults in DefaultOptions.
type Options struct {
	UseReranking bool
	Strategy     Strategy

	DenseWeight    float64
	SparseWeight   float64
	RerankWeight   float64
	OriginalWeight float64
	ContextWeight  float64
}

// DefaultOptions matches the Session Gateway's defaults: hybrid strategy,
// reranking on, spec.md §4.8's default weight set.
func DefaultOptions() Options {
	return Options{
		UseReranking:   true,
		Strategy:       StrategyHybrid,
		DenseWeight:    0.6,
		SparseWeight:   0.4,
		RerankWeight:   0.7,
		OriginalWeight: 0.3,
		ContextWeight:  0.2,
	}
}

// Embedder is the subset of embed.Service the engine depends on.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// PaperLookup hydrates chunk-level search results with paper metadata
// (title, authors, abstract, citation count, venue rank) needed for display
// and the no-reranker ranking formula.
type PaperLookup interface {
	GetPaper(ctx context.Context, paperID string) (domain.Paper, error)
}

// Cache is the optional response cache keyed by (user_id, fingerprint(text),
// strategy, use_reranking) with a caller-supplied TTL, per spec.md §4.8
// Caching.
type Cache interface {
	Get(ctx context.Context, key string) ([]domain.Suggestion, bool)
	Set(ctx context.Context, key string, suggestions []domain.Suggestion, ttl time.Duration)
}

type logger interface {
	Error(msg string, kv ...interface{})
}

type nopLogger struct{}

func (nopLogger) Error(string, ...interface{}) {}

// Engine is the C8 Retrieval Engine.
type Engine struct {
	Embedder Embedder
	Store    store.VectorStore
	Sparse   *sparse.Index
	Reranker *rerank.Reranker
	Papers   PaperLookup
	Cache    Cache
	Logger   logger
}

// New wires the engine's dependencies. Reranker and Cache may be nil.
func New(embedder Embedder, vstore store.VectorStore, sparseIdx *sparse.Index, papers PaperLookup) *Engine {
	return &Engine{Embedder: embedder, Store: vstore, Sparse: sparseIdx, Papers: papers, Logger: nopLogger{}}
}

// GetSuggestions is the baseline path: hybrid strategy, no reranking, capped
// at 10, classification and >= 0.50 drop still applied per spec.md §4.8
// step 5.
func (e *Engine) GetSuggestions(ctx context.Context, text string, tc *domain.TextContext, userID string) ([]domain.Suggestion, error) {
	opts := DefaultOptions()
	opts.UseReranking = false
	return e.run(ctx, text, tc, userID, opts, baselineCap, false)
}

// GetSuggestionsEnhanced is the enhanced path: caller-selected strategy and
// reranking toggle, per-stage scores populated, capped at 15, and an
// additional strict confidence > 0.50 filter.
func (e *Engine) GetSuggestionsEnhanced(ctx context.Context, text string, tc *domain.TextContext, userID string, opts Options) ([]domain.Suggestion, error) {
	return e.run(ctx, text, tc, userID, opts, enhancedCap, true)
}

func (e *Engine) run(ctx context.Context, text string, tc *domain.TextContext, userID string, opts Options, resultCap int, strictFilter bool) ([]domain.Suggestion, error) {
	cacheKey := fingerprint(userID, text, opts.Strategy, opts.UseReranking)
	if e.Cache != nil {
		if cached, ok := e.Cache.Get(ctx, cacheKey); ok {
			return cached, nil
		}
	}

	candidates, err := e.gatherCandidates(ctx, text, opts)
	if err != nil {
		return nil, err
	}
	candidates = e.hydrate(ctx, candidates)

	if opts.UseReranking && e.Reranker != nil {
		e.rerankInPlace(ctx, text, tc, candidates, opts)
	} else {
		for i := range candidates {
			candidates[i].final = rankingScore(candidates[i].dense, candidates[i].text, candidates[i].paper, tc)
		}
	}

	suggestions := classifyAndSort(candidates, strictFilter)
	if len(suggestions) > resultCap {
		suggestions = suggestions[:resultCap]
	}

	if e.Cache != nil {
		e.Cache.Set(ctx, cacheKey, suggestions, time.Hour)
	}
	return suggestions, nil
}

func (e *Engine) gatherCandidates(ctx context.Context, text string, opts Options) ([]candidate, error) {
	limit := 50
	if opts.UseReranking {
		limit = 150
	}

	switch opts.Strategy {
	case StrategyVector:
		vec, err := e.Embedder.Embed(ctx, text)
		if err != nil {
			return nil, citeerr.New(citeerr.Transient, "retrieval", "", fmt.Errorf("embed query: %w", err))
		}
		results, err := e.Store.DenseSearch(ctx, vec, limit, minSimilarity, store.Filters{})
		if err != nil {
			return nil, citeerr.New(citeerr.Transient, "retrieval", "", fmt.Errorf("dense search: %w", err))
		}
		return fuseFromDense(results), nil

	case StrategyBM25, StrategyHybrid:
		if !e.Sparse.Fitted() {
			return nil, citeerr.New(citeerr.ProcessingFailed, "retrieval", "", fmt.Errorf("bm25 index is not fitted"))
		}

		denseWeight, sparseWeight := opts.DenseWeight, opts.SparseWeight
		if opts.Strategy == StrategyBM25 {
			denseWeight, sparseWeight = 0.1, 0.9
		}

		vec, err := e.Embedder.Embed(ctx, text)
		if err != nil {
			return nil, citeerr.New(citeerr.Transient, "retrieval", "", fmt.Errorf("embed query: %w", err))
		}

		var denseResults []store.Result
		var sparseResults []sparse.Result
		var denseErr error
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			denseResults, denseErr = e.Store.DenseSearch(ctx, vec, rerankCandidatePoolSize, minSimilarity, store.Filters{})
		}()
		go func() {
			defer wg.Done()
			sparseResults = e.Sparse.Search(text, rerankCandidatePoolSize)
		}()
		wg.Wait()
		if denseErr != nil {
			return nil, citeerr.New(citeerr.Transient, "retrieval", "", fmt.Errorf("dense search: %w", denseErr))
		}

		fused := fuseHybrid(denseResults, sparseResults, denseWeight, sparseWeight)
		if len(fused) > limit {
			fused = fused[:limit]
		}
		return fused, nil

	default:
		return nil, citeerr.New(citeerr.InputRejected, "retrieval", "", fmt.Errorf("unknown search strategy %q", opts.Strategy))
	}
}

// hydrate attaches paper metadata to every candidate. A lookup failure for
// one paper drops that candidate rather than failing the whole request.
func (e *Engine) hydrate(ctx context.Context, candidates []candidate) []candidate {
	papers := make(map[string]domain.Paper)
	kept := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		paper, ok := papers[c.paperID]
		if !ok {
			var err error
			paper, err = e.Papers.GetPaper(ctx, c.paperID)
			if err != nil {
				e.Logger.Error("paper lookup failed, dropping candidate", "paper_id", c.paperID, "error", err)
				continue
			}
			papers[c.paperID] = paper
		}
		c.paper = paper
		kept = append(kept, c)
	}
	return kept
}

// rerankInPlace reranks the top rerankTopCandidates by pre-rerank score,
// blends per spec.md §4.8 step 3, and falls back to the pre-rerank ordering
// on reranker failure (every candidate's `final` is first set here to its
// fused/dense original score and is then left at that value) — a
// RerankerFailure must not take down the retrieval path.
func (e *Engine) rerankInPlace(ctx context.Context, text string, tc *domain.TextContext, candidates []candidate, opts Options) {
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].original > candidates[j].original })

	n := len(candidates)
	if n > rerankTopCandidates {
		n = rerankTopCandidates
	}
	top := candidates[:n]

	for i := range candidates {
		candidates[i].final = candidates[i].original
	}
	if n == 0 {
		return
	}

	rerankCandidates := make([]rerank.Candidate, n)
	for i, c := range top {
		rerankCandidates[i] = rerank.Candidate{ChunkID: c.chunkID, PaperID: c.paperID, Title: c.paper.Title, Abstract: c.paper.Abstract, Text: c.text}
	}

	var qc *rerank.QueryContext
	if tc != nil {
		qc = &rerank.QueryContext{Previous: tc.PreviousSentence, Current: tc.CurrentSentence, Next: tc.NextSentence}
	}

	scored, err := e.Reranker.Rerank(ctx, text, rerankCandidates, qc)
	if err != nil {
		e.Logger.Error("reranker failed, falling back to pre-rerank ordering", "error", err)
		return
	}

	for i := range top {
		top[i].rerankScore = scored[i].Score
		final := opts.RerankWeight*scored[i].Score + opts.OriginalWeight*top[i].original
		if scored[i].ContextMatch != nil {
			cm := *scored[i].ContextMatch
			top[i].contextMatch = &cm
			final = (final + opts.ContextWeight*cm) / (1 + opts.ContextWeight)
		}
		top[i].final = final
	}
}
