// Package rerank is the C6 Reranker: a cross-encoder model that scores
// (query, passage) pairs to a scalar confidence in [0, 1], with a
// context-aware second pass. No teacher file implements a reranker beyond
// rag/reranker.go's RRFReranker (rank fusion, not a cross-encoder); its
// formula is not used here, and internal/retrieval's hybrid fuse step is a
// max-normalised weighted sum rather than rank fusion. This package adds a new HTTP cross-encoder client built in the same
// idiom as rag/providers/openai.go (JSON POST, Bearer header, configurable
// timeout), since a cross-encoder score is naturally a call to a
// model-serving endpoint, not a new algorithm to invent.
package rerank

import (
	"context"
	"strings"
)

// defaultBatchSize and defaultMaxTokenLength match spec.md §4.6's defaults.
const (
	defaultBatchSize      = 32
	defaultMaxTokenLength = 512
	abstractTruncateChars = 200
)

// Candidate is one passage to be scored against a query.
type Candidate struct {
	ChunkID  string
	PaperID  string
	Title    string
	Abstract string
	Text     string
}

// QueryContext carries the sentence neighbourhood the reranker additionally
// scores each passage against, per spec.md §4.6's context-aware pass.
type QueryContext struct {
	Previous *string
	Current  string
	Next     *string
}

// concat joins the context sentences the reranker scores a passage against.
func (q QueryContext) concat() string {
	var parts []string
	if q.Previous != nil {
		parts = append(parts, *q.Previous)
	}
	parts = append(parts, q.Current)
	if q.Next != nil {
		parts = append(parts, *q.Next)
	}
	return strings.Join(parts, " ")
}

// Scored is one candidate with its cross-encoder score and, when a
// QueryContext was supplied, its context_match score.
type Scored struct {
	Candidate    Candidate
	Score        float64
	ContextMatch *float64
}

// CrossEncoder scores batches of (query, passage) pairs. A single pair is
// Score(ctx, query, []string{passage}).
type CrossEncoder interface {
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
}

// Reranker batches candidates through a CrossEncoder.
type Reranker struct {
	client    CrossEncoder
	batchSize int
}

// Option configures a Reranker.
type Option func(*Reranker)

// WithBatchSize overrides the default batch size of 32.
func WithBatchSize(n int) Option {
	return func(r *Reranker) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// New wraps client with spec.md §4.6's default batch size.
func New(client CrossEncoder, opts ...Option) *Reranker {
	r := &Reranker{client: client, batchSize: defaultBatchSize}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// passage builds the text fed to the cross-encoder: the paper's title and a
// truncated abstract (<= 200 chars), then the chunk text, newline-separated.
func passage(c Candidate) string {
	abstract := c.Abstract
	if len(abstract) > abstractTruncateChars {
		abstract = abstract[:abstractTruncateChars]
	}
	return c.Title + "\n" + abstract + "\n" + c.Text
}

// Rerank scores every candidate against query, batching by r.batchSize, and
// when queryContext is non-nil, additionally scores each candidate against
// the concatenated context string to produce ContextMatch.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []Candidate, queryContext *QueryContext) ([]Scored, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	passages := make([]string, len(candidates))
	for i, c := range candidates {
		passages[i] = passage(c)
	}

	scores, err := r.scoreBatched(ctx, query, passages)
	if err != nil {
		return nil, err
	}

	results := make([]Scored, len(candidates))
	for i, c := range candidates {
		results[i] = Scored{Candidate: c, Score: scores[i]}
	}

	if queryContext != nil {
		contextScores, err := r.scoreBatched(ctx, queryContext.concat(), passages)
		if err != nil {
			return nil, err
		}
		for i := range results {
			cm := contextScores[i]
			results[i].ContextMatch = &cm
		}
	}

	return results, nil
}

func (r *Reranker) scoreBatched(ctx context.Context, query string, passages []string) ([]float64, error) {
	out := make([]float64, 0, len(passages))
	for start := 0; start < len(passages); start += r.batchSize {
		end := start + r.batchSize
		if end > len(passages) {
			end = len(passages)
		}
		batch, err := r.client.Score(ctx, query, passages[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}
