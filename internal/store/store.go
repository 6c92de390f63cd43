// Package store is the C4 Vector Store: insert_chunks/delete_chunks/
// dense_search over chunk embeddings joined to their owning paper, grounded
// on raggo's vectordb.go + rag/milvus.go (schema/index/search plumbing) with
// an in-memory linear-scan fallback grounded on internal/rag/memory.go's
// MemoryDB.Search, matching raggo's own memory-vs-milvus duality.
package store

import (
	"context"
	"math"

	"github.com/citeassist/engine/internal/domain"
)

// Filters restricts dense_search to papers matching a year range; a nil
// bound is unrestricted on that side.
type Filters struct {
	YearMin *int
	YearMax *int
}

// Matches reports whether a paper's year satisfies the filter. A paper with
// no recorded year only matches an unrestricted filter.
func (f Filters) Matches(year *int) bool {
	if f.YearMin == nil && f.YearMax == nil {
		return true
	}
	if year == nil {
		return false
	}
	if f.YearMin != nil && *year < *f.YearMin {
		return false
	}
	if f.YearMax != nil && *year > *f.YearMax {
		return false
	}
	return true
}

// Result is one scored chunk returned by dense_search.
type Result struct {
	ChunkID    string
	PaperID    string
	Text       string
	ChunkIndex int
	Section    string
	ChunkType  domain.ChunkType

	PageStart      *int
	PageEnd        *int
	PageBoundaries []domain.PageBoundary

	Similarity float64
}

// VectorStore is the C4 contract: chunks with their embeddings, joined to
// their owning paper.
type VectorStore interface {
	// InsertChunks stores chunks for paper, replacing any prior chunks for
	// that paper. Idempotent: implementations delete_chunks(paper_id) first.
	InsertChunks(ctx context.Context, paper domain.Paper, chunks []domain.PaperChunk) error

	DeleteChunks(ctx context.Context, paperID string) error

	// DenseSearch returns chunks ordered by descending cosine similarity,
	// restricted to processed papers satisfying filters, with
	// similarity >= minSimilarity.
	DenseSearch(ctx context.Context, queryVector []float32, k int, minSimilarity float64, filters Filters) ([]Result, error)

	Close() error
}

// cosineSimilarity returns a value in [-1, 1]; undefined (0) if either
// vector has zero magnitude or the dimensions disagree.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
