package store

import (
	"context"
	"sort"
	"sync"

	"github.com/citeassist/engine/internal/domain"
)

// MemoryStore is a linear-scan VectorStore, grounded on internal/rag's
// MemoryDB.Search: no index, just a full sweep scored by cosine similarity.
// Used by tests and as the "no Milvus configured" fallback.
type MemoryStore struct {
	mu     sync.RWMutex
	papers map[string]domain.Paper
	chunks map[string][]domain.PaperChunk
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		papers: make(map[string]domain.Paper),
		chunks: make(map[string][]domain.PaperChunk),
	}
}

func (m *MemoryStore) InsertChunks(ctx context.Context, paper domain.Paper, chunks []domain.PaperChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.papers[paper.ID] = paper
	stored := make([]domain.PaperChunk, len(chunks))
	copy(stored, chunks)
	m.chunks[paper.ID] = stored
	return nil
}

func (m *MemoryStore) DeleteChunks(ctx context.Context, paperID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chunks, paperID)
	delete(m.papers, paperID)
	return nil
}

func (m *MemoryStore) DenseSearch(ctx context.Context, queryVector []float32, k int, minSimilarity float64, filters Filters) ([]Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []Result
	for paperID, chunks := range m.chunks {
		paper, ok := m.papers[paperID]
		if !ok || !paper.IsProcessed {
			continue
		}
		if !filters.Matches(paper.Year) {
			continue
		}
		for _, c := range chunks {
			sim := cosineSimilarity(queryVector, c.Embedding)
			if sim < minSimilarity {
				continue
			}
			results = append(results, Result{
				ChunkID:        c.ID,
				PaperID:        paperID,
				Text:           c.Text,
				ChunkIndex:     c.ChunkIndex,
				Section:        c.Section,
				ChunkType:      c.ChunkType,
				PageStart:      c.PageStart,
				PageEnd:        c.PageEnd,
				PageBoundaries: c.PageBoundaries,
				Similarity:     sim,
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (m *MemoryStore) Close() error { return nil }
