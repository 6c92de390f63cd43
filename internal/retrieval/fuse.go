package retrieval

import (
	"github.com/citeassist/engine/internal/sparse"
	"github.com/citeassist/engine/internal/store"
)

// fuseFromDense wraps plain dense-search results as candidates with no
// sparse contribution; original == dense similarity.
func fuseFromDense(results []store.Result) []candidate {
	out := make([]candidate, len(results))
	for i, r := range results {
		out[i] = fromStoreResult(r)
		out[i].original = r.Similarity
	}
	return out
}

// fuseHybrid combines dense and sparse result sets: each score set is
// normalised by its own batch maximum, then combined with denseWeight and
// sparseWeight (auto-normalised to sum to 1), per spec.md §4.8 step 2. A
// chunk present in only one list gets 0 for the other side.
func fuseHybrid(dense []store.Result, sparseResults []sparse.Result, denseWeight, sparseWeight float64) []candidate {
	total := denseWeight + sparseWeight
	if total > 0 {
		denseWeight /= total
		sparseWeight /= total
	} else {
		denseWeight, sparseWeight = 0.5, 0.5
	}

	denseMax := 0.0
	for _, r := range dense {
		if r.Similarity > denseMax {
			denseMax = r.Similarity
		}
	}
	sparseMax := 0.0
	for _, r := range sparseResults {
		if r.Score > sparseMax {
			sparseMax = r.Score
		}
	}

	byChunk := make(map[string]*candidate, len(dense)+len(sparseResults))
	order := make([]string, 0, len(dense)+len(sparseResults))

	for _, r := range dense {
		c := fromStoreResult(r)
		byChunk[r.ChunkID] = &c
		order = append(order, r.ChunkID)
	}
	for _, r := range sparseResults {
		if _, ok := byChunk[r.ChunkID]; !ok {
			byChunk[r.ChunkID] = &candidate{chunkID: r.ChunkID, paperID: r.PaperID}
			order = append(order, r.ChunkID)
		}
		byChunk[r.ChunkID].sparse = r.Score
	}

	out := make([]candidate, 0, len(order))
	for _, id := range order {
		c := byChunk[id]
		normDense := 0.0
		if denseMax > 0 {
			normDense = c.dense / denseMax
		}
		normSparse := 0.0
		if sparseMax > 0 {
			normSparse = c.sparse / sparseMax
		}
		c.original = denseWeight*normDense + sparseWeight*normSparse
		out = append(out, *c)
	}
	return out
}

func fromStoreResult(r store.Result) candidate {
	return candidate{
		chunkID:        r.ChunkID,
		paperID:        r.PaperID,
		text:           r.Text,
		section:        r.Section,
		chunkType:      r.ChunkType,
		chunkIndex:     r.ChunkIndex,
		pageStart:      r.PageStart,
		pageEnd:        r.PageEnd,
		pageBoundaries: r.PageBoundaries,
		dense:          r.Similarity,
	}
}
