package retrieval

import (
	"testing"

	"github.com/citeassist/engine/internal/sparse"
	"github.com/citeassist/engine/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuseHybrid_NormalisesByBatchMaximum(t *testing.T) {
	dense := []store.Result{
		{ChunkID: "a", Similarity: 0.8},
		{ChunkID: "b", Similarity: 0.4},
	}
	sparseResults := []sparse.Result{
		{ChunkID: "a", Score: 5.0},
		{ChunkID: "c", Score: 10.0},
	}

	fused := fuseHybrid(dense, sparseResults, 0.6, 0.4)
	require.Len(t, fused, 3)

	byID := map[string]candidate{}
	for _, c := range fused {
		byID[c.chunkID] = c
	}

	// a: dense norm 1.0 * 0.6 + sparse norm 0.5 * 0.4 = 0.8
	assert.InDelta(t, 0.8, byID["a"].original, 1e-9)
	// b: dense norm 0.5 * 0.6 + 0 = 0.3
	assert.InDelta(t, 0.3, byID["b"].original, 1e-9)
	// c: 0 + sparse norm 1.0 * 0.4 = 0.4
	assert.InDelta(t, 0.4, byID["c"].original, 1e-9)
}

func TestFuseHybrid_NormalisesUnequalWeights(t *testing.T) {
	dense := []store.Result{{ChunkID: "a", Similarity: 1.0}}
	fused := fuseHybrid(dense, nil, 3, 1)
	require.Len(t, fused, 1)
	assert.InDelta(t, 0.75, fused[0].original, 1e-9)
}

func TestFuseFromDense_OriginalEqualsSimilarity(t *testing.T) {
	dense := []store.Result{{ChunkID: "a", Similarity: 0.66}}
	fused := fuseFromDense(dense)
	require.Len(t, fused, 1)
	assert.Equal(t, 0.66, fused[0].original)
	assert.Equal(t, 0.66, fused[0].dense)
}
