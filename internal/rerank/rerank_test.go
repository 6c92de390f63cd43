package rerank

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCrossEncoder scores a passage by whether it contains the query,
// deterministic and network-free.
type fakeCrossEncoder struct {
	batchCalls int
	batchSizes []int
}

func (f *fakeCrossEncoder) Score(_ context.Context, query string, passages []string) ([]float64, error) {
	f.batchCalls++
	f.batchSizes = append(f.batchSizes, len(passages))
	scores := make([]float64, len(passages))
	for i, p := range passages {
		if strings.Contains(strings.ToLower(p), strings.ToLower(query)) {
			scores[i] = 0.9
		} else {
			scores[i] = 0.1
		}
	}
	return scores, nil
}

func TestPassage_TruncatesAbstractAndJoinsFields(t *testing.T) {
	c := Candidate{Title: "Attention Is All You Need", Abstract: strings.Repeat("x", 300), Text: "the chunk body"}
	p := passage(c)
	assert.True(t, strings.HasPrefix(p, "Attention Is All You Need\n"))
	assert.Contains(t, p, strings.Repeat("x", 200))
	assert.NotContains(t, p, strings.Repeat("x", 201))
	assert.True(t, strings.HasSuffix(p, "the chunk body"))
}

func TestRerank_ScoresEveryCandidate(t *testing.T) {
	fake := &fakeCrossEncoder{}
	r := New(fake)

	candidates := []Candidate{
		{ChunkID: "c1", Title: "Transformers", Text: "attention is the core mechanism"},
		{ChunkID: "c2", Title: "Recurrence", Text: "recurrent networks process sequences"},
	}

	results, err := r.Rerank(context.Background(), "attention", candidates, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 0.9, results[0].Score)
	assert.Equal(t, 0.1, results[1].Score)
	assert.Nil(t, results[0].ContextMatch)
}

func TestRerank_BatchesRequests(t *testing.T) {
	fake := &fakeCrossEncoder{}
	r := New(fake, WithBatchSize(2))

	candidates := make([]Candidate, 5)
	for i := range candidates {
		candidates[i] = Candidate{ChunkID: string(rune('a' + i)), Text: "passage text"}
	}

	_, err := r.Rerank(context.Background(), "query", candidates, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, fake.batchSizes)
}

func TestRerank_ContextAwarePass(t *testing.T) {
	fake := &fakeCrossEncoder{}
	r := New(fake)

	candidates := []Candidate{{ChunkID: "c1", Text: "gradient descent optimisation"}}
	prev := "we discussed optimisation earlier"
	qc := &QueryContext{Previous: &prev, Current: "gradient descent works well"}

	results, err := r.Rerank(context.Background(), "optimisation", candidates, qc)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].ContextMatch)
	assert.Equal(t, 2, fake.batchCalls)
}

func TestRerank_EmptyCandidates(t *testing.T) {
	fake := &fakeCrossEncoder{}
	r := New(fake)
	results, err := r.Rerank(context.Background(), "q", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, results)
	assert.Equal(t, 0, fake.batchCalls)
}
