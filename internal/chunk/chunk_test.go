package chunk

import (
	"testing"

	"github.com/citeassist/engine/internal/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `Abstract
This paper studies attention mechanisms. Attention is all you need for modern NLP. Transformers revolutionised the field.

Introduction
Prior work relied on recurrence. This paper removes recurrence entirely. We show strong empirical results.

References
Vaswani et al. 2017.`

func TestChunkWord_CoversText(t *testing.T) {
	c := New()
	chunks, err := c.Chunk(sample, nil, Word, Policy{TargetSize: 10, Overlap: 2})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.ChunkIndex)
		assert.True(t, ch.StartChar < ch.EndChar)
		assert.Equal(t, sample[ch.StartChar:ch.EndChar], ch.Text)
	}
}

func TestChunkSentenceAware_TextMatchesOffsets(t *testing.T) {
	c := New()
	chunks, err := c.Chunk(sample, nil, SentenceAware, Policy{TargetSize: 15, Overlap: 5, MinSize: 5, MaxSize: 200})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		assert.Equal(t, sample[ch.StartChar:ch.EndChar], ch.Text)
	}
}

func TestChunkHierarchical_AnnotatesSections(t *testing.T) {
	c := New()
	chunks, err := c.Chunk(sample, nil, Hierarchical, Policy{TargetSize: 30, Overlap: 5, MinSize: 5, MaxSize: 200})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	var sawAbstract, sawReferences bool
	for _, ch := range chunks {
		switch ch.Section {
		case "abstract":
			sawAbstract = true
		case "references":
			sawReferences = true
		}
	}
	assert.True(t, sawAbstract)
	assert.True(t, sawReferences)
}

func TestChunkElementBased_CarriesActiveSection(t *testing.T) {
	c := New()
	chunks, err := c.Chunk(sample, nil, ElementBased, Policy{TargetSize: 30, Overlap: 5, MinSize: 5, MaxSize: 200})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		assert.NotEmpty(t, ch.Section)
	}
}

func TestMergeSmallChunks(t *testing.T) {
	chunks := []EnhancedChunk{
		{Text: "a", EndChar: 1, WordCount: 2},
		{Text: "b", StartChar: 1, EndChar: 2, WordCount: 1},
		{Text: "c", StartChar: 2, EndChar: 3, WordCount: 40},
	}
	merged := MergeSmallChunks(chunks, 10)
	require.Len(t, merged, 2)
	assert.Equal(t, "a b", merged[0].Text)
}

func TestEnrichWithPages_PercentagesSumTo100(t *testing.T) {
	pageMap := []extract.PageRange{
		{PageNumber: 1, StartChar: 0, EndChar: 50},
		{PageNumber: 2, StartChar: 50, EndChar: 120},
	}
	chunks := []EnhancedChunk{{StartChar: 30, EndChar: 80}}
	enrichWithPages(chunks, pageMap)

	require.NotNil(t, chunks[0].PageStart)
	require.NotNil(t, chunks[0].PageEnd)
	assert.Equal(t, 1, *chunks[0].PageStart)
	assert.Equal(t, 2, *chunks[0].PageEnd)

	var total float64
	for _, b := range chunks[0].PageBoundaries {
		total += b.Percent
	}
	assert.InDelta(t, 100.0, total, 0.02)
}

func TestSplitSentences_OffsetsAreValidSubstrings(t *testing.T) {
	text := `She said "Stop. Now." and left. Then she returned.`
	for _, s := range splitSentences(text) {
		assert.Equal(t, s.Text, text[s.Start:s.End])
	}
}
