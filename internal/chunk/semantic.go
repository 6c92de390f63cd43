package chunk

import (
	"math"
	"strings"

	"github.com/citeassist/engine/internal/domain"
)

// chunkSemantic is sentence-aware chunking augmented with a running
// embedding-similarity check: a new chunk starts when the next sentence's
// cosine similarity to the growing chunk's centroid drops below 0.7 and the
// chunk already has min_size words, or once it reaches target_size words.
// Falls back to plain sentence-aware chunking when no embedder is wired.
func (c *Chunker) chunkSemantic(text string, policy Policy) ([]EnhancedChunk, error) {
	if c.Embedder == nil {
		return c.chunkSentenceAware(text, policy), nil
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}

	var chunks []EnhancedChunk
	startIdx := 0
	var centroid []float32
	wordsInChunk := 0

	flush := func(endIdx int) {
		if endIdx <= startIdx {
			return
		}
		var sb strings.Builder
		for k := startIdx; k < endIdx; k++ {
			if k > startIdx {
				sb.WriteString(" ")
			}
			sb.WriteString(sentences[k].Text)
		}
		chunks = append(chunks, EnhancedChunk{
			Text:          sb.String(),
			StartChar:     sentences[startIdx].Start,
			EndChar:       sentences[endIdx-1].End,
			WordCount:     c.countWords(sb.String()),
			SentenceCount: endIdx - startIdx,
			ChunkType:     domain.ChunkBody,
		})
	}

	for i, s := range sentences {
		vec, err := c.Embedder.Embed(s.Text)
		if err != nil {
			return nil, err
		}

		if wordsInChunk > 0 {
			sim := cosineSimilarity(centroid, vec)
			tooBig := wordsInChunk >= policy.TargetSize
			driftedAndBigEnough := sim < 0.7 && wordsInChunk >= policy.MinSize
			if tooBig || driftedAndBigEnough {
				flush(i)
				startIdx = i
				centroid = nil
				wordsInChunk = 0
			}
		}

		centroid = runningMean(centroid, vec, wordsInChunk)
		wordsInChunk += c.countWords(s.Text)
	}
	flush(len(sentences))

	return chunks, nil
}

// runningMean folds vec into the running average centroid, where n is the
// number of word-weighted observations already folded in (0 on the first
// call, which simply adopts vec).
func runningMean(centroid, vec []float32, n int) []float32 {
	if centroid == nil || n == 0 {
		out := make([]float32, len(vec))
		copy(out, vec)
		return out
	}
	out := make([]float32, len(centroid))
	for i := range centroid {
		out[i] = centroid[i] + (vec[i]-centroid[i])/float32(n+1)
	}
	return out
}

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
