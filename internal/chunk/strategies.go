package chunk

import (
	"strings"

	"github.com/citeassist/engine/internal/domain"
)

// chunkWord produces fixed-size windows of policy.TargetSize words, stepping
// by target_size - overlap.
func (c *Chunker) chunkWord(text string, policy Policy) []EnhancedChunk {
	words := splitWords(text)
	if len(words) == 0 {
		return nil
	}
	step := policy.TargetSize - policy.Overlap
	if step < 1 {
		step = policy.TargetSize
	}
	if step < 1 {
		step = 1
	}

	var chunks []EnhancedChunk
	for i := 0; i < len(words); i += step {
		j := i + policy.TargetSize
		if j > len(words) {
			j = len(words)
		}
		start := words[i].Start
		end := words[j-1].End
		chunks = append(chunks, EnhancedChunk{
			Text:          text[start:end],
			StartChar:     start,
			EndChar:       end,
			WordCount:     j - i,
			SentenceCount: 0,
			ChunkType:     domain.ChunkBody,
		})
		if j == len(words) {
			break
		}
	}
	return chunks
}

// chunkSentenceAware greedily packs sentences until adding the next would
// exceed policy.TargetSize, then starts the next chunk with a tail of
// sentences from the previous one whose accumulated words >= Overlap —
// the same packing loop as raggo's TextChunker.Chunk, generalized to track
// char offsets instead of rebuilding chunk text by concatenation.
func (c *Chunker) chunkSentenceAware(text string, policy Policy) []EnhancedChunk {
	chunks := c.packSentences(splitSentences(text), policy, domain.ChunkBody, "")
	for i := range chunks {
		chunks[i].Text = text[chunks[i].StartChar:chunks[i].EndChar]
	}
	return chunks
}

// packSentences is the reusable core of chunkSentenceAware, shared with
// hierarchical (per-section) and element-based (per-paragraph, oversized
// paragraphs only) chunking.
func (c *Chunker) packSentences(sentences []Sentence, policy Policy, chunkType domain.ChunkType, section string) []EnhancedChunk {
	if len(sentences) == 0 {
		return nil
	}

	var chunks []EnhancedChunk
	startIdx := 0
	currentCount := 0

	flush := func(endIdx int) {
		if endIdx <= startIdx {
			return
		}
		start := sentences[startIdx].Start
		end := sentences[endIdx-1].End
		var sb strings.Builder
		for k := startIdx; k < endIdx; k++ {
			if k > startIdx {
				sb.WriteString(" ")
			}
			sb.WriteString(sentences[k].Text)
		}
		chunks = append(chunks, EnhancedChunk{
			Text:          sb.String(),
			StartChar:     start,
			EndChar:       end,
			WordCount:     c.countWords(sb.String()),
			SentenceCount: endIdx - startIdx,
			Section:       section,
			ChunkType:     chunkType,
		})
	}

	for i, s := range sentences {
		n := c.TokenCounter.Count(s.Text)
		if currentCount+n > policy.TargetSize && currentCount > 0 {
			flush(i)
			overlapStart := overlapTail(sentences, i, policy.Overlap, c.TokenCounter)
			if overlapStart < startIdx {
				overlapStart = startIdx
			}
			startIdx = overlapStart
			currentCount = 0
			for k := startIdx; k < i; k++ {
				currentCount += c.TokenCounter.Count(sentences[k].Text)
			}
		}
		currentCount += n
	}
	flush(len(sentences))

	return chunks
}

func (c *Chunker) countWords(text string) int {
	return len(strings.Fields(text))
}

// overlapTail finds how many trailing sentences before endIdx accumulate at
// least desiredOverlap units of TokenCounter size, mirroring raggo's
// estimateOverlapSentences.
func overlapTail(sentences []Sentence, endIdx, desiredOverlap int, tc TokenCounter) int {
	overlapCount := 0
	i := endIdx - 1
	for i >= 0 && overlapCount < desiredOverlap {
		overlapCount += tc.Count(sentences[i].Text)
		i--
	}
	return i + 1
}
