// Package chunk splits extracted text into ordered, overlap-aware chunks
// under one of five strategies, generalizing raggo's single sentence-packing
// TextChunker.Chunk into the word/sentence-aware/hierarchical/element-based/
// semantic family.
package chunk

import (
	"fmt"

	"github.com/citeassist/engine/internal/domain"
	"github.com/citeassist/engine/internal/extract"
)

// Strategy selects one of the five chunking algorithms.
type Strategy string

const (
	Word           Strategy = "word"
	SentenceAware  Strategy = "sentence-aware"
	Hierarchical   Strategy = "hierarchical"
	ElementBased   Strategy = "element-based"
	Semantic       Strategy = "semantic"
)

// Policy carries the size/overlap parameters. Sentence packing (sentence-aware,
// hierarchical, and oversized element-based paragraphs) measures TargetSize
// and Overlap with the configured TokenCounter (words by default, tiktoken
// tokens when wired to one); the word and semantic strategies and the
// element-based MaxSize check count whitespace-delimited words.
type Policy struct {
	TargetSize int
	Overlap    int
	MinSize    int
	MaxSize    int
}

// DefaultPolicy matches the chunker's general-purpose defaults; C10 ingestion
// overrides TargetSize/Overlap to 250/50 for recall, per spec.md §4.10 step 5.
func DefaultPolicy() Policy {
	return Policy{TargetSize: 500, Overlap: 50, MinSize: 50, MaxSize: 1000}
}

// EnhancedChunk is one chunk produced by any strategy.
type EnhancedChunk struct {
	Text          string
	StartChar     int
	EndChar       int
	ChunkIndex    int
	WordCount     int
	SentenceCount int
	Section       string
	ChunkType     domain.ChunkType

	PageStart      *int
	PageEnd        *int
	PageBoundaries []domain.PageBoundary
}

// TokenCounter abstracts how a unit of "size" is counted — words by default,
// tiktoken tokens when configured, matching raggo's TokenCounter interface.
type TokenCounter interface {
	Count(text string) int
}

// Embedder is the narrow capability the semantic strategy needs: a single
// text to vector call. internal/embed.Service satisfies this.
type Embedder interface {
	Embed(text string) ([]float32, error)
}

// Chunker runs one of the five strategies against extracted text.
type Chunker struct {
	TokenCounter TokenCounter
	Embedder     Embedder // optional; required only for Semantic
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithTokenCounter overrides the default word-counting TokenCounter.
func WithTokenCounter(tc TokenCounter) Option {
	return func(c *Chunker) { c.TokenCounter = tc }
}

// WithEmbedder wires an embedder for the semantic strategy.
func WithEmbedder(e Embedder) Option {
	return func(c *Chunker) { c.Embedder = e }
}

// New builds a Chunker, defaulting to a word-count TokenCounter, exactly as
// raggo's NewTextChunker defaults to DefaultTokenCounter.
func New(opts ...Option) *Chunker {
	c := &Chunker{TokenCounter: &WordTokenCounter{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chunk splits text into EnhancedChunks under the given strategy and policy,
// then enriches each chunk with page boundaries when pageMap is non-empty.
func (c *Chunker) Chunk(text string, pageMap []extract.PageRange, strategy Strategy, policy Policy) ([]EnhancedChunk, error) {
	var chunks []EnhancedChunk
	var err error

	switch strategy {
	case Word:
		chunks = c.chunkWord(text, policy)
	case SentenceAware:
		chunks = c.chunkSentenceAware(text, policy)
	case Hierarchical:
		chunks = c.chunkHierarchical(text, policy)
	case ElementBased:
		chunks = c.chunkElementBased(text, policy)
	case Semantic:
		chunks, err = c.chunkSemantic(text, policy)
	default:
		return nil, fmt.Errorf("unknown chunk strategy: %q", strategy)
	}
	if err != nil {
		return nil, err
	}

	for i := range chunks {
		chunks[i].ChunkIndex = i
	}

	if len(pageMap) > 0 {
		enrichWithPages(chunks, pageMap)
	}

	return chunks, nil
}

// MergeSmallChunks concatenates adjacent chunks whose word count is below
// minSize, keeping the left operand's section/chunk-type, per spec.md §4.2
// Post-processing.
func MergeSmallChunks(chunks []EnhancedChunk, minSize int) []EnhancedChunk {
	if len(chunks) == 0 {
		return chunks
	}
	merged := []EnhancedChunk{chunks[0]}
	for _, next := range chunks[1:] {
		last := &merged[len(merged)-1]
		if last.WordCount < minSize && next.WordCount < minSize {
			last.Text = last.Text + " " + next.Text
			last.EndChar = next.EndChar
			last.WordCount += next.WordCount
			last.SentenceCount += next.SentenceCount
			continue
		}
		merged = append(merged, next)
	}
	for i := range merged {
		merged[i].ChunkIndex = i
	}
	return merged
}
