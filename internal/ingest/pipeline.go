// Package ingest is C10/C11: the load-extract-chunk-embed-persist sequence
// that turns an uploaded file into a processed, retrievable Paper, and the
// background worker that drives it over a queue of pending papers. Grounded
// on raggo's own ingestion flow (ProcessDocument tying ParserManager,
// Chunker, and the vector store together) and the relational claim pattern
// in seanblong-reposearch's store, with the heuristic title/author/abstract/
// year extraction ported from original_source's improved metadata
// extractor.
package ingest

import (
	"context"
	"fmt"

	"github.com/citeassist/engine/internal/chunk"
	"github.com/citeassist/engine/internal/citeerr"
	"github.com/citeassist/engine/internal/domain"
	"github.com/citeassist/engine/internal/extract"
	"github.com/citeassist/engine/internal/sparse"
	"github.com/citeassist/engine/internal/store"
)

// maxProcessingErrorLen truncates a stored processing_error to spec.md
// §4.10 step 9's bound, so one runaway error message never blows out a row.
const maxProcessingErrorLen = 500

// chunkTargetSize and chunkOverlap are C10's ingestion-time override of the
// chunker's general-purpose defaults, favouring recall over context size.
const (
	chunkTargetSize = 250
	chunkOverlap    = 50
)

// Papers is the relational persistence surface the pipeline needs;
// *repo.Repo satisfies it.
type Papers interface {
	GetPaper(ctx context.Context, paperID string) (domain.Paper, error)
	SavePaper(ctx context.Context, p domain.Paper) error
}

// Embedder is the single-text embedding capability; *embed.Service satisfies it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type logger interface {
	Info(msg string, kv ...interface{})
	Error(msg string, kv ...interface{})
}

// Pipeline runs spec.md §4.10's nine-step sequence for one paper.
type Pipeline struct {
	Extractor *extract.Manager
	Chunker   *chunk.Chunker
	Embedder  Embedder
	Papers    Papers
	Vectors   store.VectorStore
	Sparse    *sparse.Index
	Logger    logger
}

// New builds a Pipeline from its collaborators.
func New(extractor *extract.Manager, chunker *chunk.Chunker, embedder Embedder, papers Papers, vectors store.VectorStore, sparseIdx *sparse.Index, log logger) *Pipeline {
	return &Pipeline{
		Extractor: extractor,
		Chunker:   chunker,
		Embedder:  embedder,
		Papers:    papers,
		Vectors:   vectors,
		Sparse:    sparseIdx,
		Logger:    log,
	}
}

// Process runs steps 1-9 for paperID, whose FilePath must already be set.
// A GetPaper error is returned as is. Any later failure is recorded as a
// truncated processing_error on the paper, and Process then returns only
// SavePaper's error: a failed paper is a terminal outcome for the caller's retry
// loop to observe via is_processed/processing_error, not a Go error to
// propagate.
func (p *Pipeline) Process(ctx context.Context, paperID string) error {
	paper, err := p.Papers.GetPaper(ctx, paperID)
	if err != nil {
		return err
	}

	if procErr := p.run(ctx, &paper); procErr != nil {
		paper.IsProcessed = false
		paper.ProcessingError = truncate(procErr.Error(), maxProcessingErrorLen)
		p.Logger.Error("paper processing failed", "paper_id", paperID, "error", procErr)
		return p.Papers.SavePaper(ctx, paper)
	}

	paper.IsProcessed = true
	paper.ProcessingError = ""
	return p.Papers.SavePaper(ctx, paper)
}

func (p *Pipeline) run(ctx context.Context, paper *domain.Paper) error {
	// 1-2: load + extract text and page-map.
	result, err := p.Extractor.Extract(paper.FilePath)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	if result.Text == "" {
		return citeerr.New(citeerr.ProcessingFailed, "paper", paper.ID, fmt.Errorf("extracted text is empty"))
	}
	paper.FullText = result.Text

	// 3: heuristic metadata, filling only fields the caller left blank.
	meta := extractMetadata(result.Text)
	if paper.Title == "" {
		paper.Title = meta.Title
	}
	if len(paper.Authors) == 0 {
		paper.Authors = meta.Authors
	}
	if paper.Abstract == "" {
		paper.Abstract = meta.Abstract
	}
	if paper.Year == nil {
		paper.Year = meta.Year
	}

	// 4-5: sentence-aware chunking at the 250/50 ingestion policy.
	policy := chunk.Policy{TargetSize: chunkTargetSize, Overlap: chunkOverlap, MinSize: 50, MaxSize: 1000}
	chunks, err := p.Chunker.Chunk(result.Text, result.PageMap, chunk.SentenceAware, policy)
	if err != nil {
		return fmt.Errorf("chunk: %w", err)
	}
	if len(chunks) == 0 {
		return citeerr.New(citeerr.ProcessingFailed, "paper", paper.ID, fmt.Errorf("chunking produced no chunks"))
	}

	// 6: embed every chunk, plus one paper-level vector from the abstract
	// (or the first chunk, if no abstract was found).
	paperChunks := make([]domain.PaperChunk, len(chunks))
	for i, c := range chunks {
		vec, err := p.Embedder.Embed(ctx, c.Text)
		if err != nil {
			return fmt.Errorf("embed chunk %d: %w", i, err)
		}
		paperChunks[i] = domain.PaperChunk{
			ID:             fmt.Sprintf("%s-%d", paper.ID, c.ChunkIndex),
			PaperID:        paper.ID,
			ChunkIndex:     c.ChunkIndex,
			Text:           c.Text,
			StartChar:      c.StartChar,
			EndChar:        c.EndChar,
			Section:        c.Section,
			ChunkType:      c.ChunkType,
			WordCount:      c.WordCount,
			Embedding:      vec,
			PageStart:      c.PageStart,
			PageEnd:        c.PageEnd,
			PageBoundaries: c.PageBoundaries,
		}
	}

	summarySource := paper.Abstract
	if summarySource == "" {
		summarySource = chunks[0].Text
	}
	paperVec, err := p.Embedder.Embed(ctx, summarySource)
	if err != nil {
		return fmt.Errorf("embed paper summary: %w", err)
	}
	paper.Embedding = paperVec

	// 7: persist chunks + vectors. IsProcessed is set here, before the
	// caller's own save, so the vector store's processed-only dense_search
	// filter sees this paper's chunks as soon as they are inserted.
	paper.IsProcessed = true
	if err := p.Vectors.InsertChunks(ctx, *paper, paperChunks); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}

	// 8: index chunks for sparse retrieval incrementally; Add updates the
	// collection statistics itself, so no separate Fit runs here. Purge
	// this paper's prior sparse docs first so reprocessing (where the new
	// chunk count/ids may differ from the old one) stays idempotent,
	// mirroring the vector store's delete-then-insert in InsertChunks.
	if p.Sparse != nil {
		p.Sparse.RemovePaper(paper.ID)
		for _, c := range paperChunks {
			p.Sparse.Add(sparse.Document{ChunkID: c.ID, PaperID: c.PaperID, Text: c.Text})
		}
	}

	p.Logger.Info("paper processed", "paper_id", paper.ID, "chunks", len(paperChunks))
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
