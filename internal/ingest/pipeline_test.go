package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/citeassist/engine/internal/chunk"
	"github.com/citeassist/engine/internal/domain"
	"github.com/citeassist/engine/internal/extract"
	"github.com/citeassist/engine/internal/sparse"
	"github.com/citeassist/engine/internal/store"
)

type fakePapers struct {
	papers map[string]domain.Paper
	saved  []domain.Paper
}

func newFakePapers(papers ...domain.Paper) *fakePapers {
	m := make(map[string]domain.Paper, len(papers))
	for _, p := range papers {
		m[p.ID] = p
	}
	return &fakePapers{papers: m}
}

func (f *fakePapers) GetPaper(_ context.Context, paperID string) (domain.Paper, error) {
	p, ok := f.papers[paperID]
	if !ok {
		return domain.Paper{}, os.ErrNotExist
	}
	return p, nil
}

func (f *fakePapers) SavePaper(_ context.Context, p domain.Paper) error {
	f.papers[p.ID] = p
	f.saved = append(f.saved, p)
	return nil
}

type fakeEmbedder struct {
	calls int
	fail  bool
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.fail {
		return nil, os.ErrInvalid
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

type nopIngestLogger struct{}

func (nopIngestLogger) Info(string, ...interface{})  {}
func (nopIngestLogger) Error(string, ...interface{}) {}

func writeTempPaper(t *testing.T, text string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "paper.txt")
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		t.Fatalf("write temp paper: %v", err)
	}
	return path
}

const samplePaperText = `# A Comprehensive Study Of Widget Assembly Techniques

Jane Researcher, John Scholar

Abstract
This paper examines widget assembly techniques across several factories and
proposes a unified framework for evaluating throughput under varying load.

1. Introduction
Widget assembly has long been studied. This section reviews prior work on
the subject and motivates our contribution with several supporting examples
that span multiple paragraphs of background material for the reader.

2. Methods
We describe our experimental setup here, including the sensors used, the
sampling rate, and the statistical tests applied to the resulting data.

3. Results
Our results show a marked improvement in throughput of fifteen percent
across all tested configurations when the new scheduling policy is applied.
`

func newTestPipeline(t *testing.T, papers *fakePapers, embedder *fakeEmbedder) (*Pipeline, store.VectorStore) {
	t.Helper()
	vectors := store.NewMemoryStore()
	p := New(extract.NewManager(), chunk.New(), embedder, papers, vectors, sparse.NewIndex(), nopIngestLogger{})
	return p, vectors
}

func TestPipeline_Process_ExtractsChunksEmbedsAndPersists(t *testing.T) {
	path := writeTempPaper(t, samplePaperText)
	papers := newFakePapers(domain.Paper{ID: "p1", FilePath: path, Source: domain.SourceUpload})
	embedder := &fakeEmbedder{}

	pipeline, _ := newTestPipeline(t, papers, embedder)

	if err := pipeline.Process(context.Background(), "p1"); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	saved := papers.papers["p1"]
	if !saved.IsProcessed {
		t.Fatalf("expected paper marked processed")
	}
	if saved.ProcessingError != "" {
		t.Fatalf("expected no processing error, got %q", saved.ProcessingError)
	}
	if saved.Title == "" {
		t.Fatalf("expected extracted title to be set")
	}
	if len(saved.Authors) == 0 {
		t.Fatalf("expected extracted authors to be set")
	}
	if saved.Abstract == "" {
		t.Fatalf("expected extracted abstract to be set")
	}
	if len(saved.Embedding) == 0 {
		t.Fatalf("expected a paper-level embedding")
	}
	if embedder.calls == 0 {
		t.Fatalf("expected the embedder to be called")
	}
}

func TestPipeline_Process_PreservesCallerSuppliedMetadata(t *testing.T) {
	path := writeTempPaper(t, samplePaperText)
	year := 2020
	papers := newFakePapers(domain.Paper{
		ID:       "p1",
		FilePath: path,
		Title:    "Caller Supplied Title",
		Authors:  []string{"Caller Author"},
		Year:     &year,
	})
	pipeline, _ := newTestPipeline(t, papers, &fakeEmbedder{})

	if err := pipeline.Process(context.Background(), "p1"); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	saved := papers.papers["p1"]
	if saved.Title != "Caller Supplied Title" {
		t.Fatalf("title was overwritten: %q", saved.Title)
	}
	if len(saved.Authors) != 1 || saved.Authors[0] != "Caller Author" {
		t.Fatalf("authors were overwritten: %v", saved.Authors)
	}
	if saved.Year == nil || *saved.Year != 2020 {
		t.Fatalf("year was overwritten: %v", saved.Year)
	}
}

func TestPipeline_Process_MissingFileRecordsTruncatedError(t *testing.T) {
	papers := newFakePapers(domain.Paper{ID: "p1", FilePath: "/nonexistent/path.txt"})
	pipeline, _ := newTestPipeline(t, papers, &fakeEmbedder{})

	if err := pipeline.Process(context.Background(), "p1"); err != nil {
		t.Fatalf("Process() should not surface the failure as a Go error: %v", err)
	}

	saved := papers.papers["p1"]
	if saved.IsProcessed {
		t.Fatalf("expected paper not marked processed")
	}
	if saved.ProcessingError == "" {
		t.Fatalf("expected a recorded processing error")
	}
	if len(saved.ProcessingError) > maxProcessingErrorLen {
		t.Fatalf("processing error exceeds truncation bound: %d", len(saved.ProcessingError))
	}
}

func TestPipeline_Process_EmbedFailureRecordsError(t *testing.T) {
	path := writeTempPaper(t, samplePaperText)
	papers := newFakePapers(domain.Paper{ID: "p1", FilePath: path})
	embedder := &fakeEmbedder{fail: true}
	pipeline, _ := newTestPipeline(t, papers, embedder)

	if err := pipeline.Process(context.Background(), "p1"); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	saved := papers.papers["p1"]
	if saved.IsProcessed {
		t.Fatalf("expected paper not marked processed after embed failure")
	}
	if saved.ProcessingError == "" {
		t.Fatalf("expected a recorded processing error")
	}
}

func TestPipeline_Process_ReprocessingDoesNotAccumulateSparseDocs(t *testing.T) {
	path := writeTempPaper(t, samplePaperText)
	papers := newFakePapers(domain.Paper{ID: "p1", FilePath: path})
	sparseIdx := sparse.NewIndex()
	pipeline := New(extract.NewManager(), chunk.New(), &fakeEmbedder{}, papers, store.NewMemoryStore(), sparseIdx, nopIngestLogger{})

	if err := pipeline.Process(context.Background(), "p1"); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	results := sparseIdx.Search("widget assembly throughput", 50)
	firstRoundDocs := len(results)
	if firstRoundDocs == 0 {
		t.Fatalf("expected sparse docs after first processing")
	}

	if err := pipeline.Process(context.Background(), "p1"); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	results = sparseIdx.Search("widget assembly throughput", 50)
	if len(results) != firstRoundDocs {
		t.Fatalf("reprocessing accumulated sparse docs: first=%d second=%d", firstRoundDocs, len(results))
	}
}

func TestPipeline_Process_InsertsChunksIntoVectorStore(t *testing.T) {
	path := writeTempPaper(t, samplePaperText)
	papers := newFakePapers(domain.Paper{ID: "p1", FilePath: path})
	pipeline, vectors := newTestPipeline(t, papers, &fakeEmbedder{})

	if err := pipeline.Process(context.Background(), "p1"); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	results, err := vectors.DenseSearch(context.Background(), []float32{1, 1, 0}, 10, -1, store.Filters{})
	if err != nil {
		t.Fatalf("DenseSearch() error = %v", err)
	}
	if len(results) == 0 {
		t.Fatalf("expected chunks to be searchable after ingestion")
	}
}
