package retrieval

import "github.com/citeassist/engine/internal/domain"

// candidate is one chunk working its way through the pipeline: chunk-level
// search fields, the hydrated paper, and the scores accumulated at each
// stage.
type candidate struct {
	chunkID    string
	paperID    string
	text       string
	section    string
	chunkType  domain.ChunkType
	chunkIndex int

	pageStart      *int
	pageEnd        *int
	pageBoundaries []domain.PageBoundary

	dense  float64 // raw cosine similarity from the vector store
	sparse float64 // raw BM25 score

	// original is the pre-rerank score this candidate entered reranking
	// with: the dense similarity for the vector strategy, or the
	// max-normalised weighted hybrid/bm25 fuse otherwise.
	original float64

	rerankScore  float64
	contextMatch *float64
	final        float64

	paper domain.Paper
}
