package store

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/citeassist/engine/internal/domain"
)

// milvusOutputFields lists the scalar columns returned alongside each hit,
// mirroring vectordb.go's SetColumnNames/columnNames plumbing.
var milvusOutputFields = []string{
	"chunk_id", "paper_id", "chunk_index", "text", "section", "chunk_type",
	"page_start", "page_end", "year", "is_processed",
}

// MilvusStore is the Milvus-backed VectorStore: one collection holding every
// chunk across every paper, an HNSW index over the embedding field, and
// COSINE similarity search. Grounded on rag/milvus.go's schema/index/search
// plumbing via milvus-sdk-go/v2; the collection-per-corpus, HNSW-index-COSINE
// configuration follows vectordb.go's Option/Config pattern.
type MilvusStore struct {
	client     client.Client
	collection string
	dimension  int
}

// MilvusOption configures a MilvusStore.
type MilvusOption func(*milvusConfig)

type milvusConfig struct {
	collection string
	hnswM      int
	hnswEf     int
}

// WithCollection overrides the default "paper_chunks" collection name.
func WithCollection(name string) MilvusOption {
	return func(c *milvusConfig) { c.collection = name }
}

// NewMilvusStore connects to Milvus at address, ensuring the chunk
// collection, its HNSW/COSINE index, and a loaded state exist.
func NewMilvusStore(ctx context.Context, address string, dimension int, opts ...MilvusOption) (*MilvusStore, error) {
	cfg := &milvusConfig{collection: "paper_chunks", hnswM: 16, hnswEf: 200}
	for _, opt := range opts {
		opt(cfg)
	}

	c, err := client.NewClient(ctx, client.Config{Address: address})
	if err != nil {
		return nil, fmt.Errorf("store: connect milvus: %w", err)
	}

	s := &MilvusStore{client: c, collection: cfg.collection, dimension: dimension}
	if err := s.ensureCollection(ctx, cfg); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MilvusStore) ensureCollection(ctx context.Context, cfg *milvusConfig) error {
	exists, err := s.client.HasCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("store: has collection: %w", err)
	}
	if exists {
		return s.client.LoadCollection(ctx, s.collection, false)
	}

	schema := entity.NewSchema().
		WithName(s.collection).
		WithDescription("paper chunks with dense embeddings").
		WithField(entity.NewField().WithName("chunk_id").WithDataType(entity.FieldTypeVarChar).WithIsPrimaryKey(true).WithMaxLength(64)).
		WithField(entity.NewField().WithName("paper_id").WithDataType(entity.FieldTypeVarChar).WithMaxLength(64)).
		WithField(entity.NewField().WithName("chunk_index").WithDataType(entity.FieldTypeInt64)).
		WithField(entity.NewField().WithName("text").WithDataType(entity.FieldTypeVarChar).WithMaxLength(8192)).
		WithField(entity.NewField().WithName("section").WithDataType(entity.FieldTypeVarChar).WithMaxLength(128)).
		WithField(entity.NewField().WithName("chunk_type").WithDataType(entity.FieldTypeVarChar).WithMaxLength(32)).
		WithField(entity.NewField().WithName("page_start").WithDataType(entity.FieldTypeInt64)).
		WithField(entity.NewField().WithName("page_end").WithDataType(entity.FieldTypeInt64)).
		WithField(entity.NewField().WithName("year").WithDataType(entity.FieldTypeInt64)).
		WithField(entity.NewField().WithName("is_processed").WithDataType(entity.FieldTypeBool)).
		WithField(entity.NewField().WithName("embedding").WithDataType(entity.FieldTypeFloatVector).WithDim(int64(s.dimension)))

	if err := s.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("store: create collection: %w", err)
	}

	idx, err := entity.NewIndexHNSW(entity.COSINE, cfg.hnswM, cfg.hnswEf)
	if err != nil {
		return fmt.Errorf("store: build HNSW index spec: %w", err)
	}
	if err := s.client.CreateIndex(ctx, s.collection, "embedding", idx, false); err != nil {
		return fmt.Errorf("store: create index: %w", err)
	}
	return s.client.LoadCollection(ctx, s.collection, false)
}

// InsertChunks replaces any existing chunks for paper.ID, then inserts the
// given chunks as column-major data, matching MilvusDB.Insert's pattern.
func (s *MilvusStore) InsertChunks(ctx context.Context, paper domain.Paper, chunks []domain.PaperChunk) error {
	if err := s.DeleteChunks(ctx, paper.ID); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	n := len(chunks)
	chunkIDs := make([]string, n)
	paperIDs := make([]string, n)
	chunkIdx := make([]int64, n)
	texts := make([]string, n)
	sections := make([]string, n)
	chunkTypes := make([]string, n)
	pageStarts := make([]int64, n)
	pageEnds := make([]int64, n)
	years := make([]int64, n)
	processed := make([]bool, n)
	embeddings := make([][]float32, n)

	year := int64(0)
	if paper.Year != nil {
		year = int64(*paper.Year)
	}

	for i, c := range chunks {
		chunkIDs[i] = c.ID
		paperIDs[i] = paper.ID
		chunkIdx[i] = int64(c.ChunkIndex)
		texts[i] = c.Text
		sections[i] = c.Section
		chunkTypes[i] = string(c.ChunkType)
		if c.PageStart != nil {
			pageStarts[i] = int64(*c.PageStart)
		} else {
			pageStarts[i] = -1
		}
		if c.PageEnd != nil {
			pageEnds[i] = int64(*c.PageEnd)
		} else {
			pageEnds[i] = -1
		}
		years[i] = year
		processed[i] = paper.IsProcessed
		embeddings[i] = c.Embedding
	}

	columns := []entity.Column{
		entity.NewColumnVarChar("chunk_id", chunkIDs),
		entity.NewColumnVarChar("paper_id", paperIDs),
		entity.NewColumnInt64("chunk_index", chunkIdx),
		entity.NewColumnVarChar("text", texts),
		entity.NewColumnVarChar("section", sections),
		entity.NewColumnVarChar("chunk_type", chunkTypes),
		entity.NewColumnInt64("page_start", pageStarts),
		entity.NewColumnInt64("page_end", pageEnds),
		entity.NewColumnInt64("year", years),
		entity.NewColumnBool("is_processed", processed),
		entity.NewColumnFloatVector("embedding", s.dimension, embeddings),
	}

	if _, err := s.client.Insert(ctx, s.collection, "", columns...); err != nil {
		return fmt.Errorf("store: insert chunks: %w", err)
	}
	return s.client.Flush(ctx, s.collection, false)
}

func (s *MilvusStore) DeleteChunks(ctx context.Context, paperID string) error {
	expr := fmt.Sprintf("paper_id == %q", paperID)
	return s.client.Delete(ctx, s.collection, "", expr)
}

func (s *MilvusStore) DenseSearch(ctx context.Context, queryVector []float32, k int, minSimilarity float64, filters Filters) ([]Result, error) {
	expr := "is_processed == true"
	if filters.YearMin != nil {
		expr += fmt.Sprintf(" && year >= %d", *filters.YearMin)
	}
	if filters.YearMax != nil {
		expr += fmt.Sprintf(" && year <= %d", *filters.YearMax)
	}

	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, fmt.Errorf("store: build search param: %w", err)
	}

	hits, err := s.client.Search(ctx, s.collection, nil, expr, milvusOutputFields,
		[]entity.Vector{entity.FloatVector(queryVector)}, "embedding", entity.COSINE, k, sp)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}

	var results []Result
	for _, hit := range hits {
		for i := 0; i < hit.ResultCount; i++ {
			sim := float64(hit.Scores[i])
			if sim < minSimilarity {
				continue
			}
			results = append(results, Result{
				ChunkID:    getVarChar(hit, "chunk_id", i),
				PaperID:    getVarChar(hit, "paper_id", i),
				Text:       getVarChar(hit, "text", i),
				ChunkIndex: int(getInt64(hit, "chunk_index", i)),
				Section:    getVarChar(hit, "section", i),
				ChunkType:  domain.ChunkType(getVarChar(hit, "chunk_type", i)),
				PageStart:  optionalPage(getInt64(hit, "page_start", i)),
				PageEnd:    optionalPage(getInt64(hit, "page_end", i)),
				Similarity: sim,
			})
		}
	}
	return results, nil
}

func optionalPage(v int64) *int {
	if v < 0 {
		return nil
	}
	p := int(v)
	return &p
}

func getVarChar(rs client.SearchResult, field string, i int) string {
	col := rs.Fields.GetColumn(field)
	if col == nil {
		return ""
	}
	v, err := col.Get(i)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func getInt64(rs client.SearchResult, field string, i int) int64 {
	col := rs.Fields.GetColumn(field)
	if col == nil {
		return 0
	}
	v, err := col.Get(i)
	if err != nil {
		return 0
	}
	n, _ := v.(int64)
	return n
}

func (s *MilvusStore) Close() error {
	return s.client.Close()
}
