// Package repo is the relational half of C4: Paper, ExternalSyncRecord, and
// UserLibraryConfig persistence, grounded on seanblong-reposearch's
// internal/store.Store (pgxpool.Pool wrapper, Migrate/Upsert/Get method
// shape) and jackc/pgx/v5, the driver the teacher's own go.sum already
// carries transitively through gollm's provider stack and which half the
// example pack reaches for directly. internal/store's VectorStore is the
// vector half (chunks + embeddings); Repo is the metadata half spec.md §6
// names (Paper/ExternalSyncRecord/UserLibraryConfig tables with their stated
// unique indexes and check constraints).
package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/citeassist/engine/internal/citeerr"
	"github.com/citeassist/engine/internal/domain"
)

// Repo wraps a connection pool with the Paper/ExternalSyncRecord/
// UserLibraryConfig CRUD the rest of the engine depends on.
type Repo struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL with the given pool size, grounded on
// seanblong-reposearch's New(ctx, url).
func New(ctx context.Context, databaseURL string, poolSize int) (*Repo, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, citeerr.New(citeerr.Fatal, "database", "", err)
	}
	if poolSize > 0 {
		cfg.MaxConns = int32(poolSize)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, citeerr.New(citeerr.Fatal, "database", "", err)
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() { r.pool.Close() }

// Migrate applies the schema spec.md §6 names: unique indexes on Paper's
// identifier columns, a check constraint forbidding empty-string
// identifiers, and the sync/library-config tables' own unique constraints.
func (r *Repo) Migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS papers (
  id               TEXT PRIMARY KEY,
  title            TEXT NOT NULL DEFAULT '',
  authors          TEXT[] NOT NULL DEFAULT '{}',
  year             INT,
  journal          TEXT NOT NULL DEFAULT '',
  abstract         TEXT NOT NULL DEFAULT '',
  doi              TEXT,
  arxiv_id         TEXT,
  pubmed_id        TEXT,
  external_key     TEXT,
  citation_count   INT,
  venue_rank       TEXT NOT NULL DEFAULT '',
  source           TEXT NOT NULL DEFAULT 'upload',
  is_processed     BOOLEAN NOT NULL DEFAULT false,
  processing_error TEXT NOT NULL DEFAULT '',
  file_path        TEXT NOT NULL DEFAULT '',
  file_hash        TEXT NOT NULL DEFAULT '',
  created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
  CHECK (doi IS NULL OR doi <> ''),
  CHECK (arxiv_id IS NULL OR arxiv_id <> ''),
  CHECK (pubmed_id IS NULL OR pubmed_id <> ''),
  CHECK (external_key IS NULL OR external_key <> '')
);
CREATE UNIQUE INDEX IF NOT EXISTS papers_doi_uidx ON papers (doi) WHERE doi IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS papers_arxiv_uidx ON papers (arxiv_id) WHERE arxiv_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS papers_pubmed_uidx ON papers (pubmed_id) WHERE pubmed_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS papers_external_key_uidx ON papers (external_key) WHERE external_key IS NOT NULL;
CREATE INDEX IF NOT EXISTS papers_is_processed_idx ON papers (is_processed);
CREATE UNIQUE INDEX IF NOT EXISTS papers_file_hash_uidx ON papers (file_hash) WHERE file_hash <> '';

CREATE TABLE IF NOT EXISTS external_sync_records (
  id               TEXT PRIMARY KEY,
  user_id          TEXT NOT NULL,
  remote_library_id TEXT NOT NULL,
  remote_key       TEXT NOT NULL,
  remote_version   INT NOT NULL DEFAULT 0,
  paper_id         TEXT NOT NULL REFERENCES papers(id),
  last_synced      TIMESTAMPTZ,
  status           TEXT NOT NULL DEFAULT 'pending',
  last_error       TEXT NOT NULL DEFAULT '',
  UNIQUE (user_id, remote_key)
);

CREATE TABLE IF NOT EXISTS user_library_configs (
  user_id                TEXT PRIMARY KEY,
  api_key                TEXT NOT NULL DEFAULT '',
  remote_user_id         TEXT NOT NULL DEFAULT '',
  auto_sync              BOOLEAN NOT NULL DEFAULT false,
  auto_sync_interval_sec INT NOT NULL DEFAULT 0,
  last_sync              TIMESTAMPTZ,
  last_sync_status       TEXT NOT NULL DEFAULT '',
  selected_groups        TEXT[] NOT NULL DEFAULT '{}',
  selected_collections   JSONB NOT NULL DEFAULT '[]'
);
`
	_, err := r.pool.Exec(ctx, schema)
	return err
}

// GetPaper satisfies both ingestion's and retrieval's PaperLookup contract.
func (r *Repo) GetPaper(ctx context.Context, paperID string) (domain.Paper, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, title, authors, year, journal, abstract, doi, arxiv_id, pubmed_id,
       external_key, citation_count, venue_rank, source, is_processed,
       processing_error, file_path, file_hash, created_at, updated_at
FROM papers WHERE id = $1`, paperID)

	p, err := scanPaper(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Paper{}, citeerr.New(citeerr.NotFound, "paper", paperID, err)
		}
		return domain.Paper{}, citeerr.New(citeerr.Transient, "paper", paperID, err)
	}
	return p, nil
}

// FindByDOI supports C12's DOI-dedup reconciliation step.
func (r *Repo) FindByDOI(ctx context.Context, doi string) (domain.Paper, bool, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, title, authors, year, journal, abstract, doi, arxiv_id, pubmed_id,
       external_key, citation_count, venue_rank, source, is_processed,
       processing_error, file_path, file_hash, created_at, updated_at
FROM papers WHERE doi = $1`, doi)

	p, err := scanPaper(row)
	if err == pgx.ErrNoRows {
		return domain.Paper{}, false, nil
	}
	if err != nil {
		return domain.Paper{}, false, citeerr.New(citeerr.Transient, "paper", "", err)
	}
	return p, true, nil
}

// FindByHash supports the upload endpoint's mandatory content-hash dedup:
// re-uploading bytes already on file returns the existing paper instead of
// creating a duplicate.
func (r *Repo) FindByHash(ctx context.Context, hash string) (domain.Paper, bool, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, title, authors, year, journal, abstract, doi, arxiv_id, pubmed_id,
       external_key, citation_count, venue_rank, source, is_processed,
       processing_error, file_path, file_hash, created_at, updated_at
FROM papers WHERE file_hash = $1`, hash)

	p, err := scanPaper(row)
	if err == pgx.ErrNoRows {
		return domain.Paper{}, false, nil
	}
	if err != nil {
		return domain.Paper{}, false, citeerr.New(citeerr.Transient, "paper", "", err)
	}
	return p, true, nil
}

// SavePaper upserts paper by id, stamping UpdatedAt.
func (r *Repo) SavePaper(ctx context.Context, p domain.Paper) error {
	p.UpdatedAt = now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = p.UpdatedAt
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO papers (id, title, authors, year, journal, abstract, doi, arxiv_id,
  pubmed_id, external_key, citation_count, venue_rank, source, is_processed,
  processing_error, file_path, file_hash, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,nullif($7,''),nullif($8,''),nullif($9,''),
  nullif($10,''),$11,$12,$13,$14,$15,$16,$17,$18,$19)
ON CONFLICT (id) DO UPDATE SET
  title = EXCLUDED.title, authors = EXCLUDED.authors, year = EXCLUDED.year,
  journal = EXCLUDED.journal, abstract = EXCLUDED.abstract,
  doi = EXCLUDED.doi, arxiv_id = EXCLUDED.arxiv_id, pubmed_id = EXCLUDED.pubmed_id,
  external_key = EXCLUDED.external_key, citation_count = EXCLUDED.citation_count,
  venue_rank = EXCLUDED.venue_rank, source = EXCLUDED.source,
  is_processed = EXCLUDED.is_processed, processing_error = EXCLUDED.processing_error,
  file_path = EXCLUDED.file_path, file_hash = EXCLUDED.file_hash,
  updated_at = EXCLUDED.updated_at`,
		p.ID, p.Title, p.Authors, p.Year, p.Journal, p.Abstract, p.DOI, p.ArxivID,
		p.PubMedID, p.ExternalKey, p.CitationCount, p.VenueRank, string(p.Source),
		p.IsProcessed, p.ProcessingError, p.FilePath, p.FileHash, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return citeerr.New(citeerr.Transient, "paper", p.ID, err)
	}
	return nil
}

type row interface {
	Scan(dest ...interface{}) error
}

func scanPaper(r row) (domain.Paper, error) {
	var p domain.Paper
	var source string
	if err := r.Scan(&p.ID, &p.Title, &p.Authors, &p.Year, &p.Journal, &p.Abstract,
		&p.DOI, &p.ArxivID, &p.PubMedID, &p.ExternalKey, &p.CitationCount,
		&p.VenueRank, &source, &p.IsProcessed, &p.ProcessingError, &p.FilePath,
		&p.FileHash, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return domain.Paper{}, err
	}
	p.Source = domain.PaperSource(source)
	return p, nil
}

// now returns the current UTC time that SavePaper stamps on UpdatedAt (and
// on CreatedAt for a paper that has none yet).
func now() time.Time { return time.Now().UTC() }
