package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/citeassist/engine/internal/citeerr"
	"github.com/citeassist/engine/internal/domain"
)

// staleErrorAge is how long a processing_error must stand before the paper
// becomes claimable again, per spec.md §4.11.
const staleErrorAge = 30 * time.Minute

// ClaimPendingPaper selects one paper with file_path set, is_processed =
// false, and (no processing_error OR last updated more than staleErrorAge
// ago), clears its error, and returns it. ok is false when the queue is
// empty.
func (r *Repo) ClaimPendingPaper(ctx context.Context) (paper domain.Paper, ok bool, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Paper{}, false, citeerr.New(citeerr.Transient, "paper", "", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
SELECT id, title, authors, year, journal, abstract, doi, arxiv_id, pubmed_id,
       external_key, citation_count, venue_rank, source, is_processed,
       processing_error, file_path, file_hash, created_at, updated_at
FROM papers
WHERE file_path <> '' AND is_processed = false
  AND (processing_error = '' OR updated_at < $1)
ORDER BY updated_at ASC
LIMIT 1
FOR UPDATE SKIP LOCKED`, time.Now().UTC().Add(-staleErrorAge))

	p, scanErr := scanPaper(row)
	if scanErr == pgx.ErrNoRows {
		return domain.Paper{}, false, nil
	}
	if scanErr != nil {
		return domain.Paper{}, false, citeerr.New(citeerr.Transient, "paper", "", scanErr)
	}

	if _, err := tx.Exec(ctx, `UPDATE papers SET processing_error = '', updated_at = $2 WHERE id = $1`,
		p.ID, time.Now().UTC()); err != nil {
		return domain.Paper{}, false, citeerr.New(citeerr.Transient, "paper", p.ID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Paper{}, false, citeerr.New(citeerr.Transient, "paper", p.ID, err)
	}

	p.ProcessingError = ""
	return p, true, nil
}

// CountPapers reports totals for the ingestion worker's progress snapshot.
func (r *Repo) CountPapers(ctx context.Context) (total, processed, failed, pending int, err error) {
	row := r.pool.QueryRow(ctx, `
SELECT
  count(*),
  count(*) FILTER (WHERE is_processed),
  count(*) FILTER (WHERE NOT is_processed AND processing_error <> ''),
  count(*) FILTER (WHERE NOT is_processed AND processing_error = '')
FROM papers`)
	if scanErr := row.Scan(&total, &processed, &failed, &pending); scanErr != nil {
		return 0, 0, 0, 0, citeerr.New(citeerr.Transient, "paper", "", scanErr)
	}
	return total, processed, failed, pending, nil
}
