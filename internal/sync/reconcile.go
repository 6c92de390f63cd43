package sync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/citeassist/engine/internal/domain"
)

// Papers is the relational paper surface reconciliation needs;
// *repo.Repo satisfies it.
type Papers interface {
	GetPaper(ctx context.Context, paperID string) (domain.Paper, error)
	FindByDOI(ctx context.Context, doi string) (domain.Paper, bool, error)
	SavePaper(ctx context.Context, p domain.Paper) error
}

// SyncRecords is the sync-bookkeeping surface; *repo.Repo satisfies it.
type SyncRecords interface {
	FindSyncRecord(ctx context.Context, userID, remoteKey string) (domain.ExternalSyncRecord, bool, error)
	SaveSyncRecord(ctx context.Context, rec domain.ExternalSyncRecord) error
}

// Processor runs C10 over one already-saved paper; *ingest.Pipeline
// satisfies it.
type Processor interface {
	Process(ctx context.Context, paperID string) error
}

// outcome classifies what reconcileItem did with one remote item.
type outcome string

const (
	outcomeSkipped outcome = "skipped"
	outcomeNew     outcome = "new"
	outcomeUpdated outcome = "updated"
)

// itemResult is reconcileItem's per-item report, used to tally
// new/updated/failed counts for the progress snapshot.
type itemResult struct {
	key     string
	outcome outcome
	err     error
}

// reconciler applies spec.md §4.12's per-item reconciliation algorithm.
type reconciler struct {
	userID     string
	libraryID  string
	papers     Papers
	records    SyncRecords
	processor  Processor
	client     *Client
	dataDir    string
}

// reconcileItem implements the full per-item sequence: version-skip check,
// metadata extraction, DOI dedup or new-paper creation, sync-record
// upsert, and PDF download + synchronous C10 processing when warranted.
func (r *reconciler) reconcileItem(ctx context.Context, item Item, attachments []Item) itemResult {
	existingSync, hasSync, err := r.records.FindSyncRecord(ctx, r.userID, item.Key)
	if err != nil {
		return itemResult{key: item.Key, err: fmt.Errorf("lookup sync record: %w", err)}
	}
	if hasSync && existingSync.RemoteVersion >= item.Version {
		return itemResult{key: item.Key, outcome: outcomeSkipped}
	}

	meta := extractItemMetadata(item)

	var paper domain.Paper
	result := outcomeNew
	isNewPaperRecord := true

	if hasSync {
		existing, err := r.papers.GetPaper(ctx, existingSync.PaperID)
		if err != nil {
			return itemResult{key: item.Key, err: fmt.Errorf("load existing paper: %w", err)}
		}
		// An existing synced paper's bibliographic fields are overwritten
		// unconditionally from the remote item on every version bump, but
		// its local processing state (file/hash/processed flag) is kept.
		paper = overlayMetadata(existing, meta)
		result = outcomeUpdated
		isNewPaperRecord = false
	} else if meta.DOI != "" {
		if existing, found, err := r.papers.FindByDOI(ctx, meta.DOI); err == nil && found {
			paper = mergeAbsentFields(existing, meta)
			isNewPaperRecord = false
			result = outcomeUpdated
		}
	}

	if paper.ID == "" {
		paper.ID = uuid.NewString()
		paper = mergeAbsentFields(paper, meta)
	}

	needsPDF := isNewPaperRecord && (paper.FilePath == "" || !paper.IsProcessed)
	reprocess := !isNewPaperRecord && hasSync && paper.FilePath != "" && !paper.IsProcessed

	if needsPDF {
		if pdf := firstPDF(attachments); pdf != nil {
			path, hash, err := r.downloadTo(ctx, pdf, paper.ID)
			if err != nil {
				return itemResult{key: item.Key, err: fmt.Errorf("download attachment: %w", err)}
			}
			paper.FilePath = path
			paper.FileHash = hash
		}
	}

	if err := r.papers.SavePaper(ctx, paper); err != nil {
		return itemResult{key: item.Key, err: fmt.Errorf("save paper: %w", err)}
	}

	rec := domain.ExternalSyncRecord{
		ID:              existingSync.ID,
		UserID:          r.userID,
		RemoteLibraryID: r.libraryID,
		RemoteKey:       item.Key,
		RemoteVersion:   item.Version,
		PaperID:         paper.ID,
		LastSynced:      now(),
		Status:          domain.SyncSynced,
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if err := r.records.SaveSyncRecord(ctx, rec); err != nil {
		return itemResult{key: item.Key, err: fmt.Errorf("save sync record: %w", err)}
	}

	if paper.FilePath != "" && (needsPDF || reprocess) {
		if err := r.processor.Process(ctx, paper.ID); err != nil {
			return itemResult{key: item.Key, err: fmt.Errorf("process paper: %w", err)}
		}
	}

	return itemResult{key: item.Key, outcome: result}
}

// mergeAbsentFields fills only the fields of base that are currently
// empty/absent, from update — "adopt it, filling only absent fields", per
// spec.md §4.12's DOI-dedup rule, also reused for new-paper assembly.
func mergeAbsentFields(base, update domain.Paper) domain.Paper {
	if base.Title == "" {
		base.Title = update.Title
	}
	if len(base.Authors) == 0 {
		base.Authors = update.Authors
	}
	if base.Abstract == "" {
		base.Abstract = update.Abstract
	}
	if base.Journal == "" {
		base.Journal = update.Journal
	}
	if base.DOI == "" {
		base.DOI = update.DOI
	}
	if base.ExternalKey == "" {
		base.ExternalKey = update.ExternalKey
	}
	if base.Year == nil {
		base.Year = update.Year
	}
	if base.Source == "" {
		base.Source = update.Source
	}
	return base
}

// overlayMetadata copies meta's bibliographic fields onto base
// unconditionally, leaving base's processing state (FilePath, FileHash,
// IsProcessed, ProcessingError, CreatedAt) untouched.
func overlayMetadata(base, meta domain.Paper) domain.Paper {
	base.Title = meta.Title
	base.Authors = meta.Authors
	base.Abstract = meta.Abstract
	base.Journal = meta.Journal
	base.DOI = meta.DOI
	base.ExternalKey = meta.ExternalKey
	base.Year = meta.Year
	base.Source = meta.Source
	return base
}

func firstPDF(attachments []Item) *Item {
	if len(attachments) == 0 {
		return nil
	}
	return &attachments[0]
}

// downloadTo saves attachment's bytes under dataDir/uploads and returns its
// path and SHA-256 hash.
func (r *reconciler) downloadTo(ctx context.Context, attachment *Item, paperID string) (string, string, error) {
	body, err := r.client.DownloadAttachment(ctx, r.libraryID, attachment.Key)
	if err != nil {
		return "", "", err
	}

	dir := filepath.Join(r.dataDir, "uploads")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(dir, paperID+".pdf")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		return "", "", fmt.Errorf("write attachment: %w", err)
	}

	sum := sha256.Sum256(body)
	return path, hex.EncodeToString(sum[:]), nil
}

func now() time.Time { return time.Now().UTC() }
