package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/citeassist/engine/internal/domain"
)

// maxLibraryFanOut bounds how many libraries are fetched concurrently,
// using the same errgroup SetLimit bound as C3's batch embedding (whose own
// cap is 32 in flight).
const maxLibraryFanOut = 4

// Status is the synchroniser's run state, polled by callers via Progress.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusStarting   Status = "starting"
	StatusFetching   Status = "fetching"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Progress is the poll-able snapshot of a running or finished sync, updated
// after each library is fetched and after each paper item is handled.
type Progress struct {
	Status             Status
	Current            int
	Total              int
	Message            string
	LibrariesProcessed int
	LibrariesTotal     int
}

// LibraryConfigs is the per-user integration-settings surface; *repo.Repo
// satisfies it.
type LibraryConfigs interface {
	GetLibraryConfig(ctx context.Context, userID string) (domain.UserLibraryConfig, error)
	SaveLibraryConfig(ctx context.Context, cfg domain.UserLibraryConfig) error
}

// Result tallies what one Sync run did.
type Result struct {
	New     int
	Updated int
	Skipped int
	Failed  int
}

// Synchroniser mirrors a user's external reference-manager library into
// local papers, per spec.md §4.12: resolve selection, fetch each library,
// reconcile each item, track poll-able progress.
type Synchroniser struct {
	configs LibraryConfigs
	papers  Papers
	records SyncRecords
	proc    Processor
	dataDir string
	baseURL string

	mu       sync.Mutex
	progress map[string]Progress
}

// NewSynchroniser wires a Synchroniser over the repo/pipeline surfaces it
// needs. baseURL is the external reference-manager API's origin (one
// service shared by every user; only the API key and remote user id in
// each UserLibraryConfig differ). dataDir is where downloaded PDF
// attachments are written.
func NewSynchroniser(configs LibraryConfigs, papers Papers, records SyncRecords, proc Processor, dataDir, baseURL string) *Synchroniser {
	return &Synchroniser{
		configs:  configs,
		papers:   papers,
		records:  records,
		proc:     proc,
		dataDir:  dataDir,
		baseURL:  baseURL,
		progress: map[string]Progress{},
	}
}

// Progress returns userID's current sync snapshot; the zero value (status
// "idle") is returned for a user who has never synced.
func (s *Synchroniser) Progress(userID string) Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.progress[userID]
	if !ok {
		return Progress{Status: StatusIdle}
	}
	return p
}

func (s *Synchroniser) setProgress(userID string, update func(*Progress)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.progress[userID]
	update(&p)
	s.progress[userID] = p
}

// Sync runs one full sync for userID: resolve the library selection, fetch
// every selected library (bounded errgroup fan-out), reconcile each item
// against local papers, and update the user's last_sync bookkeeping.
// forceFullSync, per spec.md §4.12, ignores the config's modified_since
// filter and pulls every item regardless of last sync time.
func (s *Synchroniser) Sync(ctx context.Context, userID string, forceFullSync bool) (Result, error) {
	s.setProgress(userID, func(p *Progress) {
		*p = Progress{Status: StatusStarting}
	})

	cfg, err := s.configs.GetLibraryConfig(ctx, userID)
	if err != nil {
		s.fail(userID, err)
		return Result{}, err
	}

	client := NewClient(Config{
		BaseURL:      s.baseURL,
		APIKey:       cfg.APIKey,
		RemoteUserID: cfg.RemoteUserID,
	})

	since := cfg.LastSync
	if forceFullSync {
		since = time.Time{}
	}

	sel := resolveSelection(ctx, client, client.cfg, cfg)

	s.setProgress(userID, func(p *Progress) {
		p.Status = StatusFetching
		p.LibrariesTotal = len(sel.libraries)
	})

	fetches := make([]libraryFetch, len(sel.libraries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxLibraryFanOut)
	processed := 0
	for i, lib := range sel.libraries {
		i, lib := i, lib
		g.Go(func() error {
			f, err := fetchLibrary(gctx, client, lib, since, sel.collections[lib])
			if err != nil {
				return fmt.Errorf("fetch library %s: %w", lib, err)
			}
			fetches[i] = f
			s.mu.Lock()
			processed++
			p := s.progress[userID]
			p.LibrariesProcessed = processed
			s.progress[userID] = p
			s.mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.fail(userID, err)
		return Result{}, err
	}

	total := 0
	for _, f := range fetches {
		total += len(f.papers)
	}
	s.setProgress(userID, func(p *Progress) {
		p.Status = StatusProcessing
		p.Total = total
		p.Current = 0
	})

	var result Result
	current := 0
	for i, lib := range sel.libraries {
		rec := &reconciler{
			userID:    userID,
			libraryID: lib,
			papers:    s.papers,
			records:   s.records,
			processor: s.proc,
			client:    client,
			dataDir:   s.dataDir,
		}
		for _, item := range fetches[i].papers {
			res := rec.reconcileItem(ctx, item, fetches[i].attachments[item.Key])
			current++
			switch {
			case res.err != nil:
				result.Failed++
			case res.outcome == outcomeSkipped:
				result.Skipped++
			case res.outcome == outcomeUpdated:
				result.Updated++
			default:
				result.New++
			}
			s.setProgress(userID, func(p *Progress) {
				p.Current = current
				if res.err != nil {
					p.Message = fmt.Sprintf("item %s failed: %v", res.key, res.err)
				}
			})
		}
	}

	status := "ok"
	if result.Failed > 0 {
		status = fmt.Sprintf("%d item(s) failed", result.Failed)
	}
	cfg.LastSync = now()
	cfg.LastSyncStatus = status
	if err := s.configs.SaveLibraryConfig(ctx, cfg); err != nil {
		s.fail(userID, err)
		return result, err
	}

	s.setProgress(userID, func(p *Progress) {
		p.Status = StatusCompleted
		p.Message = status
	})
	return result, nil
}

func (s *Synchroniser) fail(userID string, err error) {
	s.setProgress(userID, func(p *Progress) {
		p.Status = StatusError
		p.Message = err.Error()
	})
}
