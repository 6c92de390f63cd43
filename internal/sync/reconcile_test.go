package sync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citeassist/engine/internal/domain"
)

type fakeSyncPapers struct {
	byID  map[string]domain.Paper
	byDOI map[string]string
	saved []domain.Paper
}

func newFakeSyncPapers() *fakeSyncPapers {
	return &fakeSyncPapers{byID: map[string]domain.Paper{}, byDOI: map[string]string{}}
}

func (f *fakeSyncPapers) GetPaper(_ context.Context, paperID string) (domain.Paper, error) {
	p, ok := f.byID[paperID]
	if !ok {
		return domain.Paper{}, assert.AnError
	}
	return p, nil
}

func (f *fakeSyncPapers) FindByDOI(_ context.Context, doi string) (domain.Paper, bool, error) {
	id, ok := f.byDOI[doi]
	if !ok {
		return domain.Paper{}, false, nil
	}
	return f.byID[id], true, nil
}

func (f *fakeSyncPapers) SavePaper(_ context.Context, p domain.Paper) error {
	f.byID[p.ID] = p
	if p.DOI != "" {
		f.byDOI[p.DOI] = p.ID
	}
	f.saved = append(f.saved, p)
	return nil
}

type fakeSyncRecords struct {
	byKey map[string]domain.ExternalSyncRecord
}

func newFakeSyncRecords() *fakeSyncRecords {
	return &fakeSyncRecords{byKey: map[string]domain.ExternalSyncRecord{}}
}

func (f *fakeSyncRecords) FindSyncRecord(_ context.Context, userID, remoteKey string) (domain.ExternalSyncRecord, bool, error) {
	rec, ok := f.byKey[userID+"|"+remoteKey]
	return rec, ok, nil
}

func (f *fakeSyncRecords) SaveSyncRecord(_ context.Context, rec domain.ExternalSyncRecord) error {
	f.byKey[rec.UserID+"|"+rec.RemoteKey] = rec
	return nil
}

type fakeProcessor struct {
	processed []string
	fail      bool
}

func (f *fakeProcessor) Process(_ context.Context, paperID string) error {
	if f.fail {
		return assert.AnError
	}
	f.processed = append(f.processed, paperID)
	return nil
}

func newTestReconciler(t *testing.T, papers Papers, records SyncRecords, proc Processor) (*reconciler, *httptest.Server) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.4 fake-body"))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Config{BaseURL: srv.URL, RemoteUserID: "u1"})
	return &reconciler{
		userID:    "u1",
		libraryID: "users/u1",
		papers:    papers,
		records:   records,
		processor: proc,
		client:    client,
		dataDir:   t.TempDir(),
	}, srv
}

func TestReconcileItem_CreatesNewPaperAndDownloadsPDF(t *testing.T) {
	papers := newFakeSyncPapers()
	records := newFakeSyncRecords()
	proc := &fakeProcessor{}
	rec, _ := newTestReconciler(t, papers, records, proc)

	item := Item{Key: "K1", Version: 1, Data: ItemData{ItemType: "journalArticle", Title: "New Paper", DOI: "10.1/new"}}
	attachment := Item{Key: "A1", Data: ItemData{ItemType: "attachment", ContentType: "application/pdf", ParentItem: "K1"}}

	res := rec.reconcileItem(context.Background(), item, []Item{attachment})
	require.NoError(t, res.err)
	assert.Equal(t, outcomeNew, res.outcome)

	require.Len(t, papers.saved, 1)
	saved := papers.saved[0]
	assert.Equal(t, "New Paper", saved.Title)
	assert.NotEmpty(t, saved.FilePath)
	assert.NotEmpty(t, saved.FileHash)
	assert.Equal(t, []string{saved.ID}, proc.processed)
}

func TestReconcileItem_SkipsWhenRemoteVersionNotNewer(t *testing.T) {
	papers := newFakeSyncPapers()
	records := newFakeSyncRecords()
	records.byKey["u1|K1"] = domain.ExternalSyncRecord{ID: "s1", UserID: "u1", RemoteKey: "K1", RemoteVersion: 5, PaperID: "p1"}
	papers.byID["p1"] = domain.Paper{ID: "p1", Title: "Existing"}
	proc := &fakeProcessor{}
	rec, _ := newTestReconciler(t, papers, records, proc)

	item := Item{Key: "K1", Version: 5, Data: ItemData{ItemType: "journalArticle"}}
	res := rec.reconcileItem(context.Background(), item, nil)

	require.NoError(t, res.err)
	assert.Equal(t, outcomeSkipped, res.outcome)
	assert.Empty(t, papers.saved)
}

func TestReconcileItem_UpdatesExistingPaperPreservingProcessingState(t *testing.T) {
	papers := newFakeSyncPapers()
	records := newFakeSyncRecords()
	records.byKey["u1|K1"] = domain.ExternalSyncRecord{ID: "s1", UserID: "u1", RemoteKey: "K1", RemoteVersion: 1, PaperID: "p1"}
	papers.byID["p1"] = domain.Paper{
		ID: "p1", Title: "Old Title", FilePath: "/data/uploads/p1.pdf", FileHash: "abc123", IsProcessed: true,
	}
	proc := &fakeProcessor{}
	rec, _ := newTestReconciler(t, papers, records, proc)

	item := Item{Key: "K1", Version: 2, Data: ItemData{ItemType: "journalArticle", Title: "New Title"}}
	res := rec.reconcileItem(context.Background(), item, nil)

	require.NoError(t, res.err)
	assert.Equal(t, outcomeUpdated, res.outcome)

	updated := papers.byID["p1"]
	assert.Equal(t, "New Title", updated.Title)
	assert.Equal(t, "/data/uploads/p1.pdf", updated.FilePath)
	assert.Equal(t, "abc123", updated.FileHash)
	assert.True(t, updated.IsProcessed)
	assert.Empty(t, proc.processed, "already-processed paper with no new file must not be reprocessed")
}

func TestReconcileItem_AdoptsExistingPaperByDOI(t *testing.T) {
	papers := newFakeSyncPapers()
	papers.byID["existing"] = domain.Paper{ID: "existing", DOI: "10.1/shared", Title: "Kept Title"}
	papers.byDOI["10.1/shared"] = "existing"
	records := newFakeSyncRecords()
	proc := &fakeProcessor{}
	rec, _ := newTestReconciler(t, papers, records, proc)

	item := Item{Key: "K2", Version: 1, Data: ItemData{ItemType: "journalArticle", Title: "Remote Title", DOI: "10.1/shared"}}
	res := rec.reconcileItem(context.Background(), item, nil)

	require.NoError(t, res.err)
	assert.Equal(t, outcomeUpdated, res.outcome)
	assert.Equal(t, "Kept Title", papers.byID["existing"].Title, "mergeAbsentFields must not overwrite an already-set title")
}
