package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citeassist/engine/internal/domain"
)

type fakeLibraryConfigs struct {
	cfg  domain.UserLibraryConfig
	saved []domain.UserLibraryConfig
}

func (f *fakeLibraryConfigs) GetLibraryConfig(_ context.Context, userID string) (domain.UserLibraryConfig, error) {
	return f.cfg, nil
}

func (f *fakeLibraryConfigs) SaveLibraryConfig(_ context.Context, cfg domain.UserLibraryConfig) error {
	f.saved = append(f.saved, cfg)
	f.cfg = cfg
	return nil
}

func TestSynchroniser_Sync_CreatesPapersAndReportsCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/u1/items":
			w.Header().Set("Total-Results", "1")
			_ = json.NewEncoder(w).Encode([]Item{
				{Key: "P1", Version: 1, Data: ItemData{ItemType: "journalArticle", Title: "Fresh Paper"}},
			})
		case "/users/u1/groups":
			_ = json.NewEncoder(w).Encode([]map[string]interface{}{})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	configs := &fakeLibraryConfigs{cfg: domain.UserLibraryConfig{UserID: "u1", RemoteUserID: "u1", APIKey: "k"}}
	papers := newFakeSyncPapers()
	records := newFakeSyncRecords()
	proc := &fakeProcessor{}

	s := NewSynchroniser(configs, papers, records, proc, t.TempDir(), srv.URL)

	result, err := s.Sync(context.Background(), "u1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.New)
	assert.Equal(t, 0, result.Failed)

	progress := s.Progress("u1")
	assert.Equal(t, StatusCompleted, progress.Status)
	assert.Equal(t, 1, progress.Total)
	assert.Equal(t, 1, progress.Current)

	require.Len(t, configs.saved, 1)
	assert.Equal(t, "ok", configs.saved[0].LastSyncStatus)
	assert.False(t, configs.saved[0].LastSync.IsZero())
}

func TestSynchroniser_Progress_IdleForUnknownUser(t *testing.T) {
	s := NewSynchroniser(&fakeLibraryConfigs{}, newFakeSyncPapers(), newFakeSyncRecords(), &fakeProcessor{}, t.TempDir(), "http://unused.invalid")
	assert.Equal(t, StatusIdle, s.Progress("nobody").Status)
}

func TestSynchroniser_Sync_ReportsErrorStatusWhenConfigLookupFails(t *testing.T) {
	s := NewSynchroniser(failingConfigs{}, newFakeSyncPapers(), newFakeSyncRecords(), &fakeProcessor{}, t.TempDir(), "http://unused.invalid")
	_, err := s.Sync(context.Background(), "u1", false)
	require.Error(t, err)
	assert.Equal(t, StatusError, s.Progress("u1").Status)
}

type failingConfigs struct{}

func (failingConfigs) GetLibraryConfig(context.Context, string) (domain.UserLibraryConfig, error) {
	return domain.UserLibraryConfig{}, assert.AnError
}

func (failingConfigs) SaveLibraryConfig(context.Context, domain.UserLibraryConfig) error { return nil }
