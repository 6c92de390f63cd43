package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchLibrary_SplitsPapersNotesAndAttachments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Total-Results", "3")
		_ = json.NewEncoder(w).Encode([]Item{
			{Key: "P1", Version: 1, Data: ItemData{ItemType: "journalArticle", Title: "A Paper"}},
			{Key: "N1", Version: 1, Data: ItemData{ItemType: "note"}},
			{Key: "A1", Version: 1, Data: ItemData{ItemType: "attachment", ContentType: "application/pdf", ParentItem: "P1"}},
		})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, RemoteUserID: "1"})
	f, err := fetchLibrary(context.Background(), client, "users/1", time.Time{}, nil)
	require.NoError(t, err)

	require.Len(t, f.papers, 1)
	assert.Equal(t, "P1", f.papers[0].Key)
	require.Len(t, f.attachments["P1"], 1)
	assert.Equal(t, "A1", f.attachments["P1"][0].Key)
}

func TestFetchLibrary_FiltersByCollectionWhenGiven(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Total-Results", "2")
		_ = json.NewEncoder(w).Encode([]Item{
			{Key: "IN", Version: 1, Data: ItemData{ItemType: "journalArticle", Collections: []string{"WANTED"}}},
			{Key: "OUT", Version: 1, Data: ItemData{ItemType: "journalArticle", Collections: []string{"OTHER"}}},
		})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, RemoteUserID: "1"})
	f, err := fetchLibrary(context.Background(), client, "users/1", time.Time{}, []string{"WANTED"})
	require.NoError(t, err)

	require.Len(t, f.papers, 1)
	assert.Equal(t, "IN", f.papers[0].Key)
}

func TestFetchLibrary_PagesUntilTotalReached(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Total-Results", "2")
		start := r.URL.Query().Get("start")
		if start == "0" {
			_ = json.NewEncoder(w).Encode([]Item{
				{Key: "P1", Version: 1, Data: ItemData{ItemType: "journalArticle"}},
			})
			return
		}
		_ = json.NewEncoder(w).Encode([]Item{
			{Key: "P2", Version: 1, Data: ItemData{ItemType: "journalArticle"}},
		})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, RemoteUserID: "1"})
	f, err := fetchLibrary(context.Background(), client, "users/1", time.Time{}, nil)
	require.NoError(t, err)
	assert.Len(t, f.papers, 2)
	assert.Equal(t, 2, requests)
}
