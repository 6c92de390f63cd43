// Package sync is C12: mirroring a subset of a user's external
// reference-manager library into local papers and driving them through
// C10. The HTTP client is grounded on raggo's providers/openai.go client
// shape (custom headers, JSON bodies, an http.Client with a fixed timeout)
// generalized to paginated GET with Total-Results header accounting, per
// original_source's zotero_service.py.
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/citeassist/engine/internal/citeerr"
)

const (
	defaultItemsPerPage = 50
	clientTimeout       = 30 * time.Second
	apiVersion          = "3"
)

// Config names the credentials and endpoint for one user's external
// library connection.
type Config struct {
	BaseURL      string
	APIKey       string
	RemoteUserID string
}

// Client talks to the external reference-manager's REST API:
// GET {base}/{libraryId}/items, GET .../items/{key}/file,
// GET .../groups, GET .../{libraryId}/collections.
type Client struct {
	http *http.Client
	cfg  Config
}

// NewClient builds a Client against cfg.BaseURL (an httptest.Server URL in
// tests, the real API's origin in production).
func NewClient(cfg Config) *Client {
	return &Client{http: &http.Client{Timeout: clientTimeout}, cfg: cfg}
}

// Group is one library (the user's personal library or a shared group) the
// account has access to.
type Group struct {
	ID   string
	Name string
	Type string
}

// Collection is one collection within a library.
type Collection struct {
	Key             string
	Name            string
	ParentCollection string
	LibraryID       string
}

// Creator is one author/editor/contributor entry on an item.
type Creator struct {
	CreatorType string `json:"creatorType"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
}

// ItemData is the payload half of a library item, matching the subset of
// fields C12's reconciliation step reads.
type ItemData struct {
	ItemType          string    `json:"itemType"`
	Title             string    `json:"title"`
	Creators          []Creator `json:"creators"`
	AbstractNote      string    `json:"abstractNote"`
	Date              string    `json:"date"`
	DateAdded         string    `json:"dateAdded"`
	PublicationTitle  string    `json:"publicationTitle"`
	BookTitle         string    `json:"bookTitle"`
	DOI               string    `json:"DOI"`
	URL               string    `json:"url"`
	ContentType       string    `json:"contentType"`
	ParentItem        string    `json:"parentItem"`
	Collections       []string  `json:"collections"`
}

// Item is one entry returned by the items endpoint, either a paper-like
// item, a note, or a PDF attachment.
type Item struct {
	Key     string   `json:"key"`
	Version int      `json:"version"`
	Data    ItemData `json:"data"`
}

func (c *Client) do(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, citeerr.New(citeerr.Transient, "sync_client", url, err)
	}
	req.Header.Set("Api-Key", c.cfg.APIKey)
	req.Header.Set("Api-Version", apiVersion)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, citeerr.New(citeerr.Transient, "sync_client", url, err)
	}
	return resp, nil
}

// FetchGroups lists the user's personal library plus every group it can
// access.
func (c *Client) FetchGroups(ctx context.Context) ([]Group, error) {
	groups := []Group{{ID: "users/" + c.cfg.RemoteUserID, Name: "My Library", Type: "user"}}

	url := fmt.Sprintf("%s/users/%s/groups", c.cfg.BaseURL, c.cfg.RemoteUserID)
	resp, err := c.do(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return groups, nil
	}

	var raw []struct {
		Data struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, citeerr.New(citeerr.Transient, "sync_client", url, err)
	}
	for _, g := range raw {
		groups = append(groups, Group{
			ID:   fmt.Sprintf("groups/%d", g.Data.ID),
			Name: g.Data.Name,
			Type: g.Data.Type,
		})
	}
	return groups, nil
}

// FetchCollections lists every collection in libraryID.
func (c *Client) FetchCollections(ctx context.Context, libraryID string) ([]Collection, error) {
	url := fmt.Sprintf("%s/%s/collections", c.cfg.BaseURL, libraryID)
	resp, err := c.do(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var raw []struct {
		Data struct {
			Key              string `json:"key"`
			Name             string `json:"name"`
			ParentCollection string `json:"parentCollection"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, citeerr.New(citeerr.Transient, "sync_client", url, err)
	}
	collections := make([]Collection, len(raw))
	for i, c2 := range raw {
		collections[i] = Collection{Key: c2.Data.Key, Name: c2.Data.Name, ParentCollection: c2.Data.ParentCollection, LibraryID: libraryID}
	}
	return collections, nil
}

// FetchItemsPage fetches one page of libraryID's items, honouring since
// (pass zero-value for no filter). It returns the page's items and the
// Total-Results header.
func (c *Client) FetchItemsPage(ctx context.Context, libraryID string, start int, since time.Time) ([]Item, int, error) {
	url := fmt.Sprintf("%s/%s/items?limit=%d&start=%d", c.cfg.BaseURL, libraryID, defaultItemsPerPage, start)
	if !since.IsZero() {
		url += fmt.Sprintf("&since=%d", since.Unix())
	}

	resp, err := c.do(ctx, http.MethodGet, url)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, 0, citeerr.Newf(citeerr.Transient, "sync_client", url, "fetch items: status %d", resp.StatusCode)
	}

	var items []Item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, 0, citeerr.New(citeerr.Transient, "sync_client", url, err)
	}
	total, _ := strconv.Atoi(resp.Header.Get("Total-Results"))
	return items, total, nil
}

// DownloadAttachment fetches the raw bytes of the PDF attachment keyed by
// attachmentKey within libraryID.
func (c *Client) DownloadAttachment(ctx context.Context, libraryID, attachmentKey string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s/items/%s/file", c.cfg.BaseURL, libraryID, attachmentKey)
	resp, err := c.do(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, citeerr.Newf(citeerr.Transient, "sync_client", attachmentKey, "download attachment: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, citeerr.New(citeerr.Transient, "sync_client", attachmentKey, err)
	}
	return body, nil
}

// ItemsPerPage is exported for tests asserting pagination boundaries.
func ItemsPerPage() int { return defaultItemsPerPage }
