package api

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citeassist/engine/internal/domain"
	"github.com/citeassist/engine/internal/ingest"
	"github.com/citeassist/engine/internal/sync"
)

type fakeAPIPapers struct {
	byHash map[string]domain.Paper
	saved  []domain.Paper
}

func newFakeAPIPapers() *fakeAPIPapers {
	return &fakeAPIPapers{byHash: map[string]domain.Paper{}}
}

func (f *fakeAPIPapers) FindByHash(_ context.Context, hash string) (domain.Paper, bool, error) {
	p, ok := f.byHash[hash]
	return p, ok, nil
}

func (f *fakeAPIPapers) SavePaper(_ context.Context, p domain.Paper) error {
	f.saved = append(f.saved, p)
	if p.FileHash != "" {
		f.byHash[p.FileHash] = p
	}
	return nil
}

type fakeWorker struct{ progress ingest.Progress }

func (f fakeWorker) Progress(context.Context) (ingest.Progress, error) { return f.progress, nil }

type fakeSynchroniser struct {
	calls []string
	prog  sync.Progress
}

func (f *fakeSynchroniser) Sync(_ context.Context, userID string, _ bool) (sync.Result, error) {
	f.calls = append(f.calls, userID)
	return sync.Result{New: 1}, nil
}

func (f *fakeSynchroniser) Progress(string) sync.Progress { return f.prog }

func newMultipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func newTestServer(t *testing.T) (*Server, *fakeAPIPapers, *fakeSynchroniser) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	papers := newFakeAPIPapers()
	synchroniser := &fakeSynchroniser{}
	s := New(papers, fakeWorker{progress: ingest.Progress{Total: 3, Processed: 2}}, synchroniser, t.TempDir())
	return s, papers, synchroniser
}

func TestHandleUpload_NewFileIsSaved(t *testing.T) {
	s, papers, _ := newTestServer(t)
	r := gin.New()
	s.RegisterRoutes(r)

	body, contentType := newMultipartUpload(t, "paper.pdf", []byte("%PDF-1.4 content"))
	req := httptest.NewRequest(http.MethodPost, "/papers/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, papers.saved, 1)
	assert.Equal(t, domain.SourceUpload, papers.saved[0].Source)
}

func TestHandleUpload_RejectsUnsupportedExtension(t *testing.T) {
	s, _, _ := newTestServer(t)
	r := gin.New()
	s.RegisterRoutes(r)

	body, contentType := newMultipartUpload(t, "paper.exe", []byte("nope"))
	req := httptest.NewRequest(http.MethodPost, "/papers/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleUpload_DuplicateHashReturnsExistingPaper(t *testing.T) {
	s, papers, _ := newTestServer(t)
	papers.byHash["c0ffee"] = domain.Paper{ID: "existing-id", FileHash: "c0ffee"}
	// Force the handler's computed hash to collide by reusing the same bytes
	// twice and asserting the second call is a duplicate.
	r := gin.New()
	s.RegisterRoutes(r)

	content := []byte("identical bytes")
	body1, ct1 := newMultipartUpload(t, "a.txt", content)
	req1 := httptest.NewRequest(http.MethodPost, "/papers/upload", body1)
	req1.Header.Set("Content-Type", ct1)
	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, req1)
	require.Equal(t, http.StatusCreated, w1.Code)

	body2, ct2 := newMultipartUpload(t, "b.txt", content)
	req2 := httptest.NewRequest(http.MethodPost, "/papers/upload", body2)
	req2.Header.Set("Content-Type", ct2)
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req2)

	assert.Equal(t, http.StatusOK, w2.Code)
	assert.Contains(t, w2.Body.String(), `"duplicate":true`)
}

func TestHandleIngestStatus_ReturnsWorkerProgress(t *testing.T) {
	s, _, _ := newTestServer(t)
	r := gin.New()
	s.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/ingest/status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Total":3`)
}

func TestHandleSyncTrigger_RequiresUserID(t *testing.T) {
	s, _, _ := newTestServer(t)
	r := gin.New()
	s.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/sync/trigger", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
