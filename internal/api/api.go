// Package api mounts the non-streaming HTTP surface spec.md §6 names
// alongside the Session Gateway's websocket routes: paper upload, and
// poll endpoints for the ingestion worker and library synchroniser.
// Grounded on the same gin idiom internal/gateway already uses.
package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/citeassist/engine/internal/domain"
	"github.com/citeassist/engine/internal/ingest"
	"github.com/citeassist/engine/internal/sync"
)

// maxUploadSize is spec.md §6's default max_upload_size (bytes).
const maxUploadSize = 50 * 1024 * 1024

var defaultAllowedExtensions = []string{".pdf", ".docx", ".doc", ".txt", ".rtf"}

// Papers is the persistence surface the upload handler needs.
type Papers interface {
	FindByHash(ctx context.Context, hash string) (domain.Paper, bool, error)
	SavePaper(ctx context.Context, p domain.Paper) error
}

// Worker is the poll-able ingestion-worker surface; *ingest.Worker satisfies it.
type Worker interface {
	Progress(ctx context.Context) (ingest.Progress, error)
}

// Synchroniser is the poll/trigger surface; *sync.Synchroniser satisfies it.
type Synchroniser interface {
	Sync(ctx context.Context, userID string, forceFullSync bool) (sync.Result, error)
	Progress(userID string) sync.Progress
}

// Server mounts /papers/upload, /ingest/status, /sync/status, /sync/trigger.
type Server struct {
	Papers        Papers
	Worker        Worker
	Sync          Synchroniser
	DataDir       string
	AllowedExts   []string
	MaxUploadSize int64
}

// New builds a Server with spec.md §6's defaults for extensions and size cap.
func New(papers Papers, worker Worker, synchroniser Synchroniser, dataDir string) *Server {
	return &Server{
		Papers:        papers,
		Worker:        worker,
		Sync:          synchroniser,
		DataDir:       dataDir,
		AllowedExts:   defaultAllowedExtensions,
		MaxUploadSize: maxUploadSize,
	}
}

// RegisterRoutes mounts the server's endpoints on r.
func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.POST("/papers/upload", s.handleUpload)
	r.GET("/ingest/status", s.handleIngestStatus)
	r.GET("/sync/status", s.handleSyncStatus)
	r.POST("/sync/trigger", s.handleSyncTrigger)
}

// handleUpload implements spec.md §6's file upload interface: extension
// allow-list, 50MiB cap, SHA-256 content-hash dedup (returns the existing
// paper rather than creating a duplicate), and a
// <data_dir>/uploads/<hash><ext> on-disk layout.
func (s *Server) handleUpload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !contains(s.AllowedExts, ext) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported extension %q", ext)})
		return
	}

	limited := io.LimitReader(file, s.MaxUploadSize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read upload"})
		return
	}
	if int64(len(body)) > s.MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds max upload size"})
		return
	}

	sum := sha256.Sum256(body)
	hash := hex.EncodeToString(sum[:])

	ctx := c.Request.Context()
	if existing, found, err := s.Papers.FindByHash(ctx, hash); err == nil && found {
		c.JSON(http.StatusOK, gin.H{"paper_id": existing.ID, "duplicate": true})
		return
	}

	path := filepath.Join(s.DataDir, "uploads", hash+ext)
	if err := writeFile(path, body); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store upload"})
		return
	}

	paper := domain.Paper{
		ID:       uuid.NewString(),
		Title:    strings.TrimSuffix(header.Filename, ext),
		Source:   domain.SourceUpload,
		FilePath: path,
		FileHash: hash,
	}
	if err := s.Papers.SavePaper(ctx, paper); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save paper"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"paper_id": paper.ID, "duplicate": false})
}

func (s *Server) handleIngestStatus(c *gin.Context) {
	progress, err := s.Worker.Progress(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load ingestion status"})
		return
	}
	c.JSON(http.StatusOK, progress)
}

func (s *Server) handleSyncStatus(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	c.JSON(http.StatusOK, s.Sync.Progress(userID))
}

func (s *Server) handleSyncTrigger(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	force := c.Query("force_full_sync") == "true"

	go func() {
		_, _ = s.Sync.Sync(context.Background(), userID, force)
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

func writeFile(path string, body []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, body, 0o600)
}

func contains(exts []string, ext string) bool {
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}
