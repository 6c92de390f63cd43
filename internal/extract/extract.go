// Package extract turns a local file into unicode text plus a page-map,
// dispatching by file extension the way raggo's ParserManager dispatches by
// detected file type.
package extract

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/citeassist/engine/internal/citeerr"
)

// PageRange is one entry of a page-map: a contiguous, half-open span of the
// extracted text attributed to one page. For non-paginated formats the
// page-map has exactly one entry spanning the whole document.
type PageRange struct {
	PageNumber int
	StartChar  int
	EndChar    int
}

// Result is what a Text Extractor invocation produces.
type Result struct {
	Text     string
	PageMap  []PageRange
}

// Extractor extracts text from one local file.
type Extractor interface {
	Extract(path string) (Result, error)
}

// DefaultAllowedExtensions is the spec's default allow-list.
var DefaultAllowedExtensions = []string{".pdf", ".docx", ".doc", ".txt", ".rtf"}

// Manager dispatches to a registered Extractor by lower-cased extension and
// enforces the allow-list, mirroring ParserManager.Parse's
// detect-then-dispatch flow.
type Manager struct {
	allowed    map[string]bool
	extractors map[string]Extractor
	logger     logger
}

type logger interface {
	Debug(msg string, kv ...interface{})
	Error(msg string, kv ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Error(string, ...interface{}) {}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithAllowedExtensions overrides the default extension allow-list.
func WithAllowedExtensions(exts []string) ManagerOption {
	return func(m *Manager) {
		allowed := make(map[string]bool, len(exts))
		for _, e := range exts {
			allowed[strings.ToLower(e)] = true
		}
		m.allowed = allowed
	}
}

// WithLogger attaches a structured logger.
func WithLogger(l logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager builds a Manager wired with the default PDF/text/office-doc
// extractors.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		allowed: map[string]bool{},
		extractors: map[string]Extractor{
			".pdf":  &PDFExtractor{},
			".txt":  &TextExtractor{},
			".docx": &DocxExtractor{},
			".doc":  &RTFLikeExtractor{},
			".rtf":  &RTFLikeExtractor{},
		},
		logger: nopLogger{},
	}
	for _, e := range DefaultAllowedExtensions {
		m.allowed[e] = true
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Extract extracts text and a page-map from path, enforcing MissingFile and
// UnsupportedFormat before delegating to the registered Extractor, which may
// itself fail with ExtractionFailed. Partial extraction is never reported:
// either the full text comes back or an error does.
func (m *Manager) Extract(path string) (Result, error) {
	if _, err := os.Stat(path); err != nil {
		return Result{}, citeerr.New(citeerr.InputRejected, "file", path, errMissingFile)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !m.allowed[ext] {
		return Result{}, citeerr.New(citeerr.InputRejected, "file", path, errUnsupportedFormat)
	}

	extractor, ok := m.extractors[ext]
	if !ok {
		return Result{}, citeerr.New(citeerr.InputRejected, "file", path, errUnsupportedFormat)
	}

	m.logger.Debug("extracting text", "path", path, "ext", ext)
	res, err := extractor.Extract(path)
	if err != nil {
		m.logger.Error("extraction failed", "path", path, "error", err)
		return Result{}, citeerr.New(citeerr.ProcessingFailed, "file", path, err)
	}
	m.logger.Debug("extraction complete", "path", path, "pages", len(res.PageMap), "chars", len(res.Text))
	return res, nil
}
