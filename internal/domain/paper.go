// Package domain holds the shared data model: Paper, PaperChunk,
// ExternalSyncRecord, UserLibraryConfig, TextContext, and Suggestion, plus the
// small value types they're built from. Nothing here talks to a store —
// internal/store persists these, internal/retrieval produces Suggestions.
package domain

import "time"

// PaperSource tags where a Paper originated.
type PaperSource string

const (
	SourceUpload   PaperSource = "upload"
	SourceExternal PaperSource = "external"
)

// Paper is a bibliographic unit: one academic paper and its processing state.
type Paper struct {
	ID     string
	Title  string
	Authors []string
	Year    *int
	Journal string
	Abstract string

	DOI           string
	ArxivID       string
	PubMedID      string
	ExternalKey   string

	// CitationCount and VenueRank feed the retrieval engine's quality_score;
	// both are optional metadata that may never be populated for a given paper.
	CitationCount *int
	VenueRank     string

	FullText string
	Source   PaperSource

	IsProcessed     bool
	ProcessingError string

	FilePath string
	FileHash string

	// Embedding is the single paper-level dense vector, computed from the
	// abstract if present else the first chunk's text.
	Embedding []float32

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasIdentifier reports whether any of DOI/ArxivID/PubMedID/ExternalKey is set.
func (p *Paper) HasIdentifier() bool {
	return p.DOI != "" || p.ArxivID != "" || p.PubMedID != "" || p.ExternalKey != ""
}

// ChunkType tags the structural role of a chunk within its paper.
type ChunkType string

const (
	ChunkAbstract   ChunkType = "abstract"
	ChunkIntro      ChunkType = "intro"
	ChunkMethods    ChunkType = "methods"
	ChunkResults    ChunkType = "results"
	ChunkDiscussion ChunkType = "discussion"
	ChunkConclusion ChunkType = "conclusion"
	ChunkReferences ChunkType = "references"
	ChunkBody       ChunkType = "body"
)

// PageBoundary records what fraction of a chunk falls on a given page.
type PageBoundary struct {
	Page    int     `json:"page"`
	Percent float64 `json:"percent"`
}

// PaperChunk is one retrievable fragment of a Paper's full text.
type PaperChunk struct {
	ID         string
	PaperID    string
	ChunkIndex int

	Text      string
	StartChar int
	EndChar   int

	Section   string
	ChunkType ChunkType
	WordCount int

	Embedding []float32

	PageStart     *int
	PageEnd       *int
	PageBoundaries []PageBoundary
}

// SyncStatus is the reconciliation state of an ExternalSyncRecord.
type SyncStatus string

const (
	SyncSynced  SyncStatus = "synced"
	SyncPending SyncStatus = "pending"
	SyncError   SyncStatus = "error"
)

// ExternalSyncRecord binds a local Paper to a remote reference-manager item.
type ExternalSyncRecord struct {
	ID                 string
	UserID             string
	RemoteLibraryID    string
	RemoteKey          string
	RemoteVersion      int
	PaperID            string
	LastSynced         time.Time
	Status             SyncStatus
	LastError          string
}

// CollectionRef names a remote collection, either by its bare key (legacy
// format) or with its owning library id (new format).
type CollectionRef struct {
	Key       string `json:"key"`
	LibraryID string `json:"libraryId,omitempty"`
}

// UserLibraryConfig is a user's external reference-manager integration state.
type UserLibraryConfig struct {
	UserID string

	APIKey       string
	RemoteUserID string

	AutoSync         bool
	AutoSyncInterval time.Duration

	LastSync       time.Time
	LastSyncStatus string

	SelectedGroups      []string
	SelectedCollections []CollectionRef
	// HasLegacyCollections is true when SelectedCollections still mixes in
	// bare-key (LibraryID == "") entries awaiting migration.
	HasLegacyCollections bool
}

// TextContext is the sentence-neighbourhood extracted from an editor snapshot.
type TextContext struct {
	CurrentSentence  string
	PreviousSentence *string
	NextSentence     *string
	Paragraph        string
	Section          *string
	Position         int
}

// Scores carries the per-stage relevance scores behind one Suggestion.
// JSON field names follow spec.md §6's wire schema: bm25 for the sparse
// score, confidence for the final blended score.
type Scores struct {
	Dense  float64 `json:"dense"`
	Sparse float64 `json:"bm25"`
	Hybrid float64 `json:"hybrid"`
	Rerank float64 `json:"rerank"`
	Final  float64 `json:"confidence"`
}

// Suggestion is one ranked citation candidate returned to the editor.
type Suggestion struct {
	PaperID  string   `json:"paperId"`
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	Year     *int     `json:"year"`
	Abstract string   `json:"abstract"`

	Confidence     float64 `json:"confidence"`
	ConfidenceTier string  `json:"confidenceTier"`
	CitationStyle  string  `json:"citationStyle"`
	DisplayText    string  `json:"displayText"`

	ChunkText  string `json:"chunkText"`
	ChunkIndex int    `json:"chunkIndex"`
	ChunkID    string `json:"chunkId"`

	SectionTitle string    `json:"sectionTitle"`
	ChunkType    ChunkType `json:"chunkType,omitempty"`

	PageStart      *int           `json:"pageStart,omitempty"`
	PageEnd        *int           `json:"pageEnd,omitempty"`
	PageBoundaries []PageBoundary `json:"pageBoundaries,omitempty"`

	Scores Scores `json:"scores"`

	ContextMatch *float64 `json:"contextMatch,omitempty"`
}
