// Package citeerr defines the engine's error-kind taxonomy: a small, closed
// set of categories every component classifies its failures into, rather
// than a deep type hierarchy.
package citeerr

import (
	"errors"
	"fmt"
)

// Kind is one of the taxonomy's closed set of categories.
type Kind int

const (
	// InputRejected is validation failure at the boundary: wrong extension,
	// oversize file, missing user_id, text too short for suggestion.
	InputRejected Kind = iota
	// NotFound is a missing paper or sync record.
	NotFound
	// Conflict is a duplicate-upload or duplicate-DOI, resolved by
	// returning the existing record.
	Conflict
	// Transient is a rate limit hit, model busy, external API 5xx, or
	// store connection blip; safe to retry, no persistent failure recorded.
	Transient
	// ProcessingFailed is an ingestion or reranker step that raised;
	// recorded on the paper as processing_error.
	ProcessingFailed
	// Fatal means the process should not serve requests: embedding model
	// failed to load, vector store schema mismatch.
	Fatal
)

func (k Kind) String() string {
	switch k {
	case InputRejected:
		return "input_rejected"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Transient:
		return "transient"
	case ProcessingFailed:
		return "processing_failed"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error carries a Kind plus the entity the failure concerns, so catch sites
// can log category, entity kind, and entity id per the propagation policy.
type Error struct {
	Kind   Kind
	Entity string // e.g. "paper", "sync_record", "session"
	ID     string
	Err    error
}

func (e *Error) Error() string {
	if e.Entity != "" || e.ID != "" {
		return fmt.Sprintf("%s: %s[%s]: %v", e.Kind, e.Entity, e.ID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a Kind and entity reference.
func New(kind Kind, entity, id string, err error) *Error {
	return &Error{Kind: kind, Entity: entity, ID: id, Err: err}
}

// Newf builds an Error from a format string, mirroring fmt.Errorf.
func Newf(kind Kind, entity, id, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Entity: entity, ID: id, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the Kind of err if it (or a wrapped cause) is an *Error,
// defaulting to ProcessingFailed for opaque errors — an uncategorized
// failure during a pipeline step is still a processing failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ProcessingFailed
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
