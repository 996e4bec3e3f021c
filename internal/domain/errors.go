package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing listing on point lookup.
	ErrNotFound = errors.New("not found")
	// ErrInvalidSearchArgs signals a search call with neither text nor image.
	ErrInvalidSearchArgs = errors.New("invalid search arguments: text or image required")
	// ErrBackendUnavailable signals an unreachable store or a missing table at query time.
	ErrBackendUnavailable = errors.New("vector backend unavailable")
	// ErrUnknownEngine signals an unrecognized storage engine name in the configuration.
	ErrUnknownEngine = errors.New("unknown vector store engine")
	// ErrInvalidSchema signals a malformed table schema. Fatal at startup.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

// MissingHookError is returned when a declared table has no registered
// lifecycle hook. The message names the exact method signature the backend
// is expected to provide.
type MissingHookError struct {
	Table     string
	Hook      string
	Signature string
}

func (e *MissingHookError) Error() string {
	return fmt.Sprintf("table %q: missing %s hook %s", e.Table, e.Hook, e.Signature)
}

// ParseError reports a malformed field value during ingest. It identifies
// the field and the raw value so the source extract can be corrected.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
