// Package store provides the document-store abstraction ReviewDeck reads
// and writes through.
//
// Documents are untyped field maps addressed by a two-segment path,
// "<collection>/<id>" (e.g. "accounts/42f1...", "reviews/abc123").
// Collections can be listed wholesale or filtered on a single field.
// Decoding field maps into typed domain values is the domain package's job
// (see domain/decode.go); the store never interprets fields.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by Get when no document exists at the path.
var ErrNotFound = errors.New("store: document not found")

// Document is a raw document: a path plus an untyped field map.
type Document struct {
	Path      string
	Fields    map[string]any
	UpdatedAt time.Time
}

// ID returns the document's identifier (the path segment after the
// collection name).
func (d *Document) ID() string {
	_, id, _ := SplitPath(d.Path)
	return id
}

// Store is the document-store interface.
//
// Get reports a missing document as ErrNotFound so callers can distinguish
// "absent" from "failed" — an absent account document means the user is
// treated as unauthenticated, while a failed fetch degrades to empty data.
type Store interface {
	// Get returns the document at path, or ErrNotFound.
	Get(ctx context.Context, path string) (*Document, error)

	// Query returns every document in the collection, ordered by path.
	Query(ctx context.Context, collection string) ([]Document, error)

	// QueryWhere returns the collection's documents whose field equals value.
	QueryWhere(ctx context.Context, collection, field string, value any) ([]Document, error)

	// Put creates or replaces the document at path.
	Put(ctx context.Context, path string, fields map[string]any) error

	// Delete removes the document at path. Deleting a missing document is
	// not an error.
	Delete(ctx context.Context, path string) error
}

// SplitPath splits a document path into its collection and id segments.
func SplitPath(path string) (collection, id string, err error) {
	collection, id, ok := strings.Cut(path, "/")
	if !ok || collection == "" || id == "" || strings.Contains(id, "/") {
		return "", "", fmt.Errorf("store: invalid document path %q", path)
	}
	return collection, id, nil
}

// JoinPath builds a document path from a collection and id.
func JoinPath(collection, id string) string {
	return collection + "/" + id
}
