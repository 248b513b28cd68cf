// Package store defines the remote document store consumed by the
// session controller: a generic collection of key -> JSON-document
// entries with fetch, patch, and create operations.
package store

import (
	"context"
	"fmt"

	"chronicle/internal/state"
)

type Store interface {
	Close(ctx context.Context) error

	// FetchAll returns every document in the collection.
	FetchAll(ctx context.Context, collectionID string) (map[string]state.Document, error)

	// Patch upserts the given documents into the collection. Documents
	// not named are left untouched.
	Patch(ctx context.Context, collectionID string, docs map[string]state.Document) error

	// Create makes a new collection seeded with the initial documents
	// and returns its id.
	Create(ctx context.Context, description string, initial map[string]state.Document) (string, error)
}

// StatusError surfaces a failed store call with its HTTP status and
// response body text.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("store request failed: status %d: %s", e.Status, e.Body)
}
