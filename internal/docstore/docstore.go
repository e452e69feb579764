// Package docstore abstracts the durable document store: single-document
// get/put/delete by id plus a per-collection scan ordered newest-first by a
// timestamp field. Implementations exist for Postgres and in-memory use.
package docstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a document id does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrExists is returned by Insert when the id is already taken.
	ErrExists = errors.New("document already exists")
)

// MaxScan is the largest number of documents a single Scan call returns.
// Callers layering pagination or filtering on top of Scan inherit this bound.
const MaxScan = 100

// Entry is one scanned document.
type Entry struct {
	ID   string
	Data []byte
	TS   time.Time
}

// Store is the document store contract. Documents are opaque JSON payloads
// ordered within a collection by their timestamp.
type Store interface {
	// Insert writes a new document; ErrExists if the id is taken.
	Insert(ctx context.Context, collection, id string, data []byte, ts time.Time) error
	// InsertIfAbsent writes the document unless the id exists already and
	// reports whether a write happened. Existing documents are left untouched.
	InsertIfAbsent(ctx context.Context, collection, id string, data []byte, ts time.Time) (bool, error)
	// Get returns a document by id or ErrNotFound.
	Get(ctx context.Context, collection, id string) ([]byte, error)
	// Delete removes a document; deleting a missing id is not an error.
	Delete(ctx context.Context, collection, id string) error
	// Scan returns up to n documents newest-first. n is clamped to MaxScan;
	// n <= 0 means MaxScan.
	Scan(ctx context.Context, collection string, n int) ([]Entry, error)
}

func clampScan(n int) int {
	if n <= 0 || n > MaxScan {
		return MaxScan
	}
	return n
}
