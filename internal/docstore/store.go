// Package docstore is a small document database with live queries.
//
// Documents are JSON objects grouped in named collections and addressed by
// a caller supplied id.  Besides point reads and writes the store offers
// conditional transactions (reads first, then writes applied atomically at
// commit) and live subscriptions that push the full result set of a query
// whenever the collection changes.  Change notifications travel through a
// Feed so several processes sharing one database see each other's writes.
package docstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("docstore: document not found")

// ErrExists is returned by a transaction whose Create found the document
// already present.
var ErrExists = errors.New("docstore: document already exists")

// ErrReadAfterWrite is returned when a transaction reads after it has
// already written.  All reads must happen before the first write.
var ErrReadAfterWrite = errors.New("docstore: transaction reads must precede writes")

// Document is a stored document together with its key.
type Document struct {
	ID     string
	Fields Fields
}

// Filter restricts a query to documents whose Field equals Value.
type Filter struct {
	Field string
	Value string
}

// Query describes a collection scan.  Where is optional; when OrderBy is
// set, documents lacking that field are excluded from the result.
type Query struct {
	Collection string
	Where      *Filter
	OrderBy    string
	Descending bool
}

// Tx is the handle passed to RunTransaction callbacks.
type Tx interface {
	// Get reads a document and locks it until the transaction ends.
	Get(collection, id string) (Document, error)
	// Set replaces a document at commit.
	Set(collection, id string, fields Fields) error
	// Create inserts a new document at commit.  The transaction fails with
	// ErrExists when the id is taken, including by a concurrent Create.
	Create(collection, id string, fields Fields) error
	// Update merges fields into an existing document at commit.
	Update(collection, id string, fields Fields) error
}

// Store is the document database used by every service.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, q Query) ([]Document, error)
	// Set creates or replaces a document.
	Set(ctx context.Context, collection, id string, fields Fields) error
	// Update merges fields into an existing document; ErrNotFound when the
	// document does not exist.
	Update(ctx context.Context, collection, id string, fields Fields) error
	// RunTransaction runs fn and applies its writes atomically.  An error
	// returned by fn aborts the transaction and is returned unchanged.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// Subscribe starts a live query.  The caller owns the returned
	// subscription and must Close it.
	Subscribe(ctx context.Context, q Query) (*Subscription, error)
}

type writeKind int

const (
	writeSet writeKind = iota
	writeUpdate
	writeCreate
)

// pendingWrite is a buffered transactional write.
type pendingWrite struct {
	kind       writeKind
	collection string
	id         string
	fields     Fields
}

// touched returns the distinct collections written by ws in order.
func touched(ws []pendingWrite) []string {
	seen := make(map[string]bool, len(ws))
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		if !seen[w.collection] {
			seen[w.collection] = true
			out = append(out, w.collection)
		}
	}
	return out
}
