// Package docstore is the abstract document-store capability consumed by
// the versioned config store. It is intentionally storage-agnostic:
// package docstore/postgres is the only concrete implementation shipped
// here, but nothing above this package imports it directly except wiring
// code in cmd/.
package docstore

import (
	"context"

	"github.com/hypertrace/config-service-go/internal/configdoc"
)

// Key is the deterministic identity used for keyed upsert/update. Build one
// with configdoc.DocumentKey.
type Key string

// SortDir is the direction of a sort key in a Query.
type SortDir int

const (
	Asc SortDir = iota
	Desc
)

// Sort orders query results by a single field.
type Sort struct {
	Field string
	Dir   SortDir
}

// Page carries offset/limit pagination. A zero Limit means "no limit".
type Page struct {
	Offset int
	Limit  int
}

// Query carries a predicate, optional sort keys (applied in order), and
// optional pagination.
type Query struct {
	Filter Expr
	Sorts  []Sort
	Page   Page
}

// Cursor is a lazy, scoped sequence of documents. Callers MUST call Close
// on every exit path — success, early break, or error — since it typically
// owns a live connection or result set. Iterate with:
//
//	cur, err := adapter.Query(ctx, q)
//	if err != nil { return err }
//	defer cur.Close()
//	for cur.Next() {
//	    doc := cur.Document()
//	    ...
//	}
//	return cur.Err()
type Cursor interface {
	Next() bool
	Document() *configdoc.Document
	Err() error
	Close() error
}

// Each brackets a Query call so the cursor is released on every exit path,
// including a panic or an early return from fn. fn returning a non-nil
// error stops iteration and is returned as-is (not wrapped), so callers can
// use errors.Is/As on it.
func Each(ctx context.Context, a Adapter, q Query, fn func(*configdoc.Document) error) error {
	cur, err := a.Query(ctx, q)
	if err != nil {
		return err
	}
	defer cur.Close()

	for cur.Next() {
		if err := fn(cur.Document()); err != nil {
			return err
		}
	}
	if err := cur.Err(); err != nil {
		return err
	}
	return nil
}

// Adapter is the persistence capability the versioned store depends on:
// keyed upsert, conditional update, atomic bulk upsert, predicate-based
// delete, predicate-based paginated query, and a health check.
type Adapter interface {
	// Upsert replaces the document at key unconditionally.
	Upsert(ctx context.Context, key Key, doc *configdoc.Document) error

	// Update replaces the document at key only if the currently stored
	// document matches pred. Returns the number of documents updated (0 or
	// 1, since key identifies at most one document).
	Update(ctx context.Context, key Key, doc *configdoc.Document, pred Expr) (updatedCount int, err error)

	// BulkUpsert writes every (key, doc) pair in keys/docs order, or none
	// of them, atomically. Returns false (no error) if the store rejected
	// the batch as a whole.
	BulkUpsert(ctx context.Context, keys []Key, docs []*configdoc.Document) (success bool, err error)

	// Delete removes every document matching pred.
	Delete(ctx context.Context, pred Expr) error

	// Query returns a lazy, scoped sequence of documents matching q.
	Query(ctx context.Context, q Query) (Cursor, error)

	// HealthCheck reports whether the underlying store is reachable.
	HealthCheck(ctx context.Context) bool
}
