package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hypertrace/config-service-go/internal/configdoc"
	"github.com/hypertrace/config-service-go/internal/docstore"
)

// executor is satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// insertVersion inserts doc as a brand-new row. Callers are responsible
// for having already cleared any prior is_latest row at the same doc_key
// within the same transaction.
func insertVersion(ctx context.Context, ex executor, key docstore.Key, doc *configdoc.Document) error {
	configJSON, err := configJSONBytes(doc.Config)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	_, err = ex.ExecContext(ctx, `
		INSERT INTO configurations (
			doc_key, tenant_id, resource_namespace, resource_name, context, version,
			last_updated_user_id, last_updated_user_email, config,
			creation_timestamp, update_timestamp, is_latest
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, TRUE)`,
		string(key), doc.TenantID, doc.ResourceNamespace, doc.ResourceName, doc.Context, doc.Version,
		doc.LastUpdatedUserID, doc.LastUpdatedUserEmail, configJSON,
		doc.CreationTimestamp, doc.UpdateTimestamp,
	)
	return err
}

func clearLatest(ctx context.Context, ex executor, key docstore.Key) error {
	_, err := ex.ExecContext(ctx, `UPDATE configurations SET is_latest = FALSE WHERE doc_key = $1 AND is_latest`, string(key))
	return err
}

// Upsert replaces the document at key unconditionally, preserving the
// previous version as history.
func (a *Adapter) Upsert(ctx context.Context, key docstore.Key, doc *configdoc.Document) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres upsert: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := clearLatest(ctx, tx, key); err != nil {
		return fmt.Errorf("postgres upsert: clear latest: %w", err)
	}
	if err := insertVersion(ctx, tx, key, doc); err != nil {
		return fmt.Errorf("postgres upsert: insert: %w", err)
	}
	return tx.Commit()
}

// Update replaces the document at key only if the current latest row
// matches pred, which is evaluated against the stored (pre-write)
// document.
func (a *Adapter) Update(ctx context.Context, key docstore.Key, doc *configdoc.Document, pred docstore.Expr) (int, error) {
	// $1 is doc_key; the predicate's own placeholders are numbered from $2.
	predSQL, predArgs, err := compilePredicateFrom(pred, 1)
	if err != nil {
		return 0, err
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("postgres update: begin tx: %w", err)
	}
	defer tx.Rollback()

	args := append([]any{string(key)}, predArgs...)
	query := fmt.Sprintf(`UPDATE configurations SET is_latest = FALSE
		WHERE doc_key = $1 AND is_latest AND %s`, predSQL)

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("postgres update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("postgres update: rows affected: %w", err)
	}
	if n == 0 {
		return 0, nil
	}

	if err := insertVersion(ctx, tx, key, doc); err != nil {
		return 0, fmt.Errorf("postgres update: insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("postgres update: commit: %w", err)
	}
	return int(n), nil
}

// BulkUpsert writes every (key, doc) pair atomically: all are written, or
// (on any failure) none are.
func (a *Adapter) BulkUpsert(ctx context.Context, keys []docstore.Key, docs []*configdoc.Document) (bool, error) {
	if len(keys) != len(docs) {
		return false, fmt.Errorf("postgres bulk upsert: keys/docs length mismatch (%d/%d)", len(keys), len(docs))
	}
	if len(keys) == 0 {
		return true, nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("postgres bulk upsert: begin tx: %w", err)
	}
	defer tx.Rollback()

	for i, key := range keys {
		if err := clearLatest(ctx, tx, key); err != nil {
			return false, nil //nolint:nilerr // best-effort atomic batch: surface as "not successful", not a hard error
		}
		if err := insertVersion(ctx, tx, key, docs[i]); err != nil {
			return false, nil //nolint:nilerr
		}
	}

	if err := tx.Commit(); err != nil {
		return false, nil //nolint:nilerr
	}
	return true, nil
}

// Delete removes every document (every version) matching pred.
func (a *Adapter) Delete(ctx context.Context, pred docstore.Expr) error {
	predSQL, args, err := compilePredicate(pred)
	if err != nil {
		return err
	}
	_, err = a.db.ExecContext(ctx, `DELETE FROM configurations WHERE `+predSQL, args...)
	if err != nil {
		return fmt.Errorf("postgres delete: %w", err)
	}
	return nil
}

// Query returns a lazy, scoped sequence of documents matching q.
func (a *Adapter) Query(ctx context.Context, q docstore.Query) (docstore.Cursor, error) {
	predSQL, args, err := compilePredicate(q.Filter)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + configColumns + ` FROM configurations WHERE ` + predSQL

	if len(q.Sorts) > 0 {
		orderBys := make([]string, len(q.Sorts))
		for i, s := range q.Sorts {
			frag, err := sortSQL(s)
			if err != nil {
				return nil, err
			}
			orderBys[i] = frag
		}
		query += " ORDER BY " + strings.Join(orderBys, ", ")
	}
	if q.Page.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Page.Limit)
	}
	if q.Page.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", q.Page.Offset)
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres query: %w", err)
	}
	return &rowCursor{rows: rows}, nil
}

// rowCursor adapts *sql.Rows to docstore.Cursor, guaranteeing the
// underlying result set is released via Close on every exit path.
type rowCursor struct {
	rows *sql.Rows
	cur  *configdoc.Document
	err  error
}

func (c *rowCursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	doc, err := scanRow(c.rows)
	if err != nil {
		c.err = err
		return false
	}
	c.cur = doc
	return true
}

func (c *rowCursor) Document() *configdoc.Document { return c.cur }

func (c *rowCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

func (c *rowCursor) Close() error {
	return c.rows.Close()
}
