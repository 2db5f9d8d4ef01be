// Package docstoretest provides an in-memory docstore.Adapter for testing
// code that depends on the adapter contract without a real database.
package docstoretest

import (
	"context"
	"sort"
	"sync"

	"github.com/hypertrace/config-service-go/internal/configdoc"
	"github.com/hypertrace/config-service-go/internal/docstore"
)

// Adapter is an in-memory docstore.Adapter. Every version of every
// document is retained, mirroring the Postgres adapter's history model.
type Adapter struct {
	mu       sync.Mutex
	versions []*configdoc.Document // every version ever written, insertion order
	latest   map[docstore.Key]*configdoc.Document
	Healthy  bool
}

// New returns an empty Adapter that reports healthy.
func New() *Adapter {
	return &Adapter{latest: make(map[docstore.Key]*configdoc.Document), Healthy: true}
}

var _ docstore.Adapter = (*Adapter)(nil)

func clone(d *configdoc.Document) *configdoc.Document {
	c := *d
	return &c
}

func (a *Adapter) Upsert(ctx context.Context, key docstore.Key, doc *configdoc.Document) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	d := clone(doc)
	a.versions = append(a.versions, d)
	a.latest[key] = d
	return nil
}

func (a *Adapter) Update(ctx context.Context, key docstore.Key, doc *configdoc.Document, pred docstore.Expr) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cur, ok := a.latest[key]
	if !ok || !evalExpr(pred, cur) {
		return 0, nil
	}
	d := clone(doc)
	a.versions = append(a.versions, d)
	a.latest[key] = d
	return 1, nil
}

func (a *Adapter) BulkUpsert(ctx context.Context, keys []docstore.Key, docs []*configdoc.Document) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(keys) != len(docs) {
		return false, nil
	}
	for i, key := range keys {
		d := clone(docs[i])
		a.versions = append(a.versions, d)
		a.latest[key] = d
	}
	return true, nil
}

func (a *Adapter) Delete(ctx context.Context, pred docstore.Expr) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	var kept []*configdoc.Document
	for _, d := range a.versions {
		if !evalExpr(pred, d) {
			kept = append(kept, d)
		}
	}
	a.versions = kept
	for key, d := range a.latest {
		if evalExpr(pred, d) {
			delete(a.latest, key)
		}
	}
	return nil
}

func (a *Adapter) Query(ctx context.Context, q docstore.Query) (docstore.Cursor, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var matched []*configdoc.Document
	for _, d := range a.versions {
		if evalExpr(q.Filter, d) {
			matched = append(matched, d)
		}
	}
	for _, s := range q.Sorts {
		sortDocs(matched, s)
	}
	if q.Page.Offset > 0 && q.Page.Offset < len(matched) {
		matched = matched[q.Page.Offset:]
	} else if q.Page.Offset >= len(matched) {
		matched = nil
	}
	if q.Page.Limit > 0 && q.Page.Limit < len(matched) {
		matched = matched[:q.Page.Limit]
	}
	return &sliceCursor{docs: matched}, nil
}

func (a *Adapter) HealthCheck(ctx context.Context) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Healthy
}

type sliceCursor struct {
	docs []*configdoc.Document
	idx  int
}

func (c *sliceCursor) Next() bool {
	if c.idx >= len(c.docs) {
		return false
	}
	c.idx++
	return true
}

func (c *sliceCursor) Document() *configdoc.Document { return c.docs[c.idx-1] }
func (c *sliceCursor) Err() error                    { return nil }
func (c *sliceCursor) Close() error                  { return nil }

func sortDocs(docs []*configdoc.Document, s docstore.Sort) {
	sort.SliceStable(docs, func(i, j int) bool {
		vi, vj := fieldValue(docs[i], s.Field), fieldValue(docs[j], s.Field)
		less := compareAny(vi, vj) < 0
		if s.Dir == docstore.Desc {
			return !less && compareAny(vi, vj) != 0
		}
		return less
	})
}

func fieldValue(d *configdoc.Document, path string) any {
	switch path {
	case "tenantId":
		return d.TenantID
	case "resourceNamespace":
		return d.ResourceNamespace
	case "resourceName":
		return d.ResourceName
	case "context":
		return d.Context
	case "version":
		return d.Version
	default:
		return lookupConfigPath(d.Config, path)
	}
}

func lookupConfigPath(v configdoc.Value, path string) any {
	const prefix = "config."
	if len(path) <= len(prefix) || path[:len(prefix)] != prefix {
		if path == "config" {
			return v
		}
		return nil
	}
	cur := v
	for _, seg := range splitPath(path[len(prefix):]) {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[seg]
	}
	return cur
}

func splitPath(s string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func compareAny(a, b any) int {
	switch av := a.(type) {
	case int64:
		bv, _ := b.(int64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case string:
		bv, _ := b.(string)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case float64:
		bv, _ := toFloat64(b)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	default:
		return 0
	}
}

func toFloat64(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func evalExpr(e docstore.Expr, d *configdoc.Document) bool {
	if e == nil {
		return true
	}
	switch n := e.(type) {
	case *docstore.Relational:
		return evalRelational(n, d)
	case *docstore.Logical:
		return evalLogical(n, d)
	default:
		return false
	}
}

func evalLogical(n *docstore.Logical, d *configdoc.Document) bool {
	switch n.Op {
	case docstore.NOT:
		return len(n.Children) == 1 && !evalExpr(n.Children[0], d)
	case docstore.AND:
		for _, c := range n.Children {
			if !evalExpr(c, d) {
				return false
			}
		}
		return true
	case docstore.OR:
		for _, c := range n.Children {
			if evalExpr(c, d) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func evalRelational(n *docstore.Relational, d *configdoc.Document) bool {
	lhs := fieldValue(d, n.Path)
	switch n.Op {
	case docstore.EQ:
		return equalAny(lhs, n.RHS)
	case docstore.NEQ:
		return !equalAny(lhs, n.RHS)
	case docstore.LT:
		return compareAny(lhs, n.RHS) < 0
	case docstore.LTE:
		return compareAny(lhs, n.RHS) <= 0
	case docstore.GT:
		return compareAny(lhs, n.RHS) > 0
	case docstore.GTE:
		return compareAny(lhs, n.RHS) >= 0
	case docstore.EXISTS:
		return lhs != nil
	case docstore.IN:
		return inSlice(lhs, n.RHS)
	case docstore.NOTIN:
		return !inSlice(lhs, n.RHS)
	default:
		return false
	}
}

func equalAny(a, b any) bool {
	af, aok := toFloat64(a)
	bf, bok := toFloat64(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

func inSlice(v any, rhs any) bool {
	values, ok := rhs.([]any)
	if !ok {
		return false
	}
	for _, item := range values {
		if equalAny(v, item) {
			return true
		}
	}
	return false
}
