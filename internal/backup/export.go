// Package backup implements periodic snapshot export of every tenant's
// configuration documents: on each tick it walks the document store,
// keeps the latest version of every (tenant, namespace, resource,
// context) key, and writes the result as JSONL to one or more
// destinations (S3, a git checkout).
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/hypertrace/config-service-go/internal/configdoc"
	"github.com/hypertrace/config-service-go/internal/docstore"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version   string `json:"version"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	DocCount  int    `json:"doc_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ExportJSONL writes the latest version of every configuration document
// across every tenant as JSONL to w, sorted by document key for a stable
// diff between snapshots.
func ExportJSONL(ctx context.Context, adapter docstore.Adapter, now time.Time, w io.Writer) error {
	latest := make(map[string]*configdoc.Document)

	q := docstore.Query{Sorts: []docstore.Sort{{Field: "version", Dir: docstore.Desc}}}
	err := docstore.Each(ctx, adapter, q, func(doc *configdoc.Document) error {
		key := configdoc.DocumentKey(doc.ResourceContext())
		if _, seen := latest[key]; seen {
			return nil
		}
		latest[key] = doc
		return nil
	})
	if err != nil {
		return fmt.Errorf("backup: query failed: %w", err)
	}

	docs := make([]*configdoc.Document, 0, len(latest))
	for _, d := range latest {
		if d.IsConfigNull() {
			continue
		}
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool {
		return configdoc.DocumentKey(docs[i].ResourceContext()) < configdoc.DocumentKey(docs[j].ResourceContext())
	})

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:   "1",
		Type:      "header",
		Timestamp: now.UTC().UnixMilli(),
		DocCount:  len(docs),
	}); err != nil {
		return fmt.Errorf("backup: encode header: %w", err)
	}

	for _, d := range docs {
		if err := enc.Encode(record{Type: "config", Data: d}); err != nil {
			return fmt.Errorf("backup: encode document %s: %w", configdoc.DocumentKey(d.ResourceContext()), err)
		}
	}
	return nil
}
