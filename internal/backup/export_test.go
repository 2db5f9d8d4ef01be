package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hypertrace/config-service-go/internal/configdoc"
	"github.com/hypertrace/config-service-go/internal/docstore"
	"github.com/hypertrace/config-service-go/internal/docstore/docstoretest"
)

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func TestExportJSONL_Empty(t *testing.T) {
	adapter := docstoretest.New()
	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), adapter, time.Now(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	if len(lines) != 1 {
		t.Fatalf("expected 1 line (header only), got %d", len(lines))
	}
	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatal(err)
	}
	if h.DocCount != 0 {
		t.Fatalf("DocCount = %d, want 0", h.DocCount)
	}
}

func TestExportJSONL_LatestVersionOnlyAcrossTenants(t *testing.T) {
	adapter := docstoretest.New()
	ctx := context.Background()

	rc1 := configdoc.ConfigResourceContext{ConfigResource: configdoc.ConfigResource{TenantID: "t1", ResourceNamespace: "ns", ResourceName: "res"}, Context: "c1"}
	rc2 := configdoc.ConfigResourceContext{ConfigResource: configdoc.ConfigResource{TenantID: "t2", ResourceNamespace: "ns", ResourceName: "res"}, Context: "c1"}

	key1 := docstore.Key(configdoc.DocumentKey(rc1))
	if err := adapter.Upsert(ctx, key1, &configdoc.Document{
		TenantID: "t1", ResourceNamespace: "ns", ResourceName: "res", Context: "c1", Version: 1, Config: map[string]any{"v": 1},
	}); err != nil {
		t.Fatal(err)
	}
	if err := adapter.Upsert(ctx, key1, &configdoc.Document{
		TenantID: "t1", ResourceNamespace: "ns", ResourceName: "res", Context: "c1", Version: 2, Config: map[string]any{"v": 2},
	}); err != nil {
		t.Fatal(err)
	}

	key2 := docstore.Key(configdoc.DocumentKey(rc2))
	if err := adapter.Upsert(ctx, key2, &configdoc.Document{
		TenantID: "t2", ResourceNamespace: "ns", ResourceName: "res", Context: "c1", Version: 1, Config: map[string]any{"v": "other tenant"},
	}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := ExportJSONL(ctx, adapter, time.Now(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 docs, got %d lines:\n%s", len(lines), buf.String())
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatal(err)
	}
	if h.DocCount != 2 {
		t.Fatalf("DocCount = %d, want 2", h.DocCount)
	}

	var rec1, rec2 record
	if err := json.Unmarshal([]byte(lines[1]), &rec1); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(lines[2]), &rec2); err != nil {
		t.Fatal(err)
	}

	data1, _ := json.Marshal(rec1.Data)
	var d1 configdoc.Document
	if err := json.Unmarshal(data1, &d1); err != nil {
		t.Fatal(err)
	}
	if d1.TenantID != "t1" || d1.Version != 2 {
		t.Fatalf("expected t1's latest version (2), got %+v", d1)
	}
}

func TestExportJSONL_SkipsNullConfig(t *testing.T) {
	adapter := docstoretest.New()
	ctx := context.Background()

	rc := configdoc.ConfigResourceContext{ConfigResource: configdoc.ConfigResource{TenantID: "t1", ResourceNamespace: "ns", ResourceName: "res"}, Context: "deleted"}
	key := docstore.Key(configdoc.DocumentKey(rc))
	if err := adapter.Upsert(ctx, key, &configdoc.Document{
		TenantID: "t1", ResourceNamespace: "ns", ResourceName: "res", Context: "deleted", Version: 1, Config: nil,
	}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := ExportJSONL(ctx, adapter, time.Now(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	if len(lines) != 1 {
		t.Fatalf("expected header only (null config skipped), got %d lines", len(lines))
	}
}
