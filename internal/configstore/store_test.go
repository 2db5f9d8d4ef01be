package configstore

import (
	"context"
	"testing"
	"time"

	"github.com/hypertrace/config-service-go/internal/configdoc"
	"github.com/hypertrace/config-service-go/internal/docstore/docstoretest"
	"github.com/hypertrace/config-service-go/internal/filter"
)

func ticker(start time.Time, step time.Duration) Clock {
	t := start
	first := true
	return func() time.Time {
		if first {
			first = false
			return t
		}
		t = t.Add(step)
		return t
	}
}

func rc(tenant, ns, resource, context string) configdoc.ConfigResourceContext {
	return configdoc.ConfigResourceContext{
		ConfigResource: configdoc.ConfigResource{TenantID: tenant, ResourceNamespace: ns, ResourceName: resource},
		Context:        context,
	}
}

// S1: single key lifecycle.
func TestWriteConfig_SingleKeyLifecycle(t *testing.T) {
	store := New(docstoretest.New(), ticker(time.UnixMilli(1000), time.Second))
	ctx := context.Background()
	key := rc("t1", "alerting", "alerting-config", "default")

	got1, err := store.WriteConfig(ctx, key, "u1", "u1@example.com", WriteRequest{Config: map[string]any{"a": float64(1)}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got1.HasPrevConfig {
		t.Fatal("expected no prev config on first write")
	}

	got2, err := store.WriteConfig(ctx, key, "u1", "u1@example.com", WriteRequest{Config: map[string]any{"a": float64(2)}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got2.CreationTimestamp != got1.CreationTimestamp {
		t.Fatalf("expected stable creationTimestamp, got %d want %d", got2.CreationTimestamp, got1.CreationTimestamp)
	}
	if got2.UpdateTimestamp == got1.UpdateTimestamp {
		t.Fatal("expected updateTimestamp to advance")
	}
	if !got2.HasPrevConfig {
		t.Fatal("expected prev config on second write")
	}

	read, ok, err := store.GetConfig(ctx, key)
	if err != nil || !ok {
		t.Fatalf("unexpected GetConfig result: ok=%v err=%v", ok, err)
	}
	if read.Config.(map[string]any)["a"] != float64(2) {
		t.Fatalf("unexpected config: %+v", read.Config)
	}
}

// S2: conditional upsert.
func TestWriteConfig_ConditionalUpsert(t *testing.T) {
	store := New(docstoretest.New(), ticker(time.UnixMilli(1000), time.Second))
	ctx := context.Background()
	key := rc("t1", "alerting", "alerting-config", "default")

	if _, err := store.WriteConfig(ctx, key, "u1", "e1", WriteRequest{Config: map[string]any{"a": float64(1)}}); err != nil {
		t.Fatalf("write 1: %v", err)
	}
	if _, err := store.WriteConfig(ctx, key, "u1", "e1", WriteRequest{Config: map[string]any{"a": float64(2)}}); err != nil {
		t.Fatalf("write 2: %v", err)
	}

	cond := &filter.Relational{Path: "a", Op: filter.EQ, RHS: float64(2)}
	if _, err := store.WriteConfig(ctx, key, "u1", "e1", WriteRequest{Config: map[string]any{"a": float64(3)}, UpsertCondition: cond}); err != nil {
		t.Fatalf("conditional write should succeed: %v", err)
	}

	failCond := &filter.Relational{Path: "a", Op: filter.EQ, RHS: float64(2)}
	_, err := store.WriteConfig(ctx, key, "u1", "e1", WriteRequest{Config: map[string]any{"a": float64(4)}, UpsertCondition: failCond})
	if err == nil {
		t.Fatal("expected FailedPrecondition error")
	}
	storeErr, ok := err.(*Error)
	if !ok || storeErr.Kind != FailedPrecondition {
		t.Fatalf("expected FailedPrecondition, got %v", err)
	}

	read, _, _ := store.GetConfig(ctx, key)
	if read.Config.(map[string]any)["a"] != float64(3) {
		t.Fatalf("expected doc unchanged by failed CAS, got %+v", read.Config)
	}
}

// Property 4: create-with-condition rejection.
func TestWriteConfig_CreateWithConditionRejected(t *testing.T) {
	store := New(docstoretest.New(), ticker(time.UnixMilli(1000), time.Second))
	ctx := context.Background()
	key := rc("t1", "alerting", "alerting-config", "default")

	cond := &filter.Relational{Path: "a", Op: filter.EQ, RHS: float64(1)}
	_, err := store.WriteConfig(ctx, key, "u1", "e1", WriteRequest{Config: map[string]any{"a": float64(1)}, UpsertCondition: cond})
	storeErr, ok := err.(*Error)
	if !ok || storeErr.Kind != FailedPrecondition {
		t.Fatalf("expected FailedPrecondition, got %v", err)
	}
}

// S3: getAllConfigs latest-per-context + creation-desc ordering.
func TestGetAllConfigs_LatestPerContextCreationDesc(t *testing.T) {
	store := New(docstoretest.New(), ticker(time.UnixMilli(1000), time.Second))
	ctx := context.Background()
	resource := configdoc.ConfigResource{TenantID: "t1", ResourceNamespace: "alerting", ResourceName: "alerting-config"}

	if _, err := store.WriteConfig(ctx, rc("t1", "alerting", "alerting-config", "A"), "u", "e", WriteRequest{Config: map[string]any{"v": float64(1)}}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.WriteConfig(ctx, rc("t1", "alerting", "alerting-config", "B"), "u", "e", WriteRequest{Config: map[string]any{"v": float64(1)}}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.WriteConfig(ctx, rc("t1", "alerting", "alerting-config", "A"), "u", "e", WriteRequest{Config: map[string]any{"v": float64(2)}}); err != nil {
		t.Fatal(err)
	}

	all, err := store.GetAllConfigs(ctx, resource)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 contexts, got %d", len(all))
	}
	if all[0].Context != "B" || all[1].Context != "A" {
		t.Fatalf("expected [B, A] order, got [%s, %s]", all[0].Context, all[1].Context)
	}
}

// S4: bulk write preserves input order.
func TestWriteAllConfigs_PreservesOrder(t *testing.T) {
	store := New(docstoretest.New(), ticker(time.UnixMilli(1000), time.Second))
	ctx := context.Background()

	inputs := []WriteAllInput{
		{ResourceContext: rc("t1", "alerting", "alerting-config", "C"), Config: map[string]any{"v": float64(1)}},
		{ResourceContext: rc("t1", "alerting", "alerting-config", "A"), Config: map[string]any{"v": float64(1)}},
		{ResourceContext: rc("t1", "alerting", "alerting-config", "B"), Config: map[string]any{"v": float64(1)}},
	}
	results, err := store.WriteAllConfigs(ctx, inputs, "u", "e")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 || results[0].Context != "C" || results[1].Context != "A" || results[2].Context != "B" {
		t.Fatalf("unexpected order: %+v", results)
	}
}

// Property 2: GetContextConfigs rejects mixed-tenant input.
func TestGetContextConfigs_MixedTenantRejected(t *testing.T) {
	store := New(docstoretest.New(), ticker(time.UnixMilli(1000), time.Second))
	ctx := context.Background()

	_, err := store.GetContextConfigs(ctx, []configdoc.ConfigResourceContext{
		rc("t1", "alerting", "alerting-config", "A"),
		rc("t2", "alerting", "alerting-config", "B"),
	})
	storeErr, ok := err.(*Error)
	if !ok || storeErr.Kind != Internal {
		t.Fatalf("expected Internal error for mixed tenant, got %v", err)
	}
}

// S5: delete + recreate resets version.
func TestDeleteConfigs_ThenRecreateResetsVersion(t *testing.T) {
	store := New(docstoretest.New(), ticker(time.UnixMilli(1000), time.Second))
	ctx := context.Background()
	key := rc("t1", "alerting", "alerting-config", "default")
	resource := configdoc.ConfigResource{TenantID: "t1", ResourceNamespace: "alerting", ResourceName: "alerting-config"}

	if _, err := store.WriteConfig(ctx, key, "u", "e", WriteRequest{Config: map[string]any{"a": float64(1)}}); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteConfigs(ctx, []configdoc.ConfigResourceContext{key}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	all, err := store.GetAllConfigs(ctx, resource)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Fatalf("expected no configs after delete, got %+v", all)
	}

	result, err := store.WriteConfig(ctx, key, "u", "e", WriteRequest{Config: map[string]any{"a": float64(9)}})
	if err != nil {
		t.Fatalf("unexpected error recreating: %v", err)
	}
	if result.HasPrevConfig {
		t.Fatal("expected fresh creation after delete, got prev config")
	}
	doc, err := store.latestDoc(ctx, key)
	if err != nil || doc == nil || doc.Version != 1 {
		t.Fatalf("expected version 1 after recreate, got doc=%+v err=%v", doc, err)
	}
}

func TestDeleteConfigs_EmptyInputIsNoop(t *testing.T) {
	store := New(docstoretest.New(), nil)
	if err := store.DeleteConfigs(context.Background(), nil); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestHealthCheck_DelegatesToAdapter(t *testing.T) {
	adapter := docstoretest.New()
	store := New(adapter, nil)
	if !store.HealthCheck(context.Background()) {
		t.Fatal("expected healthy")
	}
	adapter.Healthy = false
	if store.HealthCheck(context.Background()) {
		t.Fatal("expected unhealthy")
	}
}
