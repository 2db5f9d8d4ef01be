package backup

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hypertrace/config-service-go/internal/docstore/docstoretest"
)

type mockDestination struct {
	writes atomic.Int64
	last   atomic.Value // string: last key written
}

func (d *mockDestination) Write(_ context.Context, key string, data []byte) error {
	d.writes.Add(1)
	d.last.Store(key)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedulerStartStop(t *testing.T) {
	dest := &mockDestination{}
	adapter := docstoretest.New()

	sched := NewScheduler(adapter, []Destination{dest}, time.Hour, func() time.Time { return time.Unix(0, 0) }, testLogger())

	sched.Start()
	sched.Stop()

	if dest.writes.Load() != 1 {
		t.Fatalf("expected exactly 1 export on start, got %d", dest.writes.Load())
	}
}

func TestSchedulerStop_NoStart(t *testing.T) {
	dest := &mockDestination{}
	adapter := docstoretest.New()
	sched := NewScheduler(adapter, []Destination{dest}, time.Hour, nil, testLogger())

	sched.Stop()

	if dest.writes.Load() != 0 {
		t.Fatalf("expected no export without Start, got %d", dest.writes.Load())
	}
}

func TestSchedulerMultipleDestinations(t *testing.T) {
	destA := &mockDestination{}
	destB := &mockDestination{}
	adapter := docstoretest.New()
	sched := NewScheduler(adapter, []Destination{destA, destB}, time.Hour, func() time.Time { return time.Unix(0, 0) }, testLogger())

	sched.Start()
	sched.Stop()

	if destA.writes.Load() != 1 || destB.writes.Load() != 1 {
		t.Fatalf("expected both destinations written once, got a=%d b=%d", destA.writes.Load(), destB.writes.Load())
	}
	if destA.last.Load() != destB.last.Load() {
		t.Fatalf("expected both destinations to see the same snapshot key")
	}
}

func TestSchedulerRunsOnTick(t *testing.T) {
	dest := &mockDestination{}
	adapter := docstoretest.New()

	var mu sync.Mutex
	calls := 0
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return time.Unix(int64(calls), 0)
	}

	sched := NewScheduler(adapter, []Destination{dest}, 10*time.Millisecond, clock, testLogger())
	sched.Start()
	time.Sleep(55 * time.Millisecond)
	sched.Stop()

	if dest.writes.Load() < 2 {
		t.Fatalf("expected at least 2 exports (initial + at least one tick), got %d", dest.writes.Load())
	}
}
