// Package objectstore implements a typed view over the versioned
// configuration store, parameterized by a capability bundle instead of
// an abstract base class.
package objectstore

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/hypertrace/config-service-go/internal/configdoc"
	"github.com/hypertrace/config-service-go/internal/configstore"
	"github.com/hypertrace/config-service-go/internal/events"
)

// Capabilities is the small set of pure functions the overlay needs to
// translate between a typed object T and the opaque configdoc.Value the
// versioned store persists, plus an optional caller-supplied post-filter
// F. Replaces inheritance with a bundle of template methods passed as a
// value.
type Capabilities[T, F any] struct {
	// Decode converts a stored value back to T. ok=false signals a value
	// this capability set cannot interpret; the caller swallows this to
	// "empty" on read rather than failing the whole operation.
	Decode func(configdoc.Value) (T, bool)

	// Encode converts T to the opaque value persisted by the store.
	// Encode errors are fatal to the write.
	Encode func(T) (configdoc.Value, error)

	// IDOf returns the identity used as the document context.
	IDOf func(T) string

	// Filter reports whether obj survives the caller-supplied filter f.
	// A nil Filter always matches.
	Filter func(obj T, f F) bool
}

// Store is the overlay itself: a versioned-store client plus event sink,
// scoped to one resource namespace/name and composed with a capability
// bundle. It owns no state beyond these references and a counter of
// swallowed decode failures.
type Store[T, F any] struct {
	inner       *configstore.Store
	sink        events.Sink
	caps        Capabilities[T, F]
	resource    configdoc.ConfigResource
	decodeFails atomic.Int64
}

// New constructs a typed overlay Store over an existing versioned store,
// scoped to resource.
func New[T, F any](inner *configstore.Store, sink events.Sink, resource configdoc.ConfigResource, caps Capabilities[T, F]) *Store[T, F] {
	if sink == nil {
		sink = events.NoopSink{}
	}
	return &Store[T, F]{inner: inner, sink: sink, caps: caps, resource: resource}
}

// DecodeFailures reports how many read-path decode failures have been
// swallowed to "absent" so far, making the swallow-on-read behavior
// observable without changing it.
func (s *Store[T, F]) DecodeFailures() int64 {
	return s.decodeFails.Load()
}

func (s *Store[T, F]) resourceContext(id string) configdoc.ConfigResourceContext {
	return configdoc.ConfigResourceContext{ConfigResource: s.resource, Context: id}
}

// Upsert reads the current value for obj's identity (if any), writes the
// new version, and emits CREATED or UPDATED after successful persistence.
func (s *Store[T, F]) Upsert(ctx context.Context, userID, userEmail string, obj T) error {
	id := s.caps.IDOf(obj)
	value, err := s.caps.Encode(obj)
	if err != nil {
		return fmt.Errorf("objectstore: encode %q: %w", id, err)
	}

	rc := s.resourceContext(id)
	prevObj, hadPrev := s.Get(ctx, id)

	if _, err := s.inner.WriteConfig(ctx, rc, userID, userEmail, configstore.WriteRequest{Config: value}); err != nil {
		return err
	}

	if hadPrev {
		s.sink.Emit(ctx, events.UPDATED, s.resource.TenantID, s.resource.ResourceName, id, prevObj, obj)
	} else {
		s.sink.Emit(ctx, events.CREATED, s.resource.TenantID, s.resource.ResourceName, id, nil, obj)
	}
	return nil
}

// UpsertAll is the bulk variant of Upsert: events are emitted per element
// only after the whole batch persists.
func (s *Store[T, F]) UpsertAll(ctx context.Context, userID, userEmail string, objs []T) error {
	if len(objs) == 0 {
		return nil
	}

	ids := make([]string, len(objs))
	prevObjs := make([]T, len(objs))
	hadPrev := make([]bool, len(objs))
	inputs := make([]configstore.WriteAllInput, len(objs))

	for i, obj := range objs {
		id := s.caps.IDOf(obj)
		ids[i] = id
		value, err := s.caps.Encode(obj)
		if err != nil {
			return fmt.Errorf("objectstore: encode %q: %w", id, err)
		}
		prevObjs[i], hadPrev[i] = s.Get(ctx, id)
		inputs[i] = configstore.WriteAllInput{ResourceContext: s.resourceContext(id), Config: value}
	}

	results, err := s.inner.WriteAllConfigs(ctx, inputs, userID, userEmail)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("objectstore: bulk upsert was not persisted atomically")
	}

	for i, obj := range objs {
		if hadPrev[i] {
			s.sink.Emit(ctx, events.UPDATED, s.resource.TenantID, s.resource.ResourceName, ids[i], prevObjs[i], obj)
		} else {
			s.sink.Emit(ctx, events.CREATED, s.resource.TenantID, s.resource.ResourceName, ids[i], nil, obj)
		}
	}
	return nil
}

// Get returns the latest value for context=id, deserialized to T; it
// reports false if absent or if decoding fails.
func (s *Store[T, F]) Get(ctx context.Context, id string) (T, bool) {
	var zero T
	cfg, ok, err := s.inner.GetConfig(ctx, s.resourceContext(id))
	if err != nil || !ok {
		return zero, false
	}
	obj, ok := s.caps.Decode(cfg.Config)
	if !ok {
		s.decodeFails.Add(1)
		return zero, false
	}
	return obj, true
}

// GetAll reads every latest-per-context value for the resource,
// deserializes each (swallowing individual decode failures), applies the
// caller-supplied post-filter, and returns the survivors.
func (s *Store[T, F]) GetAll(ctx context.Context, f F) ([]T, error) {
	cfgs, err := s.inner.GetAllConfigs(ctx, s.resource)
	if err != nil {
		return nil, err
	}

	var out []T
	for _, cfg := range cfgs {
		obj, ok := s.caps.Decode(cfg.Config)
		if !ok {
			s.decodeFails.Add(1)
			continue
		}
		if s.caps.Filter != nil && !s.caps.Filter(obj, f) {
			continue
		}
		out = append(out, obj)
	}
	return out, nil
}

// Delete removes the object and, if it existed, emits DELETED with the
// previous value.
func (s *Store[T, F]) Delete(ctx context.Context, id string) error {
	prevObj, hadPrev := s.Get(ctx, id)
	if err := s.inner.DeleteConfigs(ctx, []configdoc.ConfigResourceContext{s.resourceContext(id)}); err != nil {
		return err
	}
	if hadPrev {
		s.sink.Emit(ctx, events.DELETED, s.resource.TenantID, s.resource.ResourceName, id, prevObj, nil)
	}
	return nil
}

// DeleteAll removes every object currently matching f in the resource
// and emits DELETED for each that existed.
func (s *Store[T, F]) DeleteAll(ctx context.Context, f F) error {
	objs, err := s.GetAll(ctx, f)
	if err != nil {
		return err
	}
	if len(objs) == 0 {
		return nil
	}

	rcs := make([]configdoc.ConfigResourceContext, len(objs))
	for i, obj := range objs {
		rcs[i] = s.resourceContext(s.caps.IDOf(obj))
	}
	if err := s.inner.DeleteConfigs(ctx, rcs); err != nil {
		return err
	}
	for _, obj := range objs {
		s.sink.Emit(ctx, events.DELETED, s.resource.TenantID, s.resource.ResourceName, s.caps.IDOf(obj), obj, nil)
	}
	return nil
}
