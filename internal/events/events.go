// Package events implements a fire-and-forget notification of
// configuration writes, gated by the publish.change.events config flag.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Kind is the change kind a ChangeEvent carries.
type Kind string

const (
	CREATED Kind = "CREATED"
	UPDATED Kind = "UPDATED"
	DELETED Kind = "DELETED"
)

// ChangeEvent is the wire shape published for every emitted change.
type ChangeEvent struct {
	Kind         Kind   `json:"kind"`
	TenantID     string `json:"tenantId"`
	ResourceName string `json:"resourceName"`
	ID           string `json:"id"`
	Prev         any    `json:"prev,omitempty"`
	Curr         any    `json:"curr,omitempty"`
	Timestamp    int64  `json:"timestamp"`
}

// Sink publishes change notifications. Emit is fire-and-forget: callers
// never block the user-visible operation on it, and ordering within a
// single (tenant, id) is preserved with respect to the calling goroutine
// but not guaranteed across keys.
type Sink interface {
	Emit(ctx context.Context, kind Kind, tenantID, resourceName, id string, prev, curr any)
}

// Topic is the NATS subject an event kind is published under, scoped by
// tenant and resource so subscribers can use wildcards (e.g.
// "config.<tenant>.<resource>.>").
func Topic(tenantID, resourceName string, kind Kind) string {
	return fmt.Sprintf("config.%s.%s.%s", tenantID, resourceName, kind)
}

// clock is overridden in tests; defaults to time.Now.
var clock = time.Now

// NATSSink publishes ChangeEvents to NATS, logging (never failing) on
// publish errors: event sink errors are logged and swallowed.
type NATSSink struct {
	pub    *NATSPublisher
	logger *slog.Logger
}

// NewNATSSink wraps an existing NATSPublisher.
func NewNATSSink(pub *NATSPublisher, logger *slog.Logger) *NATSSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSSink{pub: pub, logger: logger}
}

func (s *NATSSink) Emit(ctx context.Context, kind Kind, tenantID, resourceName, id string, prev, curr any) {
	evt := ChangeEvent{
		Kind: kind, TenantID: tenantID, ResourceName: resourceName, ID: id,
		Prev: prev, Curr: curr, Timestamp: clock().UnixMilli(),
	}
	if err := s.pub.Publish(ctx, Topic(tenantID, resourceName, kind), evt); err != nil {
		s.logger.Warn("change event publish failed", "kind", kind, "tenant", tenantID, "resource", resourceName, "id", id, "err", err)
	}
}

// NoopSink discards every event. Selected when publish.change.events is
// false.
type NoopSink struct{}

func (NoopSink) Emit(ctx context.Context, kind Kind, tenantID, resourceName, id string, prev, curr any) {}
