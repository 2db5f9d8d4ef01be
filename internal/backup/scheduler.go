package backup

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hypertrace/config-service-go/internal/docstore"
)

// Destination is a snapshot target (S3, git, etc.). key identifies this
// snapshot within the destination; a git destination may ignore it.
type Destination interface {
	Write(ctx context.Context, key string, data []byte) error
}

// Clock abstracts time.Now for deterministic tests.
type Clock func() time.Time

// Scheduler runs periodic configuration snapshots to one or more
// destinations.
type Scheduler struct {
	adapter      docstore.Adapter
	destinations []Destination
	interval     time.Duration
	clock        Clock
	logger       *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that exports the latest documents from
// adapter to destinations at interval. A nil clock defaults to time.Now.
func NewScheduler(adapter docstore.Adapter, destinations []Destination, interval time.Duration, clock Clock, logger *slog.Logger) *Scheduler {
	if clock == nil {
		clock = time.Now
	}
	return &Scheduler{
		adapter:      adapter,
		destinations: destinations,
		interval:     interval,
		clock:        clock,
		logger:       logger,
	}
}

// Start begins periodic export. It runs an initial export immediately,
// then on each tick.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current export (if any) to
// finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	s.exportOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.exportOnce(ctx)
		}
	}
}

func (s *Scheduler) exportOnce(ctx context.Context) {
	now := s.clock()
	var buf bytes.Buffer
	if err := ExportJSONL(ctx, s.adapter, now, &buf); err != nil {
		s.logger.Error("backup export failed", "error", err)
		return
	}
	data := buf.Bytes()
	key := fmt.Sprintf("%d.jsonl", now.UTC().UnixMilli())

	for i, dest := range s.destinations {
		if err := dest.Write(ctx, key, data); err != nil {
			s.logger.Error("backup destination write failed", "destination", i, "error", err)
		}
	}

	s.logger.Info("backup export completed", "destinations", len(s.destinations), "bytes", len(data))
}
