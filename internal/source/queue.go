package source

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vietddude/crashwatch/internal/core/domain"
	"github.com/vietddude/crashwatch/internal/metrics"
	"github.com/vietddude/crashwatch/internal/tombstone"
)

// QueueSource drains historical report entries from a queue. Each entry is a
// tombstone-with-headers record; the tombstone sub-field is extracted and the
// rest of the envelope skipped.
type QueueSource struct {
	popper  QueuePopper
	handler Handler
	log     *slog.Logger
	block   time.Duration
}

// NewQueueSource creates a queue-drain source.
func NewQueueSource(popper QueuePopper, handler Handler, log *slog.Logger) *QueueSource {
	if log == nil {
		log = slog.Default()
	}
	return &QueueSource{
		popper:  popper,
		handler: handler,
		log:     log,
		block:   5 * time.Second,
	}
}

// Run drains the queue until ctx is canceled.
func (s *QueueSource) Run(ctx context.Context) {
	for {
		entry, ok, err := s.popper.PopEntry(ctx, s.block)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			s.log.Warn("failed to pop queue entry", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.block):
			}
			continue
		}
		if !ok {
			select {
			case <-ctx.Done():
				return
			default:
			}
			continue
		}
		s.HandleEntry(ctx, entry)
	}
}

// HandleEntry processes one queue entry as a historical report. Entries
// without an embedded tombstone are logged and dropped.
func (s *QueueSource) HandleEntry(ctx context.Context, entry QueueEntry) {
	metrics.QueueEntriesTotal.Inc()

	data, ok, err := tombstone.ExtractFromEnvelope(entry.Payload)
	if err != nil {
		s.log.Error("malformed queue entry", "error", err)
		return
	}
	if !ok {
		s.log.Debug("queue entry carries no tombstone")
		return
	}

	s.handler.HandleReport(ctx, &domain.RawReport{
		Bytes:     data,
		Origin:    domain.OriginHistorical,
		Timestamp: entry.Timestamp,
	})
}
