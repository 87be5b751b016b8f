package source

import (
	"context"
	"time"

	"github.com/vietddude/crashwatch/internal/core/domain"
)

// Handler consumes raw reports. Implemented by the policy handler.
type Handler interface {
	HandleReport(ctx context.Context, raw *domain.RawReport)
}

// QueueEntry is one drained entry from the historical report queue.
type QueueEntry struct {
	Payload   []byte
	Timestamp time.Time
}

// QueuePopper pops the next queue entry, blocking up to timeout.
// ok is false when the queue is empty. Implemented by the redis client.
type QueuePopper interface {
	PopEntry(ctx context.Context, timeout time.Duration) (entry QueueEntry, ok bool, err error)
}
