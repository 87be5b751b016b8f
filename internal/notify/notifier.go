package notify

import (
	"context"
	"time"

	"github.com/vietddude/crashwatch/internal/core/domain"
)

// Notifier is the outbound presentation boundary. Calls are fire-and-forget:
// a rejected notification is logged by the caller and never retried.
type Notifier interface {
	// ShowCrash raises the primary crash notification for a system process.
	ShowCrash(ctx context.Context, programName, report string, crashedAt time.Time, attachReport bool) error

	// ShowAdvisory raises an app-specific advisory of the given kind.
	ShowAdvisory(ctx context.Context, kind domain.AdvisoryKind, packageName string, uid int, report string, crashedAt time.Time) error
}
