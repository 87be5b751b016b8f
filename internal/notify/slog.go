package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/crashwatch/internal/core/domain"
)

// LogNotifier writes notifications to the structured log. It is the default
// presentation sink when no external notification service is wired in.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

// ShowCrash implements Notifier.
func (n *LogNotifier) ShowCrash(ctx context.Context, programName, report string, crashedAt time.Time, attachReport bool) error {
	n.log.Info("system process crash",
		"program", programName,
		"crashed_at", crashedAt,
		"attach_report", attachReport,
		"report", report,
	)
	return nil
}

// ShowAdvisory implements Notifier.
func (n *LogNotifier) ShowAdvisory(ctx context.Context, kind domain.AdvisoryKind, packageName string, uid int, report string, crashedAt time.Time) error {
	n.log.Info("app crash advisory",
		"kind", kind,
		"package", packageName,
		"uid", uid,
		"crashed_at", crashedAt,
		"report", report,
	)
	return nil
}
