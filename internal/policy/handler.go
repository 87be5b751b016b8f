package policy

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/crashwatch/internal/core/domain"
	"github.com/vietddude/crashwatch/internal/identity"
	"github.com/vietddude/crashwatch/internal/metrics"
	"github.com/vietddude/crashwatch/internal/notify"
	"github.com/vietddude/crashwatch/internal/tombstone"
)

// Settings exposes the global user-configurable toggles read by the policy.
type Settings interface {
	ShowSystemProcessCrashNotifications() bool
}

// SuppressionStore reads the per-package advisory suppression flag. Backed
// by external package state; never written by this pipeline.
type SuppressionStore interface {
	AdvisorySuppressed(packageName string, kind domain.AdvisoryKind) bool
}

// Journal persists processed-report records. Optional; a failed write is
// logged and never changes the policy outcome.
type Journal interface {
	Record(ctx context.Context, rec *domain.CrashRecord) error
}

// Handler runs the suppression/dedup state machine over incoming reports.
// Each report is processed independently; reports from the file and queue
// sources may interleave freely.
type Handler struct {
	resolver     identity.Resolver
	suppressions SuppressionStore
	settings     Settings
	notifier     notify.Notifier
	journal      Journal
	skips        *SkipCache
	mteSupported bool
	log          *slog.Logger
}

// HandlerConfig collects the handler's collaborators.
type HandlerConfig struct {
	Resolver     identity.Resolver
	Suppressions SuppressionStore
	Settings     Settings
	Notifier     notify.Notifier
	Journal      Journal    // optional
	Skips        *SkipCache // optional
	// MemoryTaggingSupported mirrors the host's hardware tagging capability.
	MemoryTaggingSupported bool
	Logger                 *slog.Logger
}

// NewHandler creates the policy handler.
func NewHandler(cfg HandlerConfig) *Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	skips := cfg.Skips
	if skips == nil {
		skips = NewSkipCache(0)
	}
	return &Handler{
		resolver:     cfg.Resolver,
		suppressions: cfg.Suppressions,
		settings:     cfg.Settings,
		notifier:     cfg.Notifier,
		journal:      cfg.Journal,
		skips:        skips,
		mteSupported: cfg.MemoryTaggingSupported,
		log:          log,
	}
}

// SkipAdvisories marks advisory kinds to be withheld for a package during
// this session. Called by the host's package-state surface.
func (h *Handler) SkipAdvisories(uid int, packageName string, kinds ...domain.AdvisoryKind) {
	h.skips.Skip(domain.UserID(uid), packageName, kinds...)
}

// HandleReport is the single entry point for both event sources. It is total:
// every failure from decode through presentation is converted into a logged
// drop. This runs inside a long-lived privileged process, so availability
// dominates completeness.
func (h *Handler) HandleReport(ctx context.Context, raw *domain.RawReport) {
	// catch everything to reduce the chance of getting into a crash loop
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("tombstone handling panicked", "panic", r)
			metrics.ReportsDroppedTotal.WithLabelValues("panic").Inc()
		}
	}()

	metrics.ReportsTotal.WithLabelValues(string(raw.Origin)).Inc()

	t, err := tombstone.Decode(raw.Bytes)
	if err != nil {
		metrics.DecodeErrorsTotal.Inc()
		h.log.Error("failed to decode tombstone", "error", err, "origin", raw.Origin)
		return
	}

	h.process(ctx, t, raw)
}

func (h *Handler) process(ctx context.Context, t *domain.Tombstone, raw *domain.RawReport) {
	report := tombstone.Render(t, h.mteSupported)
	progName := t.ProgramName()
	packageName := ""

	shouldSkip := false

	if domain.IsApplicationUID(t.UID) || domain.IsIsolatedUID(t.UID) {
		id, err := h.resolver.ResolveOwner(t.UID, t.PID)
		if err != nil {
			h.log.Debug("no owning package", "uid", t.UID, "pid", t.PID, "error", err)
			metrics.ReportsDroppedTotal.WithLabelValues("no_identity").Inc()
			h.record(ctx, t, raw, progName, "", "", domain.OutcomeDropped, report)
			return
		}

		if !id.System {
			outcome := domain.OutcomeHandedOff
			var kind domain.AdvisoryKind
			if !raw.Historical() {
				if tombstone.IsMemoryTagFault(t, h.mteSupported) {
					kind = domain.AdvisoryMemoryTagging
				} else if tombstone.IsHardenedMallocFault(t) {
					kind = domain.AdvisoryHardenedMalloc
				}
				if kind != "" {
					outcome = h.showAdvisory(ctx, kind, id, report, raw)
				}
			}
			// the standard crash surface owns non-system app crashes
			h.record(ctx, t, raw, progName, id.PackageName, kind, outcome, report)
			return
		}

		progName = id.PackageName
		packageName = id.PackageName
	} else {
		switch progName {
		// bootanimation intentionally crashes in some cases
		case "bootanimation":
			shouldSkip = true
		}
	}

	var attachReport bool

	if progName == "system_server" {
		attachReport = true
	} else {
		ignoreSetting := !raw.Historical() && tombstone.IsMemoryTagFault(t, h.mteSupported)
		attachReport = ignoreSetting && !shouldSkip

		if shouldSkip || (!ignoreSetting && !h.settings.ShowSystemProcessCrashNotifications()) {
			h.log.Debug("skipped crash notification", "program", progName)
			metrics.ReportsDroppedTotal.WithLabelValues("setting").Inc()
			h.record(ctx, t, raw, progName, packageName, "", domain.OutcomeSkipped, report)
			return
		}
	}

	if err := h.notifier.ShowCrash(ctx, progName, report, raw.Timestamp, attachReport); err != nil {
		// fire-and-forget: no retry
		h.log.Warn("crash notification rejected", "program", progName, "error", err)
	}
	metrics.NotificationsTotal.WithLabelValues("crash").Inc()
	h.record(ctx, t, raw, progName, packageName, "", domain.OutcomeNotification, report)
}

// showAdvisory raises the app-specific advisory unless it is withheld.
// Memory-tagging advisories honor the per-package suppression flag; hardened
// allocator advisories are not individually suppressible.
func (h *Handler) showAdvisory(ctx context.Context, kind domain.AdvisoryKind, id domain.OwnerIdentity, report string, raw *domain.RawReport) domain.Outcome {
	if kind == domain.AdvisoryMemoryTagging && h.suppressions.AdvisorySuppressed(id.PackageName, kind) {
		h.log.Debug("advisory suppressed by package flag", "package", id.PackageName, "kind", kind)
		metrics.ReportsDroppedTotal.WithLabelValues("suppressed").Inc()
		return domain.OutcomeSuppressed
	}
	if h.skips.Skipped(domain.UserID(id.UID), id.PackageName, kind) {
		h.log.Debug("advisory skipped for session", "package", id.PackageName, "kind", kind)
		metrics.ReportsDroppedTotal.WithLabelValues("suppressed").Inc()
		return domain.OutcomeSuppressed
	}

	if err := h.notifier.ShowAdvisory(ctx, kind, id.PackageName, id.UID, report, raw.Timestamp); err != nil {
		h.log.Warn("advisory notification rejected", "package", id.PackageName, "kind", kind, "error", err)
	}
	metrics.NotificationsTotal.WithLabelValues(string(kind)).Inc()
	return domain.OutcomeAdvisory
}

func (h *Handler) record(ctx context.Context, t *domain.Tombstone, raw *domain.RawReport, progName, packageName string, kind domain.AdvisoryKind, outcome domain.Outcome, report string) {
	if h.journal == nil {
		return
	}
	rec := &domain.CrashRecord{
		ID:          uuid.NewString(),
		ProgramName: progName,
		PackageName: packageName,
		UID:         t.UID,
		PID:         t.PID,
		Origin:      raw.Origin,
		Kind:        kind,
		Outcome:     outcome,
		Report:      report,
		Timestamp:   raw.Timestamp,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.journal.Record(ctx, rec); err != nil {
		metrics.JournalErrorsTotal.Inc()
		h.log.Warn("failed to journal crash record", "program", progName, "error", err)
	}
}
