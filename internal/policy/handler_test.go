package policy

import (
	"context"
	"testing"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/vietddude/crashwatch/internal/core/domain"
	"github.com/vietddude/crashwatch/internal/identity"
)

type crashCall struct {
	program string
	attach  bool
}

type advisoryCall struct {
	kind domain.AdvisoryKind
	pkg  string
	uid  int
}

type fakeNotifier struct {
	crashes    []crashCall
	advisories []advisoryCall
	err        error
}

func (n *fakeNotifier) ShowCrash(ctx context.Context, programName, report string, crashedAt time.Time, attachReport bool) error {
	n.crashes = append(n.crashes, crashCall{program: programName, attach: attachReport})
	return n.err
}

func (n *fakeNotifier) ShowAdvisory(ctx context.Context, kind domain.AdvisoryKind, packageName string, uid int, report string, crashedAt time.Time) error {
	n.advisories = append(n.advisories, advisoryCall{kind: kind, pkg: packageName, uid: uid})
	return n.err
}

type fakeSettings bool

func (s fakeSettings) ShowSystemProcessCrashNotifications() bool { return bool(s) }

type fakeJournal struct {
	records []*domain.CrashRecord
}

func (j *fakeJournal) Record(ctx context.Context, rec *domain.CrashRecord) error {
	j.records = append(j.records, rec)
	return nil
}

// minimal wire encoder mirroring the upstream field numbers
func encodeWire(uid, pid, tid int, cmdline []string, abortMsg string, sig *domain.Signal) []byte {
	appendStr := func(b []byte, num protowire.Number, s string) []byte {
		b = protowire.AppendTag(b, num, protowire.BytesType)
		return protowire.AppendString(b, s)
	}
	appendVarint := func(b []byte, num protowire.Number, v uint64) []byte {
		b = protowire.AppendTag(b, num, protowire.VarintType)
		return protowire.AppendVarint(b, v)
	}

	var b []byte
	b = appendStr(b, 2, "test/fingerprint")
	b = appendVarint(b, 5, uint64(uint32(pid)))
	b = appendVarint(b, 6, uint64(uint32(tid)))
	b = appendVarint(b, 7, uint64(uint32(uid)))
	for _, arg := range cmdline {
		b = appendStr(b, 9, arg)
	}
	if sig != nil {
		var sb []byte
		sb = appendVarint(sb, 1, uint64(uint32(sig.Number)))
		sb = appendStr(sb, 2, sig.Name)
		sb = appendVarint(sb, 3, uint64(uint32(sig.Code)))
		sb = appendStr(sb, 4, sig.CodeName)
		b = protowire.AppendTag(b, 10, protowire.BytesType)
		b = protowire.AppendBytes(b, sb)
	}
	if abortMsg != "" {
		b = appendStr(b, 14, abortMsg)
	}
	return b
}

func mteSignal() *domain.Signal {
	return &domain.Signal{Number: 11, Name: "SIGSEGV", Code: 8, CodeName: "SEGV_MTEAERR"}
}

func plainSignal() *domain.Signal {
	return &domain.Signal{Number: 6, Name: "SIGABRT", Code: 0, CodeName: "SI_USER"}
}

func liveReport(data []byte) *domain.RawReport {
	return &domain.RawReport{Bytes: data, Origin: domain.OriginLive, Timestamp: time.Now()}
}

func historicalReport(data []byte) *domain.RawReport {
	return &domain.RawReport{Bytes: data, Origin: domain.OriginHistorical, Timestamp: time.Now()}
}

type handlerEnv struct {
	registry *identity.MemoryRegistry
	notifier *fakeNotifier
	journal  *fakeJournal
	handler  *Handler
}

func newHandlerEnv(showSystemCrashes, mteSupported bool) *handlerEnv {
	env := &handlerEnv{
		registry: identity.NewMemoryRegistry(),
		notifier: &fakeNotifier{},
		journal:  &fakeJournal{},
	}
	env.handler = NewHandler(HandlerConfig{
		Resolver:               identity.NewResolver(env.registry, env.registry),
		Suppressions:           env.registry,
		Settings:               fakeSettings(showSystemCrashes),
		Notifier:               env.notifier,
		Journal:                env.journal,
		MemoryTaggingSupported: mteSupported,
	})
	return env
}

func TestHandler_LiveAppMemtagFaultRaisesAdvisory(t *testing.T) {
	env := newHandlerEnv(true, true)
	env.registry.AddPackage(identity.Package{Name: "com.example.app", AppID: 10234})

	data := encodeWire(10234, 100, 100, []string{"/system/bin/app_process"}, "", mteSignal())
	env.handler.HandleReport(context.Background(), liveReport(data))

	if len(env.notifier.advisories) != 1 {
		t.Fatalf("advisories = %d, want 1", len(env.notifier.advisories))
	}
	adv := env.notifier.advisories[0]
	if adv.kind != domain.AdvisoryMemoryTagging || adv.pkg != "com.example.app" || adv.uid != 10234 {
		t.Errorf("advisory = %+v", adv)
	}
	if len(env.notifier.crashes) != 0 {
		t.Error("primary report fired for an untrusted app crash")
	}
}

func TestHandler_SuppressionFlagBlocksMemtagAdvisory(t *testing.T) {
	env := newHandlerEnv(true, true)
	env.registry.AddPackage(identity.Package{Name: "com.example.app", AppID: 10234})
	env.registry.SetAdvisorySuppressed("com.example.app", domain.AdvisoryMemoryTagging, true)

	data := encodeWire(10234, 100, 100, []string{"/system/bin/app_process"}, "", mteSignal())
	env.handler.HandleReport(context.Background(), liveReport(data))

	if len(env.notifier.advisories) != 0 {
		t.Error("suppressed advisory fired")
	}
	if len(env.notifier.crashes) != 0 {
		t.Error("primary report fired")
	}
	if len(env.journal.records) != 1 || env.journal.records[0].Outcome != domain.OutcomeSuppressed {
		t.Errorf("journal = %+v", env.journal.records)
	}
}

func TestHandler_HardenedMallocAdvisoryNotSuppressible(t *testing.T) {
	env := newHandlerEnv(true, true)
	env.registry.AddPackage(identity.Package{Name: "com.example.app", AppID: 10234})
	// only memtag advisories honor the per-package flag
	env.registry.SetAdvisorySuppressed("com.example.app", domain.AdvisoryMemoryTagging, true)
	env.registry.SetAdvisorySuppressed("com.example.app", domain.AdvisoryHardenedMalloc, true)

	data := encodeWire(10234, 100, 100, []string{"/system/bin/app_process"},
		"hardened_malloc: fatal allocator error: double free", nil)
	env.handler.HandleReport(context.Background(), liveReport(data))

	if len(env.notifier.advisories) != 1 {
		t.Fatalf("advisories = %d, want 1", len(env.notifier.advisories))
	}
	if env.notifier.advisories[0].kind != domain.AdvisoryHardenedMalloc {
		t.Errorf("kind = %v", env.notifier.advisories[0].kind)
	}
}

func TestHandler_HistoricalAppFaultGetsNoAdvisory(t *testing.T) {
	env := newHandlerEnv(true, true)
	env.registry.AddPackage(identity.Package{Name: "com.example.app", AppID: 10234})

	data := encodeWire(10234, 100, 100, []string{"/system/bin/app_process"}, "", mteSignal())
	env.handler.HandleReport(context.Background(), historicalReport(data))

	if len(env.notifier.advisories) != 0 || len(env.notifier.crashes) != 0 {
		t.Error("historical app crash produced a notification")
	}
	if len(env.journal.records) != 1 || env.journal.records[0].Outcome != domain.OutcomeHandedOff {
		t.Errorf("journal = %+v", env.journal.records)
	}
}

func TestHandler_SystemServerAlwaysSurfacedWithAttachment(t *testing.T) {
	env := newHandlerEnv(false, false) // global setting disabled
	data := encodeWire(1000, 1, 1, []string{"/system/bin/system_server"}, "", plainSignal())
	env.handler.HandleReport(context.Background(), liveReport(data))

	if len(env.notifier.crashes) != 1 {
		t.Fatalf("crashes = %d, want 1", len(env.notifier.crashes))
	}
	call := env.notifier.crashes[0]
	if call.program != "system_server" || !call.attach {
		t.Errorf("crash call = %+v", call)
	}
}

func TestHandler_HistoricalMemtagNeverBypassesSetting(t *testing.T) {
	env := newHandlerEnv(false, true)
	env.registry.AddPackage(identity.Package{Name: "com.android.sysapp", AppID: 10234, System: true})

	data := encodeWire(10234, 100, 100, []string{"/system/bin/app_process"}, "", mteSignal())
	env.handler.HandleReport(context.Background(), historicalReport(data))

	if len(env.notifier.crashes) != 0 {
		t.Error("historical memory-tag fault bypassed the disabled setting")
	}
	if len(env.journal.records) != 1 || env.journal.records[0].Outcome != domain.OutcomeSkipped {
		t.Errorf("journal = %+v", env.journal.records)
	}
}

func TestHandler_LiveMemtagBypassesSettingForSystemPackage(t *testing.T) {
	env := newHandlerEnv(false, true)
	env.registry.AddPackage(identity.Package{Name: "com.android.sysapp", AppID: 10234, System: true})

	data := encodeWire(10234, 100, 100, []string{"/system/bin/app_process"}, "", mteSignal())
	env.handler.HandleReport(context.Background(), liveReport(data))

	if len(env.notifier.crashes) != 1 {
		t.Fatalf("crashes = %d, want 1", len(env.notifier.crashes))
	}
	call := env.notifier.crashes[0]
	if call.program != "com.android.sysapp" || !call.attach {
		t.Errorf("crash call = %+v", call)
	}
}

func TestHandler_BootanimationSkippedEvenWithSettingEnabled(t *testing.T) {
	env := newHandlerEnv(true, true)

	data := encodeWire(1003, 50, 50, []string{"/system/bin/bootanimation"}, "", plainSignal())
	env.handler.HandleReport(context.Background(), historicalReport(data))

	if len(env.notifier.crashes) != 0 {
		t.Error("bootanimation crash surfaced")
	}
	if len(env.journal.records) != 1 || env.journal.records[0].Outcome != domain.OutcomeSkipped {
		t.Errorf("journal = %+v", env.journal.records)
	}
}

func TestHandler_PlatformCrashGatedByGlobalSetting(t *testing.T) {
	data := encodeWire(1001, 60, 60, []string{"/system/bin/netd"}, "", plainSignal())

	enabled := newHandlerEnv(true, false)
	enabled.handler.HandleReport(context.Background(), liveReport(data))
	if len(enabled.notifier.crashes) != 1 {
		t.Fatalf("crashes = %d, want 1 with setting enabled", len(enabled.notifier.crashes))
	}
	if enabled.notifier.crashes[0].attach {
		t.Error("attachment enabled for an ordinary platform crash")
	}

	disabled := newHandlerEnv(false, false)
	disabled.handler.HandleReport(context.Background(), liveReport(data))
	if len(disabled.notifier.crashes) != 0 {
		t.Error("crash surfaced with setting disabled")
	}
}

func TestHandler_AmbiguousAppIDDropsReport(t *testing.T) {
	env := newHandlerEnv(true, true)
	env.registry.AddPackage(identity.Package{Name: "com.example.one", AppID: 10234})
	env.registry.AddPackage(identity.Package{Name: "com.example.two", AppID: 10234})

	data := encodeWire(10234, 100, 100, []string{"/system/bin/app_process"}, "", mteSignal())
	env.handler.HandleReport(context.Background(), liveReport(data))

	if len(env.notifier.advisories) != 0 || len(env.notifier.crashes) != 0 {
		t.Error("ambiguous resolution produced a notification")
	}
	if len(env.journal.records) != 1 || env.journal.records[0].Outcome != domain.OutcomeDropped {
		t.Errorf("journal = %+v", env.journal.records)
	}
}

func TestHandler_MalformedReportDroppedQuietly(t *testing.T) {
	env := newHandlerEnv(true, true)

	env.handler.HandleReport(context.Background(), liveReport([]byte{0xff, 0xff, 0xff}))

	if len(env.notifier.advisories) != 0 || len(env.notifier.crashes) != 0 {
		t.Error("malformed report produced a notification")
	}
	if len(env.journal.records) != 0 {
		t.Error("malformed report journaled")
	}
}

func TestHandler_SessionSkipWithholdsAdvisory(t *testing.T) {
	env := newHandlerEnv(true, true)
	env.registry.AddPackage(identity.Package{Name: "com.example.app", AppID: 10234})

	env.handler.SkipAdvisories(10234, "com.example.app", domain.AdvisoryMemoryTagging)

	data := encodeWire(10234, 100, 100, []string{"/system/bin/app_process"}, "", mteSignal())
	env.handler.HandleReport(context.Background(), liveReport(data))

	if len(env.notifier.advisories) != 0 {
		t.Error("session-skipped advisory fired")
	}
}

func TestHandler_NotifierRejectionIsFireAndForget(t *testing.T) {
	env := newHandlerEnv(true, false)
	env.notifier.err = context.DeadlineExceeded

	data := encodeWire(1001, 60, 60, []string{"/system/bin/netd"}, "", plainSignal())
	env.handler.HandleReport(context.Background(), liveReport(data))

	// the outcome is still recorded; no retry, no failure propagation
	if len(env.journal.records) != 1 || env.journal.records[0].Outcome != domain.OutcomeNotification {
		t.Errorf("journal = %+v", env.journal.records)
	}
}
