package domain

import "time"

// AdvisoryKind identifies an app-specific crash advisory.
type AdvisoryKind string

const (
	AdvisoryMemoryTagging  AdvisoryKind = "memtag"
	AdvisoryHardenedMalloc AdvisoryKind = "hardened_malloc"
)

// Outcome is the terminal result of processing one report.
type Outcome string

const (
	OutcomeDropped      Outcome = "dropped"       // no identity, decode failure
	OutcomeSkipped      Outcome = "skipped"       // gated off by policy or setting
	OutcomeHandedOff    Outcome = "handed_off"    // left to the standard crash surface
	OutcomeAdvisory     Outcome = "advisory"      // app-specific advisory shown
	OutcomeSuppressed   Outcome = "suppressed"    // advisory withheld by package flag
	OutcomeNotification Outcome = "notification"  // primary crash notification shown
)

// CrashRecord is the journal entry persisted for a processed report.
type CrashRecord struct {
	ID          string       `db:"id"`
	ProgramName string       `db:"program_name"`
	PackageName string       `db:"package_name"`
	UID         int          `db:"uid"`
	PID         int          `db:"pid"`
	Origin      Origin       `db:"origin"`
	Kind        AdvisoryKind `db:"kind"`
	Outcome     Outcome      `db:"outcome"`
	Report      string       `db:"report"`
	Timestamp   time.Time    `db:"crashed_at"`
	CreatedAt   time.Time    `db:"created_at"`
}
