package domain

import "strings"

// Tombstone is the decoded form of a process crash report. It is built once
// by the decoder and never mutated afterwards.
type Tombstone struct {
	BuildFingerprint string
	UID              int
	PID              int
	TID              int
	SELinuxLabel     string
	CommandLine      []string
	ProcessUptime    int // seconds
	AbortMessage     string
	Signal           *Signal
	Causes           []Cause
	Threads          map[int]*Thread
}

// Signal describes the fatal signal that terminated the process.
type Signal struct {
	Number          int
	Name            string
	Code            int
	CodeName        string
	HasSender       bool
	SenderUID       int
	HasFaultAddress bool
	FaultAddress    uint64
}

// Cause is a human-readable crash cause line produced by the fault handler.
type Cause struct {
	HumanReadable string
}

// Thread holds the per-thread state captured at crash time. The faulting
// thread is the one whose id matches Tombstone.TID.
type Thread struct {
	ID             int
	Name           string
	TaggedAddrCtrl uint64
	Backtrace      []BacktraceFrame
}

// BacktraceFrame is a single unwound stack frame.
type BacktraceFrame struct {
	RelPC          uint64
	FunctionName   string
	FunctionOffset uint64
	FileName       string
}

// NoProgramName is reported when the crashed process has an empty argv.
const NoProgramName = "//no progName//"

// ProgramName returns the basename of the first argv element.
func (t *Tombstone) ProgramName() string {
	if len(t.CommandLine) == 0 {
		return NoProgramName
	}
	path := t.CommandLine[0]
	return path[strings.LastIndexByte(path, '/')+1:]
}

// FaultingThread returns the thread matching Tombstone.TID, or nil if the
// report carries no entry for it.
func (t *Tombstone) FaultingThread() *Thread {
	return t.Threads[t.TID]
}
