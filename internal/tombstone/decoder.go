package tombstone

import (
	"errors"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/vietddude/crashwatch/internal/core/domain"
)

// ErrMalformed is returned for any structurally invalid input: bad tags,
// truncated length-delimited fields, or wire-type mismatches on known fields.
var ErrMalformed = errors.New("malformed tombstone")

// Field numbers of the upstream tombstone wire format. Unknown numbers are
// skipped, never rejected.
const (
	fieldBuildFingerprint = 2
	fieldPID              = 5
	fieldTID              = 6
	fieldUID              = 7
	fieldSELinuxLabel     = 8
	fieldCommandLine      = 9
	fieldSignalInfo       = 10
	fieldAbortMessage     = 14
	fieldCauses           = 15
	fieldThreads          = 16
	fieldProcessUptime    = 20
)

const (
	signalFieldNumber          = 1
	signalFieldName            = 2
	signalFieldCode            = 3
	signalFieldCodeName        = 4
	signalFieldHasSender       = 5
	signalFieldSenderUID       = 6
	signalFieldHasFaultAddress = 8
	signalFieldFaultAddress    = 9
)

const (
	causeFieldHumanReadable = 1
)

const (
	threadFieldID             = 1
	threadFieldName           = 2
	threadFieldBacktrace      = 4
	threadFieldTaggedAddrCtrl = 6
)

const (
	frameFieldRelPC          = 1
	frameFieldFunctionName   = 4
	frameFieldFunctionOffset = 5
	frameFieldFileName       = 6
)

const (
	mapEntryFieldKey   = 1
	mapEntryFieldValue = 2
)

// Decode parses a serialized tombstone. Input is untrusted: it comes from a
// crashed, possibly compromised process. Decode either returns a fully
// populated record or ErrMalformed; it never panics and never returns
// partial state.
func Decode(data []byte) (*domain.Tombstone, error) {
	t := &domain.Tombstone{Threads: make(map[int]*domain.Thread)}

	rest := data
	for len(rest) > 0 {
		num, typ, n := protowire.ConsumeTag(rest)
		if n < 0 {
			return nil, ErrMalformed
		}
		rest = rest[n:]

		var err error
		switch num {
		case fieldBuildFingerprint:
			t.BuildFingerprint, rest, err = takeString(typ, rest)
		case fieldPID:
			var v uint64
			v, rest, err = takeVarint(typ, rest)
			t.PID = int(uint32(v))
		case fieldTID:
			var v uint64
			v, rest, err = takeVarint(typ, rest)
			t.TID = int(uint32(v))
		case fieldUID:
			var v uint64
			v, rest, err = takeVarint(typ, rest)
			t.UID = int(uint32(v))
		case fieldSELinuxLabel:
			t.SELinuxLabel, rest, err = takeString(typ, rest)
		case fieldCommandLine:
			var s string
			s, rest, err = takeString(typ, rest)
			if err == nil {
				t.CommandLine = append(t.CommandLine, s)
			}
		case fieldSignalInfo:
			var b []byte
			b, rest, err = takeBytes(typ, rest)
			if err == nil {
				t.Signal, err = decodeSignal(b)
			}
		case fieldAbortMessage:
			t.AbortMessage, rest, err = takeString(typ, rest)
		case fieldCauses:
			var b []byte
			b, rest, err = takeBytes(typ, rest)
			if err == nil {
				var c domain.Cause
				c, err = decodeCause(b)
				if err == nil {
					t.Causes = append(t.Causes, c)
				}
			}
		case fieldThreads:
			var b []byte
			b, rest, err = takeBytes(typ, rest)
			if err == nil {
				var id int
				var th *domain.Thread
				id, th, err = decodeThreadEntry(b)
				if err == nil && th != nil {
					t.Threads[id] = th
				}
			}
		case fieldProcessUptime:
			var v uint64
			v, rest, err = takeVarint(typ, rest)
			t.ProcessUptime = int(uint32(v))
		default:
			rest, err = skipField(num, typ, rest)
		}
		if err != nil {
			return nil, err
		}
	}

	// The label usually carries a terminating NUL byte from the native side.
	// Trimming it here keeps the wire decoding untouched for other consumers.
	if n := len(t.SELinuxLabel); n > 0 && t.SELinuxLabel[n-1] == '\x00' {
		t.SELinuxLabel = t.SELinuxLabel[:n-1]
	}

	return t, nil
}

func decodeSignal(data []byte) (*domain.Signal, error) {
	s := &domain.Signal{}
	rest := data
	for len(rest) > 0 {
		num, typ, n := protowire.ConsumeTag(rest)
		if n < 0 {
			return nil, ErrMalformed
		}
		rest = rest[n:]

		var err error
		switch num {
		case signalFieldNumber:
			var v uint64
			v, rest, err = takeVarint(typ, rest)
			s.Number = int(int32(v))
		case signalFieldName:
			s.Name, rest, err = takeString(typ, rest)
		case signalFieldCode:
			var v uint64
			v, rest, err = takeVarint(typ, rest)
			s.Code = int(int32(v))
		case signalFieldCodeName:
			s.CodeName, rest, err = takeString(typ, rest)
		case signalFieldHasSender:
			var v uint64
			v, rest, err = takeVarint(typ, rest)
			s.HasSender = v != 0
		case signalFieldSenderUID:
			var v uint64
			v, rest, err = takeVarint(typ, rest)
			s.SenderUID = int(int32(v))
		case signalFieldHasFaultAddress:
			var v uint64
			v, rest, err = takeVarint(typ, rest)
			s.HasFaultAddress = v != 0
		case signalFieldFaultAddress:
			var v uint64
			v, rest, err = takeVarint(typ, rest)
			s.FaultAddress = v
		default:
			rest, err = skipField(num, typ, rest)
		}
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func decodeCause(data []byte) (domain.Cause, error) {
	var c domain.Cause
	rest := data
	for len(rest) > 0 {
		num, typ, n := protowire.ConsumeTag(rest)
		if n < 0 {
			return domain.Cause{}, ErrMalformed
		}
		rest = rest[n:]

		var err error
		switch num {
		case causeFieldHumanReadable:
			c.HumanReadable, rest, err = takeString(typ, rest)
		default:
			rest, err = skipField(num, typ, rest)
		}
		if err != nil {
			return domain.Cause{}, err
		}
	}
	return c, nil
}

// decodeThreadEntry parses one entry of the thread map. The faulting thread
// is located by map key, not by the thread's own id field.
func decodeThreadEntry(data []byte) (int, *domain.Thread, error) {
	var key int
	var th *domain.Thread
	rest := data
	for len(rest) > 0 {
		num, typ, n := protowire.ConsumeTag(rest)
		if n < 0 {
			return 0, nil, ErrMalformed
		}
		rest = rest[n:]

		var err error
		switch num {
		case mapEntryFieldKey:
			var v uint64
			v, rest, err = takeVarint(typ, rest)
			key = int(uint32(v))
		case mapEntryFieldValue:
			var b []byte
			b, rest, err = takeBytes(typ, rest)
			if err == nil {
				th, err = decodeThread(b)
			}
		default:
			rest, err = skipField(num, typ, rest)
		}
		if err != nil {
			return 0, nil, err
		}
	}
	return key, th, nil
}

func decodeThread(data []byte) (*domain.Thread, error) {
	th := &domain.Thread{}
	rest := data
	for len(rest) > 0 {
		num, typ, n := protowire.ConsumeTag(rest)
		if n < 0 {
			return nil, ErrMalformed
		}
		rest = rest[n:]

		var err error
		switch num {
		case threadFieldID:
			var v uint64
			v, rest, err = takeVarint(typ, rest)
			th.ID = int(int32(v))
		case threadFieldName:
			th.Name, rest, err = takeString(typ, rest)
		case threadFieldBacktrace:
			var b []byte
			b, rest, err = takeBytes(typ, rest)
			if err == nil {
				var f domain.BacktraceFrame
				f, err = decodeFrame(b)
				if err == nil {
					th.Backtrace = append(th.Backtrace, f)
				}
			}
		case threadFieldTaggedAddrCtrl:
			var v uint64
			v, rest, err = takeVarint(typ, rest)
			th.TaggedAddrCtrl = v
		default:
			rest, err = skipField(num, typ, rest)
		}
		if err != nil {
			return nil, err
		}
	}
	return th, nil
}

func decodeFrame(data []byte) (domain.BacktraceFrame, error) {
	var f domain.BacktraceFrame
	rest := data
	for len(rest) > 0 {
		num, typ, n := protowire.ConsumeTag(rest)
		if n < 0 {
			return domain.BacktraceFrame{}, ErrMalformed
		}
		rest = rest[n:]

		var err error
		switch num {
		case frameFieldRelPC:
			f.RelPC, rest, err = takeVarint(typ, rest)
		case frameFieldFunctionName:
			f.FunctionName, rest, err = takeString(typ, rest)
		case frameFieldFunctionOffset:
			f.FunctionOffset, rest, err = takeVarint(typ, rest)
		case frameFieldFileName:
			f.FileName, rest, err = takeString(typ, rest)
		default:
			rest, err = skipField(num, typ, rest)
		}
		if err != nil {
			return domain.BacktraceFrame{}, err
		}
	}
	return f, nil
}

func takeVarint(typ protowire.Type, data []byte) (uint64, []byte, error) {
	if typ != protowire.VarintType {
		return 0, nil, ErrMalformed
	}
	v, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return 0, nil, ErrMalformed
	}
	return v, data[n:], nil
}

func takeBytes(typ protowire.Type, data []byte) ([]byte, []byte, error) {
	if typ != protowire.BytesType {
		return nil, nil, ErrMalformed
	}
	v, n := protowire.ConsumeBytes(data)
	if n < 0 {
		return nil, nil, ErrMalformed
	}
	return v, data[n:], nil
}

func takeString(typ protowire.Type, data []byte) (string, []byte, error) {
	v, rest, err := takeBytes(typ, data)
	if err != nil {
		return "", nil, err
	}
	return string(v), rest, nil
}

func skipField(num protowire.Number, typ protowire.Type, data []byte) ([]byte, error) {
	n := protowire.ConsumeFieldValue(num, typ, data)
	if n < 0 {
		return nil, ErrMalformed
	}
	return data[n:], nil
}
