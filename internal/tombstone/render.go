package tombstone

import (
	"strconv"
	"strings"

	"github.com/vietddude/crashwatch/internal/core/domain"
)

// tagged_addr_ctrl bits controlling the tag-check fault mode.
const (
	prMTETCFSync  = 1 << 1
	prMTETCFAsync = 1 << 2
)

// Render formats a decoded tombstone into the stable multi-line text block
// used for notification bodies and attached diagnostics. Rendering the same
// tombstone twice yields byte-identical output.
func Render(t *domain.Tombstone, mteSupported bool) string {
	var sb strings.Builder

	sb.WriteString("osVersion: ")
	sb.WriteString(t.BuildFingerprint)
	sb.WriteString("\nuid: ")
	sb.WriteString(strconv.Itoa(t.UID))
	sb.WriteString(" (")
	sb.WriteString(t.SELinuxLabel)
	sb.WriteString(")\ncmdline:")
	for _, s := range t.CommandLine {
		sb.WriteByte(' ')
		sb.WriteString(s)
	}
	sb.WriteString("\nprocessUptime: ")
	sb.WriteString(strconv.Itoa(t.ProcessUptime))
	sb.WriteByte('s')

	if t.AbortMessage != "" {
		sb.WriteString("\n\nabortMessage: ")
		sb.WriteString(t.AbortMessage)
	}

	if s := t.Signal; s != nil {
		sb.WriteString("\n\nsignal: ")
		sb.WriteString(strconv.Itoa(s.Number))
		sb.WriteString(" (")
		sb.WriteString(s.Name)
		sb.WriteString("), code ")
		sb.WriteString(strconv.Itoa(s.Code))
		sb.WriteString(" (")
		sb.WriteString(s.CodeName)
		sb.WriteString(")")
		if s.HasSender {
			sb.WriteString(", senderUid ")
			sb.WriteString(strconv.Itoa(s.SenderUID))
		}
		if s.HasFaultAddress {
			sb.WriteString(", faultAddr ")
			sb.WriteString(strconv.FormatUint(s.FaultAddress, 16))
		}
	}

	for _, cause := range t.Causes {
		sb.WriteString("\ncause: ")
		sb.WriteString(cause.HumanReadable)
	}

	thread := t.FaultingThread()
	if thread == nil {
		sb.WriteString("\n\nno thread info")
	} else {
		sb.WriteString("\nthreadName: ")
		sb.WriteString(thread.Name)

		if mteSupported {
			sb.WriteString("\nMTE: ")
			tac := thread.TaggedAddrCtrl
			if tac&(prMTETCFSync|prMTETCFAsync) != 0 {
				// async mode wins when both bits are set
				if tac&prMTETCFAsync != 0 {
					sb.WriteString("enabled")
				} else {
					sb.WriteString("enabled; sync")
				}
			} else {
				sb.WriteString("not enabled")
			}
		}

		sb.WriteString("\n\nbacktrace:")
		for _, frame := range thread.Backtrace {
			sb.WriteString("\n    ")
			sb.WriteString(frame.FileName)
			sb.WriteString(" (")
			if frame.FunctionName != "" {
				sb.WriteString(frame.FunctionName)
				sb.WriteByte('+')
				sb.WriteString(strconv.FormatUint(frame.FunctionOffset, 10))
				sb.WriteString(", ")
			}
			sb.WriteString("pc ")
			sb.WriteString(strconv.FormatUint(frame.RelPC, 16))
			sb.WriteByte(')')
		}
	}

	return sb.String()
}
