package tombstone

import (
	"strings"

	"github.com/vietddude/crashwatch/internal/core/domain"
)

const (
	sigSEGV     = 11
	segvMTEAERR = 8
	segvMTESERR = 9
)

const hardenedMallocPrefix = "hardened_malloc: fatal allocator error: "

// IsMemoryTagFault reports whether the crash is a hardware memory-tagging
// violation (sync or async). Always false on hosts without tagging support.
func IsMemoryTagFault(t *domain.Tombstone, mteSupported bool) bool {
	s := t.Signal
	return mteSupported && s != nil && s.Number == sigSEGV &&
		(s.Code == segvMTEAERR || s.Code == segvMTESERR)
}

// IsHardenedMallocFault reports whether the process was aborted by the
// hardened allocator's internal consistency checks.
func IsHardenedMallocFault(t *domain.Tombstone) bool {
	return strings.HasPrefix(t.AbortMessage, hardenedMallocPrefix)
}
