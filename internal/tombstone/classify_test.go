package tombstone

import (
	"testing"

	"github.com/vietddude/crashwatch/internal/core/domain"
)

func mteTombstone(code int) *domain.Tombstone {
	return &domain.Tombstone{
		Signal: &domain.Signal{Number: 11, Code: code},
	}
}

func TestIsMemoryTagFault(t *testing.T) {
	cases := []struct {
		name         string
		tomb         *domain.Tombstone
		mteSupported bool
		want         bool
	}{
		{"async tag fault", mteTombstone(8), true, true},
		{"sync tag fault", mteTombstone(9), true, true},
		{"unsupported host", mteTombstone(8), false, false},
		{"plain segv", mteTombstone(1), true, false},
		{"wrong signal", &domain.Tombstone{Signal: &domain.Signal{Number: 6, Code: 8}}, true, false},
		{"no signal", &domain.Tombstone{}, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsMemoryTagFault(tc.tomb, tc.mteSupported); got != tc.want {
				t.Errorf("IsMemoryTagFault = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsHardenedMallocFault(t *testing.T) {
	cases := []struct {
		name string
		msg  string
		want bool
	}{
		{"exact prefix", "hardened_malloc: fatal allocator error: double free", true},
		{"prefix only", "hardened_malloc: fatal allocator error: ", true},
		{"near miss", "hardened_malloc: fatal allocator error:", false},
		{"different allocator", "scudo: fatal allocator error: oops", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tomb := &domain.Tombstone{AbortMessage: tc.msg}
			if got := IsHardenedMallocFault(tomb); got != tc.want {
				t.Errorf("IsHardenedMallocFault = %v, want %v", got, tc.want)
			}
		})
	}
}
