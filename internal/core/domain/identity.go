package domain

// Owner-id ranges follow the platform convention: each user owns a span of
// 100000 ids, installed applications and sandboxed isolated processes occupy
// disjoint sub-ranges, everything else belongs to platform processes.
const (
	PerUserRange        = 100000
	FirstApplicationUID = 10000
	LastApplicationUID  = 19999
	FirstIsolatedUID    = 99000
	LastIsolatedUID     = 99999
)

// AppID strips the user component from a uid.
func AppID(uid int) int {
	return uid % PerUserRange
}

// UserID returns the user component of a uid.
func UserID(uid int) int {
	return uid / PerUserRange
}

// IsApplicationUID reports whether uid belongs to an installed application.
func IsApplicationUID(uid int) bool {
	appID := AppID(uid)
	return appID >= FirstApplicationUID && appID <= LastApplicationUID
}

// IsIsolatedUID reports whether uid belongs to a sandboxed isolated process.
func IsIsolatedUID(uid int) bool {
	appID := AppID(uid)
	return appID >= FirstIsolatedUID && appID <= LastIsolatedUID
}

// OwnerIdentity is the resolved owning package of a crashed process.
// Computed fresh per report, never cached across reports.
type OwnerIdentity struct {
	PackageName string
	UID         int
	Application bool
	Isolated    bool
	System      bool
}
