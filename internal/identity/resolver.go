package identity

import (
	"errors"

	"github.com/vietddude/crashwatch/internal/core/domain"
)

var (
	// ErrNoIdentity means no owning package could be determined.
	ErrNoIdentity = errors.New("no owning package")
	// ErrAmbiguousOwner means more than one package shares the app id, so
	// resolution must not guess.
	ErrAmbiguousOwner = errors.New("multiple packages share app id")
)

// ProcessRecord is a snapshot of a live process taken from the process
// registry. Its uid is authoritative and can differ from the crash report's
// numeric owner id (isolated processes in particular).
type ProcessRecord struct {
	PID         int
	UID         int
	PackageName string
	System      bool
}

// ProcessRegistry looks up live processes. Implemented by an external
// registry; assumed internally synchronized.
type ProcessRegistry interface {
	ProcessByPID(pid int) (ProcessRecord, bool)
}

// Package describes an installed package as declared to the package registry.
type Package struct {
	Name   string
	AppID  int
	System bool
}

// PackageRegistry exposes the package table and per-package notification
// suppression state. Implemented by an external registry; read-only here.
type PackageRegistry interface {
	PackagesForAppID(appID int) []Package
	AdvisorySuppressed(packageName string, kind domain.AdvisoryKind) bool
}

// Resolver maps a crashed process to its owning package identity.
type Resolver interface {
	ResolveOwner(uid, pid int) (domain.OwnerIdentity, error)
}

// strategy is one resolution source. ok=false defers to the next strategy.
type strategy interface {
	resolve(uid, pid int) (domain.OwnerIdentity, bool, error)
}

// ChainResolver tries its strategies in fixed priority order: the live
// process record first, then the static app-id mapping.
type ChainResolver struct {
	strategies []strategy
}

// NewResolver builds the standard two-strategy resolver.
func NewResolver(procs ProcessRegistry, pkgs PackageRegistry) *ChainResolver {
	return &ChainResolver{
		strategies: []strategy{
			liveProcessStrategy{procs: procs},
			appIDStrategy{pkgs: pkgs},
		},
	}
}

// ResolveOwner resolves the owning package of a crashed process, or fails
// with ErrNoIdentity / ErrAmbiguousOwner.
func (r *ChainResolver) ResolveOwner(uid, pid int) (domain.OwnerIdentity, error) {
	for _, s := range r.strategies {
		id, ok, err := s.resolve(uid, pid)
		if err != nil {
			return domain.OwnerIdentity{}, err
		}
		if ok {
			id.Application = domain.IsApplicationUID(uid)
			id.Isolated = domain.IsIsolatedUID(uid)
			return id, nil
		}
	}
	return domain.OwnerIdentity{}, ErrNoIdentity
}

// liveProcessStrategy resolves through the live process record, which
// reflects the process's actual runtime identity.
type liveProcessStrategy struct {
	procs ProcessRegistry
}

func (s liveProcessStrategy) resolve(uid, pid int) (domain.OwnerIdentity, bool, error) {
	rec, ok := s.procs.ProcessByPID(pid)
	if !ok {
		return domain.OwnerIdentity{}, false, nil
	}
	return domain.OwnerIdentity{
		PackageName: rec.PackageName,
		UID:         rec.UID,
		System:      rec.System,
	}, true, nil
}

// appIDStrategy falls back to the static app-id mapping. It only applies to
// application uids and refuses to guess when the app id is shared.
type appIDStrategy struct {
	pkgs PackageRegistry
}

func (s appIDStrategy) resolve(uid, pid int) (domain.OwnerIdentity, bool, error) {
	if !domain.IsApplicationUID(uid) {
		return domain.OwnerIdentity{}, false, nil
	}
	pkgs := s.pkgs.PackagesForAppID(domain.AppID(uid))
	switch len(pkgs) {
	case 0:
		return domain.OwnerIdentity{}, false, nil
	case 1:
		pkg := pkgs[0]
		return domain.OwnerIdentity{
			PackageName: pkg.Name,
			UID:         uid,
			System:      pkg.System,
		}, true, nil
	default:
		return domain.OwnerIdentity{}, false, ErrAmbiguousOwner
	}
}
