package identity

import (
	"sync"

	"github.com/vietddude/crashwatch/internal/core/domain"
)

// MemoryRegistry implements ProcessRegistry and PackageRegistry with
// in-memory tables. Used by the default wiring (populated from config) and
// by tests via instance injection.
type MemoryRegistry struct {
	mu         sync.RWMutex
	processes  map[int]ProcessRecord
	packages   map[int][]Package
	suppressed map[string]map[domain.AdvisoryKind]bool
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		processes:  make(map[int]ProcessRecord),
		packages:   make(map[int][]Package),
		suppressed: make(map[string]map[domain.AdvisoryKind]bool),
	}
}

// AddPackage registers an installed package under its app id.
func (r *MemoryRegistry) AddPackage(pkg Package) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.packages[pkg.AppID] = append(r.packages[pkg.AppID], pkg)
}

// SetProcess registers a live process record.
func (r *MemoryRegistry) SetProcess(rec ProcessRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processes[rec.PID] = rec
}

// RemoveProcess drops a live process record.
func (r *MemoryRegistry) RemoveProcess(pid int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.processes, pid)
}

// SetAdvisorySuppressed sets the per-package suppression flag for a kind.
func (r *MemoryRegistry) SetAdvisorySuppressed(packageName string, kind domain.AdvisoryKind, suppressed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.suppressed[packageName]
	if m == nil {
		m = make(map[domain.AdvisoryKind]bool)
		r.suppressed[packageName] = m
	}
	m[kind] = suppressed
}

// ProcessByPID implements ProcessRegistry.
func (r *MemoryRegistry) ProcessByPID(pid int) (ProcessRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.processes[pid]
	return rec, ok
}

// PackagesForAppID implements PackageRegistry.
func (r *MemoryRegistry) PackagesForAppID(appID int) []Package {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.packages[appID]
}

// AdvisorySuppressed implements PackageRegistry.
func (r *MemoryRegistry) AdvisorySuppressed(packageName string, kind domain.AdvisoryKind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.suppressed[packageName][kind]
}
