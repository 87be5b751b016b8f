package policy

import (
	"container/list"
	"sync"

	"github.com/vietddude/crashwatch/internal/core/domain"
)

// DefaultSkipCapacity bounds per-user skip entries. Only one package needs an
// entry in the vast majority of cases.
const DefaultSkipCapacity = 50

// SkipCache remembers, per user, which advisory kinds should not be raised
// again for a package during this session. It is the only shared mutable
// state touched by the pipeline; a single mutex guards every entry and is
// never held across an external call. Least recently touched packages are
// evicted first once a user's entry count exceeds the capacity.
type SkipCache struct {
	mu       sync.Mutex
	capacity int
	users    map[int]*userSkips
}

type userSkips struct {
	entries map[string]*list.Element // package name -> element
	order   *list.List               // front = most recently used
}

type skipEntry struct {
	packageName string
	kinds       map[domain.AdvisoryKind]bool
}

// NewSkipCache creates a cache with the given per-user capacity.
// capacity <= 0 selects DefaultSkipCapacity.
func NewSkipCache(capacity int) *SkipCache {
	if capacity <= 0 {
		capacity = DefaultSkipCapacity
	}
	return &SkipCache{
		capacity: capacity,
		users:    make(map[int]*userSkips),
	}
}

// Skip marks advisory kinds to be withheld for a package owned by userID.
func (c *SkipCache) Skip(userID int, packageName string, kinds ...domain.AdvisoryKind) {
	c.mu.Lock()
	defer c.mu.Unlock()

	us := c.users[userID]
	if us == nil {
		us = &userSkips{
			entries: make(map[string]*list.Element),
			order:   list.New(),
		}
		c.users[userID] = us
	}

	el, ok := us.entries[packageName]
	if !ok {
		if us.order.Len() >= c.capacity {
			oldest := us.order.Back()
			us.order.Remove(oldest)
			delete(us.entries, oldest.Value.(*skipEntry).packageName)
		}
		el = us.order.PushFront(&skipEntry{
			packageName: packageName,
			kinds:       make(map[domain.AdvisoryKind]bool),
		})
		us.entries[packageName] = el
	} else {
		us.order.MoveToFront(el)
	}

	entry := el.Value.(*skipEntry)
	for _, kind := range kinds {
		entry.kinds[kind] = true
	}
}

// Skipped reports whether the kind is marked to be withheld for the package.
func (c *SkipCache) Skipped(userID int, packageName string, kind domain.AdvisoryKind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	us := c.users[userID]
	if us == nil {
		return false
	}
	el, ok := us.entries[packageName]
	if !ok {
		return false
	}
	us.order.MoveToFront(el)
	return el.Value.(*skipEntry).kinds[kind]
}

// Len returns the number of tracked packages for a user.
func (c *SkipCache) Len(userID int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	us := c.users[userID]
	if us == nil {
		return 0
	}
	return us.order.Len()
}
