// Package identity decides which stored product a feed row refers to and
// hands out collision-free slugs for the rows that refer to none.
package identity

import (
	"strconv"
	"sync"
)

// SlugAllocator hands out unique slugs for one import batch. It is seeded
// with the stored slugs sharing the batch's base slugs, and every slug it
// returns is reserved immediately so two rows of the same batch never get
// the same one. Safe for concurrent use.
type SlugAllocator struct {
	mu       sync.Mutex
	reserved map[string]struct{}
	next     map[string]int
}

// NewSlugAllocator creates an allocator with existing slugs reserved.
func NewSlugAllocator(existing []string) *SlugAllocator {
	a := &SlugAllocator{
		reserved: make(map[string]struct{}, len(existing)),
		next:     make(map[string]int),
	}
	for _, s := range existing {
		a.reserved[s] = struct{}{}
	}
	return a
}

// Reserve marks slugs as taken.
func (a *SlugAllocator) Reserve(slugs ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range slugs {
		a.reserved[s] = struct{}{}
	}
}

// Allocate returns base, base-1, base-2, ... whichever is free first and
// reserves it. An empty base is returned unchanged.
func (a *SlugAllocator) Allocate(base string) string {
	if base == "" {
		return ""
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for n := a.next[base]; ; n++ {
		candidate := base
		if n > 0 {
			candidate = base + "-" + strconv.Itoa(n)
		}
		if _, taken := a.reserved[candidate]; taken {
			continue
		}
		a.reserved[candidate] = struct{}{}
		a.next[base] = n + 1
		return candidate
	}
}
