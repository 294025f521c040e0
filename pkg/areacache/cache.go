// Package areacache caches postings query results keyed by the bounding box
// they were fetched for and the filter set that was active at fetch time.
//
// A lookup hits only when a stored, non-truncated, unexpired entry was
// fetched under identical filters for a region that fully contains the
// requested one: the cached pin list is then known to be complete for the
// requested viewport. Entries are scanned newest to oldest and evicted
// oldest-first under capacity pressure. Expired entries are ignored rather
// than swept; the entry count is capped low, so a linear scan over a slice
// beats any spatial index here.
package areacache

import (
	"sync"
	"time"

	"freestuff/pkg/filter"
	"freestuff/pkg/geo"
	"freestuff/pkg/model"
)

// Defaults for the tuning knobs.
const (
	DefaultTTL        = 60 * time.Second
	DefaultMaxEntries = 30
)

// Entry bundles one fetched result set with the region it was fetched for,
// the filters active at fetch time, and a truncation flag. Entries are
// created by Store and never mutated afterwards.
type Entry struct {
	Pins      []model.Pin
	Region    geo.Region
	Filters   filter.Key
	Truncated bool
	FetchedAt time.Time
}

// Cache is a bounded, TTL-scoped store of postings query results.
// It is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries []Entry

	ttl        time.Duration
	maxEntries int

	now func() time.Time
}

// New creates a cache with the given TTL and capacity. Non-positive values
// fall back to the defaults.
func New(ttl time.Duration, maxEntries int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// FindCoveringEntry returns the most recently stored entry that can satisfy
// a query for region under the given filters, or ok=false if none can.
//
// An entry qualifies when it is younger than the TTL, was stored under an
// identical filter key, is not truncated, and its region contains the
// requested region. The scan runs newest to oldest so the freshest
// qualifying data wins.
func (c *Cache) FindCoveringEntry(region geo.Region, filters filter.Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	for i := len(c.entries) - 1; i >= 0; i-- {
		e := c.entries[i]

		if now.Sub(e.FetchedAt) > c.ttl {
			continue
		}
		if e.Filters != filters {
			continue
		}
		// Truncated data is incomplete for its region; a sub-region query
		// cannot safely reuse it.
		if e.Truncated {
			continue
		}
		if e.Region.Contains(region) {
			return e, true
		}
	}
	return Entry{}, false
}

// Store appends a new entry at the most-recent position and trims the
// oldest entries beyond capacity. Overlapping or contained entries are not
// merged or removed.
func (c *Cache) Store(pins []model.Pin, region geo.Region, filters filter.Key, truncated bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = append(c.entries, Entry{
		Pins:      pins,
		Region:    region,
		Filters:   filters,
		Truncated: truncated,
		FetchedAt: c.now(),
	})

	if excess := len(c.entries) - c.maxEntries; excess > 0 {
		c.entries = append(c.entries[:0:0], c.entries[excess:]...)
	}
}

// Clear drops all entries unconditionally. Used for full invalidation,
// e.g. after a settings reset.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
}

// Snapshot returns a copy of the entry slice, oldest first, for inspection.
// The pin slices are shared with the cache, not copied; entries are never
// mutated after Store, so reading them is safe.
func (c *Cache) Snapshot() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Entry(nil), c.entries...)
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
