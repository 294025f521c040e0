package areacache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freestuff/pkg/filter"
	"freestuff/pkg/geo"
	"freestuff/pkg/model"
)

var (
	regionA = geo.Region{NELat: 10, NELng: 10, SWLat: 0, SWLng: 0}
	regionB = geo.Region{NELat: 5, NELng: 5, SWLat: 1, SWLng: 1}
	regionC = geo.Region{NELat: 20, NELng: 20, SWLat: -5, SWLng: -5}
)

func testPins(ids ...string) []model.Pin {
	pins := make([]model.Pin, 0, len(ids))
	for _, id := range ids {
		pins = append(pins, model.Pin{ID: id, Title: "pin " + id})
	}
	return pins
}

// newTestCache returns a cache driven by a fake clock.
func newTestCache(ttl time.Duration, maxEntries int) (*Cache, *time.Time) {
	c := New(ttl, maxEntries)
	now := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestContainmentHit(t *testing.T) {
	c, _ := newTestCache(time.Minute, 30)
	f := filter.Default()

	c.Store(testPins("x", "y"), regionA, f, false)

	entry, ok := c.FindCoveringEntry(regionB, f)
	require.True(t, ok, "sub-region of a cached region should hit")
	assert.Equal(t, testPins("x", "y"), entry.Pins)
	assert.Equal(t, regionA, entry.Region)
}

func TestNonContainmentMiss(t *testing.T) {
	c, _ := newTestCache(time.Minute, 30)
	f := filter.Default()

	c.Store(testPins("x"), regionA, f, false)

	// C extends beyond A on every side.
	_, ok := c.FindCoveringEntry(regionC, f)
	assert.False(t, ok)

	// A single violated bound is enough to miss.
	edge := geo.Region{NELat: 10.001, NELng: 5, SWLat: 1, SWLng: 1}
	_, ok = c.FindCoveringEntry(edge, f)
	assert.False(t, ok)
}

func TestFilterIsolation(t *testing.T) {
	c, _ := newTestCache(time.Minute, 30)
	f1 := filter.Default()
	f2 := filter.Default()
	f2.ShowFood = false

	c.Store(testPins("x"), regionA, f1, false)

	_, ok := c.FindCoveringEntry(regionA, f2)
	assert.False(t, ok, "different filters must never hit, even for an identical region")

	_, ok = c.FindCoveringEntry(regionB, f1)
	assert.True(t, ok)
}

func TestTruncatedEntriesNeverHit(t *testing.T) {
	c, _ := newTestCache(time.Minute, 30)
	f := filter.Default()

	c.Store(testPins("x"), regionA, f, true)

	_, ok := c.FindCoveringEntry(regionB, f)
	assert.False(t, ok)
	_, ok = c.FindCoveringEntry(regionA, f)
	assert.False(t, ok, "even an exact region match must not reuse truncated data")
}

func TestTTLExpiry(t *testing.T) {
	c, now := newTestCache(time.Minute, 30)
	f := filter.Default()

	c.Store(testPins("x"), regionA, f, false)

	*now = now.Add(time.Minute - time.Millisecond)
	_, ok := c.FindCoveringEntry(regionB, f)
	assert.True(t, ok, "entry within TTL should hit")

	*now = now.Add(2 * time.Millisecond)
	_, ok = c.FindCoveringEntry(regionB, f)
	assert.False(t, ok, "entry past TTL should be ignored")

	// Lazy expiry: the entry is ignored, not evicted.
	assert.Equal(t, 1, c.Len())
}

func TestCapacityEviction(t *testing.T) {
	const maxEntries = 5
	c, _ := newTestCache(time.Minute, maxEntries)
	f := filter.Default()

	for i := 0; i < maxEntries+3; i++ {
		r := geo.Region{NELat: float64(100 + i), NELng: 1, SWLat: float64(100 + i), SWLng: 1}
		c.Store(testPins(fmt.Sprintf("p%d", i)), r, f, false)
	}

	assert.Equal(t, maxEntries, c.Len())

	// The oldest three are gone; the newest five survive.
	for i := 0; i < 3; i++ {
		r := geo.Region{NELat: float64(100 + i), NELng: 1, SWLat: float64(100 + i), SWLng: 1}
		_, ok := c.FindCoveringEntry(r, f)
		assert.False(t, ok, "entry %d should be evicted", i)
	}
	for i := 3; i < maxEntries+3; i++ {
		r := geo.Region{NELat: float64(100 + i), NELng: 1, SWLat: float64(100 + i), SWLng: 1}
		_, ok := c.FindCoveringEntry(r, f)
		assert.True(t, ok, "entry %d should survive", i)
	}
}

func TestRecencyFirstScan(t *testing.T) {
	c, now := newTestCache(time.Minute, 30)
	f := filter.Default()

	// Two overlapping entries, both covering regionB, different payloads.
	c.Store(testPins("old"), regionA, f, false)
	*now = now.Add(time.Second)
	c.Store(testPins("new"), regionC, f, false)

	entry, ok := c.FindCoveringEntry(regionB, f)
	require.True(t, ok)
	assert.Equal(t, testPins("new"), entry.Pins, "most recent qualifying entry wins")
}

func TestClear(t *testing.T) {
	c, _ := newTestCache(time.Minute, 30)
	f := filter.Default()

	c.Store(testPins("x"), regionA, f, false)
	require.Equal(t, 1, c.Len())

	c.Clear()
	assert.Zero(t, c.Len())
	_, ok := c.FindCoveringEntry(regionB, f)
	assert.False(t, ok)

	// Idempotent.
	c.Clear()
	assert.Zero(t, c.Len())
}

func TestDefaults(t *testing.T) {
	c := New(0, 0)
	assert.Equal(t, DefaultTTL, c.ttl)
	assert.Equal(t, DefaultMaxEntries, c.maxEntries)
}

func TestSnapshot(t *testing.T) {
	c, _ := newTestCache(time.Minute, 30)
	f := filter.Default()

	c.Store(testPins("a"), regionA, f, false)
	c.Store(testPins("b"), regionB, f, true)

	snap := c.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, regionA, snap[0].Region)
	assert.Equal(t, regionB, snap[1].Region)
	assert.True(t, snap[1].Truncated)

	// The snapshot is detached from the cache's entry slice.
	c.Clear()
	assert.Len(t, snap, 2)
}
