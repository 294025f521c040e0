package tracker

import "sync/atomic"

// Tracker counts cache and fetch outcomes for the stats endpoint.
// All counters are updated atomically.
type Tracker struct {
	cacheHits      int64
	cacheMisses    int64
	fetchSuccess   int64
	fetchFailures  int64
	fetchDiscarded int64
	truncated      int64
}

// Stats is a point-in-time copy of the counters.
type Stats struct {
	CacheHits      int64 `json:"cache_hits"`
	CacheMisses    int64 `json:"cache_misses"`
	FetchSuccess   int64 `json:"fetch_success"`
	FetchFailures  int64 `json:"fetch_failures"`
	FetchDiscarded int64 `json:"fetch_discarded"`
	Truncated      int64 `json:"truncated"`
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{}
}

// TrackCacheHit counts a viewport query served from the area cache.
func (t *Tracker) TrackCacheHit() {
	atomic.AddInt64(&t.cacheHits, 1)
}

// TrackCacheMiss counts a viewport query that required a network fetch.
func (t *Tracker) TrackCacheMiss() {
	atomic.AddInt64(&t.cacheMisses, 1)
}

// TrackFetchSuccess counts a completed backend fetch.
func (t *Tracker) TrackFetchSuccess() {
	atomic.AddInt64(&t.fetchSuccess, 1)
}

// TrackFetchFailure counts a failed backend fetch.
func (t *Tracker) TrackFetchFailure() {
	atomic.AddInt64(&t.fetchFailures, 1)
}

// TrackFetchDiscarded counts a fetch whose result arrived after a newer
// viewport change superseded it.
func (t *Tracker) TrackFetchDiscarded() {
	atomic.AddInt64(&t.fetchDiscarded, 1)
}

// TrackTruncated counts a fetch whose result hit the server-side cap.
func (t *Tracker) TrackTruncated() {
	atomic.AddInt64(&t.truncated, 1)
}

// Snapshot returns a copy of the current counters.
func (t *Tracker) Snapshot() Stats {
	return Stats{
		CacheHits:      atomic.LoadInt64(&t.cacheHits),
		CacheMisses:    atomic.LoadInt64(&t.cacheMisses),
		FetchSuccess:   atomic.LoadInt64(&t.fetchSuccess),
		FetchFailures:  atomic.LoadInt64(&t.fetchFailures),
		FetchDiscarded: atomic.LoadInt64(&t.fetchDiscarded),
		Truncated:      atomic.LoadInt64(&t.truncated),
	}
}
