package api

import (
	"encoding/json"
	"net/http"

	"freestuff/pkg/areacache"
	"freestuff/pkg/blocklist"
	"freestuff/pkg/tracker"
)

// StatsHandler reports fetch and cache counters for the status panel.
type StatsHandler struct {
	tracker   *tracker.Tracker
	cache     *areacache.Cache
	blocklist *blocklist.Store
	pins      *PinsHandler
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(t *tracker.Tracker, c *areacache.Cache, bl *blocklist.Store, pins *PinsHandler) *StatsHandler {
	return &StatsHandler{tracker: t, cache: c, blocklist: bl, pins: pins}
}

// StatsResponse is the payload for GET /api/stats.
type StatsResponse struct {
	Fetches      tracker.Stats `json:"fetches"`
	HitRate      int64         `json:"hit_rate"`
	CacheEntries int           `json:"cache_entries"`
	BlockedUsers int           `json:"blocked_users"`
	Sessions     int           `json:"sessions"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snapshot := h.tracker.Snapshot()

	totalLookups := snapshot.CacheHits + snapshot.CacheMisses
	hitRate := int64(0)
	if totalLookups > 0 {
		hitRate = (snapshot.CacheHits * 100) / totalLookups
	}

	resp := StatsResponse{
		Fetches:      snapshot,
		HitRate:      hitRate,
		CacheEntries: h.cache.Len(),
		BlockedUsers: len(h.blocklist.SortedIDs()),
		Sessions:     h.pins.ActiveSessions(),
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
