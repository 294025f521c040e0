package api

import (
	"encoding/json"
	"net/http"
	"time"

	"freestuff/pkg/areacache"
	"freestuff/pkg/geo"
)

// CacheHandler exposes the area cache contents for the cache overlay in the
// web UI: one rectangle per cached region, with age and truncation state.
type CacheHandler struct {
	cache *areacache.Cache
}

// NewCacheHandler creates a new CacheHandler.
func NewCacheHandler(c *areacache.Cache) *CacheHandler {
	return &CacheHandler{cache: c}
}

// CachedRegion describes one cache entry without its pin payload.
type CachedRegion struct {
	Region    geo.Region `json:"region"`
	Pins      int        `json:"pins"`
	Truncated bool       `json:"truncated"`
	AgeSec    float64    `json:"age_sec"`
}

func (h *CacheHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	entries := h.cache.Snapshot()

	regions := make([]CachedRegion, 0, len(entries))
	for _, e := range entries {
		regions = append(regions, CachedRegion{
			Region:    e.Region,
			Pins:      len(e.Pins),
			Truncated: e.Truncated,
			AgeSec:    now.Sub(e.FetchedAt).Seconds(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"entries": regions})
}
