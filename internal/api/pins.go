package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"freestuff/pkg/apisession"
	"freestuff/pkg/areacache"
	"freestuff/pkg/blocklist"
	"freestuff/pkg/geo"
	"freestuff/pkg/model"
	"freestuff/pkg/settings"
	"freestuff/pkg/tracker"
	"freestuff/pkg/viewport"
)

// PinsHandler answers one-shot viewport queries over plain HTTP. Each client
// session gets its own fetch controller so per-session state (last result
// truncated, filters dirty) carries across requests; the area cache behind
// the controllers is shared.
type PinsHandler struct {
	sessions *apisession.Store[viewport.Controller]
}

// NewPinsHandler wires the handler. sessionTTL bounds how long an idle
// session keeps its controller alive.
func NewPinsHandler(cfg viewport.Config, sessionTTL time.Duration, cache *areacache.Cache, f viewport.Fetcher, bl *blocklist.Store, st *settings.Store, tr *tracker.Tracker) *PinsHandler {
	sessions := apisession.New(sessionTTL, func() *viewport.Controller {
		return viewport.NewController(cfg, cache, f, bl, st, noopRenderer{}, nil, tr)
	})
	sessions.OnEvict(func(c *viewport.Controller) { c.Stop() })
	return &PinsHandler{sessions: sessions}
}

// wirePin is a Pin with its display label resolved, so the UI does not
// have to repeat the title/address/ID fallback chain.
type wirePin struct {
	model.Pin
	Label string `json:"label"`
}

func wirePins(pins []model.Pin) []wirePin {
	out := make([]wirePin, len(pins))
	for i := range pins {
		out[i] = wirePin{Pin: pins[i], Label: pins[i].DisplayName()}
	}
	return out
}

// PinsResponse is the payload for GET /api/pins.
type PinsResponse struct {
	Pins  []wirePin `json:"pins"`
	Count int       `json:"count"`
	// Truncated reports that the result hit the server-side cap; the client
	// should suggest zooming in.
	Truncated bool `json:"truncated"`
}

// HandleQuery handles GET /api/pins?lat=&lng=&lat_span=&lng_span=[&session=].
func (h *PinsHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lng, err2 := strconv.ParseFloat(q.Get("lng"), 64)
	latSpan, err3 := strconv.ParseFloat(q.Get("lat_span"), 64)
	lngSpan, err4 := strconv.ParseFloat(q.Get("lng_span"), 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		http.Error(w, "lat, lng, lat_span, lng_span are required", http.StatusBadRequest)
		return
	}
	if latSpan <= 0 || lngSpan <= 0 {
		http.Error(w, "spans must be positive", http.StatusBadRequest)
		return
	}

	ctrl := h.sessions.Get(sessionID(r))

	pins, truncated, err := ctrl.Query(r.Context(), geo.Point{Lat: lat, Lng: lng}, latSpan, lngSpan)
	if err != nil {
		slog.Warn("Pins query failed", "error", err)
		http.Error(w, "failed to fetch postings", http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(PinsResponse{
		Pins:      wirePins(pins),
		Count:     len(pins),
		Truncated: truncated,
	}); err != nil {
		slog.Error("Failed to encode pins response", "error", err)
	}
}

// Cleanup evicts idle sessions and stops their controllers.
func (h *PinsHandler) Cleanup() {
	h.sessions.Cleanup()
}

// ActiveSessions returns the number of live HTTP query sessions.
func (h *PinsHandler) ActiveSessions() int {
	return h.sessions.Len()
}

// sessionID extracts the client's session ID from the request. Anonymous
// clients share the "default" session.
func sessionID(r *http.Request) string {
	if id := r.Header.Get("X-Session-ID"); id != "" {
		return id
	}
	if id := r.URL.Query().Get("session"); id != "" {
		return id
	}
	return "default"
}

// noopRenderer satisfies viewport.Renderer for controllers that only ever
// serve synchronous queries.
type noopRenderer struct{}

func (noopRenderer) SetPins([]model.Pin) {}
func (noopRenderer) SetZoomHint(bool)    {}
