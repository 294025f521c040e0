package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"freestuff/pkg/filter"
	"freestuff/pkg/settings"
)

// FiltersHandler reads and updates the postings filter settings. A filter
// update needs no explicit cache invalidation: the filter key scopes every
// cache lookup, so entries stored under the old key simply stop matching.
type FiltersHandler struct {
	settings *settings.Store
}

// NewFiltersHandler creates a new FiltersHandler.
func NewFiltersHandler(st *settings.Store) *FiltersHandler {
	return &FiltersHandler{settings: st}
}

// HandleGet handles GET /api/filters.
func (h *FiltersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.settings.FilterKey()); err != nil {
		slog.Error("Failed to encode filters", "error", err)
	}
}

// HandlePut handles PUT /api/filters. The body must be a complete filter
// set; partial updates are not supported.
func (h *FiltersHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	var k filter.Key
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&k); err != nil {
		http.Error(w, "invalid filter settings: "+err.Error(), http.StatusBadRequest)
		return
	}
	if k.TimePostedMax <= 0 {
		http.Error(w, "timePostedMax must be positive", http.StatusBadRequest)
		return
	}

	if err := h.settings.Update(r.Context(), k); err != nil {
		slog.Error("Failed to save filters", "error", err)
		http.Error(w, "failed to save filters", http.StatusInternalServerError)
		return
	}

	slog.Info("Filter settings updated", "filters", k)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(k); err != nil {
		slog.Error("Failed to encode filters", "error", err)
	}
}
