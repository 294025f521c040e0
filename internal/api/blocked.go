package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"freestuff/pkg/blocklist"
)

// BlockedHandler manages the blocked-users list. Blocking takes effect on
// the next fetch; unblocking bumps the blocklist generation so cached
// entries filtered under the old set are not reused.
type BlockedHandler struct {
	blocklist *blocklist.Store
}

// NewBlockedHandler creates a new BlockedHandler.
func NewBlockedHandler(bl *blocklist.Store) *BlockedHandler {
	return &BlockedHandler{blocklist: bl}
}

// HandleList handles GET /api/blocked.
func (h *BlockedHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ids := h.blocklist.SortedIDs()
	if ids == nil {
		ids = []string{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string][]string{"blocked": ids}); err != nil {
		slog.Error("Failed to encode blocklist", "error", err)
	}
}

// HandleBlock handles POST /api/blocked with body {"user_id": "..."}.
func (h *BlockedHandler) HandleBlock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	if err := h.blocklist.Block(r.Context(), req.UserID); err != nil {
		slog.Error("Failed to block user", "user_id", req.UserID, "error", err)
		http.Error(w, "failed to block user", http.StatusInternalServerError)
		return
	}

	slog.Info("User blocked", "user_id", req.UserID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleUnblock handles DELETE /api/blocked/{id}.
func (h *BlockedHandler) HandleUnblock(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "user id is required", http.StatusBadRequest)
		return
	}

	if err := h.blocklist.Unblock(r.Context(), id); err != nil {
		slog.Error("Failed to unblock user", "user_id", id, "error", err)
		http.Error(w, "failed to unblock user", http.StatusInternalServerError)
		return
	}

	slog.Info("User unblocked", "user_id", id)
	w.WriteHeader(http.StatusNoContent)
}
