package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockedLifecycle(t *testing.T) {
	env := newTestEnv(t)
	h := NewBlockedHandler(env.blocklist)

	// Empty list to start.
	rec := httptest.NewRecorder()
	h.HandleList(rec, httptest.NewRequest(http.MethodGet, "/api/blocked", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"blocked":[]}`, rec.Body.String())

	// Block two users.
	for _, id := range []string{"mallory", "eve"} {
		rec = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/blocked", strings.NewReader(`{"user_id":"`+id+`"}`))
		h.HandleBlock(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	rec = httptest.NewRecorder()
	h.HandleList(rec, httptest.NewRequest(http.MethodGet, "/api/blocked", nil))
	var resp struct {
		Blocked []string `json:"blocked"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"eve", "mallory"}, resp.Blocked, "sorted for display")

	// Unblock via path value.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/blocked/eve", nil)
	req.SetPathValue("id", "eve")
	h.HandleUnblock(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, env.blocklist.IsBlocked("eve"))
	assert.True(t, env.blocklist.IsBlocked("mallory"))
}

func TestBlockedRejectsMissingID(t *testing.T) {
	env := newTestEnv(t)
	h := NewBlockedHandler(env.blocklist)

	rec := httptest.NewRecorder()
	h.HandleBlock(rec, httptest.NewRequest(http.MethodPost, "/api/blocked", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleUnblock(rec, httptest.NewRequest(http.MethodDelete, "/api/blocked/", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
