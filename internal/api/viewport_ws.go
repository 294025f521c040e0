package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"freestuff/pkg/areacache"
	"freestuff/pkg/blocklist"
	"freestuff/pkg/filter"
	"freestuff/pkg/geo"
	"freestuff/pkg/model"
	"freestuff/pkg/settings"
	"freestuff/pkg/tracker"
	"freestuff/pkg/viewport"
)

const (
	// Time allowed to write a message to the peer.
	wsWriteWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	wsPongWait = 60 * time.Second
	// Send pings to peer with this period (must be less than wsPongWait).
	wsPingPeriod = (wsPongWait * 9) / 10
	// Maximum message size allowed from peer.
	wsMaxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The daemon binds to localhost; cross-origin pages must not drive it.
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
	},
}

// ViewportHandler upgrades GET /api/viewport to a WebSocket and runs one
// fetch controller per connection. Viewport changes stream in from the map,
// pin sets and advisories stream back out; the debounce and cache logic
// lives entirely in the controller.
type ViewportHandler struct {
	cfg       viewport.Config
	cache     *areacache.Cache
	fetcher   viewport.Fetcher
	blocklist *blocklist.Store
	settings  *settings.Store
	tracker   *tracker.Tracker
}

// NewViewportHandler creates a new ViewportHandler.
func NewViewportHandler(cfg viewport.Config, cache *areacache.Cache, f viewport.Fetcher, bl *blocklist.Store, st *settings.Store, tr *tracker.Tracker) *ViewportHandler {
	return &ViewportHandler{
		cfg:       cfg,
		cache:     cache,
		fetcher:   f,
		blocklist: bl,
		settings:  st,
		tracker:   tr,
	}
}

// clientMessage is what the map UI sends.
type clientMessage struct {
	Type    string      `json:"type"`
	Lat     float64     `json:"lat,omitempty"`
	Lng     float64     `json:"lng,omitempty"`
	LatSpan float64     `json:"lat_span,omitempty"`
	LngSpan float64     `json:"lng_span,omitempty"`
	Filters *filter.Key `json:"filters,omitempty"`
}

// HandleConnect handles GET /api/viewport.
func (h *ViewportHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{
		conn:   conn,
		send:   make(chan []byte, 64),
		done:   make(chan struct{}),
		logger: slog.With("component", "viewport_ws", "conn", uuid.NewString()[:8]),
	}
	ctrl := viewport.NewController(h.cfg, h.cache, h.fetcher, h.blocklist, h.settings, client, client, h.tracker)

	client.logger.Info("Viewport channel opened", "remote", r.RemoteAddr)
	go client.writePump()
	h.readPump(r.Context(), client, ctrl)
}

// readPump consumes client messages until the connection drops, then tears
// down the controller.
func (h *ViewportHandler) readPump(ctx context.Context, c *wsClient, ctrl *viewport.Controller) {
	defer func() {
		ctrl.Stop()
		c.close()
		c.logger.Info("Viewport channel closed")
	}()

	c.conn.SetReadLimit(wsMaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("WebSocket read error", "error", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.Warn("Ignoring malformed message", "error", err)
			continue
		}

		switch msg.Type {
		case "viewport":
			if msg.LatSpan <= 0 || msg.LngSpan <= 0 {
				c.logger.Warn("Ignoring viewport with non-positive span")
				continue
			}
			ctrl.ViewportChanged(geo.Point{Lat: msg.Lat, Lng: msg.Lng}, msg.LatSpan, msg.LngSpan)

		case "refresh":
			ctrl.Refresh()

		case "filters":
			if msg.Filters == nil {
				c.logger.Warn("Ignoring filters message without filters")
				continue
			}
			if err := h.settings.Update(ctx, *msg.Filters); err != nil {
				c.logger.Error("Failed to save filters", "error", err)
				c.sendJSON(map[string]any{"type": "notice", "kind": "error", "message": "failed to save filters"})
				continue
			}
			ctrl.SettingsChanged()
			ctrl.Refresh()

		default:
			c.logger.Warn("Unknown message type", "type", msg.Type)
		}
	}
}

// wsClient owns one WebSocket connection. It implements viewport.Renderer
// and viewport.Notifier by marshaling the controller's callbacks into
// outbound messages; the send channel decouples the controller's goroutine
// from socket writes.
type wsClient struct {
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	logger *slog.Logger
}

// SetPins implements viewport.Renderer.
func (c *wsClient) SetPins(pins []model.Pin) {
	c.sendJSON(map[string]any{"type": "pins", "pins": wirePins(pins), "count": len(pins)})
}

// SetZoomHint implements viewport.Renderer.
func (c *wsClient) SetZoomHint(on bool) {
	c.sendJSON(map[string]any{"type": "zoom_hint", "active": on})
}

// Notify implements viewport.Notifier.
func (c *wsClient) Notify(n viewport.Notice) {
	kind := "error"
	if n.Kind == viewport.NoticeOversizedRegion {
		kind = "oversized_region"
	}
	c.sendJSON(map[string]any{"type": "notice", "kind": kind, "message": n.Message})
}

func (c *wsClient) sendJSON(v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal outbound message", "error", err)
		return
	}
	select {
	case c.send <- raw:
	default:
		// A client too slow to drain its buffer loses the message; the next
		// viewport change resends current state anyway.
		c.logger.Warn("Dropping outbound message, send buffer full")
	}
}

// close signals writePump to finish. The send channel stays open: a fetch
// that was in flight during teardown may still deliver a callback, which
// must not panic.
func (c *wsClient) close() {
	close(c.done)
}

// writePump serialises all socket writes and keeps the connection alive
// with periodic pings.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case raw := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
