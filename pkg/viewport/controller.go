// Package viewport decides, on every map viewport change, whether a
// postings query can be served from the area cache or needs a network
// fetch, and debounces the bursts of changes that continuous panning
// produces.
package viewport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"freestuff/pkg/areacache"
	"freestuff/pkg/filter"
	"freestuff/pkg/geo"
	"freestuff/pkg/model"
	"freestuff/pkg/tracker"
)

// Defaults for the tuning knobs.
const (
	DefaultDebounceDelay       = 400 * time.Millisecond
	DefaultTruncationThreshold = 150
	DefaultMaxAreaDegrees      = 1.0
)

// Fetcher loads postings for a bounding box from the backend. The returned
// flag reports whether the result hit a server-side cap.
type Fetcher interface {
	FetchPins(ctx context.Context, region geo.Region, filters filter.Key) (pins []model.Pin, truncated bool, err error)
}

// Blocklist supplies the set of blocked poster IDs. Generation increments
// on every block or unblock, so consumers can detect that cached data was
// filtered under an outdated set.
type Blocklist interface {
	BlockedIDs() map[string]bool
	Generation() uint64
}

// Settings supplies the filter key reflecting the current user settings.
// It is read fresh at each fetch decision point.
type Settings interface {
	FilterKey() filter.Key
}

// Renderer consumes the pin set for the current viewport.
type Renderer interface {
	SetPins(pins []model.Pin)
	// SetZoomHint raises or clears the "zoom in to see everything" hint
	// that accompanies a truncated result.
	SetZoomHint(on bool)
}

// NoticeKind classifies a user-facing advisory.
type NoticeKind int

const (
	// NoticeOversizedRegion advises that the viewport exceeds the query
	// area limit. The fetch still proceeds.
	NoticeOversizedRegion NoticeKind = iota
	// NoticeFetchError reports a failed backend fetch. The previously
	// rendered pins stay visible.
	NoticeFetchError
)

// Notice is a user-facing advisory message.
type Notice struct {
	Kind    NoticeKind
	Message string
}

// Notifier surfaces advisories to the UI.
type Notifier interface {
	Notify(n Notice)
}

// Config holds the controller tuning knobs.
type Config struct {
	DebounceDelay       time.Duration
	TruncationThreshold int
	MaxAreaDegrees      float64
	// PrefetchFactor inflates the fetched region beyond the viewport so
	// small pans stay within cached bounds. 0 disables prefetching.
	PrefetchFactor float64
}

// withDefaults fills zero fields with the default knob values.
func (c Config) withDefaults() Config {
	if c.DebounceDelay <= 0 {
		c.DebounceDelay = DefaultDebounceDelay
	}
	if c.TruncationThreshold <= 0 {
		c.TruncationThreshold = DefaultTruncationThreshold
	}
	if c.MaxAreaDegrees <= 0 {
		c.MaxAreaDegrees = DefaultMaxAreaDegrees
	}
	return c
}

// Controller orchestrates cache lookups and debounced fetches for one map
// view. At most one fetch is in flight at a time; a viewport change while
// fetching does not spawn a second request, and a result that arrives for a
// superseded viewport is cached but never rendered.
type Controller struct {
	cfg       Config
	cache     *areacache.Cache
	fetcher   Fetcher
	blocklist Blocklist
	settings  Settings
	renderer  Renderer
	notifier  Notifier
	tracker   *tracker.Tracker
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	lastRegion geo.Region
	fetching   bool
	// lastTruncated forces a network fetch even on a containment hit: a
	// truncated result never proves the cache is complete for a viewport.
	lastTruncated bool
	// forceFetch skips the next cache lookup outright. Set on settings
	// changes; functionally redundant with the filter key changing, kept
	// for clarity.
	forceFetch bool
	blockGen   uint64
}

// NewController wires a controller. The notifier may be nil.
func NewController(cfg Config, cache *areacache.Cache, f Fetcher, bl Blocklist, st Settings, r Renderer, n Notifier, tr *tracker.Tracker) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		cfg:       cfg.withDefaults(),
		cache:     cache,
		fetcher:   f,
		blocklist: bl,
		settings:  st,
		renderer:  r,
		notifier:  n,
		tracker:   tr,
		logger:    slog.With("component", "viewport"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// ViewportChanged handles a map region change. The fetch decision is
// deferred by the debounce delay; any further change within that window
// cancels and re-arms the timer (last change wins).
func (c *Controller) ViewportChanged(center geo.Point, latSpan, lngSpan float64) {
	region := geo.NewRegion(center, latSpan, lngSpan)

	if area := region.Area(); area > c.cfg.MaxAreaDegrees {
		c.notify(Notice{
			Kind:    NoticeOversizedRegion,
			Message: fmt.Sprintf("Region too large (%.2f deg²). Please zoom in to a smaller area.", area),
		})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	gen := c.generation
	c.lastRegion = region

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.cfg.DebounceDelay, func() {
		c.fire(gen)
	})
}

// Refresh forces an immediate fetch for the last seen viewport, bypassing
// both debounce and cache. A no-op before the first viewport change.
func (c *Controller) Refresh() {
	c.mu.Lock()
	if c.lastRegion == (geo.Region{}) {
		c.mu.Unlock()
		return
	}
	c.generation++
	gen := c.generation
	c.forceFetch = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.mu.Unlock()

	c.fire(gen)
}

// SettingsChanged marks the user settings as dirty so the next decision
// goes straight to the network.
func (c *Controller) SettingsChanged() {
	c.mu.Lock()
	c.forceFetch = true
	c.mu.Unlock()
}

// Stop cancels the debounce timer and any in-flight fetch context.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.mu.Unlock()
	c.cancel()
}

// fire runs the fetch decision for the given generation. Called from the
// debounce timer, or directly after a superseded fetch completes.
func (c *Controller) fire(gen uint64) {
	c.mu.Lock()

	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	if c.fetching {
		// The in-flight completion re-runs the decision for the newest
		// generation, so this change is not lost.
		c.mu.Unlock()
		return
	}

	region := c.lastRegion
	filters := c.settings.FilterKey()
	blockGen := c.blocklist.Generation()
	force := c.forceFetch || c.lastTruncated || blockGen != c.blockGen

	if !force {
		if entry, ok := c.cache.FindCoveringEntry(region, filters); ok {
			c.mu.Unlock()
			c.tracker.TrackCacheHit()
			c.logger.Debug("cache hit", "pins", len(entry.Pins))
			c.renderer.SetPins(entry.Pins)
			c.renderer.SetZoomHint(false)
			return
		}
	}
	c.tracker.TrackCacheMiss()

	fetchRegion := region
	if c.cfg.PrefetchFactor > 0 {
		fetchRegion = region.Inflated(c.cfg.PrefetchFactor)
	}

	c.fetching = true
	c.mu.Unlock()

	go c.doFetch(gen, fetchRegion, filters, blockGen)
}

func (c *Controller) doFetch(gen uint64, region geo.Region, filters filter.Key, blockGen uint64) {
	c.logger.Debug("fetching", "region", region, "generation", gen)

	pins, truncated, err := c.fetcher.FetchPins(c.ctx, region, filters)

	c.mu.Lock()
	c.fetching = false

	if err != nil {
		currentGen := c.generation
		pending := gen != currentGen || c.forceFetch
		c.mu.Unlock()
		c.tracker.TrackFetchFailure()
		c.logger.Warn("fetch failed", "error", err)
		// The rendered set stays as it was; stale-but-valid beats empty.
		c.notify(Notice{Kind: NoticeFetchError, Message: "Postings could not be loaded: " + err.Error()})
		if pending {
			// A viewport change landed while this fetch was in flight and
			// its fire() deferred to us. Re-run the decision so it is not
			// dropped along with the failed fetch.
			c.fire(currentGen)
		}
		return
	}

	truncated = truncated || len(pins) >= c.cfg.TruncationThreshold

	// Drop postings from blocked users before caching, so the cache only
	// ever holds what may be rendered. Unblocking bumps the blocklist
	// generation, which forces a fresh fetch rather than un-filtering
	// cached entries.
	pins = dropBlocked(pins, c.blocklist.BlockedIDs())

	c.cache.Store(pins, region, filters, truncated)
	c.lastTruncated = truncated
	c.forceFetch = false
	c.blockGen = blockGen

	current := gen == c.generation
	currentGen := c.generation
	c.mu.Unlock()

	c.tracker.TrackFetchSuccess()
	if truncated {
		c.tracker.TrackTruncated()
	}

	if !current {
		// The viewport moved on while this fetch was in flight. The data
		// is still valid for its region and was cached above, but it no
		// longer belongs on screen.
		c.tracker.TrackFetchDiscarded()
		c.logger.Debug("discarding superseded fetch result", "generation", gen)
		c.fire(currentGen)
		return
	}

	c.logger.Info("fetched pins", "count", len(pins), "truncated", truncated)
	c.renderer.SetPins(pins)
	c.renderer.SetZoomHint(truncated)
}

func (c *Controller) notify(n Notice) {
	if c.notifier != nil {
		c.notifier.Notify(n)
	}
}

func dropBlocked(pins []model.Pin, blocked map[string]bool) []model.Pin {
	if len(blocked) == 0 {
		return pins
	}
	kept := pins[:0:0]
	for _, p := range pins {
		if !blocked[p.UserID] {
			kept = append(kept, p)
		}
	}
	return kept
}
