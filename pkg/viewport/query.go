package viewport

import (
	"context"

	"freestuff/pkg/geo"
	"freestuff/pkg/model"
)

// Query answers a one-shot viewport query synchronously, bypassing the
// debounce machinery: cache lookup first, fetch-and-store on miss. The
// renderer and notifier are not involved; the caller gets the pins and the
// truncation flag directly. Used by the plain HTTP query endpoint.
func (c *Controller) Query(ctx context.Context, center geo.Point, latSpan, lngSpan float64) ([]model.Pin, bool, error) {
	region := geo.NewRegion(center, latSpan, lngSpan)

	c.mu.Lock()
	filters := c.settings.FilterKey()
	blockGen := c.blocklist.Generation()
	force := c.forceFetch || c.lastTruncated || blockGen != c.blockGen
	c.mu.Unlock()

	if !force {
		if entry, ok := c.cache.FindCoveringEntry(region, filters); ok {
			c.tracker.TrackCacheHit()
			return entry.Pins, false, nil
		}
	}
	c.tracker.TrackCacheMiss()

	if c.cfg.PrefetchFactor > 0 {
		region = region.Inflated(c.cfg.PrefetchFactor)
	}

	pins, truncated, err := c.fetcher.FetchPins(ctx, region, filters)
	if err != nil {
		c.tracker.TrackFetchFailure()
		return nil, false, err
	}

	truncated = truncated || len(pins) >= c.cfg.TruncationThreshold
	pins = dropBlocked(pins, c.blocklist.BlockedIDs())

	c.cache.Store(pins, region, filters, truncated)

	c.mu.Lock()
	c.lastTruncated = truncated
	c.forceFetch = false
	c.blockGen = blockGen
	c.mu.Unlock()

	c.tracker.TrackFetchSuccess()
	if truncated {
		c.tracker.TrackTruncated()
	}

	return pins, truncated, nil
}
