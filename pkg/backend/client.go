// Package backend implements the postings fetch contract against the
// remote FreeStuff HTTP API. Responses are GeoJSON feature collections;
// anything that fails to decode is an error, never a partial result.
package backend

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"freestuff/pkg/filter"
	"freestuff/pkg/geo"
	"freestuff/pkg/model"
)

// Defaults for the client knobs.
const (
	DefaultTimeout    = 15 * time.Second
	DefaultRetries    = 3
	DefaultBaseDelay  = 500 * time.Millisecond
	DefaultMaxDelay   = 5 * time.Second
	DefaultMaxResults = 150
)

// Config holds the backend client settings.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	Retries   int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// MaxResults mirrors the server-side result cap; a response of this
	// size (or larger) is reported as truncated.
	MaxResults int
}

// Client fetches postings from the backend.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a backend client. Zero config fields fall back to the
// defaults.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries <= 0 {
		cfg.Retries = DefaultRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     slog.With("component", "backend"),
	}
}

// FetchPins loads the postings within region matching filters. The second
// return value reports whether the response hit the server-side cap.
func (c *Client) FetchPins(ctx context.Context, region geo.Region, filters filter.Key) ([]model.Pin, bool, error) {
	u, err := url.Parse(c.cfg.BaseURL + "/postings.json")
	if err != nil {
		return nil, false, fmt.Errorf("invalid backend url: %w", err)
	}

	q := filters.Values()
	q.Set("nelat", strconv.FormatFloat(region.NELat, 'f', -1, 64))
	q.Set("nelng", strconv.FormatFloat(region.NELng, 'f', -1, 64))
	q.Set("swlat", strconv.FormatFloat(region.SWLat, 'f', -1, 64))
	q.Set("swlng", strconv.FormatFloat(region.SWLng, 'f', -1, 64))
	u.RawQuery = q.Encode()

	body, err := c.get(ctx, u.String())
	if err != nil {
		return nil, false, err
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse postings response: %w", err)
	}

	pins := make([]model.Pin, 0, len(fc.Features))
	for _, f := range fc.Features {
		pin, err := pinFromFeature(f)
		if err != nil {
			return nil, false, fmt.Errorf("malformed posting feature: %w", err)
		}
		pins = append(pins, pin)
	}

	truncated := len(pins) >= c.cfg.MaxResults
	c.logger.Debug("fetched postings", "count", len(pins), "truncated", truncated)
	return pins, truncated, nil
}

// get performs a GET with bounded retries and exponential backoff.
func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < c.cfg.Retries; attempt++ {
		if attempt > 0 {
			delay := c.backoffDelay(attempt)
			c.logger.Debug("retrying fetch", "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("backend returned status %d", resp.StatusCode)
			// Client errors won't get better on retry.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return nil, lastErr
			}
			continue
		}

		return body, nil
	}

	return nil, fmt.Errorf("fetch failed after %d attempts: %w", c.cfg.Retries, lastErr)
}

// backoffDelay returns baseDelay * 2^(attempt-1), capped at maxDelay.
func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := time.Duration(float64(c.cfg.BaseDelay) * math.Pow(2, float64(attempt-1)))
	if delay > c.cfg.MaxDelay {
		delay = c.cfg.MaxDelay
	}
	return delay
}

// pinFromFeature converts a GeoJSON feature into a Pin. Point geometry and
// an id property are required; everything else degrades to empty strings.
func pinFromFeature(f *geojson.Feature) (model.Pin, error) {
	point, ok := f.Geometry.(orb.Point)
	if !ok {
		return model.Pin{}, fmt.Errorf("unexpected geometry type %T", f.Geometry)
	}

	props := f.Properties
	id := stringProp(props, "id")
	if id == "" {
		return model.Pin{}, fmt.Errorf("feature has no id property")
	}

	return model.Pin{
		ID:         id,
		Title:      stringProp(props, "name"),
		Address:    stringProp(props, "address"),
		Link:       stringProp(props, "external_url"),
		Status:     stringProp(props, "status"),
		Category:   stringProp(props, "category"),
		TimePosted: stringProp(props, "time_posted"),
		UserID:     stringProp(props, "user_id"),
		Lat:        point.Lat(),
		Lng:        point.Lon(),
	}, nil
}

// stringProp reads a property that may arrive as a string or a number.
func stringProp(props geojson.Properties, key string) string {
	switch v := props[key].(type) {
	case string:
		return v
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}
