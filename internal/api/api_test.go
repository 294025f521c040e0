package api

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"freestuff/pkg/areacache"
	"freestuff/pkg/blocklist"
	"freestuff/pkg/db"
	"freestuff/pkg/filter"
	"freestuff/pkg/geo"
	"freestuff/pkg/model"
	"freestuff/pkg/settings"
	"freestuff/pkg/tracker"
	"freestuff/pkg/viewport"
)

// fakeFetcher returns a canned pin set and counts calls. The mutex matters
// for the WebSocket tests, where fetches run on the controller's goroutine.
type fakeFetcher struct {
	mu        sync.Mutex
	pins      []model.Pin
	truncated bool
	err       error
	calls     int
}

func (f *fakeFetcher) FetchPins(ctx context.Context, region geo.Region, filters filter.Key) ([]model.Pin, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.pins, f.truncated, f.err
}

// testEnv bundles the stores and handlers most API tests need.
type testEnv struct {
	db        *db.DB
	blocklist *blocklist.Store
	settings  *settings.Store
	cache     *areacache.Cache
	tracker   *tracker.Tracker
	fetcher   *fakeFetcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	d, err := db.Init(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	bl, err := blocklist.NewStore(ctx, d)
	require.NoError(t, err)
	st, err := settings.NewStore(ctx, d)
	require.NoError(t, err)

	return &testEnv{
		db:        d,
		blocklist: bl,
		settings:  st,
		cache:     areacache.New(time.Minute, 30),
		tracker:   tracker.New(),
		fetcher:   &fakeFetcher{},
	}
}

func (e *testEnv) pinsHandler() *PinsHandler {
	return NewPinsHandler(viewport.Config{}, time.Minute, e.cache, e.fetcher, e.blocklist, e.settings, e.tracker)
}
