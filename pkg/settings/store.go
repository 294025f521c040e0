// Package settings persists the user's postings filters. The stored value
// feeds the filter key that scopes every cache lookup and backend fetch.
package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"freestuff/pkg/db"
	"freestuff/pkg/filter"
)

const stateKey = "filters"

// Store keeps the current filter settings in memory and mirrors them to the
// app_state table. It is safe for concurrent use.
type Store struct {
	db *db.DB

	mu  sync.RWMutex
	key filter.Key
}

// NewStore loads the persisted filters, falling back to defaults when no
// previous state exists.
func NewStore(ctx context.Context, d *db.DB) (*Store, error) {
	s := &Store{db: d, key: filter.Default()}

	var raw string
	err := d.QueryRowContext(ctx,
		"SELECT value FROM app_state WHERE key = ?", stateKey).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load filter settings: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), &s.key); err != nil {
		return nil, fmt.Errorf("failed to parse filter settings: %w", err)
	}
	return s, nil
}

// FilterKey returns the current filter key. Called fresh at each fetch
// decision point.
func (s *Store) FilterKey() filter.Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}

// Update replaces the filter settings and persists them.
func (s *Store) Update(ctx context.Context, k filter.Key) error {
	raw, err := json.Marshal(k)
	if err != nil {
		return fmt.Errorf("failed to encode filter settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO app_state (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		stateKey, string(raw), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save filter settings: %w", err)
	}

	s.key = k
	return nil
}
