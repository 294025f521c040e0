// Package blocklist persists the set of blocked poster IDs. Postings from
// blocked users are filtered out between fetch and cache, so the blocklist
// generation is part of the cache-freshness decision: any block or unblock
// bumps it and forces a fresh fetch instead of retroactively rewriting
// cached entries.
package blocklist

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"freestuff/pkg/db"
)

// Store is a sqlite-backed blocked-users set with an in-memory view.
// It is safe for concurrent use.
type Store struct {
	db *db.DB

	mu  sync.RWMutex
	ids map[string]bool
	gen uint64
}

// NewStore creates a store and hydrates the in-memory set from the database.
func NewStore(ctx context.Context, d *db.DB) (*Store, error) {
	s := &Store{
		db:  d,
		ids: make(map[string]bool),
	}

	rows, err := d.QueryContext(ctx, "SELECT user_id FROM blocked_users")
	if err != nil {
		return nil, fmt.Errorf("failed to load blocked users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan blocked user: %w", err)
		}
		s.ids[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return s, nil
}

// Block adds a user to the blocklist. Blocking an already-blocked user is a
// no-op and does not bump the generation.
func (s *Store) Block(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ids[userID] {
		return nil
	}

	if _, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO blocked_users (user_id) VALUES (?)", userID); err != nil {
		return fmt.Errorf("failed to block user: %w", err)
	}

	s.ids[userID] = true
	s.gen++
	return nil
}

// Unblock removes a user from the blocklist. Cached entries fetched while
// the user was blocked stay filtered; the generation bump makes the next
// viewport decision refetch instead.
func (s *Store) Unblock(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ids[userID] {
		return nil
	}

	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM blocked_users WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to unblock user: %w", err)
	}

	delete(s.ids, userID)
	s.gen++
	return nil
}

// IsBlocked reports whether the user is currently blocked.
func (s *Store) IsBlocked(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ids[userID]
}

// BlockedIDs returns a copy of the blocked set.
func (s *Store) BlockedIDs() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]bool, len(s.ids))
	for id := range s.ids {
		out[id] = true
	}
	return out
}

// SortedIDs returns the blocked user IDs in stable order, for display.
func (s *Store) SortedIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Generation returns a counter that increments on every block or unblock.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}
