package apisession

import (
	"sync"
	"testing"
	"time"
)

type testState struct {
	Counter int
}

func TestGetOrCreate(t *testing.T) {
	s := New(time.Minute, func() *testState { return &testState{} })

	a := s.Get("a")
	if a == nil {
		t.Fatal("Get returned nil")
	}
	a.Counter = 42

	// Same ID returns the same pointer.
	a2 := s.Get("a")
	if a2 != a {
		t.Error("expected same pointer for same session ID")
	}
	if a2.Counter != 42 {
		t.Errorf("expected Counter=42, got %d", a2.Counter)
	}

	// Different ID returns a fresh instance.
	b := s.Get("b")
	if b == a {
		t.Error("different session IDs should return different pointers")
	}
	if b.Counter != 0 {
		t.Errorf("new session should have Counter=0, got %d", b.Counter)
	}
	if s.Len() != 2 {
		t.Errorf("expected Len()=2, got %d", s.Len())
	}
}

func TestTTLExpiry(t *testing.T) {
	s := New(50*time.Millisecond, func() *testState { return &testState{} })

	s.Get("ephemeral")
	if s.Len() != 1 {
		t.Fatalf("expected 1, got %d", s.Len())
	}

	time.Sleep(80 * time.Millisecond)
	s.Cleanup()

	if s.Len() != 0 {
		t.Errorf("expected 0 after TTL expiry, got %d", s.Len())
	}
}

func TestCleanupKeepsActive(t *testing.T) {
	s := New(50*time.Millisecond, func() *testState { return &testState{} })

	s.Get("keep")
	time.Sleep(30 * time.Millisecond)
	// Refresh "keep" before TTL expires.
	s.Get("keep")
	time.Sleep(30 * time.Millisecond)

	s.Cleanup()
	if s.Len() != 1 {
		t.Errorf("refreshed session should survive cleanup, got Len()=%d", s.Len())
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := New(time.Minute, func() *testState { return &testState{} })
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if st := s.Get("session"); st == nil {
				t.Error("Get returned nil")
			}
		}()
	}
	wg.Wait()

	if s.Len() != 1 {
		t.Errorf("expected 1 session, got %d", s.Len())
	}
}

func TestOnEvict(t *testing.T) {
	s := New(10*time.Millisecond, func() *testState { return &testState{} })

	var evicted []*testState
	s.OnEvict(func(st *testState) { evicted = append(evicted, st) })

	a := s.Get("a")
	time.Sleep(30 * time.Millisecond)
	s.Cleanup()

	if len(evicted) != 1 || evicted[0] != a {
		t.Errorf("expected eviction callback for session a, got %v", evicted)
	}
}

func TestLazyCleanup(t *testing.T) {
	// Verify that lazy cleanup inside Get() evicts expired entries.
	s := New(10*time.Millisecond, func() *testState { return &testState{} })

	s.Get("old")
	time.Sleep(30 * time.Millisecond)

	// Trigger exactly cleanupInterval Get calls to force lazy cleanup.
	for i := 1; i < cleanupInterval; i++ {
		s.Get("trigger")
	}
	// "old" should have been evicted by the lazy cleanup on the 100th call.
	if s.Len() != 1 {
		t.Errorf("expected 1 (only 'trigger'), got %d", s.Len())
	}
}
