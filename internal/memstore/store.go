// Package memstore holds the ephemeral mapping from public ids back to real
// Telegram ids, plus the /refresh cooldown bookkeeping.  Nothing in this
// package ever touches the database: the whole point is that the reverse
// link lives only in process memory and evaporates on a timer.
//
// Two tracks exist with different retention:
//
//   - general: written on ordinary interactions, wiped in full by the
//     periodic sweep so a real id stays recoverable only for a bounded
//     window.
//   - support: written when a user opens a ticket, kept until the ticket is
//     explicitly closed so admins can keep replying long after the general
//     entry expired.
//
// A public id may sit in both tracks at once; removing it from one track
// never affects the other.
package memstore

import (
	"sync"
	"time"
)

// Store is a process-wide concurrency-safe map set.  Construct one at
// startup with New and stop its sweeper with Close; tests instantiate their
// own isolated stores.
type Store struct {
	mu      sync.RWMutex
	general map[int64]int64     // publicID -> realID, cleared by sweep
	support map[int64]int64     // publicID -> realID, cleared per ticket
	lastRun map[int64]time.Time // realID -> last /refresh, cleared by sweep

	done chan struct{}
	once sync.Once

	// now is swappable for cooldown tests.
	now func() time.Time
}

// New returns an empty store.  The sweeper is not started; call
// StartSweeper for the production lifecycle.
func New() *Store {
	return &Store{
		general: make(map[int64]int64),
		support: make(map[int64]int64),
		lastRun: make(map[int64]time.Time),
		done:    make(chan struct{}),
		now:     time.Now,
	}
}

// RememberGeneral records the reverse link on the short-lived track.
// Last writer wins.
func (s *Store) RememberGeneral(publicID, realID int64) {
	s.mu.Lock()
	s.general[publicID] = realID
	s.mu.Unlock()
}

// RememberSupport records the reverse link on the support track, which
// survives sweeps until ForgetSupport is called for the id.
func (s *Store) RememberSupport(publicID, realID int64) {
	s.mu.Lock()
	s.support[publicID] = realID
	s.mu.Unlock()
}

// ForgetSupport drops only the support-track entry for publicID.
func (s *Store) ForgetSupport(publicID int64) {
	s.mu.Lock()
	delete(s.support, publicID)
	s.mu.Unlock()
}

// ResolveReal returns the real id for a public id, preferring the general
// track and falling back to the support track.  The fallback is what keeps
// a user reachable for support replies after their general entry expired.
func (s *Store) ResolveReal(publicID int64) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if realID, ok := s.general[publicID]; ok {
		return realID, true
	}
	if realID, ok := s.support[publicID]; ok {
		return realID, true
	}
	return 0, false
}

// CanRun reports whether the cooldown-gated operation may run for realID
// and, when it may not, how long remains of the window.  The first call
// for an identity is always allowed.
func (s *Store) CanRun(realID int64, window time.Duration) (bool, time.Duration) {
	s.mu.RLock()
	last, ok := s.lastRun[realID]
	s.mu.RUnlock()
	if !ok {
		return true, 0
	}
	elapsed := s.now().Sub(last)
	if elapsed >= window {
		return true, 0
	}
	return false, window - elapsed
}

// MarkRun records a successful run for realID.  The cooldown is keyed by
// the real identity, not the public id, so no public-id-only path can
// sidestep it.
func (s *Store) MarkRun(realID int64) {
	s.mu.Lock()
	s.lastRun[realID] = s.now()
	s.mu.Unlock()
}

// SweepGeneral unconditionally clears the general track and the cooldown
// map.  The support track is untouched.
func (s *Store) SweepGeneral() {
	s.mu.Lock()
	s.general = make(map[int64]int64)
	s.lastRun = make(map[int64]time.Time)
	s.mu.Unlock()
}

// StartSweeper runs SweepGeneral every interval until Close is called.
func (s *Store) StartSweeper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.SweepGeneral()
			case <-s.done:
				return
			}
		}
	}()
}

// Close stops the sweeper goroutine.  Safe to call more than once.
func (s *Store) Close() {
	s.once.Do(func() { close(s.done) })
}
