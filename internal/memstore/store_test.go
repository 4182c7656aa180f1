package memstore

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveReal_FallbackOrder(t *testing.T) {
	s := New()
	defer s.Close()

	_, ok := s.ResolveReal(11112222)
	assert.False(t, ok)

	s.RememberSupport(11112222, 500)
	got, ok := s.ResolveReal(11112222)
	require.True(t, ok)
	assert.Equal(t, int64(500), got)

	// General track takes precedence once present.
	s.RememberGeneral(11112222, 600)
	got, _ = s.ResolveReal(11112222)
	assert.Equal(t, int64(600), got)
}

func TestForgetSupport_LeavesGeneral(t *testing.T) {
	s := New()
	defer s.Close()

	s.RememberGeneral(33334444, 1)
	s.RememberSupport(33334444, 1)
	s.ForgetSupport(33334444)

	_, ok := s.ResolveReal(33334444)
	assert.True(t, ok, "general entry must survive ForgetSupport")
}

func TestSweepGeneral_KeepsSupportTrack(t *testing.T) {
	s := New()
	defer s.Close()

	s.RememberGeneral(11111111, 100)
	s.RememberSupport(22222222, 200)
	s.MarkRun(100)

	s.SweepGeneral()

	_, ok := s.ResolveReal(11111111)
	assert.False(t, ok, "general entry must be gone after sweep")

	got, ok := s.ResolveReal(22222222)
	require.True(t, ok, "support entry must survive sweep")
	assert.Equal(t, int64(200), got)

	// Cooldown state is wiped too.
	allowed, _ := s.CanRun(100, 30*time.Minute)
	assert.True(t, allowed)
}

func TestCooldown_Window(t *testing.T) {
	s := New()
	defer s.Close()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	s.now = func() time.Time { return current }

	const window = 1800 * time.Second

	allowed, remaining := s.CanRun(7, window)
	require.True(t, allowed)
	assert.Zero(t, remaining)

	s.MarkRun(7)

	current = base.Add(900 * time.Second)
	allowed, remaining = s.CanRun(7, window)
	assert.False(t, allowed)
	assert.Equal(t, 900*time.Second, remaining)

	current = base.Add(1801 * time.Second)
	allowed, _ = s.CanRun(7, window)
	assert.True(t, allowed)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New()
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			pub := 10000000 + n
			s.RememberGeneral(pub, n)
			s.RememberSupport(pub, n)
			s.ResolveReal(pub)
			s.MarkRun(n)
			s.CanRun(n, time.Minute)
			if n%10 == 0 {
				s.SweepGeneral()
			}
		}(int64(i))
	}
	wg.Wait()
}

func TestStartSweeper_Fires(t *testing.T) {
	s := New()
	s.RememberGeneral(99999999, 1)
	s.StartSweeper(10 * time.Millisecond)
	defer s.Close()

	assert.Eventually(t, func() bool {
		_, ok := s.ResolveReal(99999999)
		return !ok
	}, time.Second, 5*time.Millisecond)
}
