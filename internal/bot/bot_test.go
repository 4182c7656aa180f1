package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		in   string
		cmd  string
		args []string
	}{
		{"/start", "/start", nil},
		{"/refund 12345678 99 abc", "/refund", []string{"12345678", "99", "abc"}},
		{"/buy@KynixVPNBot", "/buy", nil},
		{"hello there", "", nil},
		{"", "", nil},
		{"  /refresh  ", "/refresh", nil},
	}
	for _, tc := range cases {
		cmd, args := splitCommand(tc.in)
		assert.Equal(t, tc.cmd, cmd, tc.in)
		if len(tc.args) == 0 {
			assert.Empty(t, args, tc.in)
		} else {
			assert.Equal(t, tc.args, args, tc.in)
		}
	}
}

func TestCooldownMinutes(t *testing.T) {
	// Rounded up, floored at five minutes.
	assert.Equal(t, 15, cooldownMinutes(15*time.Minute))
	assert.Equal(t, 15, cooldownMinutes(14*time.Minute+1*time.Second))
	assert.Equal(t, 5, cooldownMinutes(90*time.Second))
	assert.Equal(t, 5, cooldownMinutes(0))
}

func TestAdminSessions(t *testing.T) {
	s := newAdminSessions()
	assert.False(t, s.IsLoggedIn(7))
	s.MarkLoggedIn(7)
	assert.True(t, s.IsLoggedIn(7))
	assert.False(t, s.IsLoggedIn(8))
}
