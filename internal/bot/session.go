package bot

import (
	"sync"
	"time"
)

// adminSessions tracks which admins have authenticated with /login since
// the process started.  Sessions are memory-only: a restart logs every
// admin out, same as the reverse-lookup store losing its entries.
type adminSessions struct {
	mu       sync.Mutex
	loggedIn map[int64]time.Time
}

func newAdminSessions() *adminSessions {
	return &adminSessions{loggedIn: make(map[int64]time.Time)}
}

func (s *adminSessions) IsLoggedIn(tgID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.loggedIn[tgID]
	return ok
}

func (s *adminSessions) MarkLoggedIn(tgID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggedIn[tgID] = time.Now()
}
