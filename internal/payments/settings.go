package payments

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

// Settings is the admin-editable purchase state.  Enabled gates /buy
// entirely; Price overrides the tariff table's Stars amount when > 0.
type Settings struct {
	Enabled bool `json:"enabled"`
	Price   int  `json:"price"`
}

// SettingsStore persists Settings to a JSON file and serializes access.
// The file survives restarts so a /closebuy issued before a deploy is
// still in force after it.
type SettingsStore struct {
	mu   sync.Mutex
	path string
	cur  Settings
}

// NewSettingsStore loads settings from path.  A missing or unreadable
// file yields the defaults (purchases enabled, tariff pricing) rather
// than an error: the store must never block startup.
func NewSettingsStore(path string) *SettingsStore {
	s := &SettingsStore{path: path, cur: Settings{Enabled: true}}
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	if err := json.Unmarshal(data, &s.cur); err != nil {
		log.Printf("payments: ignoring malformed settings file %s: %v", path, err)
		s.cur = Settings{Enabled: true}
	}
	return s
}

// Get returns a snapshot of the current settings.
func (s *SettingsStore) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// SetEnabled toggles purchasing and persists the change.
func (s *SettingsStore) SetEnabled(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.Enabled = on
	return s.save()
}

// SetPrice overrides the Stars price for all tariffs and persists the
// change.  A price of 0 restores tariff-table pricing.
func (s *SettingsStore) SetPrice(stars int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.Price = stars
	return s.save()
}

// PriceFor resolves the effective Stars price for a tariff, honoring an
// admin override when one is set.
func (s *SettingsStore) PriceFor(t Tariff) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur.Price > 0 {
		return s.cur.Price
	}
	return t.Stars
}

// save writes the current settings under the lock.
func (s *SettingsStore) save() error {
	data, err := json.MarshalIndent(s.cur, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}
