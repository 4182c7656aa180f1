package payments

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsDefaultsWhenFileMissing(t *testing.T) {
	s := NewSettingsStore(filepath.Join(t.TempDir(), "nope.json"))
	got := s.Get()
	assert.True(t, got.Enabled)
	assert.Equal(t, 0, got.Price)
}

func TestSettingsDefaultsWhenFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buy.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	s := NewSettingsStore(path)
	assert.True(t, s.Get().Enabled)
}

func TestSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buy.json")
	s := NewSettingsStore(path)
	require.NoError(t, s.SetEnabled(false))
	require.NoError(t, s.SetPrice(250))

	reloaded := NewSettingsStore(path)
	got := reloaded.Get()
	assert.False(t, got.Enabled)
	assert.Equal(t, 250, got.Price)
}

func TestPriceOverride(t *testing.T) {
	s := NewSettingsStore(filepath.Join(t.TempDir(), "buy.json"))
	tariff, ok := TariffByCode("plus31")
	require.True(t, ok)
	assert.Equal(t, tariff.Stars, s.PriceFor(tariff))

	require.NoError(t, s.SetPrice(42))
	assert.Equal(t, 42, s.PriceFor(tariff))

	require.NoError(t, s.SetPrice(0))
	assert.Equal(t, tariff.Stars, s.PriceFor(tariff))
}

func TestTariffByCodeUnknown(t *testing.T) {
	_, ok := TariffByCode("gold99")
	assert.False(t, ok)
}
