package identity

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSalt() []byte {
	return []byte("0123456789abcdef0123456789abcdef")
}

func TestHashRealID_Deterministic(t *testing.T) {
	salt := testSalt()
	a := HashRealID(salt, 123456789)
	b := HashRealID(salt, 123456789)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64) // 32 bytes hex-encoded
}

func TestHashRealID_DistinctInputs(t *testing.T) {
	salt := testSalt()
	assert.NotEqual(t, HashRealID(salt, 1), HashRealID(salt, 2))
}

func TestHashRealID_SaltChangesOutput(t *testing.T) {
	other := []byte("ffffffffffffffffffffffffffffffff")
	assert.NotEqual(t, HashRealID(testSalt(), 42), HashRealID(other, 42))
}

func TestNewPublicID_Format(t *testing.T) {
	for i := 0; i < 1000; i++ {
		id := NewPublicID()
		require.True(t, ValidPublicID(id), "id out of range: %d", id)
		require.Len(t, strconv.FormatInt(id, 10), PublicIDDigits)
	}
}
