package password

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "beacon/pkg/domain-errors"
)

// Tests use the minimum iteration count to stay fast; production uses
// DefaultIterations.
func testHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := NewHasher(MinIterations)
	require.NoError(t, err)
	return h
}

func TestNewHasher_EnforcesMinimum(t *testing.T) {
	_, err := NewHasher(MinIterations - 1)
	require.Error(t, err)
	_, err = NewHasher(0)
	require.Error(t, err)

	h, err := NewHasher(MinIterations)
	require.NoError(t, err)
	require.NotNil(t, h)
}

func TestHashAndVerify(t *testing.T) {
	h := testHasher(t)

	stored, err := h.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.Equal(t, AlgorithmPBKDF2SHA256, stored.Algorithm)
	assert.Equal(t, MinIterations, stored.Iterations)
	assert.NotEmpty(t, stored.Salt)

	require.NoError(t, Verify("correct horse battery staple", stored))

	err = Verify("incorrect horse", stored)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCryptoFailure))
}

func TestVerify_TamperedMaterialFails(t *testing.T) {
	h := testHasher(t)
	stored, err := h.HashPassword("s3cret")
	require.NoError(t, err)

	t.Run("changed hash", func(t *testing.T) {
		mutated := stored
		raw, _ := base64.RawStdEncoding.DecodeString(stored.Hash)
		raw[0] ^= 0x01
		mutated.Hash = base64.RawStdEncoding.EncodeToString(raw)
		require.Error(t, Verify("s3cret", mutated))
	})

	t.Run("changed salt", func(t *testing.T) {
		mutated := stored
		raw, _ := base64.RawStdEncoding.DecodeString(stored.Salt)
		raw[0] ^= 0x01
		mutated.Salt = base64.RawStdEncoding.EncodeToString(raw)
		require.Error(t, Verify("s3cret", mutated))
	})

	t.Run("malformed salt", func(t *testing.T) {
		mutated := stored
		mutated.Salt = "!!not base64!!"
		require.Error(t, Verify("s3cret", mutated))
	})

	t.Run("unknown algorithm", func(t *testing.T) {
		mutated := stored
		mutated.Algorithm = "md5"
		require.Error(t, Verify("s3cret", mutated))
	})

	t.Run("iteration count below minimum", func(t *testing.T) {
		mutated := stored
		mutated.Iterations = 100
		require.Error(t, Verify("s3cret", mutated))
	})
}

func TestIterationCountTravelsWithHash(t *testing.T) {
	// A hash produced at one cost stays verifiable after the default rises.
	older, err := NewHasher(MinIterations)
	require.NoError(t, err)
	stored, err := older.HashPassword("legacy password")
	require.NoError(t, err)

	// Verification reads the cost from the stored hash, not from any
	// current default.
	require.NoError(t, Verify("legacy password", stored))
	assert.Equal(t, MinIterations, stored.Iterations)
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	h := testHasher(t)
	a, err := h.HashPassword("same")
	require.NoError(t, err)
	b, err := h.HashPassword("same")
	require.NoError(t, err)

	assert.NotEqual(t, a.Salt, b.Salt)
	assert.NotEqual(t, a.Hash, b.Hash)
}
