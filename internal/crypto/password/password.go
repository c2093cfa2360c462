// Package password hashes and verifies secrets with PBKDF2-HMAC-SHA256.
// The iteration count and salt travel with each stored hash so existing
// hashes stay verifiable after the default cost is raised.
package password

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"golang.org/x/crypto/pbkdf2"

	dErrors "beacon/pkg/domain-errors"
)

const (
	// AlgorithmPBKDF2SHA256 tags hashes produced by this package.
	AlgorithmPBKDF2SHA256 = "pbkdf2-sha256"

	// MinIterations is the floor below which hashing is refused. The
	// configured default is expected to rise over time.
	MinIterations = 10_000

	// DefaultIterations is the cost applied to new hashes.
	DefaultIterations = 600_000

	saltSize = 16
	keyLen   = 32
)

// Hash is the persisted form of a hashed secret.
type Hash struct {
	Hash       string
	Salt       string
	Algorithm  string
	Iterations int
}

// Hasher derives hashes at a configured iteration count.
type Hasher struct {
	iterations int
}

// NewHasher builds a Hasher. Iterations below MinIterations are rejected.
func NewHasher(iterations int) (*Hasher, error) {
	if iterations < MinIterations {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "iteration count below minimum")
	}
	return &Hasher{iterations: iterations}, nil
}

// HashPassword derives a hash with a fresh random salt.
func (h *Hasher) HashPassword(password string) (Hash, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return Hash{}, dErrors.Wrap(err, dErrors.CodeInternal, "generate salt")
	}
	return h.hashWithSalt(password, salt), nil
}

// HashPasswordWithSalt derives a hash with a caller-provided salt. Used when
// re-deriving for verification against imported material.
func (h *Hasher) HashPasswordWithSalt(password string, salt []byte) (Hash, error) {
	if len(salt) == 0 {
		return Hash{}, dErrors.New(dErrors.CodeInvalidInput, "salt cannot be empty")
	}
	return h.hashWithSalt(password, salt), nil
}

func (h *Hasher) hashWithSalt(password string, salt []byte) Hash {
	derived := pbkdf2.Key([]byte(password), salt, h.iterations, keyLen, sha256.New)
	return Hash{
		Hash:       base64.RawStdEncoding.EncodeToString(derived),
		Salt:       base64.RawStdEncoding.EncodeToString(salt),
		Algorithm:  AlgorithmPBKDF2SHA256,
		Iterations: h.iterations,
	}
}

// Verify recomputes the derivation with the stored salt and iteration count
// and compares in constant time. It fails closed with CodeCryptoFailure on
// mismatch or malformed stored material.
func Verify(password string, stored Hash) error {
	if stored.Algorithm != AlgorithmPBKDF2SHA256 {
		return dErrors.New(dErrors.CodeCryptoFailure, "unsupported hash algorithm")
	}
	if stored.Iterations < MinIterations {
		return dErrors.New(dErrors.CodeCryptoFailure, "stored iteration count below minimum")
	}
	salt, err := base64.RawStdEncoding.DecodeString(stored.Salt)
	if err != nil || len(salt) == 0 {
		return dErrors.New(dErrors.CodeCryptoFailure, "malformed stored salt")
	}
	want, err := base64.RawStdEncoding.DecodeString(stored.Hash)
	if err != nil || len(want) == 0 {
		return dErrors.New(dErrors.CodeCryptoFailure, "malformed stored hash")
	}

	got := pbkdf2.Key([]byte(password), salt, stored.Iterations, len(want), sha256.New)
	if !hmac.Equal(got, want) {
		return dErrors.New(dErrors.CodeCryptoFailure, "password mismatch")
	}
	return nil
}
