package envelope

import (
	"bytes"
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "beacon/pkg/domain-errors"
)

func testKEK(t *testing.T) []byte {
	t.Helper()
	kek := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, kek)
	require.NoError(t, err)
	return kek
}

func TestNewEncryptor_RejectsBadKEK(t *testing.T) {
	for _, n := range []int{0, 16, 31, 33, 64} {
		_, err := NewEncryptor(make([]byte, n))
		require.Error(t, err, "kek of %d bytes should be rejected", n)
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	enc, err := NewEncryptor(testKEK(t))
	require.NoError(t, err)

	large := make([]byte, 2<<20) // 2 MiB
	_, err = io.ReadFull(rand.Reader, large)
	require.NoError(t, err)

	cases := [][]byte{
		[]byte(""),
		[]byte("x"),
		[]byte("reporter describes chest pain, third floor, apartment 12"),
		bytes.Repeat([]byte{0x00}, 1024),
		large,
	}

	for _, plaintext := range cases {
		env, err := enc.Encrypt(plaintext)
		require.NoError(t, err)
		assert.Equal(t, AlgorithmAES256GCM, env.AlgorithmTag)
		assert.NotEmpty(t, env.WrappedDataKey)
		assert.False(t, env.CreatedAt.IsZero())

		got, err := enc.Decrypt(env)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestEncrypt_FreshDEKPerCall(t *testing.T) {
	enc, err := NewEncryptor(testKEK(t))
	require.NoError(t, err)

	a, err := enc.Encrypt([]byte("same plaintext"))
	require.NoError(t, err)
	b, err := enc.Encrypt([]byte("same plaintext"))
	require.NoError(t, err)

	assert.NotEqual(t, a.Ciphertext, b.Ciphertext)
	assert.NotEqual(t, a.WrappedDataKey, b.WrappedDataKey)
}

func TestDecrypt_BitFlipFailsClosed(t *testing.T) {
	enc, err := NewEncryptor(testKEK(t))
	require.NoError(t, err)

	env, err := enc.Encrypt([]byte("tamper target"))
	require.NoError(t, err)

	t.Run("every ciphertext byte", func(t *testing.T) {
		for i := range env.Ciphertext {
			mutated := env
			mutated.Ciphertext = bytes.Clone(env.Ciphertext)
			mutated.Ciphertext[i] ^= 0x01

			_, err := enc.Decrypt(mutated)
			require.Error(t, err, "flip at ciphertext byte %d must fail", i)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeCryptoFailure))
		}
	})

	t.Run("every wrapped key byte", func(t *testing.T) {
		for i := range env.WrappedDataKey {
			mutated := env
			mutated.WrappedDataKey = bytes.Clone(env.WrappedDataKey)
			mutated.WrappedDataKey[i] ^= 0x80

			_, err := enc.Decrypt(mutated)
			require.Error(t, err, "flip at wrapped key byte %d must fail", i)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeCryptoFailure))
		}
	})
}

func TestDecrypt_WrongKEKFails(t *testing.T) {
	enc1, err := NewEncryptor(testKEK(t))
	require.NoError(t, err)
	enc2, err := NewEncryptor(testKEK(t))
	require.NoError(t, err)

	env, err := enc1.Encrypt([]byte("secret"))
	require.NoError(t, err)

	_, err = enc2.Decrypt(env)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCryptoFailure))
}

func TestDecrypt_UnknownAlgorithmTag(t *testing.T) {
	enc, err := NewEncryptor(testKEK(t))
	require.NoError(t, err)

	env, err := enc.Encrypt([]byte("secret"))
	require.NoError(t, err)
	env.AlgorithmTag = "rot13"

	_, err = enc.Decrypt(env)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCryptoFailure))
}

func TestFileEnvelope_RoundTripAndIntegrity(t *testing.T) {
	enc, err := NewEncryptor(testKEK(t))
	require.NoError(t, err)

	contents := []byte("scene photo bytes, pretend this is a JPEG")
	env, err := enc.EncryptFile(contents)
	require.NoError(t, err)
	require.Len(t, env.PlaintextSHA256, 64)

	got, err := enc.DecryptFile(env)
	require.NoError(t, err)
	assert.Equal(t, contents, got)

	require.NoError(t, enc.VerifyFileIntegrity(env))
}

func TestFileEnvelope_DigestMismatchFails(t *testing.T) {
	enc, err := NewEncryptor(testKEK(t))
	require.NoError(t, err)

	env, err := enc.EncryptFile([]byte("original contents"))
	require.NoError(t, err)

	// Swap in a digest for different contents; the AEAD tag still passes,
	// the independent digest check must not.
	other, err := enc.EncryptFile([]byte("different contents"))
	require.NoError(t, err)
	env.PlaintextSHA256 = other.PlaintextSHA256

	require.Error(t, enc.VerifyFileIntegrity(env))
	_, err = enc.DecryptFile(env)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCryptoFailure))
}

func TestFileEnvelope_MalformedDigestRejected(t *testing.T) {
	enc, err := NewEncryptor(testKEK(t))
	require.NoError(t, err)

	env, err := enc.EncryptFile([]byte("contents"))
	require.NoError(t, err)
	env.PlaintextSHA256 = "not-hex"

	require.Error(t, enc.VerifyFileIntegrity(env))
}
