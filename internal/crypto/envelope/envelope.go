// Package envelope implements envelope encryption for sensitive case data
// at rest. Each operation generates a fresh data encryption key (DEK),
// encrypts the plaintext under it with AES-256-GCM, wraps the DEK under the
// long-lived key encryption key (KEK), and discards the DEK. Only the
// wrapped form is ever persisted.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"
	"time"

	dErrors "beacon/pkg/domain-errors"
)

// AlgorithmAES256GCM tags envelopes produced by this package so a future
// algorithm migration can dispatch on stored data.
const AlgorithmAES256GCM = "aes-256-gcm"

const keySize = 32

// Envelope is the persisted form of an encrypted value. Both Ciphertext and
// WrappedDataKey carry their GCM nonce as a prefix.
type Envelope struct {
	Ciphertext     []byte
	WrappedDataKey []byte
	AlgorithmTag   string
	CreatedAt      time.Time
}

// Encryptor seals and opens envelopes under a fixed KEK.
type Encryptor struct {
	kek []byte
}

// NewEncryptor builds an Encryptor. The KEK must be exactly 32 bytes.
func NewEncryptor(kek []byte) (*Encryptor, error) {
	if len(kek) != keySize {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "kek must be 32 bytes")
	}
	e := &Encryptor{kek: make([]byte, keySize)}
	copy(e.kek, kek)
	return e, nil
}

// Encrypt seals plaintext into an Envelope. A fresh DEK is generated per
// call, used once, wrapped under the KEK, and zeroed before returning.
func (e *Encryptor) Encrypt(plaintext []byte) (Envelope, error) {
	dek := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, dek); err != nil {
		return Envelope{}, dErrors.Wrap(err, dErrors.CodeInternal, "generate data key")
	}
	defer zero(dek)

	ciphertext, err := sealAESGCM(dek, plaintext)
	if err != nil {
		return Envelope{}, err
	}
	wrapped, err := sealAESGCM(e.kek, dek)
	if err != nil {
		return Envelope{}, err
	}

	return Envelope{
		Ciphertext:     ciphertext,
		WrappedDataKey: wrapped,
		AlgorithmTag:   AlgorithmAES256GCM,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// Decrypt unwraps the DEK and opens the ciphertext. A tag mismatch at either
// layer fails with CodeCryptoFailure; no partial plaintext is ever returned.
func (e *Encryptor) Decrypt(env Envelope) ([]byte, error) {
	if env.AlgorithmTag != AlgorithmAES256GCM {
		return nil, dErrors.New(dErrors.CodeCryptoFailure, "unsupported envelope algorithm")
	}
	dek, err := openAESGCM(e.kek, env.WrappedDataKey)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeCryptoFailure, "unwrap data key failed")
	}
	defer zero(dek)

	plaintext, err := openAESGCM(dek, env.Ciphertext)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeCryptoFailure, "decrypt failed")
	}
	return plaintext, nil
}

// sealAESGCM encrypts plaintext under key with a random nonce prefix.
func sealAESGCM(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "init cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "init gcm")
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "generate nonce")
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// openAESGCM reverses sealAESGCM. The nonce is the ciphertext prefix.
func openAESGCM(key, sealed []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, dErrors.New(dErrors.CodeCryptoFailure, "ciphertext too short")
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
