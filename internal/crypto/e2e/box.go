// Package e2e implements end-to-end message encryption between a reporter
// and a responder using NaCl box (X25519 + XSalsa20-Poly1305).
//
// Key pairs are generated locally by each participant; the server only ever
// relays RelayEnvelope values, which carry no key material. Nothing in this
// package can produce both halves of two parties' keys in one call, and the
// relay path has no field a private key could travel through.
package e2e

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"

	dErrors "beacon/pkg/domain-errors"
)

// NonceSize is the NaCl box nonce length in bytes.
const NonceSize = 24

// PublicKey is the shareable half of a key pair.
type PublicKey [32]byte

// PrivateKey is the secret half. It never leaves the generating device.
type PrivateKey [32]byte

// KeyPair is one participant's key material plus a stable fingerprint used
// to address messages without shipping the key itself.
type KeyPair struct {
	KeyID      string
	PublicKey  PublicKey
	PrivateKey PrivateKey
}

// RelayEnvelope is the only shape the server stores or forwards.
type RelayEnvelope struct {
	Ciphertext     []byte
	Nonce          [NonceSize]byte
	SenderKeyID    string
	RecipientKeyID string
}

// GenerateKeyPair creates a fresh key pair. Call on the owning device; only
// PublicKey and KeyID may be transmitted.
func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, dErrors.Wrap(err, dErrors.CodeInternal, "generate key pair")
	}
	return KeyPair{
		KeyID:      Fingerprint(PublicKey(*pub)),
		PublicKey:  PublicKey(*pub),
		PrivateKey: PrivateKey(*priv),
	}, nil
}

// Fingerprint derives the key ID from a public key: the first 8 bytes of
// its SHA-256, hex encoded.
func Fingerprint(pub PublicKey) string {
	sum := sha256.Sum256(pub[:])
	return hex.EncodeToString(sum[:8])
}

// EncryptMessage seals message for the recipient, authenticated by the
// sender's private key, under a fresh random nonce.
func EncryptMessage(message []byte, recipientPub PublicKey, senderPriv PrivateKey) (RelayEnvelope, error) {
	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return RelayEnvelope{}, dErrors.Wrap(err, dErrors.CodeInternal, "generate nonce")
	}

	rp := [32]byte(recipientPub)
	sp := [32]byte(senderPriv)
	ciphertext := box.Seal(nil, message, &nonce, &rp, &sp)

	// The sender key ID is derived from the corresponding public key so the
	// envelope stays addressable without carrying private material.
	var senderPub [32]byte
	curve25519.ScalarBaseMult(&senderPub, &sp)

	return RelayEnvelope{
		Ciphertext:     ciphertext,
		Nonce:          nonce,
		SenderKeyID:    Fingerprint(PublicKey(senderPub)),
		RecipientKeyID: Fingerprint(recipientPub),
	}, nil
}

// DecryptMessage opens a relayed message. Authentication failure returns
// CodeCryptoFailure with no partial output.
func DecryptMessage(env RelayEnvelope, senderPub PublicKey, recipientPriv PrivateKey) ([]byte, error) {
	sp := [32]byte(senderPub)
	rp := [32]byte(recipientPriv)
	message, ok := box.Open(nil, env.Ciphertext, &env.Nonce, &sp, &rp)
	if !ok {
		return nil, dErrors.New(dErrors.CodeCryptoFailure, "message authentication failed")
	}
	return message, nil
}
