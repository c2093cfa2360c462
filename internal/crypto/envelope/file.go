package envelope

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	dErrors "beacon/pkg/domain-errors"
)

// FileEnvelope extends Envelope with an independent SHA-256 digest of the
// plaintext, computed before encryption. The digest detects storage-layer
// corruption separately from the AEAD tag, which detects forgery.
type FileEnvelope struct {
	Envelope
	PlaintextSHA256 string
}

// EncryptFile seals file contents and records the plaintext digest.
func (e *Encryptor) EncryptFile(contents []byte) (FileEnvelope, error) {
	digest := sha256.Sum256(contents)
	env, err := e.Encrypt(contents)
	if err != nil {
		return FileEnvelope{}, err
	}
	return FileEnvelope{
		Envelope:        env,
		PlaintextSHA256: hex.EncodeToString(digest[:]),
	}, nil
}

// DecryptFile opens a file envelope and checks the stored digest against the
// recovered plaintext. Either a tag mismatch or a digest mismatch fails with
// CodeCryptoFailure.
func (e *Encryptor) DecryptFile(env FileEnvelope) ([]byte, error) {
	contents, err := e.Decrypt(env.Envelope)
	if err != nil {
		return nil, err
	}
	if err := checkDigest(contents, env.PlaintextSHA256); err != nil {
		return nil, err
	}
	return contents, nil
}

// VerifyFileIntegrity decrypts the envelope and confirms the stored digest
// still matches, without returning the plaintext.
func (e *Encryptor) VerifyFileIntegrity(env FileEnvelope) error {
	contents, err := e.Decrypt(env.Envelope)
	if err != nil {
		return err
	}
	defer zero(contents)
	return checkDigest(contents, env.PlaintextSHA256)
}

func checkDigest(contents []byte, want string) error {
	wantRaw, err := hex.DecodeString(want)
	if err != nil || len(wantRaw) != sha256.Size {
		return dErrors.New(dErrors.CodeCryptoFailure, "malformed stored digest")
	}
	got := sha256.Sum256(contents)
	if subtle.ConstantTimeCompare(got[:], wantRaw) != 1 {
		return dErrors.New(dErrors.CodeCryptoFailure, "plaintext digest mismatch")
	}
	return nil
}
