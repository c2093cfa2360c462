// Package verification implements the signed QR-style tokens a responder
// presents on-scene so a citizen can confirm their identity.
//
// A token binds one (responder, case) pair to a 5-minute window; the
// protocol checks signature, expiry, and single use. Matching the payload
// against the case and responder actually being verified is the caller's
// job, the protocol does not do it implicitly.
package verification

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
	"beacon/pkg/platform/sentinel"
)

// TokenTTL is the validity window of a minted token.
const TokenTTL = 5 * time.Minute

const nonceSize = 16

var verifyDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "beacon_token_verify_duration_ms",
	Help:    "Latency of verification token checks in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

// Payload is the signed content of a verification token.
// Field order is fixed; Mint and Verify rely on encoding/json emitting
// struct fields in declaration order for a deterministic serialization.
type Payload struct {
	ResponderID string `json:"responder_id"`
	CaseID      string `json:"case_id"`
	IssuedAt    int64  `json:"issued_at"`
	Nonce       string `json:"nonce"`
	ExpiresAt   int64  `json:"expires_at"`
}

// NonceStore consumes token nonces atomically so a token verifies
// meaningfully once within its TTL.
type NonceStore interface {
	// Consume records the nonce, returning sentinel.ErrAlreadyUsed if it
	// was seen before. The entry may expire after ttl.
	Consume(ctx context.Context, nonce string, ttl time.Duration) error
}

// Protocol mints and verifies tokens under a server-held HMAC key.
type Protocol struct {
	key    []byte
	ttl    time.Duration
	nonces NonceStore
	now    func() time.Time
}

// Option configures a Protocol.
type Option func(*Protocol)

// WithClock overrides the time source, for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(p *Protocol) { p.now = now }
}

// WithTTL overrides the token validity window.
func WithTTL(ttl time.Duration) Option {
	return func(p *Protocol) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// New builds a Protocol. The key must not be empty; nonces must be a
// working store (use noncestore.NewMemory for single-instance setups).
func New(key []byte, nonces NonceStore, opts ...Option) (*Protocol, error) {
	if len(key) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "server key cannot be empty")
	}
	if nonces == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "nonce store is required")
	}
	p := &Protocol{
		key:    append([]byte(nil), key...),
		ttl:    TokenTTL,
		nonces: nonces,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

// Mint issues a token for the given responder and case.
func (p *Protocol) Mint(responderID domain.ResponderID, caseID domain.CaseID) (string, Payload, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", Payload{}, dErrors.Wrap(err, dErrors.CodeInternal, "generate nonce")
	}

	now := p.now()
	payload := Payload{
		ResponderID: responderID.String(),
		CaseID:      caseID.String(),
		IssuedAt:    now.Unix(),
		Nonce:       hex.EncodeToString(nonce),
		ExpiresAt:   now.Add(p.ttl).Unix(),
	}

	serialized, err := json.Marshal(payload)
	if err != nil {
		return "", Payload{}, dErrors.Wrap(err, dErrors.CodeInternal, "serialize payload")
	}
	token := base64.RawURLEncoding.EncodeToString(serialized) +
		"." +
		base64.RawURLEncoding.EncodeToString(p.sign(serialized))
	return token, payload, nil
}

// Verify checks signature, expiry, and single use, returning the payload on
// success. Every failure path returns CodeCryptoFailure; callers must
// additionally match the payload against the case and responder at hand.
func (p *Protocol) Verify(ctx context.Context, token string) (Payload, error) {
	start := time.Now()
	defer func() {
		verifyDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	idx := strings.LastIndex(token, ".")
	if idx <= 0 || idx == len(token)-1 {
		return Payload{}, dErrors.New(dErrors.CodeCryptoFailure, "malformed token")
	}
	serialized, err := base64.RawURLEncoding.DecodeString(token[:idx])
	if err != nil {
		return Payload{}, dErrors.New(dErrors.CodeCryptoFailure, "malformed token payload")
	}
	signature, err := base64.RawURLEncoding.DecodeString(token[idx+1:])
	if err != nil {
		return Payload{}, dErrors.New(dErrors.CodeCryptoFailure, "malformed token signature")
	}

	if !hmac.Equal(signature, p.sign(serialized)) {
		return Payload{}, dErrors.New(dErrors.CodeCryptoFailure, "token signature mismatch")
	}

	var payload Payload
	if err := json.Unmarshal(serialized, &payload); err != nil {
		return Payload{}, dErrors.New(dErrors.CodeCryptoFailure, "malformed token payload")
	}
	if payload.Nonce == "" || payload.ResponderID == "" || payload.CaseID == "" {
		return Payload{}, dErrors.New(dErrors.CodeCryptoFailure, "incomplete token payload")
	}

	now := p.now()
	expiresAt := time.Unix(payload.ExpiresAt, 0)
	if now.After(expiresAt) {
		return Payload{}, dErrors.New(dErrors.CodeCryptoFailure, "token expired")
	}

	// Consume-once: the nonce entry lives as long as the token could.
	remaining := expiresAt.Sub(now)
	if err := p.nonces.Consume(ctx, payload.Nonce, remaining); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return Payload{}, dErrors.New(dErrors.CodeCryptoFailure, "token already used")
		}
		return Payload{}, dErrors.Wrap(err, dErrors.CodeInternal, "consume token nonce")
	}
	return payload, nil
}

func (p *Protocol) sign(serialized []byte) []byte {
	mac := hmac.New(sha256.New, p.key)
	mac.Write(serialized)
	return mac.Sum(nil)
}
