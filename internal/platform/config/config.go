// Package config builds runtime configuration from the environment so main
// stays lean. Every value has a development default; secrets must be
// overridden in production.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures the full service configuration.
type Server struct {
	Addr        string
	DatabaseURL string
	Redis       Redis
	Kafka       Kafka

	JWTSigningKey string

	// VerificationHMACKey signs on-scene verification tokens.
	VerificationHMACKey string

	// KEK is the base64-encoded 32-byte key-encryption key for sealing
	// case descriptions at rest. Empty disables sealing.
	KEK string

	PBKDF2Iterations int

	AutoAssign     bool
	LocatorTimeout time.Duration

	OutboxInterval time.Duration
	RequestTimeout time.Duration

	// CreateRateLimit caps case creation per device within the window.
	CreateRateLimit  int
	CreateRateWindow time.Duration
}

// Redis captures connection settings for the nonce store.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures the notification event stream settings.
type Kafka struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from BEACON_* environment variables.
func FromEnv() Server {
	return Server{
		Addr:                envOr("BEACON_ADDR", ":8080"),
		DatabaseURL:         os.Getenv("BEACON_DATABASE_URL"),
		JWTSigningKey:       envOr("BEACON_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		VerificationHMACKey: envOr("BEACON_VERIFICATION_KEY", "dev-verification-key-change-in-prod"),
		KEK:                 os.Getenv("BEACON_KEK"),
		PBKDF2Iterations:    envInt("BEACON_PBKDF2_ITERATIONS", 600_000),
		AutoAssign:          envOr("BEACON_AUTO_ASSIGN", "true") == "true",
		LocatorTimeout:      envDuration("BEACON_LOCATOR_TIMEOUT", 2*time.Second),
		OutboxInterval:      envDuration("BEACON_OUTBOX_INTERVAL", time.Second),
		RequestTimeout:      envDuration("BEACON_REQUEST_TIMEOUT", 30*time.Second),
		CreateRateLimit:     envInt("BEACON_CREATE_RATE_LIMIT", 10),
		CreateRateWindow:    envDuration("BEACON_CREATE_RATE_WINDOW", time.Minute),
		Redis: Redis{
			URL:          os.Getenv("BEACON_REDIS_URL"),
			PoolSize:     envInt("BEACON_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("BEACON_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("BEACON_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("BEACON_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("BEACON_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers: splitNonEmpty(os.Getenv("BEACON_KAFKA_BROKERS")),
			Topic:   envOr("BEACON_KAFKA_TOPIC", "beacon.case-events"),
		},
	}
}

// DecodeKEK decodes the configured key-encryption key. A nil result with
// nil error means sealing is disabled.
func (s Server) DecodeKEK() ([]byte, error) {
	if s.KEK == "" {
		return nil, nil
	}
	kek, err := base64.StdEncoding.DecodeString(s.KEK)
	if err != nil {
		return nil, fmt.Errorf("decode BEACON_KEK: %w", err)
	}
	if len(kek) != 32 {
		return nil, fmt.Errorf("BEACON_KEK must decode to 32 bytes, got %d", len(kek))
	}
	return kek, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
