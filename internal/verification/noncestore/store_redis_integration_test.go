//go:build integration

package noncestore_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"beacon/internal/verification/noncestore"
	"beacon/pkg/platform/sentinel"
	"beacon/pkg/testutil/containers"
)

type RedisNonceSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *noncestore.RedisStore
}

func TestRedisNonceSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisNonceSuite))
}

func (s *RedisNonceSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = noncestore.NewRedis(s.redis.Client)
}

func (s *RedisNonceSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisNonceSuite) TestConsumeOnce() {
	ctx := context.Background()

	s.Require().NoError(s.store.Consume(ctx, "nonce-1", time.Minute))

	err := s.store.Consume(ctx, "nonce-1", time.Minute)
	s.Require().Error(err)
	s.True(errors.Is(err, sentinel.ErrAlreadyUsed))
}

func (s *RedisNonceSuite) TestExpiredNonceReusable() {
	ctx := context.Background()

	s.Require().NoError(s.store.Consume(ctx, "short-lived", 500*time.Millisecond))
	time.Sleep(700 * time.Millisecond)
	s.Require().NoError(s.store.Consume(ctx, "short-lived", time.Minute))
}

// TestConcurrentConsume verifies SETNX admits exactly one of many racing
// verifiers, the property replay protection depends on.
func (s *RedisNonceSuite) TestConcurrentConsume() {
	ctx := context.Background()

	const goroutines = 20
	var wg sync.WaitGroup
	var successes atomic.Int32

	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.store.Consume(ctx, "contested", time.Minute); err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())
}
