//go:build integration

package resolve

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"georef/internal/platform/redis"
	"georef/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	ctx    context.Context
	client *redis.Client
	cache  *RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	url := containers.StartRedis(t)

	client, err := redis.New(context.Background(), url)
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	suite.Run(t, &RedisCacheSuite{ctx: context.Background(), client: client})
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.client.FlushAll(s.ctx).Err())
	s.cache = NewRedisCache(s.client, time.Minute)
}

func (s *RedisCacheSuite) TestRoundTrip() {
	s.Require().NoError(s.cache.Set(s.ctx, "EPSG:4267|EPSG:4269", []byte(`[{"name":"x"}]`), 0))

	got, err := s.cache.Get(s.ctx, "EPSG:4267|EPSG:4269")
	s.Require().NoError(err)
	s.Equal(`[{"name":"x"}]`, string(got))
}

func (s *RedisCacheSuite) TestMissIsNil() {
	got, err := s.cache.Get(s.ctx, "EPSG:4267|EPSG:4326")
	s.Require().NoError(err)
	s.Nil(got)
}

func (s *RedisCacheSuite) TestEntryExpires() {
	short := NewRedisCache(s.client, time.Minute)
	s.Require().NoError(short.Set(s.ctx, "pair", []byte("v"), 50*time.Millisecond))

	time.Sleep(100 * time.Millisecond)

	got, err := short.Get(s.ctx, "pair")
	s.Require().NoError(err)
	s.Nil(got)
}

func (s *RedisCacheSuite) TestFlushSparesForeignKeys() {
	s.Require().NoError(s.cache.Set(s.ctx, "a", []byte("1"), 0))
	s.Require().NoError(s.cache.Set(s.ctx, "b", []byte("2"), 0))
	s.Require().NoError(s.client.Set(s.ctx, "unrelated", "keep", 0).Err())

	s.Require().NoError(s.cache.Flush(s.ctx))

	got, err := s.cache.Get(s.ctx, "a")
	s.Require().NoError(err)
	s.Nil(got)

	kept, err := s.client.Get(s.ctx, "unrelated").Result()
	s.Require().NoError(err)
	s.Equal("keep", kept)
}
