//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"qualifier/internal/evidence/profile"
	"qualifier/internal/evidence/profile/cache"
	"qualifier/pkg/platform/sentinel"
	"qualifier/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *cache.RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.cache = cache.NewRedisCache(s.redis.Client, time.Minute)
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) TestRoundTrip() {
	ctx := context.Background()
	year, badges := 2024, 2
	league := "Bronze"
	ev := &profile.Evidence{
		URL:          "https://p/1",
		CreationYear: &year,
		BadgeCount:   &badges,
		League:       &league,
		Badges:       []profile.Badge{{Name: "Get Started with Looker", EarnedDate: "2025-01-15"}},
		Status:       profile.StatusSuccess,
		FetchedAt:    time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
	}

	s.Require().NoError(s.cache.Save(ctx, ev.URL, ev))

	got, err := s.cache.Find(ctx, ev.URL)
	s.Require().NoError(err)
	s.Equal(ev, got)
}

func (s *RedisCacheSuite) TestMiss() {
	_, err := s.cache.Find(context.Background(), "https://p/none")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisCacheSuite) TestEntriesExpire() {
	ctx := context.Background()
	short := cache.NewRedisCache(s.redis.Client, time.Second)
	s.Require().NoError(short.Save(ctx, "https://p/ttl", &profile.Evidence{Status: profile.StatusSuccess}))

	ttl, err := s.redis.Client.TTL(ctx, "qualifier:profile:https://p/ttl").Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
	s.LessOrEqual(ttl, time.Second)
}
