package util

import (
	"context"
	"testing"
	"time"

	"threadberry/product-service/internal/app/product/entity"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// RedisClientTestSuite тестовый suite для кеша new arrivals
type RedisClientTestSuite struct {
	suite.Suite
	miniRedis *miniredis.Miniredis
	cache     *RedisClient
}

func TestRedisClientSuite(t *testing.T) {
	suite.Run(t, new(RedisClientTestSuite))
}

func (s *RedisClientTestSuite) SetupSuite() {
	var err error
	s.miniRedis, err = miniredis.Run()
	require.NoError(s.T(), err)

	s.cache = NewRedisClientWithClient(redis.NewClient(&redis.Options{
		Addr: s.miniRedis.Addr(),
	}))
}

func (s *RedisClientTestSuite) SetupTest() {
	s.miniRedis.FlushAll()
}

func (s *RedisClientTestSuite) TearDownSuite() {
	s.cache.Close()
	s.miniRedis.Close()
}

func (s *RedisClientTestSuite) TestGetNewArrivals_Empty() {
	ctx := context.Background()

	products, err := s.cache.GetNewArrivals(ctx)

	s.NoError(err)
	s.Nil(products)
}

func (s *RedisClientTestSuite) TestSetAndGetNewArrivals() {
	ctx := context.Background()

	arrivals := []entity.Product{
		{Name: "Hoodie", Price: 45, IsNewArrival: true},
		{Name: "Tee", Price: 20, IsNewArrival: true},
	}
	err := s.cache.SetNewArrivals(ctx, arrivals, time.Hour)
	s.NoError(err)

	result, err := s.cache.GetNewArrivals(ctx)

	s.NoError(err)
	s.Len(result, 2)
	s.Equal("Hoodie", result[0].Name)
	s.Equal("Tee", result[1].Name)
}

func (s *RedisClientTestSuite) TestInvalidateNewArrivals() {
	ctx := context.Background()

	err := s.cache.SetNewArrivals(ctx, []entity.Product{{Name: "Coat"}}, time.Hour)
	s.NoError(err)

	err = s.cache.InvalidateNewArrivals(ctx)
	s.NoError(err)

	result, err := s.cache.GetNewArrivals(ctx)
	s.NoError(err)
	s.Nil(result)
}

func (s *RedisClientTestSuite) TestNewArrivals_TTLExpires() {
	ctx := context.Background()

	err := s.cache.SetNewArrivals(ctx, []entity.Product{{Name: "Coat"}}, time.Minute)
	s.NoError(err)

	s.miniRedis.FastForward(2 * time.Minute)

	result, err := s.cache.GetNewArrivals(ctx)
	s.NoError(err)
	s.Nil(result)
}
