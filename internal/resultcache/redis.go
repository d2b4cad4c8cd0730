package resultcache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/cardoc/cardoc-go/internal/conf"
	"github.com/cardoc/cardoc-go/internal/logger"
)

const (
	redisKeyPrefix    = "cardoc:result:"
	redisDialTimeout  = 5 * time.Second
	redisIOTimeout    = 3 * time.Second
	redisPingDeadline = 5 * time.Second
)

// Redis is a Cache shared between service instances.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to the configured server and verifies it with a ping.
func NewRedis(settings conf.RedisSettings, ttl time.Duration) (*Redis, error) {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	client := redis.NewClient(&redis.Options{
		Addr:         settings.Addr,
		Password:     settings.Password,
		DB:           settings.DB,
		DialTimeout:  redisDialTimeout,
		ReadTimeout:  redisIOTimeout,
		WriteTimeout: redisIOTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingDeadline)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, cacheError(err, conf.CacheBackendRedis, "connect")
	}

	GetLogger().Info("redis result cache connected",
		logger.String("addr", settings.Addr),
		logger.Int("db", settings.DB))
	return &Redis{client: client, ttl: ttl}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, cacheError(err, conf.CacheBackendRedis, "get")
	}
	return b, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, redisKeyPrefix+key, value, r.ttl).Err(); err != nil {
		return cacheError(err, conf.CacheBackendRedis, "set")
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return cacheError(err, conf.CacheBackendRedis, "delete")
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
