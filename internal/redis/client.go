package redis

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/saxenaaman628/redis-election/config"
)

var Ctx = context.Background()

// Timeout bounds every round trip made on behalf of an election operation.
const Timeout = 3 * time.Second

// Connect opens a client and checks it with PING.
func Connect(cfg config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURI,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(Ctx, Timeout)
	defer cancel()

	pong, err := rdb.Ping(ctx).Result()
	if err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "failed to connect to redis at %s", cfg.RedisURI)
	}

	log.Info().Str("addr", cfg.RedisURI).Str("reply", pong).Msg("redis connected")

	return rdb, nil
}
