package providers

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	ConfRedisNetwork     = "redis.network"
	ConfRedisAddr        = "redis.addr"
	ConfRedisPassword    = "redis.password"
	ConfRedisDB          = "redis.db"
	ConfRedisDialTimeout = "redis.dial_timeout"
)

func init() {
	viper.SetDefault(ConfRedisNetwork, "tcp")
	viper.SetDefault(ConfRedisAddr, "localhost:6379")
	viper.SetDefault(ConfRedisPassword, "")
	viper.SetDefault(ConfRedisDB, 0)
	viper.SetDefault(ConfRedisDialTimeout, 30*time.Second)
}

// NewRedis connects to the Redis server holding the dead-letter lists.
// Pings are retried with backoff until redis.dial_timeout passes.
func NewRedis(ctx context.Context, log *zap.Logger, lc fx.Lifecycle) (*redis.Client, error) {
	redisOpts := &redis.Options{
		Network:  viper.GetString(ConfRedisNetwork),
		Addr:     viper.GetString(ConfRedisAddr),
		Password: viper.GetString(ConfRedisPassword),
		DB:       viper.GetInt(ConfRedisDB),
	}
	log.Info("Connecting to Redis",
		zap.String(ConfRedisNetwork, redisOpts.Network),
		zap.String(ConfRedisAddr, redisOpts.Addr),
		zap.Int(ConfRedisDB, redisOpts.DB))
	rd := redis.NewClient(redisOpts)
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = viper.GetDuration(ConfRedisDialTimeout)
	err := backoff.RetryNotify(func() error {
		return rd.Ping(ctx).Err()
	}, backoff.WithContext(bo, ctx), func(err error, next time.Duration) {
		log.Warn("Redis not reachable, retrying",
			zap.Error(err), zap.Duration("backoff", next))
	})
	if err != nil {
		_ = rd.Close()
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("Closing Redis client")
			err := rd.Close()
			if err != nil {
				log.Error("Failed to close Redis client", zap.Error(err))
			}
			return err
		},
	})
	return rd, nil
}
