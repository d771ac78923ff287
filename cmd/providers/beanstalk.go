package providers

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/viper"
	"go.od2.network/tubeq/pkg/beanstalkq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	ConfBeanstalkNetwork     = "beanstalk.network"
	ConfBeanstalkAddr        = "beanstalk.addr"
	ConfBeanstalkDialTimeout = "beanstalk.dial_timeout"
)

func init() {
	viper.SetDefault(ConfBeanstalkNetwork, "tcp")
	viper.SetDefault(ConfBeanstalkAddr, "localhost:11300")
	viper.SetDefault(ConfBeanstalkDialTimeout, 30*time.Second)
}

// DialBeanstalk connects to beanstalkd, retrying with backoff until beanstalk.dial_timeout passes.
// The caller owns the returned client.
func DialBeanstalk(ctx context.Context, log *zap.Logger) (*beanstalkq.Client, error) {
	network := viper.GetString(ConfBeanstalkNetwork)
	addr := viper.GetString(ConfBeanstalkAddr)
	log.Info("Connecting to beanstalkd",
		zap.String(ConfBeanstalkNetwork, network),
		zap.String(ConfBeanstalkAddr, addr))
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = viper.GetDuration(ConfBeanstalkDialTimeout)
	var client *beanstalkq.Client
	err := backoff.RetryNotify(func() error {
		var err error
		client, err = beanstalkq.Dial(network, addr)
		return err
	}, backoff.WithContext(bo, ctx), func(err error, next time.Duration) {
		log.Warn("Failed to connect to beanstalkd, retrying",
			zap.Error(err), zap.Duration("backoff", next))
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// NewBeanstalk provides a shared beanstalkd client that closes when the app stops.
func NewBeanstalk(ctx context.Context, log *zap.Logger, lc fx.Lifecycle) (*beanstalkq.Client, error) {
	client, err := DialBeanstalk(ctx, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			log.Info("Closing beanstalkd client")
			return client.Close()
		},
	})
	return client, nil
}
