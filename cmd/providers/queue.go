package providers

import (
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
	"go.od2.network/tubeq/pkg/beanstalkq"
	"go.od2.network/tubeq/pkg/jobs"
	"go.od2.network/tubeq/pkg/queue"
	"go.od2.network/tubeq/pkg/redisstore"
	"go.uber.org/zap"
)

// Queue config keys.
const (
	ConfQueueChannel          = "queue.channel"
	ConfQueueTimeout          = "queue.timeout"
	ConfQueueRetrySeconds     = "queue.retry_seconds"
	ConfQueueHandleTimeout    = "queue.handle_timeout"
	ConfQueuePriority         = "queue.priority"
	ConfQueueMaxMessages      = "queue.max_messages"
	ConfQueueLengthCheckCount = "queue.length_check_count"
)

func init() {
	viper.SetDefault(ConfQueueChannel, queue.DefaultConfig.Channel)
	viper.SetDefault(ConfQueueTimeout, queue.DefaultConfig.Timeout)
	viper.SetDefault(ConfQueueRetrySeconds, int(queue.DefaultRetryDelay/time.Second))
	viper.SetDefault(ConfQueueHandleTimeout, queue.DefaultConfig.HandleTimeout)
	viper.SetDefault(ConfQueuePriority, queue.DefaultConfig.Priority)
	viper.SetDefault(ConfQueueMaxMessages, queue.DefaultConfig.MaxMessages)
	viper.SetDefault(ConfQueueLengthCheckCount, queue.DefaultConfig.LengthCheckCount)
}

// NewQueueConfig reads the driver settings.
func NewQueueConfig(log *zap.Logger) (queue.Config, error) {
	retry, err := queue.ParseRetrySeconds(viper.Get(ConfQueueRetrySeconds))
	if err != nil {
		return queue.Config{}, fmt.Errorf("invalid %s: %w", ConfQueueRetrySeconds, err)
	}
	timeout, err := queue.ParseSeconds(viper.Get(ConfQueueTimeout))
	if err != nil {
		return queue.Config{}, fmt.Errorf("invalid %s: %w", ConfQueueTimeout, err)
	}
	handleTimeout, err := queue.ParseSeconds(viper.Get(ConfQueueHandleTimeout))
	if err != nil {
		return queue.Config{}, fmt.Errorf("invalid %s: %w", ConfQueueHandleTimeout, err)
	}
	config := queue.DefaultConfig
	config.Channel = viper.GetString(ConfQueueChannel)
	config.Timeout = timeout
	config.Retry = retry
	config.HandleTimeout = handleTimeout
	config.Priority = viper.GetUint32(ConfQueuePriority)
	config.MaxMessages = viper.GetUint(ConfQueueMaxMessages)
	config.LengthCheckCount = viper.GetUint(ConfQueueLengthCheckCount)
	if config.Channel == "" {
		return queue.Config{}, fmt.Errorf("%w: empty %s", queue.ErrInvalidChannel, ConfQueueChannel)
	}
	log.Info("Using queue config",
		zap.String(ConfQueueChannel, config.Channel),
		zap.Duration(ConfQueueTimeout, config.Timeout),
		zap.Duration(ConfQueueHandleTimeout, config.HandleTimeout),
		zap.Uint(ConfQueueMaxMessages, config.MaxMessages))
	return config, nil
}

// NewRegistry returns a registry holding all known job types.
func NewRegistry() *queue.Registry {
	reg := queue.NewRegistry()
	jobs.Register(reg)
	return reg
}

func NewCodec(reg *queue.Registry) queue.Codec {
	return &queue.JSONCodec{Registry: reg}
}

func NewStore(rd *redis.Client) queue.ListStore {
	return &redisstore.Store{Redis: rd}
}

// NewDriver provides a driver on the shared beanstalkd client for one-shot commands.
// Consumers build their own drivers instead.
func NewDriver(
	log *zap.Logger,
	client *beanstalkq.Client,
	store queue.ListStore,
	codec queue.Codec,
	config queue.Config,
) *queue.Driver {
	return &queue.Driver{
		Log:    log,
		Queue:  client,
		Store:  store,
		Codec:  codec,
		Config: config,
	}
}
