package providers

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.od2.network/tubeq/pkg/jobs"
	"go.od2.network/tubeq/pkg/queue"
	"go.uber.org/zap/zaptest"
)

func TestNewQueueConfig(t *testing.T) {
	log := zaptest.NewLogger(t)
	config, err := NewQueueConfig(log)
	require.NoError(t, err)
	assert.Equal(t, "queue", config.Channel)
	assert.Equal(t, queue.DefaultConfig.Timeout, config.Timeout)
	assert.Equal(t, queue.FixedDelay(10*time.Second), config.Retry)

	viper.Set(ConfQueueRetrySeconds, []interface{}{1, "5", 30})
	viper.Set(ConfQueueChannel, "mail")
	defer viper.Set(ConfQueueRetrySeconds, nil)
	defer viper.Set(ConfQueueChannel, nil)
	config, err = NewQueueConfig(log)
	require.NoError(t, err)
	assert.Equal(t, "mail", config.Channel)
	assert.Equal(t, 5*time.Second, config.Retry.Delay(2))
	assert.Equal(t, 30*time.Second, config.Retry.Delay(9))

	viper.Set(ConfQueueRetrySeconds, "soon")
	_, err = NewQueueConfig(log)
	assert.Error(t, err)
}

func TestNewQueueConfig_Timeouts(t *testing.T) {
	log := zaptest.NewLogger(t)
	defer viper.Set(ConfQueueTimeout, nil)
	defer viper.Set(ConfQueueHandleTimeout, nil)

	// Bare numbers are seconds, like queue.retry_seconds.
	viper.Set(ConfQueueTimeout, 60)
	viper.Set(ConfQueueHandleTimeout, "120")
	config, err := NewQueueConfig(log)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, config.Timeout)
	assert.Equal(t, 2*time.Minute, config.HandleTimeout)

	viper.Set(ConfQueueTimeout, "1500ms")
	config, err = NewQueueConfig(log)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, config.Timeout)

	viper.Set(ConfQueueHandleTimeout, "forever")
	_, err = NewQueueConfig(log)
	assert.Error(t, err)
}

func TestNewCodec(t *testing.T) {
	codec := NewCodec(NewRegistry())
	data, err := codec.Pack(queue.NewMessage(&jobs.Command{Command: "true"}))
	require.NoError(t, err)
	msg, err := codec.Unpack(data)
	require.NoError(t, err)
	assert.IsType(t, &jobs.Command{}, msg.Job())
}
