package beanstalkq

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.od2.network/tubeq/pkg/beanstalktest"
	"go.od2.network/tubeq/pkg/queue"
	"go.uber.org/zap/zaptest"
)

func TestClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bs := beanstalktest.New(ctx, t)
	defer bs.Close(t)
	client := NewClient(bs.Conn)

	// Unknown tube has no stats.
	stats, err := client.StatsTube(ctx, "jobs")
	require.NoError(t, err)
	assert.Empty(t, stats)
	// Nothing to reserve.
	res, err := client.Reserve(ctx, "jobs", 0)
	require.NoError(t, err)
	assert.Nil(t, res)

	// Put one ready and one delayed job.
	id1, err := client.Put(ctx, "jobs", []byte("one"), 1024, 0, time.Minute)
	require.NoError(t, err)
	assert.NotZero(t, id1)
	_, err = client.Put(ctx, "jobs", []byte("two"), 1024, time.Hour, time.Minute)
	require.NoError(t, err)
	stats, err = client.StatsTube(ctx, "jobs")
	require.NoError(t, err)
	assert.Equal(t, "1", stats["current-jobs-ready"])
	assert.Equal(t, "1", stats["current-jobs-delayed"])

	res, err = client.Reserve(ctx, "jobs", time.Second)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, id1, res.ID)
	assert.Equal(t, []byte("one"), res.Body)
	stats, err = client.StatsTube(ctx, "jobs")
	require.NoError(t, err)
	assert.Equal(t, "1", stats["current-jobs-reserved"])

	require.NoError(t, client.Delete(ctx, res))
	assert.ErrorIs(t, client.Delete(ctx, res), queue.ErrJobNotFound)

	// Cancelled contexts do not touch the connection.
	cancelled, cancel2 := context.WithCancel(ctx)
	cancel2()
	_, err = client.Reserve(cancelled, "jobs", time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_Driver(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bs := beanstalktest.New(ctx, t)
	defer bs.Close(t)

	reg := queue.NewRegistry()
	reg.Register("noop", func() queue.Job { return new(noopJob) })
	driver := &queue.Driver{
		Log:    zaptest.NewLogger(t),
		Queue:  NewClient(bs.Conn),
		Store:  nopStore{},
		Codec:  &queue.JSONCodec{Registry: reg},
		Config: queue.DefaultConfig,
	}
	driver.Config.Timeout = time.Second
	_, err := driver.Push(ctx, &noopJob{N: 7}, 0)
	require.NoError(t, err)
	res, msg, err := driver.Pop(ctx)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, &noopJob{N: 7}, msg.Job())
	assert.Equal(t, 0, msg.Attempts())
	require.NoError(t, driver.Ack(ctx, res))

	stats, err := driver.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, queue.Stats{}, stats)
}

type noopJob struct {
	N int `json:"n"`
}

func (*noopJob) Handle(context.Context) error { return nil }

type nopStore struct{}

func (nopStore) LPush(context.Context, string, []byte) (int64, error) { return 1, nil }
func (nopStore) RPush(context.Context, string, []byte) (int64, error) { return 1, nil }
func (nopStore) RPop(context.Context, string) ([]byte, error)         { return nil, nil }
func (nopStore) LLen(context.Context, string) (int64, error)          { return 0, nil }
func (nopStore) Del(context.Context, string) (bool, error)            { return false, nil }
