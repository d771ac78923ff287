package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// Config holds the driver settings.
type Config struct {
	Channel          string        // base channel name
	Timeout          time.Duration // max wait per reserve
	Retry            RetryPolicy   // delay before retries
	HandleTimeout    time.Duration // job TTR, and soft limit for handlers
	Priority         uint32        // beanstalkd priority of submitted jobs
	MaxMessages      uint          // stop consuming after this many iterations, 0 = unbounded
	LengthCheckCount uint          // report queue lengths every this many iterations, 0 = never
}

// DefaultConfig holds the default driver settings.
// Only pass by value, not reference, to avoid modifying this globally.
var DefaultConfig = Config{
	Channel:          "queue",
	Timeout:          5 * time.Second,
	Retry:            FixedDelay(DefaultRetryDelay),
	HandleTimeout:    10 * time.Second,
	Priority:         1024,
	MaxMessages:      0,
	LengthCheckCount: 500,
}

// Driver produces and consumes jobs.
// It is not safe for concurrent use, run one Driver per consumer.
type Driver struct {
	// Required components
	Log   *zap.Logger
	Queue WorkQueue
	Store ListStore
	Codec Codec
	// Optional components
	Events  EventSink       // receives consume notifications
	Runner  RunController   // stops Consume, defaults to the context
	Backoff backoff.BackOff // sleep after failed iterations, defaults to exponential
	// Required config
	Config Config
}

// Channels returns the names derived from the configured channel.
func (d *Driver) Channels() Channels {
	return ChannelsFor(d.Config.Channel)
}

// Push submits a job for its first delivery.
func (d *Driver) Push(ctx context.Context, job Job, delay time.Duration) (uint64, error) {
	data, err := d.Codec.Pack(NewMessage(job))
	if err != nil {
		return 0, err
	}
	return d.put(ctx, data, d.Config.Priority, delay)
}

func (d *Driver) put(ctx context.Context, data []byte, priority uint32, delay time.Duration) (uint64, error) {
	id, err := d.Queue.Put(ctx, d.Channels().Main, data, priority, delay, d.Config.HandleTimeout)
	if err != nil {
		return 0, fmt.Errorf("failed to put job: %w", err)
	}
	if id == 0 {
		return 0, ErrNotAccepted
	}
	return id, nil
}

// Pop reserves one job from the main channel.
// Returns nil without error if no job became ready within the timeout.
//
// Payloads that fail to decode get dead-lettered and removed from the work queue,
// and Pop returns nil as if no job was ready.
func (d *Driver) Pop(ctx context.Context) (*Reservation, *Message, error) {
	res, err := d.Queue.Reserve(ctx, d.Channels().Main, d.Config.Timeout)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reserve job: %w", err)
	}
	if res == nil {
		return nil, nil, nil
	}
	msg, err := d.Codec.Unpack(res.Body)
	if err == nil {
		return res, msg, nil
	}
	d.Log.Warn("Dead-lettering undecodable job",
		zap.Uint64("job_id", res.ID), zap.Error(err))
	if err := d.Fail(ctx, res); err != nil {
		return nil, nil, err
	}
	if err := d.Ack(ctx, res); err != nil && !errors.Is(err, ErrJobNotFound) {
		return nil, nil, err
	}
	return nil, nil, nil
}

// Ack deletes a reservation from the work queue.
func (d *Driver) Ack(ctx context.Context, r *Reservation) error {
	if r == nil {
		return ErrInvalidHandle
	}
	if err := d.Queue.Delete(ctx, r); err != nil {
		return fmt.Errorf("failed to delete job %d: %w", r.ID, err)
	}
	return nil
}

// Fail pushes the raw payload of a reservation onto the failed list.
// It does not touch the work queue, so the reservation should be deleted first.
func (d *Driver) Fail(ctx context.Context, r *Reservation) error {
	if r == nil {
		return ErrInvalidHandle
	}
	if _, err := d.Store.LPush(ctx, d.Channels().Failed, r.Body); err != nil {
		return fmt.Errorf("failed to dead-letter job %d: %w", r.ID, err)
	}
	return nil
}

// Reload moves all entries of the failed ("" or "failed") or "timeout" list back to the main channel.
// Returns the number of entries moved.
func (d *Driver) Reload(ctx context.Context, queue string) (int, error) {
	list, err := d.Channels().list(queue)
	if err != nil {
		return 0, err
	}
	var n int
	for {
		data, err := d.Store.RPop(ctx, list)
		if err != nil {
			return n, fmt.Errorf("failed to pop %s: %w", list, err)
		}
		if data == nil {
			return n, nil
		}
		if _, err := d.put(ctx, data, d.Config.Priority, 0); err != nil {
			// Put it back where it came from, so the next reload retries it first.
			if _, pushErr := d.Store.RPush(ctx, list, data); pushErr != nil {
				d.Log.Error("Lost payload during reload",
					zap.String("list", list), zap.ByteString("payload", data), zap.Error(pushErr))
			}
			return n, err
		}
		n++
	}
}

// Flush deletes the failed ("" or "failed") or "timeout" list.
// Returns whether the list existed.
func (d *Driver) Flush(ctx context.Context, queue string) (bool, error) {
	list, err := d.Channels().list(queue)
	if err != nil {
		return false, err
	}
	ok, err := d.Store.Del(ctx, list)
	if err != nil {
		return false, fmt.Errorf("failed to delete %s: %w", list, err)
	}
	return ok, nil
}

// Stats holds the queue depth counters.
type Stats struct {
	Waiting  int64 // ready jobs in the tube
	Delayed  int64 // delayed jobs in the tube
	Reserved int64 // jobs currently being handled
	Failed   int64 // failed list length
	Timeout  int64 // timeout list length
}

// Info aggregates tube statistics and dead-letter list lengths.
func (d *Driver) Info(ctx context.Context) (Stats, error) {
	var s Stats
	ch := d.Channels()
	tube, err := d.Queue.StatsTube(ctx, ch.Main)
	if err != nil {
		return s, fmt.Errorf("failed to get tube stats: %w", err)
	}
	if s.Waiting, err = tubeStat(tube, "current-jobs-ready"); err != nil {
		return s, err
	}
	if s.Delayed, err = tubeStat(tube, "current-jobs-delayed"); err != nil {
		return s, err
	}
	if s.Reserved, err = tubeStat(tube, "current-jobs-reserved"); err != nil {
		return s, err
	}
	if s.Failed, err = d.Store.LLen(ctx, ch.Failed); err != nil {
		return s, fmt.Errorf("failed to get length of %s: %w", ch.Failed, err)
	}
	if s.Timeout, err = d.Store.LLen(ctx, ch.Timeout); err != nil {
		return s, fmt.Errorf("failed to get length of %s: %w", ch.Timeout, err)
	}
	return s, nil
}

func tubeStat(stats map[string]string, key string) (int64, error) {
	v, ok := stats[key]
	if !ok {
		return 0, nil
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return 0, fmt.Errorf("invalid tube stat %s=%q: %w", key, v, err)
	}
	return n, nil
}

// retry resubmits a message as is, so attempts must already be incremented.
func (d *Driver) retry(ctx context.Context, m *Message) error {
	data, err := d.Codec.Pack(m)
	if err != nil {
		return err
	}
	_, err = d.put(ctx, data, d.Config.Priority, d.retryPolicy().Delay(m.Attempts()))
	return err
}

func (d *Driver) retryPolicy() RetryPolicy {
	if d.Config.Retry == nil {
		return FixedDelay(DefaultRetryDelay)
	}
	return d.Config.Retry
}
