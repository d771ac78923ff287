package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Consume runs the consumer loop until the RunController stops it
// or Config.MaxMessages iterations have passed.
//
// Every iteration counts, including empty polls and failed ones.
// Failures never end the loop: they are logged and followed by a backoff sleep.
//
// Cancelling ctx stops the loop between iterations only.
// Reserving, handling and resolving a delivery run on a context that keeps
// the values of ctx but is never cancelled, so an in-flight job always gets
// acknowledged or dead-lettered.
func (d *Driver) Consume(ctx context.Context) error {
	runner := d.Runner
	if runner == nil {
		runner = ContextRunner{Ctx: ctx}
	}
	work := detach(ctx)
	bo := d.Backoff
	if bo == nil {
		bo = newErrorBackoff()
	}
	bo.Reset()
	d.Log.Info("Starting consumer",
		zap.String("channel", d.Config.Channel),
		zap.Uint("max_messages", d.Config.MaxMessages))
	var count uint
	for runner.IsRunning() {
		count++
		if err := d.step(work, count); err != nil {
			d.Log.Error("Consume iteration failed", zap.Uint("iteration", count), zap.Error(err))
			sleep(ctx, bo.NextBackOff())
		} else {
			bo.Reset()
		}
		if d.Config.MaxMessages > 0 && count >= d.Config.MaxMessages {
			d.Log.Info("Reached max messages, stopping consumer", zap.Uint("count", count))
			break
		}
	}
	return nil
}

// detached carries the values of its parent without its cancellation.
type detached struct {
	parent context.Context
}

func detach(ctx context.Context) context.Context {
	return detached{parent: ctx}
}

func (detached) Deadline() (time.Time, bool)         { return time.Time{}, false }
func (detached) Done() <-chan struct{}               { return nil }
func (detached) Err() error                          { return nil }
func (d detached) Value(key interface{}) interface{} { return d.parent.Value(key) }

func newErrorBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0 // never give up
	return b
}

func sleep(ctx context.Context, dur time.Duration) {
	if dur <= 0 {
		return
	}
	timer := time.NewTimer(dur)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// step reserves and handles one job, then runs the periodic length check.
func (d *Driver) step(ctx context.Context, count uint) error {
	res, msg, err := d.Pop(ctx)
	if err != nil {
		return err
	}
	if res != nil {
		d.handle(ctx, res, msg)
	}
	if d.Config.LengthCheckCount > 0 && count%d.Config.LengthCheckCount == 0 {
		return d.checkQueueLength(ctx)
	}
	return nil
}

// handle runs a job and resolves its reservation exactly one way:
// deleted, deleted and retried, or dead-lettered.
func (d *Driver) handle(ctx context.Context, res *Reservation, msg *Message) {
	log := d.Log.With(
		zap.Uint64("job_id", res.ID),
		zap.String("job_type", fmt.Sprintf("%T", msg.Job())),
		zap.Int("attempts", msg.Attempts()))
	err := d.run(ctx, log, msg)
	if err == nil {
		if err = d.Ack(ctx, res); err == nil {
			return
		}
	}
	if errors.Is(err, ErrJobNotFound) {
		// Reservation is gone, most likely its TTR expired and another consumer owns it now.
		log.Warn("Job no longer reserved, dropping delivery", zap.Error(err))
		return
	}
	log.Error("Job failed", zap.Error(err))
	deleteErr := d.Ack(ctx, res)
	if deleteErr != nil {
		log.Warn("Failed to delete failed job", zap.Error(deleteErr))
	}
	next, ok := msg.NextAttempt()
	if deleteErr == nil && ok {
		d.dispatch(ctx, RetryHandle{Message: next, Err: err})
		retryErr := d.retry(ctx, next)
		if retryErr == nil {
			log.Info("Job scheduled for retry",
				zap.Int("next_attempt", next.Attempts()),
				zap.Duration("delay", d.retryPolicy().Delay(next.Attempts())))
			return
		}
		log.Error("Failed to retry job, dead-lettering instead", zap.Error(retryErr))
	}
	d.dispatch(ctx, FailedHandle{Message: msg, Err: err})
	if failErr := d.Fail(ctx, res); failErr != nil {
		log.Error("Failed to dead-letter job", zap.Error(failErr))
	}
}

// run executes the job with its surrounding notifications.
// A panicking job counts as a failed job.
func (d *Driver) run(ctx context.Context, log *zap.Logger, msg *Message) (err error) {
	d.dispatch(ctx, BeforeHandle{Message: msg})
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
		if took := time.Since(start); d.Config.HandleTimeout > 0 && took > d.Config.HandleTimeout {
			log.Warn("Job exceeded handle timeout",
				zap.Duration("took", took),
				zap.Duration("handle_timeout", d.Config.HandleTimeout))
		}
	}()
	if err := msg.Job().Handle(ctx); err != nil {
		return err
	}
	d.dispatch(ctx, AfterHandle{Message: msg})
	return nil
}

func (d *Driver) dispatch(ctx context.Context, event Event) {
	if d.Events == nil {
		return
	}
	if err := d.Events.Dispatch(ctx, event); err != nil {
		d.Log.Warn("Failed to dispatch event",
			zap.String("event", event.EventName()), zap.Error(err))
	}
}

// checkQueueLength reports the queue depth counters to the event sink.
func (d *Driver) checkQueueLength(ctx context.Context) error {
	stats, err := d.Info(ctx)
	if err != nil {
		return err
	}
	for _, ql := range []QueueLength{
		{Queue: "waiting", Length: stats.Waiting},
		{Queue: "delayed", Length: stats.Delayed},
		{Queue: "reserved", Length: stats.Reserved},
		{Queue: "failed", Length: stats.Failed},
		{Queue: "timeout", Length: stats.Timeout},
	} {
		ql.Channel = d.Config.Channel
		d.dispatch(ctx, ql)
	}
	return nil
}
