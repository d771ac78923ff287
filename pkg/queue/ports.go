package queue

import (
	"context"
	"time"
)

// Reservation is the handle of one reserved job.
// It is only valid until the delivery is acknowledged or dead-lettered.
type Reservation struct {
	ID   uint64
	Body []byte
}

// WorkQueue is a tube-based work queue such as beanstalkd.
type WorkQueue interface {
	// Put submits a payload and returns the job ID.
	Put(ctx context.Context, tube string, body []byte, priority uint32, delay, ttr time.Duration) (uint64, error)
	// Reserve waits up to timeout for a job on the tube.
	// Returns nil without error if no job became ready.
	Reserve(ctx context.Context, tube string, timeout time.Duration) (*Reservation, error)
	// Delete removes a reserved job.
	// Returns an error wrapping ErrJobNotFound if the reservation no longer exists.
	Delete(ctx context.Context, r *Reservation) error
	// StatsTube returns the raw statistics of a tube.
	// A tube that does not exist returns empty stats.
	StatsTube(ctx context.Context, tube string) (map[string]string, error)
}

// ListStore is a key-value store with atomic list operations such as Redis.
type ListStore interface {
	LPush(ctx context.Context, key string, value []byte) (int64, error)
	// RPush appends at the end RPop takes from.
	RPush(ctx context.Context, key string, value []byte) (int64, error)
	// RPop returns nil without error if the list is empty.
	RPop(ctx context.Context, key string) ([]byte, error)
	LLen(ctx context.Context, key string) (int64, error)
	Del(ctx context.Context, key string) (bool, error)
}

// RunController tells a consume loop whether to keep going.
// It is polled once per iteration.
type RunController interface {
	IsRunning() bool
}

// ContextRunner keeps running until the context is canceled.
type ContextRunner struct {
	Ctx context.Context
}

// IsRunning reports whether the context is still active.
func (r ContextRunner) IsRunning() bool {
	return r.Ctx.Err() == nil
}
