// Package beanstalkq implements the queue.WorkQueue port on top of beanstalkd.
package beanstalkq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/beanstalkd/go-beanstalk"
	"go.od2.network/tubeq/pkg/queue"
)

// Client is a beanstalkd connection usable as a work queue.
// Each consumer should own its Client, reservations are bound to the connection.
type Client struct {
	Conn *beanstalk.Conn

	mu    sync.Mutex
	tubes map[string]*beanstalk.Tube
	sets  map[string]*beanstalk.TubeSet
}

// Assert Client implements queue.WorkQueue.
var _ queue.WorkQueue = (*Client)(nil)

// Dial connects to a beanstalkd server.
func Dial(network, addr string) (*Client, error) {
	conn, err := beanstalk.Dial(network, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to beanstalkd: %w", err)
	}
	return NewClient(conn), nil
}

// NewClient wraps an existing connection.
func NewClient(conn *beanstalk.Conn) *Client {
	return &Client{
		Conn:  conn,
		tubes: make(map[string]*beanstalk.Tube),
		sets:  make(map[string]*beanstalk.TubeSet),
	}
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.Conn.Close()
}

func (c *Client) tube(name string) *beanstalk.Tube {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tubes[name]
	if !ok {
		t = beanstalk.NewTube(c.Conn, name)
		c.tubes[name] = t
	}
	return t
}

func (c *Client) tubeSet(name string) *beanstalk.TubeSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts, ok := c.sets[name]
	if !ok {
		ts = beanstalk.NewTubeSet(c.Conn, name)
		c.sets[name] = ts
	}
	return ts
}

// Put submits a job to a tube.
func (c *Client) Put(ctx context.Context, tube string, body []byte, priority uint32, delay, ttr time.Duration) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return c.tube(tube).Put(body, priority, delay, ttr)
}

// Reserve waits for a job on a single tube.
// A reserve timeout or a deadline-soon notice returns no job.
func (c *Client) Reserve(ctx context.Context, tube string, timeout time.Duration) (*queue.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, body, err := c.tubeSet(tube).Reserve(timeout)
	switch {
	case isConnErr(err, beanstalk.ErrTimeout), isConnErr(err, beanstalk.ErrDeadline):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return &queue.Reservation{ID: id, Body: body}, nil
}

// Delete removes a reserved job.
func (c *Client) Delete(ctx context.Context, r *queue.Reservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := c.Conn.Delete(r.ID)
	if isConnErr(err, beanstalk.ErrNotFound) {
		return fmt.Errorf("%w: %d", queue.ErrJobNotFound, r.ID)
	}
	return err
}

// StatsTube returns the statistics of a tube.
func (c *Client) StatsTube(ctx context.Context, tube string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stats, err := c.tube(tube).Stats()
	if isConnErr(err, beanstalk.ErrNotFound) {
		// Tubes only exist while they have jobs or watchers.
		return map[string]string{}, nil
	}
	return stats, err
}

func isConnErr(err error, target error) bool {
	var connErr beanstalk.ConnError
	if errors.As(err, &connErr) {
		return connErr.Err == target
	}
	return err == target
}
