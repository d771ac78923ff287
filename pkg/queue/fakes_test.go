package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// put records one WorkQueue.Put call.
type put struct {
	ID       uint64
	Tube     string
	Body     []byte
	Priority uint32
	Delay    time.Duration
	TTR      time.Duration
}

// memWorkQueue is an in-memory WorkQueue with no delay or TTR handling.
type memWorkQueue struct {
	mu         sync.Mutex
	nextID     uint64
	puts       []put
	ready      map[string][]*Reservation
	reserved   map[uint64]*Reservation
	deleted    []uint64
	deleteErr  error // forced Delete error
	putErr     error // forced Put error
	reserveErr error // forced Reserve error
	stats      map[string]string
}

func newMemWorkQueue() *memWorkQueue {
	return &memWorkQueue{
		ready:    make(map[string][]*Reservation),
		reserved: make(map[uint64]*Reservation),
	}
}

func (q *memWorkQueue) Put(ctx context.Context, tube string, body []byte, priority uint32, delay, ttr time.Duration) (uint64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if q.putErr != nil {
		return 0, q.putErr
	}
	q.nextID++
	q.puts = append(q.puts, put{q.nextID, tube, body, priority, delay, ttr})
	q.ready[tube] = append(q.ready[tube], &Reservation{ID: q.nextID, Body: body})
	return q.nextID, nil
}

func (q *memWorkQueue) Reserve(ctx context.Context, tube string, _ time.Duration) (*Reservation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.reserveErr != nil {
		return nil, q.reserveErr
	}
	if len(q.ready[tube]) == 0 {
		return nil, nil
	}
	res := q.ready[tube][0]
	q.ready[tube] = q.ready[tube][1:]
	q.reserved[res.ID] = res
	return res, nil
}

func (q *memWorkQueue) Delete(ctx context.Context, r *Reservation) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if q.deleteErr != nil {
		return q.deleteErr
	}
	if _, ok := q.reserved[r.ID]; !ok {
		return fmt.Errorf("delete %d: %w", r.ID, ErrJobNotFound)
	}
	delete(q.reserved, r.ID)
	q.deleted = append(q.deleted, r.ID)
	return nil
}

func (q *memWorkQueue) StatsTube(ctx context.Context, tube string) (map[string]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.stats != nil {
		return q.stats, nil
	}
	return map[string]string{
		"name":                  tube,
		"current-jobs-ready":    fmt.Sprint(len(q.ready[tube])),
		"current-jobs-delayed":  "0",
		"current-jobs-reserved": fmt.Sprint(len(q.reserved)),
	}, nil
}

// memStore is an in-memory ListStore.
type memStore struct {
	mu    sync.Mutex
	lists map[string][][]byte
	err   error // forced error for all calls
}

func newMemStore() *memStore {
	return &memStore{lists: make(map[string][][]byte)}
}

func (s *memStore) LPush(ctx context.Context, key string, value []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.err != nil {
		return 0, s.err
	}
	s.lists[key] = append([][]byte{value}, s.lists[key]...)
	return int64(len(s.lists[key])), nil
}

func (s *memStore) RPush(ctx context.Context, key string, value []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.err != nil {
		return 0, s.err
	}
	s.lists[key] = append(s.lists[key], value)
	return int64(len(s.lists[key])), nil
}

func (s *memStore) RPop(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	l := s.lists[key]
	if len(l) == 0 {
		return nil, nil
	}
	v := l[len(l)-1]
	s.lists[key] = l[:len(l)-1]
	return v, nil
}

func (s *memStore) LLen(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.err != nil {
		return 0, s.err
	}
	return int64(len(s.lists[key])), nil
}

func (s *memStore) Del(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s.err != nil {
		return false, s.err
	}
	_, ok := s.lists[key]
	delete(s.lists, key)
	return ok, nil
}

// handled records the names of testJobs that ran.
var handled []string

// stopConsume is called by testJobs with Fail "stop".
var stopConsume context.CancelFunc

// testJob fails according to its Fail field:
// "" succeeds, "not_found" returns ErrJobNotFound, "panic" panics,
// "stop" calls stopConsume and succeeds if its own context survived, anything else errors.
type testJob struct {
	Name    string `json:"name"`
	Retries int    `json:"retries,omitempty"`
	Fail    string `json:"fail,omitempty"`
}

func (j *testJob) Handle(ctx context.Context) error {
	handled = append(handled, j.Name)
	switch j.Fail {
	case "":
		return nil
	case "stop":
		stopConsume()
		return ctx.Err()
	case "not_found":
		return fmt.Errorf("cannot delete job: %w", ErrJobNotFound)
	case "panic":
		panic(j.Name)
	default:
		return errors.New(j.Fail)
	}
}

func (j *testJob) MaxAttempts() int {
	return j.Retries
}

// plainJob never allows retries.
type plainJob struct {
	Value int `json:"value"`
}

func (j *plainJob) Handle(context.Context) error {
	return nil
}

func testRegistry() *Registry {
	reg := NewRegistry()
	reg.Register("test", func() Job { return new(testJob) })
	reg.Register("plain", func() Job { return new(plainJob) })
	return reg
}

// recordSink records dispatched events.
type recordSink struct {
	events []Event
	err    error
}

func (s *recordSink) Dispatch(_ context.Context, event Event) error {
	s.events = append(s.events, event)
	return s.err
}

func (s *recordSink) names() []string {
	names := make([]string, len(s.events))
	for i, e := range s.events {
		names[i] = e.EventName()
	}
	return names
}

// countRunner stops after n polls.
type countRunner struct {
	n int
}

func (r *countRunner) IsRunning() bool {
	r.n--
	return r.n >= 0
}

var errBoom = errors.New("boom")
