package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.od2.network/tubeq/pkg/queue"
)

type sendMail struct {
	To string `json:"to"`
}

func (*sendMail) Handle(context.Context) error { return nil }

type errSink struct {
	err   error
	calls int
}

func (s *errSink) Dispatch(context.Context, queue.Event) error {
	s.calls++
	return s.err
}

func TestMulti(t *testing.T) {
	errA, errB := errors.New("a"), errors.New("b")
	a, b, c := &errSink{err: errA}, &errSink{}, &errSink{err: errB}
	multi := Multi{a, b, c}
	err := multi.Dispatch(context.Background(), queue.AfterHandle{Message: queue.NewMessage(&sendMail{})})
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 1, c.calls)

	assert.NoError(t, Multi{b}.Dispatch(context.Background(), queue.QueueLength{}))
}
