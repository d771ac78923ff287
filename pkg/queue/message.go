package queue

import "context"

// Job is a unit of work executed by a consumer.
type Job interface {
	Handle(ctx context.Context) error
}

// MaxAttempter is implemented by jobs that may be retried after failing.
// Jobs not implementing it are dead-lettered on their first failure.
type MaxAttempter interface {
	MaxAttempts() int
}

// Message wraps a job with delivery metadata.
// Messages are immutable, NextAttempt returns a new one.
type Message struct {
	job      Job
	attempts int
}

// NewMessage wraps a job for its first delivery.
func NewMessage(job Job) *Message {
	return &Message{job: job}
}

// Job returns the wrapped job.
func (m *Message) Job() Job {
	return m.job
}

// Attempts returns the number of times the job was retried.
func (m *Message) Attempts() int {
	return m.attempts
}

// NextAttempt returns the message for the next delivery,
// and whether the job allows another attempt.
func (m *Message) NextAttempt() (*Message, bool) {
	next := &Message{job: m.job, attempts: m.attempts + 1}
	var max int
	if ma, ok := m.job.(MaxAttempter); ok {
		max = ma.MaxAttempts()
	}
	return next, max > m.attempts
}
