package queue

import "context"

// EventSink receives notifications from the consume loop.
// Errors are logged by the loop and otherwise ignored.
type EventSink interface {
	Dispatch(ctx context.Context, event Event) error
}

// Event is a consume loop notification.
type Event interface {
	EventName() string
}

// BeforeHandle fires before a job runs.
type BeforeHandle struct {
	Message *Message
}

// AfterHandle fires after a job ran successfully.
type AfterHandle struct {
	Message *Message
}

// RetryHandle fires when a failed job is about to be resubmitted.
// Message holds the next delivery.
type RetryHandle struct {
	Message *Message
	Err     error
}

// FailedHandle fires when a failed job is about to be dead-lettered.
type FailedHandle struct {
	Message *Message
	Err     error
}

// QueueLength fires periodically with one counter of Stats.
type QueueLength struct {
	Channel string
	Queue   string // waiting, delayed, reserved, failed or timeout
	Length  int64
}

func (BeforeHandle) EventName() string { return "before_handle" }
func (AfterHandle) EventName() string  { return "after_handle" }
func (RetryHandle) EventName() string  { return "retry_handle" }
func (FailedHandle) EventName() string { return "failed_handle" }
func (QueueLength) EventName() string  { return "queue_length" }
