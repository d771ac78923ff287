package queue

import "errors"

var (
	// ErrDecode is returned when a payload does not hold a valid message.
	ErrDecode = errors.New("malformed message")
	// ErrEncode is returned when a message cannot be serialized.
	ErrEncode = errors.New("unserializable message")
	// ErrInvalidChannel is returned when looking up an unknown channel name.
	ErrInvalidChannel = errors.New("invalid channel")
	// ErrInvalidQueue is returned when reloading or flushing an unsupported list.
	ErrInvalidQueue = errors.New("queue is not supported")
	// ErrInvalidHandle is returned when acknowledging without a reservation.
	ErrInvalidHandle = errors.New("invalid reservation handle")
	// ErrNotAccepted is returned when the work queue did not assign a job ID.
	ErrNotAccepted = errors.New("job not accepted by work queue")
	// ErrJobNotFound gets raised by WorkQueue.Delete when the reservation is gone,
	// e.g. because it was already deleted or its TTR expired.
	ErrJobNotFound = errors.New("job not found")
)
