// Package events provides queue.EventSink implementations
// for logging, Prometheus metrics and publishing to Kafka.
package events

import (
	"context"
	"fmt"

	"go.od2.network/tubeq/pkg/queue"
	"go.uber.org/multierr"
)

// Multi fans out events to multiple sinks.
// All sinks receive every event, errors are combined.
type Multi []queue.EventSink

// Dispatch sends the event to all sinks.
func (m Multi) Dispatch(ctx context.Context, event queue.Event) error {
	var err error
	for _, sink := range m {
		err = multierr.Append(err, sink.Dispatch(ctx, event))
	}
	return err
}

func jobType(msg *queue.Message) string {
	return fmt.Sprintf("%T", msg.Job())
}
