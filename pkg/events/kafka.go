package events

import (
	"context"
	"fmt"
	"time"

	"github.com/Shopify/sarama"
	"github.com/goccy/go-json"
	"go.od2.network/tubeq/pkg/queue"
)

// Kafka publishes retried and failed jobs to a Kafka topic,
// so they can be inspected without draining the failed list.
type Kafka struct {
	Producer sarama.SyncProducer
	Topic    string
	Channel  string // message key
}

// Record is the JSON value of published messages.
type Record struct {
	Event    string          `json:"event"`
	Channel  string          `json:"channel"`
	JobType  string          `json:"job_type"`
	Job      json.RawMessage `json:"job,omitempty"`
	Attempts int             `json:"attempts"`
	Error    string          `json:"error"`
	Time     time.Time       `json:"time"`
}

// Dispatch publishes RetryHandle and FailedHandle events, ignoring others.
func (k *Kafka) Dispatch(_ context.Context, event queue.Event) error {
	var msg *queue.Message
	var handleErr error
	switch e := event.(type) {
	case queue.RetryHandle:
		msg, handleErr = e.Message, e.Err
	case queue.FailedHandle:
		msg, handleErr = e.Message, e.Err
	default:
		return nil
	}
	record := Record{
		Event:    event.EventName(),
		Channel:  k.Channel,
		JobType:  jobType(msg),
		Attempts: msg.Attempts(),
		Time:     time.Now().UTC(),
	}
	if handleErr != nil {
		record.Error = handleErr.Error()
	}
	if job, err := json.Marshal(msg.Job()); err == nil {
		record.Job = job
	}
	value, err := json.Marshal(&record)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	_, _, err = k.Producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.Topic,
		Key:   sarama.StringEncoder(k.Channel),
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		return fmt.Errorf("failed to publish event to Kafka: %w", err)
	}
	return nil
}
