package events

import (
	"context"
	"errors"
	"testing"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.od2.network/tubeq/pkg/queue"
)

func TestKafka(t *testing.T) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, config)
	sink := &Kafka{
		Producer: producer,
		Topic:    "mail.dead-letters",
		Channel:  "mail",
	}
	ctx := context.Background()
	msg := queue.NewMessage(&sendMail{To: "a@example.org"})
	next, _ := msg.NextAttempt()

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var record Record
		require.NoError(t, json.Unmarshal(val, &record))
		assert.Equal(t, "failed_handle", record.Event)
		assert.Equal(t, "mail", record.Channel)
		assert.Equal(t, "*events.sendMail", record.JobType)
		assert.JSONEq(t, `{"to":"a@example.org"}`, string(record.Job))
		assert.Equal(t, 1, record.Attempts)
		assert.Equal(t, "smtp down", record.Error)
		return nil
	})
	require.NoError(t, sink.Dispatch(ctx, queue.FailedHandle{Message: next, Err: errors.New("smtp down")}))

	// Not published.
	require.NoError(t, sink.Dispatch(ctx, queue.BeforeHandle{Message: msg}))
	require.NoError(t, sink.Dispatch(ctx, queue.QueueLength{Channel: "mail"}))

	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	err := sink.Dispatch(ctx, queue.RetryHandle{Message: next, Err: errors.New("smtp down")})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)

	require.NoError(t, producer.Close())
}
