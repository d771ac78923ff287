package events

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.od2.network/tubeq/pkg/queue"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)
	ctx := context.Background()
	msg := queue.NewMessage(&sendMail{})
	for _, e := range []queue.Event{
		queue.BeforeHandle{Message: msg},
		queue.AfterHandle{Message: msg},
		queue.BeforeHandle{Message: msg},
		queue.RetryHandle{Message: msg, Err: errors.New("x")},
		queue.BeforeHandle{Message: msg},
		queue.FailedHandle{Message: msg, Err: errors.New("x")},
		queue.QueueLength{Channel: "mail", Queue: "failed", Length: 4},
		queue.QueueLength{Channel: "mail", Queue: "failed", Length: 2},
	} {
		require.NoError(t, m.Dispatch(ctx, e))
	}
	assert.Equal(t, float64(3), testutil.ToFloat64(m.Jobs.WithLabelValues(OutcomeStarted)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Jobs.WithLabelValues(OutcomeSucceeded)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Jobs.WithLabelValues(OutcomeRetried)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Jobs.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Lengths.WithLabelValues("mail", "failed")))

	// Registering twice fails.
	_, err = NewMetrics(reg)
	assert.Error(t, err)
}
