package events

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.od2.network/tubeq/pkg/queue"
)

// Job outcomes counted by Metrics.
const (
	OutcomeStarted   = "started"
	OutcomeSucceeded = "succeeded"
	OutcomeRetried   = "retried"
	OutcomeFailed    = "failed"
)

// Metrics exports events as Prometheus metrics.
type Metrics struct {
	Jobs    *prometheus.CounterVec // by outcome
	Lengths *prometheus.GaugeVec   // by channel and queue
}

// NewMetrics creates the metrics and registers them.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tubeq",
			Name:      "jobs_total",
			Help:      "Number of handled jobs by outcome.",
		}, []string{"outcome"}),
		Lengths: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tubeq",
			Name:      "queue_length",
			Help:      "Last reported queue depth.",
		}, []string{"channel", "queue"}),
	}
	for _, c := range []prometheus.Collector{m.Jobs, m.Lengths} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Dispatch updates the metrics.
func (m *Metrics) Dispatch(_ context.Context, event queue.Event) error {
	switch e := event.(type) {
	case queue.BeforeHandle:
		m.Jobs.WithLabelValues(OutcomeStarted).Inc()
	case queue.AfterHandle:
		m.Jobs.WithLabelValues(OutcomeSucceeded).Inc()
	case queue.RetryHandle:
		m.Jobs.WithLabelValues(OutcomeRetried).Inc()
	case queue.FailedHandle:
		m.Jobs.WithLabelValues(OutcomeFailed).Inc()
	case queue.QueueLength:
		m.Lengths.WithLabelValues(e.Channel, e.Queue).Set(float64(e.Length))
	}
	return nil
}
