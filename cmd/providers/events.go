package providers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"go.od2.network/tubeq/pkg/events"
	"go.od2.network/tubeq/pkg/queue"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	ConfEventsLogInfoLength = "events.log.info_length"
	ConfEventsLogWarnLength = "events.log.warn_length"
	ConfEventsKafkaTopic    = "events.kafka_topic"
)

func init() {
	viper.SetDefault(ConfEventsLogInfoLength, 50)
	viper.SetDefault(ConfEventsLogWarnLength, 500)
	viper.SetDefault(ConfEventsKafkaTopic, "")
}

// NewEventSink builds the sinks receiving consume events.
// Events get logged and exported as Prometheus metrics.
// If events.kafka_topic is set, retried and failed jobs are also published to Kafka.
func NewEventSink(
	lc fx.Lifecycle,
	log *zap.Logger,
	config queue.Config,
) (queue.EventSink, error) {
	logSink := events.NewLogger(log.Named("events"))
	logSink.InfoLength = viper.GetInt64(ConfEventsLogInfoLength)
	logSink.WarnLength = viper.GetInt64(ConfEventsLogWarnLength)
	metricsSink, err := events.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, err
	}
	sinks := events.Multi{logSink, metricsSink}

	topic := viper.GetString(ConfEventsKafkaTopic)
	if topic == "" {
		return sinks, nil
	}
	log.Info("Publishing failed jobs to Kafka", zap.String(ConfEventsKafkaTopic, topic))
	saramaConfig, err := NewSaramaConfig(log)
	if err != nil {
		return nil, err
	}
	client, err := NewSaramaClient(lc, log, saramaConfig)
	if err != nil {
		return nil, err
	}
	producer, err := NewSaramaSyncProducer(log, client, lc)
	if err != nil {
		return nil, err
	}
	sinks = append(sinks, &events.Kafka{
		Producer: producer,
		Topic:    topic,
		Channel:  config.Channel,
	})
	return sinks, nil
}
