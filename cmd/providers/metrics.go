package providers

import (
	"net/http"
	"time"

	prometheusmetrics "github.com/deathowl/go-metrics-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rcrowley/go-metrics"
)

// GOMPrometheusSync specifies the time interval to sync go-metrics to Prometheus.
var GOMPrometheusSync = 5 * time.Second

// SetupPrometheus configures the go-metrics Prometheus exporter used by sarama.
// Returns the Prometheus exporter HTTP handler.
func SetupPrometheus() http.Handler {
	gomProvider := prometheusmetrics.NewPrometheusProvider(
		metrics.DefaultRegistry,
		"tubeq", "",
		prometheus.DefaultRegisterer,
		GOMPrometheusSync)
	go gomProvider.UpdatePrometheusMetrics()
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}
