package kafka

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds producer and consumer collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	producerMsgs    *prometheus.CounterVec
	producerBytes   *prometheus.CounterVec
	producerLatency *prometheus.HistogramVec
	consumerMsgs    *prometheus.CounterVec
	consumerLatency *prometheus.HistogramVec
	queueDepth      *prometheus.GaugeVec
}

// NewMetrics registers the Kafka collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		producerMsgs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fincurve_kafka_producer_messages_total",
			Help: "Total messages published to Kafka",
		}, []string{"topic", "result"}),
		producerBytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fincurve_kafka_producer_bytes_total",
			Help: "Total payload bytes published",
		}, []string{"topic"}),
		producerLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fincurve_kafka_producer_publish_seconds",
			Help:    "Publish latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),
		consumerMsgs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fincurve_kafka_consumer_messages_total",
			Help: "Messages handled by result (ok, retried, dlq, dropped)",
		}, []string{"topic", "result"}),
		consumerLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name: "fincurve_kafka_consumer_handle_seconds",
			Help: "Handling time per message including retries",
		}, []string{"topic"}),
		queueDepth: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fincurve_kafka_consumer_queue_depth",
			Help: "Messages waiting in worker queues",
		}, []string{"topic"}),
	}
}

func (m *Metrics) observePublish(topic string, bytes int64, count int, dur time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.producerMsgs.WithLabelValues(topic, result).Add(float64(count))
	m.producerBytes.WithLabelValues(topic).Add(float64(bytes))
	m.producerLatency.WithLabelValues(topic).Observe(dur.Seconds())
}

func (m *Metrics) observeHandled(topic, result string, dur time.Duration) {
	if m == nil {
		return
	}
	m.consumerMsgs.WithLabelValues(topic, result).Inc()
	m.consumerLatency.WithLabelValues(topic).Observe(dur.Seconds())
}

func (m *Metrics) setQueueDepth(topic string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(topic).Set(float64(depth))
}
