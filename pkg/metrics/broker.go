package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BrokerMetrics records publish/consume outcomes for the notification broker.
type BrokerMetrics struct {
	published     prometheus.Counter
	publishFailed prometheus.Counter
	consumed      prometheus.Counter
	processFailed prometheus.Counter
	processTime   prometheus.Histogram
}

// NewBrokerMetrics registers the broker metrics on the provided registerer.
func NewBrokerMetrics(reg prometheus.Registerer) *BrokerMetrics {
	if reg == nil {
		return &BrokerMetrics{}
	}
	published := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broker_messages_published_total",
		Help: "Total number of published notification messages.",
	})
	publishFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broker_messages_publish_failed_total",
		Help: "Total number of failed message publications.",
	})
	consumed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broker_messages_consumed_total",
		Help: "Total number of consumed notification messages.",
	})
	processFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broker_messages_processing_failed_total",
		Help: "Total number of failed message processing attempts.",
	})
	processTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "broker_processing_duration_seconds",
		Help:    "Time taken to process consumed messages.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(published, publishFailed, consumed, processFailed, processTime)
	return &BrokerMetrics{
		published:     published,
		publishFailed: publishFailed,
		consumed:      consumed,
		processFailed: processFailed,
		processTime:   processTime,
	}
}

func (b *BrokerMetrics) IncPublished() {
	if b == nil || b.published == nil {
		return
	}
	b.published.Inc()
}

func (b *BrokerMetrics) IncPublishFailed() {
	if b == nil || b.publishFailed == nil {
		return
	}
	b.publishFailed.Inc()
}

func (b *BrokerMetrics) IncConsumed() {
	if b == nil || b.consumed == nil {
		return
	}
	b.consumed.Inc()
}

func (b *BrokerMetrics) IncProcessingFailed() {
	if b == nil || b.processFailed == nil {
		return
	}
	b.processFailed.Inc()
}

func (b *BrokerMetrics) ObserveProcessing(duration time.Duration) {
	if b == nil || b.processTime == nil {
		return
	}
	b.processTime.Observe(duration.Seconds())
}
