package metrics

import "github.com/prometheus/client_golang/prometheus"

// SSEMetrics records connection and delivery counters for the live stream.
type SSEMetrics struct {
	connectionsCreated prometheus.Counter
	notificationsSent  prometheus.Counter
	notificationsFail  prometheus.Counter
}

// NewSSEMetrics registers the stream metrics on the provided registerer. The
// active-connection gauge reads the registry size via activeCount at scrape
// time, so it stays accurate without any bookkeeping on the hot path.
func NewSSEMetrics(reg prometheus.Registerer, activeCount func() int) *SSEMetrics {
	if reg == nil {
		return &SSEMetrics{}
	}
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sse_connections_created_total",
		Help: "Total number of SSE connections created.",
	})
	sent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Total number of notifications sent.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifications_failed_total",
		Help: "Total number of failed notification attempts.",
	})
	reg.MustRegister(created, sent, failed)
	if activeCount != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections.",
		}, func() float64 { return float64(activeCount()) }))
	}
	return &SSEMetrics{
		connectionsCreated: created,
		notificationsSent:  sent,
		notificationsFail:  failed,
	}
}

// IncConnectionsCreated counts a stored connection.
func (s *SSEMetrics) IncConnectionsCreated() {
	if s == nil || s.connectionsCreated == nil {
		return
	}
	s.connectionsCreated.Inc()
}

// IncNotificationsSent counts a delivered push.
func (s *SSEMetrics) IncNotificationsSent() {
	if s == nil || s.notificationsSent == nil {
		return
	}
	s.notificationsSent.Inc()
}

// IncNotificationsFailed counts an undeliverable push (offline or broken pipe).
func (s *SSEMetrics) IncNotificationsFailed() {
	if s == nil || s.notificationsFail == nil {
		return
	}
	s.notificationsFail.Inc()
}
