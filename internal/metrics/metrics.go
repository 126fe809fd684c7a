package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus metrics for the kitchen service.
type Metrics struct {
	StageTransitions    *prometheus.CounterVec
	RejectedTransitions *prometheus.CounterVec
	RelayForwards       *prometheus.CounterVec
	InboundWebhooks     *prometheus.CounterVec
	ArchivedDeliveries  prometheus.Counter
	HTTPDuration        *prometheus.HistogramVec
	gatherer            prometheus.Gatherer
}

// New registers metrics with the provided registry. If registry is nil, a new
// isolated registry is created.
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		StageTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_stage_transitions_total",
			Help: "Committed order stage transitions by target stage.",
		}, []string{"stage"}),
		RejectedTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_stage_rejections_total",
			Help: "Rejected order stage transitions by reason.",
		}, []string{"reason"}),
		RelayForwards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "whatsapp_relay_forwards_total",
			Help: "Outbound WhatsApp relay attempts by status.",
		}, []string{"status"}),
		InboundWebhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "whatsapp_inbound_webhooks_total",
			Help: "Inbound WhatsApp webhook calls by outcome.",
		}, []string{"outcome"}),
		ArchivedDeliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "completed_deliveries_archived_total",
			Help: "Delivered orders moved into completed deliveries.",
		}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "status"}),
		gatherer: registry,
	}

	registry.MustRegister(
		m.StageTransitions,
		m.RejectedTransitions,
		m.RelayForwards,
		m.InboundWebhooks,
		m.ArchivedDeliveries,
		m.HTTPDuration,
	)

	return m
}

// Handler returns an HTTP handler that exposes metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) IncTransition(stage string) {
	m.StageTransitions.WithLabelValues(stage).Inc()
}

func (m *Metrics) IncRejection(reason string) {
	m.RejectedTransitions.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncRelay(status string) {
	m.RelayForwards.WithLabelValues(status).Inc()
}

func (m *Metrics) IncInbound(outcome string) {
	m.InboundWebhooks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncArchived(n int) {
	m.ArchivedDeliveries.Add(float64(n))
}

// ObserveHTTP records one request's latency
func (m *Metrics) ObserveHTTP(method, status string, d time.Duration) {
	m.HTTPDuration.WithLabelValues(method, status).Observe(d.Seconds())
}
