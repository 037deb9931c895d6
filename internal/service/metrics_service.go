package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the procurement domain.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	quotationsSubmitted prometheus.Counter
	nfaVotes            *prometheus.CounterVec
	poApprovals         *prometheus.CounterVec
	rfqsSent            prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	quotationsSubmitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quotations_submitted_total",
		Help: "Total vendor quotations accepted through the portal",
	})

	nfaVotes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nfa_votes_total",
		Help: "Total executive committee votes recorded",
	}, []string{"action"})

	poApprovals := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "po_approvals_total",
		Help: "Total purchase order approvals by level",
	}, []string{"level"})

	rfqsSent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rfqs_sent_total",
		Help: "Total RFQs dispatched to vendors",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, quotationsSubmitted, nfaVotes, poApprovals, rfqsSent, goroutines)

	return &MetricsService{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		quotationsSubmitted: quotationsSubmitted,
		nfaVotes:            nfaVotes,
		poApprovals:         poApprovals,
		rfqsSent:            rfqsSent,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// CountQuotationSubmitted increments the portal submission counter.
func (m *MetricsService) CountQuotationSubmitted() {
	if m == nil {
		return
	}
	m.quotationsSubmitted.Inc()
}

// CountNFAVote increments the vote counter for one action.
func (m *MetricsService) CountNFAVote(action string) {
	if m == nil {
		return
	}
	m.nfaVotes.WithLabelValues(action).Inc()
}

// CountPOApproval increments the approval counter for one level.
func (m *MetricsService) CountPOApproval(level int) {
	if m == nil {
		return
	}
	m.poApprovals.WithLabelValues(fmt.Sprintf("L%d", level)).Inc()
}

// CountRFQSent increments the dispatched-RFQ counter.
func (m *MetricsService) CountRFQSent() {
	if m == nil {
		return
	}
	m.rfqsSent.Inc()
}
