// Package metrics exposes Prometheus counters for the clip workflows.
// A nil *Metrics is valid and records nothing.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	OutcomeCommitted = "committed"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

type Metrics struct {
	workflows    *prometheus.CounterVec
	streamBytes  *prometheus.CounterVec
	sharesIssued prometheus.Counter
	sharesSwept  prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		workflows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clipshare_workflow_total",
			Help: "Upload, trim, merge and delete workflows by terminal outcome.",
		}, []string{"op", "outcome"}),
		streamBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clipshare_stream_bytes_total",
			Help: "Bytes of video content streamed.",
		}, []string{"source"}),
		sharesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clipshare_share_links_issued_total",
			Help: "Share links issued.",
		}),
		sharesSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clipshare_share_links_swept_total",
			Help: "Expired share links removed by the sweeper.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.workflows, m.streamBytes, m.sharesIssued, m.sharesSwept)
	}
	return m
}

func (m *Metrics) Workflow(op, outcome string) {
	if m == nil {
		return
	}
	m.workflows.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) Streamed(source string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.streamBytes.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) ShareIssued() {
	if m == nil {
		return
	}
	m.sharesIssued.Inc()
}

func (m *Metrics) SharesSwept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.sharesSwept.Add(float64(n))
}
