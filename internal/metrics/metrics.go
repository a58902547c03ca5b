// Package metrics exposes Prometheus instruments for the funnel service.
package metrics

import (
	"net/http"
	"time"

	"github.com/metalagman/coopfunnel/internal/funnel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service instruments on a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	Turns        *prometheus.CounterVec
	TurnDuration *prometheus.HistogramVec
	Transitions  *prometheus.CounterVec
	Leads        *prometheus.CounterVec
	Calls        *prometheus.HistogramVec
	Outbound     *prometheus.CounterVec
}

// New registers all instruments on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Turns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "coopfunnel_turns_total",
			Help: "Inbound messages processed, by driver and outcome.",
		}, []string{"driver", "outcome"}),
		TurnDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coopfunnel_turn_duration_seconds",
			Help:    "Time to process one inbound message.",
			Buckets: prometheus.DefBuckets,
		}, []string{"driver"}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "coopfunnel_transitions_total",
			Help: "Funnel state transitions.",
		}, []string{"from", "to"}),
		Leads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "coopfunnel_leads_total",
			Help: "Leads appended, by approval.",
		}, []string{"approved"}),
		Calls: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coopfunnel_collaborator_call_seconds",
			Help:    "External collaborator call latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"collaborator", "status"}),
		Outbound: f.NewCounterVec(prometheus.CounterOpts{
			Name: "coopfunnel_outbound_messages_total",
			Help: "Outbound channel messages, by kind and status.",
		}, []string{"kind", "status"}),
	}
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveTransitions counts each transition of a turn.
func (m *Metrics) ObserveTransitions(trs []funnel.Transition) {
	for _, tr := range trs {
		m.Transitions.WithLabelValues(stepLabel(tr.From), stepLabel(tr.To)).Inc()
	}
}

// ObserveLead counts an appended lead.
func (m *Metrics) ObserveLead(l funnel.Lead) {
	if l.Approved {
		m.Leads.WithLabelValues("true").Inc()
		return
	}
	m.Leads.WithLabelValues("false").Inc()
}

// ObserveCall records a collaborator call that started at start.
func (m *Metrics) ObserveCall(collaborator string, start time.Time, err error) {
	m.Calls.WithLabelValues(collaborator, status(err)).Observe(time.Since(start).Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func stepLabel(s funnel.Step) string {
	if s == funnel.StepNew {
		return "new"
	}
	return string(s)
}
