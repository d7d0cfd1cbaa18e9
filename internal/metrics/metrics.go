// Package metrics holds the Prometheus collectors for the pipeline. A nil
// *Metrics is valid and records nothing, which keeps tests free of registries.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	fetchTotal    *prometheus.CounterVec
	fetchDuration prometheus.Summary
	droppedTotal  *prometheus.CounterVec
	activeCodes   prometheus.Gauge
	newCodesTotal prometheus.Counter
	notifyTotal   *prometheus.CounterVec
	lastSuccessTS prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mungo_shift",
			Name:      "upstream_fetch_total",
			Help:      "Upstream feed requests by result",
		}, []string{"result"}),
		fetchDuration: prometheus.NewSummary(prometheus.SummaryOpts{
			Namespace: "mungo_shift",
			Name:      "upstream_fetch_duration_seconds",
			Help:      "Time spent fetching and decoding the upstream feed",
		}),
		droppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mungo_shift",
			Name:      "records_dropped_total",
			Help:      "Upstream records dropped by the pipeline, by reason",
		}, []string{"reason"}),
		activeCodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mungo_shift",
			Name:      "active_codes",
			Help:      "Number of active codes in the last published dataset",
		}),
		newCodesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mungo_shift",
			Name:      "new_codes_total",
			Help:      "Codes seen for the first time by the scheduled trigger",
		}),
		notifyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mungo_shift",
			Name:      "notifications_total",
			Help:      "Notification attempts by result",
		}, []string{"result"}),
		lastSuccessTS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mungo_shift",
			Name:      "upstream_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful upstream fetch",
		}),
	}
	reg.MustRegister(
		m.fetchTotal,
		m.fetchDuration,
		m.droppedTotal,
		m.activeCodes,
		m.newCodesTotal,
		m.notifyTotal,
		m.lastSuccessTS,
	)
	return m
}

// ObserveFetch records one upstream request.
func (m *Metrics) ObserveFetch(err error, took time.Duration) {
	if m == nil {
		return
	}
	m.fetchDuration.Observe(took.Seconds())
	if err != nil {
		m.fetchTotal.WithLabelValues("error").Inc()
		return
	}
	m.fetchTotal.WithLabelValues("ok").Inc()
	m.lastSuccessTS.SetToCurrentTime()
}

// RecordDropped counts records dropped for reason.
func (m *Metrics) RecordDropped(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.droppedTotal.WithLabelValues(reason).Add(float64(n))
}

// SetActiveCodes sets the size of the last published dataset.
func (m *Metrics) SetActiveCodes(n int) {
	if m == nil {
		return
	}
	m.activeCodes.Set(float64(n))
}

// RecordNewCodes counts newly observed codes.
func (m *Metrics) RecordNewCodes(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.newCodesTotal.Add(float64(n))
}

// RecordNotify counts a notification attempt.
func (m *Metrics) RecordNotify(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.notifyTotal.WithLabelValues("error").Inc()
		return
	}
	m.notifyTotal.WithLabelValues("ok").Inc()
}
