// Package metrics tracks dcerpcsniff-specific Prometheus metrics.
//
// All metrics use the dcerpc_ prefix. Metrics are designed for
// observability into the capture loop and parser without affecting
// performance when not scraped.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	// PDUsTotal counts PDUs whose common header has been decoded, by
	// direction and type.
	PDUsTotal *prometheus.CounterVec

	// ContextItemsAdvertised counts BIND/ALTER_CONTEXT context items seen.
	ContextItemsAdvertised prometheus.Counter

	// ContextItemsAccepted counts context items whose matching BIND_ACK/
	// ALTER_CONTEXT_RESP item reported Result == 0.
	ContextItemsAccepted prometheus.Counter

	// ParseErrorsTotal counts Ingest calls that returned a non-nil error,
	// by error kind.
	ParseErrorsTotal *prometheus.CounterVec

	// BytesTotal counts bytes handed to Ingest, by direction.
	BytesTotal *prometheus.CounterVec

	// ActiveFlows tracks the number of TCP flows currently tracked by the
	// capture layer.
	ActiveFlows prometheus.Gauge
}

// New creates dcerpcsniff metrics with the dcerpc_ prefix and registers
// them against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PDUsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dcerpc_pdus_total",
				Help: "Total DCE/RPC PDUs seen by direction and type",
			},
			[]string{"direction", "type"},
		),
		ContextItemsAdvertised: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dcerpc_context_items_advertised_total",
				Help: "Total BIND/ALTER_CONTEXT context items advertised",
			},
		),
		ContextItemsAccepted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dcerpc_context_items_accepted_total",
				Help: "Total context items accepted by the matching BIND_ACK/ALTER_CONTEXT_RESP",
			},
		),
		ParseErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dcerpc_parse_errors_total",
				Help: "Total Ingest errors by kind",
			},
			[]string{"kind"},
		),
		BytesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dcerpc_bytes_total",
				Help: "Total bytes handed to Ingest by direction",
			},
			[]string{"direction"},
		),
		ActiveFlows: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dcerpc_active_flows",
				Help: "Current number of TCP flows tracked by the capture loop",
			},
		),
	}

	reg.MustRegister(
		m.PDUsTotal,
		m.ContextItemsAdvertised,
		m.ContextItemsAccepted,
		m.ParseErrorsTotal,
		m.BytesTotal,
		m.ActiveFlows,
	)

	return m
}

// RecordPDU records one PDU whose common header has been decoded.
func (m *Metrics) RecordPDU(direction, pduType string) {
	if m == nil {
		return
	}
	m.PDUsTotal.WithLabelValues(direction, pduType).Inc()
}

// RecordContextItemAdvertised records one BIND/ALTER_CONTEXT context item
// as seen, before its result is known.
func (m *Metrics) RecordContextItemAdvertised() {
	if m == nil {
		return
	}
	m.ContextItemsAdvertised.Inc()
}

// RecordContextItemResult records the matching BIND_ACK/ALTER_CONTEXT_RESP
// outcome for a previously advertised context item.
func (m *Metrics) RecordContextItemResult(accepted bool) {
	if m == nil {
		return
	}
	if accepted {
		m.ContextItemsAccepted.Inc()
	}
}

// RecordParseError records one Ingest error by kind (typically err.Error()
// or a short static label derived from it).
func (m *Metrics) RecordParseError(kind string) {
	if m == nil {
		return
	}
	m.ParseErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordBytes records bytes handed to Ingest for one direction.
func (m *Metrics) RecordBytes(direction string, n int) {
	if m == nil {
		return
	}
	m.BytesTotal.WithLabelValues(direction).Add(float64(n))
}

// IncActiveFlows records one new TCP flow entering reassembly.
func (m *Metrics) IncActiveFlows() {
	if m == nil {
		return
	}
	m.ActiveFlows.Inc()
}

// DecActiveFlows records one TCP flow leaving reassembly.
func (m *Metrics) DecActiveFlows() {
	if m == nil {
		return
	}
	m.ActiveFlows.Dec()
}

// Null returns nil, which acts as a no-op metrics collector: every
// Metrics method handles a nil receiver gracefully.
func Null() *Metrics {
	return nil
}
