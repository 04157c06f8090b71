package kstat

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments Readers. These describe the reader itself (how
// often the chain changes, how reads go); the kstat values are never
// exported as metrics. One Metrics may be shared by several Readers.
type Metrics struct {
	chainUpdates *prometheus.CounterVec
	descriptors  prometheus.Gauge
	records      prometheus.Counter
	readErrors   prometheus.Counter
	decodeErrors prometheus.Counter
	readDuration *prometheus.HistogramVec
}

// NewMetrics creates the reader metrics and registers them with reg.
// A nil reg means prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		chainUpdates: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kstat_chain_updates_total",
				Help: "Total number of kstat chain updates by result",
			},
			[]string{"result"},
		),
		descriptors: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "kstat_chain_descriptors",
				Help: "Number of kstats selected by the filter after the last chain rebuild",
			},
		),
		records: f.NewCounter(
			prometheus.CounterOpts{
				Name: "kstat_records_read_total",
				Help: "Total number of kstat records read and decoded",
			},
		),
		readErrors: f.NewCounter(
			prometheus.CounterOpts{
				Name: "kstat_record_read_errors_total",
				Help: "Total number of kstat records whose live re-read failed",
			},
		),
		decodeErrors: f.NewCounter(
			prometheus.CounterOpts{
				Name: "kstat_decode_errors_total",
				Help: "Total number of kstat records that could not be decoded",
			},
		),
		readDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kstat_read_duration_seconds",
				Help:    "Latency of reader operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}
}

func (m *Metrics) chainUpdate(result string) {
	if m == nil {
		return
	}
	m.chainUpdates.WithLabelValues(result).Inc()
}

func (m *Metrics) setDescriptors(n int) {
	if m == nil {
		return
	}
	m.descriptors.Set(float64(n))
}

func (m *Metrics) recordRead() {
	if m == nil {
		return
	}
	m.records.Inc()
}

func (m *Metrics) readError() {
	if m == nil {
		return
	}
	m.readErrors.Inc()
}

func (m *Metrics) decodeError() {
	if m == nil {
		return
	}
	m.decodeErrors.Inc()
}

func (m *Metrics) observe(op string, start time.Time) {
	if m == nil {
		return
	}
	m.readDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
