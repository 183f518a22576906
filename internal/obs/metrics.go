package obs

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Line outcomes recorded by PipelineMetrics.LinesTotal.
const (
	LineParsed   = "parsed"
	LineSkipped  = "skipped"
	LineRejected = "rejected"
)

// PipelineMetrics groups Prometheus collectors for one receipt run.
type PipelineMetrics struct {
	LinesTotal    *prometheus.CounterVec
	TaxesApplied  *prometheus.CounterVec
	ReceiptsTotal *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	TaxesDue      prometheus.Gauge
	TotalDue      prometheus.Gauge
}

// NewPipelineMetrics registers and returns the pipeline collectors.
// Collectors already registered under the same name are reused.
func NewPipelineMetrics(namespace string, reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &PipelineMetrics{
		LinesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "basket_lines_total",
			Help:      "Basket lines read, by parse outcome.",
		}, []string{"result"}),
		TaxesApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "taxes_applied_total",
			Help:      "Taxes applied to basket articles, by tax id.",
		}, []string{"tax"}),
		ReceiptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipts_total",
			Help:      "Receipt runs by outcome.",
		}, []string{"result"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_ms",
			Help:      "Pipeline stage latency in milliseconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50, 100},
		}, []string{"stage"}),
		TaxesDue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_receipt_taxes_due",
			Help:      "Sales taxes of the last receipt built.",
		}),
		TotalDue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_receipt_total_due",
			Help:      "Total of the last receipt built.",
		}),
	}

	mustRegisterCollector(reg, m.LinesTotal, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.CounterVec); ok {
			m.LinesTotal = v
		}
	})
	mustRegisterCollector(reg, m.TaxesApplied, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.CounterVec); ok {
			m.TaxesApplied = v
		}
	})
	mustRegisterCollector(reg, m.ReceiptsTotal, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.CounterVec); ok {
			m.ReceiptsTotal = v
		}
	})
	mustRegisterCollector(reg, m.StageDuration, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.HistogramVec); ok {
			m.StageDuration = v
		}
	})
	mustRegisterCollector(reg, m.TaxesDue, func(existing prometheus.Collector) {
		if v, ok := existing.(prometheus.Gauge); ok {
			m.TaxesDue = v
		}
	})
	mustRegisterCollector(reg, m.TotalDue, func(existing prometheus.Collector) {
		if v, ok := existing.(prometheus.Gauge); ok {
			m.TotalDue = v
		}
	})
	return m
}

// ObserveStage records how long a pipeline stage took. Safe on a nil receiver.
func (m *PipelineMetrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(DurationMillis(d))
}

// CountLine records the outcome of one basket line. Safe on a nil receiver.
func (m *PipelineMetrics) CountLine(result string) {
	if m == nil {
		return
	}
	m.LinesTotal.WithLabelValues(result).Inc()
}

// CountTax records one applied tax. Safe on a nil receiver.
func (m *PipelineMetrics) CountTax(id string) {
	if m == nil {
		return
	}
	m.TaxesApplied.WithLabelValues(id).Inc()
}

// CountReceipt records a finished run. Safe on a nil receiver.
func (m *PipelineMetrics) CountReceipt(result string) {
	if m == nil {
		return
	}
	m.ReceiptsTotal.WithLabelValues(result).Inc()
}

// SetTotals publishes the amounts of the last receipt. Safe on a nil receiver.
func (m *PipelineMetrics) SetTotals(taxesDue, totalDue float64) {
	if m == nil {
		return
	}
	m.TaxesDue.Set(taxesDue)
	m.TotalDue.Set(totalDue)
}

// WriteMetricsFile writes every metric gathered by g to path in the text exposition format.
func WriteMetricsFile(path string, g prometheus.Gatherer) error {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics file: %w", err)
	}
	return nil
}

// DurationMillis converts a duration to milliseconds for metric observation.
func DurationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register metric: %w", err))
	}
}
