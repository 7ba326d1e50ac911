package valuation

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for the runs counter.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Metrics holds the valuation API collectors.
type Metrics struct {
	runsTotal   *prometheus.CounterVec
	runDuration prometheus.Histogram
	gridCells   prometheus.Counter
	mcSamples   prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "valuation_runs_total",
			Help: "Total valuation runs by outcome.",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "valuation_run_duration_seconds",
			Help:    "Histogram of end-to-end valuation run durations.",
			Buckets: prometheus.DefBuckets,
		}),
		gridCells: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "valuation_grid_cells_total",
			Help: "Total sensitivity grid cells evaluated.",
		}),
		mcSamples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "valuation_montecarlo_samples_total",
			Help: "Total Monte Carlo samples evaluated.",
		}),
	}

	reg.MustRegister(m.runsTotal, m.runDuration, m.gridCells, m.mcSamples)

	for _, o := range []string{OutcomeOK, OutcomeInvalid, OutcomeError} {
		m.runsTotal.WithLabelValues(o)
	}
	return m
}

func (m *Metrics) observe(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(seconds)
}

func (m *Metrics) work(cells, samples int) {
	if m == nil {
		return
	}
	m.gridCells.Add(float64(cells))
	m.mcSamples.Add(float64(samples))
}
