package metrics

import (
	"fmt"
	"time"

	"github.com/limaJavier/campus-timetabling/pkg/analyzer"
	"github.com/limaJavier/campus-timetabling/pkg/scheduler"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeComplete   = "complete"
	OutcomeIncomplete = "incomplete"
	OutcomeFailed     = "failed"
)

// Metrics holds the collectors of timetable generation and analysis on a private registry.
type Metrics struct {
	registry    *prometheus.Registry
	generations *prometheus.CounterVec
	unplaced    prometheus.Counter
	duration    prometheus.Histogram
	backtracks  prometheus.Counter
	conflicts   *prometheus.GaugeVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	generations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_generations_total",
		Help: "Total number of timetable generation runs",
	}, []string{"strategy", "outcome"})

	unplaced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_unplaced_sessions_total",
		Help: "Total number of demand items left unplaced",
	})

	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_generation_duration_seconds",
		Help:    "Duration of timetable generation runs in seconds",
		Buckets: prometheus.DefBuckets,
	})

	backtracks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_backtracks_total",
		Help: "Total number of undone placements during search",
	})

	conflicts := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "timetable_conflicts",
		Help: "Conflicts found by the last analysis, by type",
	}, []string{"type"})

	registry.MustRegister(generations, unplaced, duration, backtracks, conflicts)

	return &Metrics{
		registry:    registry,
		generations: generations,
		unplaced:    unplaced,
		duration:    duration,
		backtracks:  backtracks,
		conflicts:   conflicts,
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveGeneration records one scheduler run; err marks the run as failed.
func (m *Metrics) ObserveGeneration(strategy string, result scheduler.Result, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(elapsed.Seconds())
	if err != nil {
		m.generations.WithLabelValues(strategy, OutcomeFailed).Inc()
		return
	}

	outcome := OutcomeComplete
	if _, incomplete := result.Incomplete(); incomplete {
		outcome = OutcomeIncomplete
	}
	m.generations.WithLabelValues(strategy, outcome).Inc()
	m.unplaced.Add(float64(len(result.Unplaced)))
	m.backtracks.Add(float64(result.Stats.Backtracks))
}

// ObserveReport replaces the conflict gauges with the counts of the report.
func (m *Metrics) ObserveReport(report analyzer.ConflictReport) {
	if m == nil {
		return
	}
	m.conflicts.Reset()
	for _, conflict := range report.Conflicts {
		m.conflicts.WithLabelValues(conflict.Type).Inc()
	}
}

// WriteTextfile writes the registry in the node exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
