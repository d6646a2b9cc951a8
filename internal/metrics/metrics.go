// Package metrics counts pipeline outcomes and durations per variant and
// dumps them in the Prometheus text exposition format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mqomctl"

// Outcome labels.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Recorder holds the run's collectors in a private registry. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	variants   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	commands   *prometheus.CounterVec
	records    prometheus.Counter
	peakMemory *prometheus.GaugeVec
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		variants: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "variants_total",
			Help:      "Variants processed, by pipeline and outcome.",
		}, []string{"pipeline", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "variant_duration_seconds",
			Help:      "Wall time of one variant pipeline.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~17min
		}, []string{"pipeline"}),
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "External commands issued, by kind.",
		}, []string{"kind"}),
		records: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_records_total",
			Help:      "Benchmark records appended to the results file.",
		}),
		peakMemory: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peak_memory_bytes",
			Help:      "Peak memory of the last profiled operation, per variant.",
		}, []string{"variant", "operation"}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveVariant records one finished variant pipeline.
func (r *Recorder) ObserveVariant(pipeline string, failed bool, d time.Duration) {
	if r == nil {
		return
	}
	outcome := OutcomeOK
	if failed {
		outcome = OutcomeFailed
	}
	r.variants.WithLabelValues(pipeline, outcome).Inc()
	r.duration.WithLabelValues(pipeline).Observe(d.Seconds())
}

// CountCommand records one external command of the given kind.
func (r *Recorder) CountCommand(kind string) {
	if r == nil {
		return
	}
	r.commands.WithLabelValues(kind).Inc()
}

// CountRecord records one appended benchmark record.
func (r *Recorder) CountRecord() {
	if r == nil {
		return
	}
	r.records.Inc()
}

// SetPeakMemory records the peak bytes of one profiled operation.
func (r *Recorder) SetPeakMemory(variant, operation string, bytes int64) {
	if r == nil {
		return
	}
	r.peakMemory.WithLabelValues(variant, operation).Set(float64(bytes))
}

// WriteTextfile writes every collector to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
