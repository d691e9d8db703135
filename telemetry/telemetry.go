package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector captures telemetry events emitted by builds.
//
// Implementations may forward metrics to Prometheus, loggers or other
// monitoring systems. They should be inexpensive to call because hooks are
// executed inline with the merge.
type Collector interface {
	IncBuild(status string)
	ObserveBuildDuration(d time.Duration)
	IncWarning(kind string)
	ObserveDefinitions(category string, count int)
	IncHotReload(file string)
}

// Build status labels.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) IncBuild(string)                    {}
func (noopCollector) ObserveBuildDuration(time.Duration) {}
func (noopCollector) IncWarning(string)                  {}
func (noopCollector) ObserveDefinitions(string, int)     {}
func (noopCollector) IncHotReload(string)                {}

// PrometheusCollector exposes build metrics via Prometheus.
type PrometheusCollector struct {
	builds      *prometheus.CounterVec
	duration    prometheus.Histogram
	warnings    *prometheus.CounterVec
	definitions *prometheus.GaugeVec
	hotReloads  *prometheus.CounterVec
}

var (
	metricsLock      sync.Mutex
	buildCounter     *prometheus.CounterVec
	buildDuration    prometheus.Histogram
	warningCounter   *prometheus.CounterVec
	definitionGauge  *prometheus.GaugeVec
	hotReloadCounter *prometheus.CounterVec
)

// NewPrometheusCollector registers the required metrics with the provided
// registerer. Metrics that are already registered are reused.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	metricsLock.Lock()
	defer metricsLock.Unlock()

	var err error
	if buildCounter == nil {
		buildCounter, err = registerCounterVec(reg, prometheus.CounterOpts{
			Name: "hcm_builds_total",
			Help: "Number of configuration builds by outcome.",
		}, "status")
		if err != nil {
			return nil, err
		}
	}
	if buildDuration == nil {
		histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hcm_build_duration_seconds",
			Help:    "Duration of configuration builds.",
			Buckets: prometheus.DefBuckets,
		})
		if err := reg.Register(histogram); err != nil {
			already, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, err
			}
			existing, ok := already.ExistingCollector.(prometheus.Histogram)
			if !ok {
				return nil, err
			}
			histogram = existing
		}
		buildDuration = histogram
	}
	if warningCounter == nil {
		warningCounter, err = registerCounterVec(reg, prometheus.CounterOpts{
			Name: "hcm_warnings_total",
			Help: "Number of non-fatal merge warnings by kind.",
		}, "kind")
		if err != nil {
			return nil, err
		}
	}
	if definitionGauge == nil {
		gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hcm_definitions",
			Help: "Number of definitions collected by the last build per category.",
		}, []string{"category"})
		if err := reg.Register(gauge); err != nil {
			already, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, err
			}
			existing, ok := already.ExistingCollector.(*prometheus.GaugeVec)
			if !ok {
				return nil, err
			}
			gauge = existing
		}
		definitionGauge = gauge
	}
	if hotReloadCounter == nil {
		hotReloadCounter, err = registerCounterVec(reg, prometheus.CounterOpts{
			Name: "hcm_source_reload_total",
			Help: "Number of rebuilds triggered per changed source file.",
		}, "file")
		if err != nil {
			return nil, err
		}
	}

	return &PrometheusCollector{
		builds:      buildCounter,
		duration:    buildDuration,
		warnings:    warningCounter,
		definitions: definitionGauge,
		hotReloads:  hotReloadCounter,
	}, nil
}

func registerCounterVec(reg prometheus.Registerer, opts prometheus.CounterOpts, labels ...string) (*prometheus.CounterVec, error) {
	counter := prometheus.NewCounterVec(opts, labels)
	if err := reg.Register(counter); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return counter, nil
}

// IncBuild counts a finished build.
func (p *PrometheusCollector) IncBuild(status string) {
	if p == nil || p.builds == nil {
		return
	}
	p.builds.WithLabelValues(status).Inc()
}

// ObserveBuildDuration records how long a build took.
func (p *PrometheusCollector) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.Observe(d.Seconds())
}

// IncWarning counts a reported warning.
func (p *PrometheusCollector) IncWarning(kind string) {
	if p == nil || p.warnings == nil {
		return
	}
	p.warnings.WithLabelValues(kind).Inc()
}

// ObserveDefinitions sets the number of definitions of a category.
func (p *PrometheusCollector) ObserveDefinitions(category string, count int) {
	if p == nil || p.definitions == nil {
		return
	}
	p.definitions.WithLabelValues(category).Set(float64(count))
}

// IncHotReload increments the counter for the provided file path.
func (p *PrometheusCollector) IncHotReload(file string) {
	if p == nil || p.hotReloads == nil {
		return
	}
	p.hotReloads.WithLabelValues(file).Inc()
}
