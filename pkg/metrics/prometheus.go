package metrics

import (
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector implements Collector on a dedicated Prometheus
// registry. Metric vectors are registered lazily on first use; the label
// keys of a metric must stay consistent across observations.
type PrometheusCollector struct {
	registry *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		registry:   prometheus.NewRegistry(),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// Registry exposes the backing registry, e.g. for promhttp exposition.
func (c *PrometheusCollector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *PrometheusCollector) IncCounter(name string, labels map[string]string, delta float64) {
	c.mu.Lock()
	vec, ok := c.counters[name]
	if !ok {
		vec = promauto.With(c.registry).NewCounterVec(
			prometheus.CounterOpts{Name: name, Help: name},
			labelKeys(labels),
		)
		c.counters[name] = vec
	}
	c.mu.Unlock()

	vec.With(labels).Add(delta)
}

func (c *PrometheusCollector) SetGauge(name string, labels map[string]string, value float64) {
	c.mu.Lock()
	vec, ok := c.gauges[name]
	if !ok {
		vec = promauto.With(c.registry).NewGaugeVec(
			prometheus.GaugeOpts{Name: name, Help: name},
			labelKeys(labels),
		)
		c.gauges[name] = vec
	}
	c.mu.Unlock()

	vec.With(labels).Set(value)
}

func (c *PrometheusCollector) ObserveHistogram(name string, labels map[string]string, value float64) {
	c.mu.Lock()
	vec, ok := c.histograms[name]
	if !ok {
		vec = promauto.With(c.registry).NewHistogramVec(
			prometheus.HistogramOpts{Name: name, Help: name},
			labelKeys(labels),
		)
		c.histograms[name] = vec
	}
	c.mu.Unlock()

	vec.With(labels).Observe(value)
}

func labelKeys(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
