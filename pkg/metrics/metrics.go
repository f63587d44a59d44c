// Package metrics decouples the store from any particular telemetry system.
package metrics

// Metric names reported by the durable store.
const (
	MetricMutations     = "duralog_mutations_total"
	MetricCompactions   = "duralog_compactions_total"
	MetricJournalLength = "duralog_journal_length_bytes"
	MetricSnapshotWrite = "duralog_snapshot_write_seconds"
)

// Collector captures counters, gauges and histograms.
type Collector interface {
	IncCounter(name string, labels map[string]string, delta float64)
	SetGauge(name string, labels map[string]string, value float64)
	ObserveHistogram(name string, labels map[string]string, value float64)
}

// Noop discards every observation. It is the default collector.
type Noop struct{}

func (Noop) IncCounter(string, map[string]string, float64)       {}
func (Noop) SetGauge(string, map[string]string, float64)         {}
func (Noop) ObserveHistogram(string, map[string]string, float64) {}
