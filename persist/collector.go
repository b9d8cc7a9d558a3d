package persist

import (
	"github.com/cockroachdb/pebble"
	"github.com/prometheus/client_golang/prometheus"
)

type archiveMetric struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(a *Archive, m *pebble.Metrics) float64
}

func newArchiveMetric(name, help string, kind prometheus.ValueType, value func(a *Archive, m *pebble.Metrics) float64) archiveMetric {
	return archiveMetric{
		desc:  prometheus.NewDesc(prometheus.BuildFQName("weave", "archive", name), help, nil, nil),
		kind:  kind,
		value: value,
	}
}

// Collector exports pebble and cache figures of an open archive.
type Collector struct {
	archive *Archive
	metrics []archiveMetric
}

func NewCollector(a *Archive) *Collector {
	return &Collector{
		archive: a,
		metrics: []archiveMetric{
			newArchiveMetric("cached_changes", "Changes held in the read cache",
				prometheus.GaugeValue, func(a *Archive, _ *pebble.Metrics) float64 {
					return float64(a.cache.Len())
				}),
			newArchiveMetric("disk_space_bytes", "Disk space used by the archive",
				prometheus.GaugeValue, func(_ *Archive, m *pebble.Metrics) float64 {
					return float64(m.DiskSpaceUsage())
				}),
			newArchiveMetric("compactions_total", "Compactions performed",
				prometheus.CounterValue, func(_ *Archive, m *pebble.Metrics) float64 {
					return float64(m.Compact.Count)
				}),
			newArchiveMetric("compaction_debt_bytes", "Bytes to compact to reach a stable state",
				prometheus.GaugeValue, func(_ *Archive, m *pebble.Metrics) float64 {
					return float64(m.Compact.EstimatedDebt)
				}),
			newArchiveMetric("memtable_size_bytes", "Bytes allocated by memtables",
				prometheus.GaugeValue, func(_ *Archive, m *pebble.Metrics) float64 {
					return float64(m.MemTable.Size)
				}),
			newArchiveMetric("wal_bytes_written_total", "Physical bytes written to the WAL",
				prometheus.CounterValue, func(_ *Archive, m *pebble.Metrics) float64 {
					return float64(m.WAL.BytesWritten)
				}),
		},
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		ch <- m.desc
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.archive.db == nil {
		return
	}
	stats := c.archive.db.Metrics()
	for _, m := range c.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, m.kind, m.value(c.archive, stats))
	}
}
