package weave

import "github.com/prometheus/client_golang/prometheus"

var AppliedChanges = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "weave",
	Subsystem: "log_store",
	Name:      "applied_changes",
})

var DuplicateChanges = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "weave",
	Subsystem: "log_store",
	Name:      "duplicate_changes",
})

var PendingChanges = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "weave",
	Subsystem: "log_store",
	Name:      "pending_changes",
})

var ExportedChanges = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "weave",
	Subsystem: "log_store",
	Name:      "exported_changes",
})

var LocalOps = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "weave",
	Subsystem: "log_store",
	Name:      "local_ops",
})

var ArchiveFailures = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "weave",
	Subsystem: "log_store",
	Name:      "archive_failures",
})

// RegisterMetrics registers the store metrics; call it once per registry.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		AppliedChanges, DuplicateChanges, PendingChanges, ExportedChanges, LocalOps, ArchiveFailures,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
