package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	snapshotGetCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cloudkv",
			Subsystem: "engine",
			Name:      "snapshot_get_total",
			Help:      "Counter of snapshot point lookups.",
		}, []string{"cf"})

	snapshotSeekCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cloudkv",
			Subsystem: "engine",
			Name:      "snapshot_seek_total",
			Help:      "Counter of snapshot iterator seeks.",
		}, []string{"cf"})

	snapshotNextCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cloudkv",
			Subsystem: "engine",
			Name:      "snapshot_next_total",
			Help:      "Counter of snapshot iterator steps.",
		}, []string{"cf"})
)

func init() {
	prometheus.MustRegister(snapshotGetCounter)
	prometheus.MustRegister(snapshotSeekCounter)
	prometheus.MustRegister(snapshotNextCounter)
}
