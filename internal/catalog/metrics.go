package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Mutation outcomes used as metric label values.
const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Prometheus metrics.
var (
	snapshotsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_snapshots_applied_total",
			Help: "Total number of store snapshots applied to a live view",
		},
		[]string{"collection"},
	)

	snapshotReadErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_snapshot_read_errors_total",
			Help: "Total number of store snapshots rejected as malformed",
		},
		[]string{"collection"},
	)

	liveViewRecords = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_live_view_records",
			Help: "Number of records in the current live view",
		},
		[]string{"collection"},
	)

	mutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_mutations_total",
			Help: "Total number of store writes and deletes by outcome",
		},
		[]string{"namespace", "operation", "outcome"},
	)

	draftRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_draft_rejections_total",
			Help: "Total number of draft submissions rejected before writing",
		},
		[]string{"collection", "reason"},
	)
)
