package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	tenderSync = "tender_sync"

	// Batch metrics
	itemsProcessedTotal = "items_processed_total"
	runsTotal           = "runs_total"

	// Labels
	itemOutcomeLabel = "outcome"
	runResultLabel   = "result"
)

// Item outcomes recorded per work item at the end of its state machine.
const (
	ItemOutcomeWritten   = "written"
	ItemOutcomeFiltered  = "filtered"
	ItemOutcomeDuplicate = "duplicate"
	ItemOutcomeFailed    = "failed"
)

var itemsProcessedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: tenderSync,
		Name:      itemsProcessedTotal,
		Help:      "number of work items processed, partitioned by outcome",
	},
	[]string{itemOutcomeLabel},
)

var runsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: tenderSync,
		Name:      runsTotal,
		Help:      "number of batch runs, partitioned by result",
	},
	[]string{runResultLabel},
)

func IncreaseItemsProcessedMetric(outcome string) {
	itemsProcessedTotalMetric.With(prometheus.Labels{itemOutcomeLabel: outcome}).Inc()
}

func IncreaseRunsTotalMetric(result string) {
	runsTotalMetric.With(prometheus.Labels{runResultLabel: result}).Inc()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(itemsProcessedTotalMetric)
	prometheus.MustRegister(runsTotalMetric)
}
