package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tourdesk",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	syncItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tourdesk",
			Name:      "sync_items_processed_total",
			Help:      "Write-back queue items processed, by model and outcome.",
		},
		[]string{"model", "outcome"},
	)

	pullRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tourdesk",
			Name:      "pull_rows_total",
			Help:      "Spreadsheet rows imported by pull-sync, by sheet and outcome.",
		},
		[]string{"sheet", "outcome"},
	)

	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tourdesk",
			Name:      "sync_queue_depth",
			Help:      "Sync queue items by status after the last dispatcher pass.",
		},
		[]string{"status"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, syncItems, pullRows, queueDepth)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncSyncItem counts one processed queue item.
func IncSyncItem(model, outcome string) {
	syncItems.WithLabelValues(model, outcome).Inc()
}

// IncPullRow counts one imported spreadsheet row.
func IncPullRow(sheet, outcome string) {
	pullRows.WithLabelValues(sheet, outcome).Inc()
}

// SetQueueDepth records current queue depth for a status.
func SetQueueDepth(status string, n int) {
	queueDepth.WithLabelValues(status).Set(float64(n))
}
