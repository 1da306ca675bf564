package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Buffer pool metrics
	BufferPoolPagesUsed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ruzudb_buffer_pool_pages_used",
			Help: "Number of frames currently holding a page",
		},
	)

	BufferPoolHitRate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ruzudb_buffer_pool_hit_rate",
			Help: "Buffer pool hit rate since open",
		},
	)

	BufferPoolEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ruzudb_buffer_pool_evictions_total",
			Help: "Total number of frame evictions",
		},
	)

	BufferPoolOutOfFramesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ruzudb_buffer_pool_out_of_frames_total",
			Help: "Total number of pin attempts that failed with OutOfFrames",
		},
	)

	// WAL metrics
	WALAppendedRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ruzudb_wal_records_appended_total",
			Help: "Total number of WAL records appended by record type",
		},
		[]string{"record_type"},
	)

	WALFlushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ruzudb_wal_flush_duration_seconds",
			Help:    "Time taken to flush and fsync the WAL on commit",
			Buckets: prometheus.DefBuckets,
		},
	)

	WALLastLSN = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ruzudb_wal_last_lsn",
			Help: "Last LSN appended to the WAL",
		},
	)

	WALReplayedTransactionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ruzudb_wal_replayed_transactions_total",
			Help: "Total number of committed transactions applied by WAL replay since process start",
		},
	)

	CheckpointsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ruzudb_checkpoints_total",
			Help: "Total number of checkpoints performed",
		},
	)

	CheckpointDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ruzudb_checkpoint_duration_seconds",
			Help:    "Time taken to perform a checkpoint",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Table metrics
	NodeTableRowsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ruzudb_node_table_rows_total",
			Help: "Number of rows in a node table",
		},
		[]string{"table"},
	)

	RelTableEdgesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ruzudb_rel_table_edges_total",
			Help: "Number of edges in a relationship table",
		},
		[]string{"table"},
	)

	// CSV import metrics
	CSVImportRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ruzudb_csv_import_rows_total",
			Help: "Total number of CSV rows imported by table and outcome",
		},
		[]string{"table", "outcome"},
	)

	CSVImportThroughput = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ruzudb_csv_import_rows_per_second",
			Help: "Rolling rows/sec throughput of the most recent import",
		},
		[]string{"table"},
	)

	CSVImportDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ruzudb_csv_import_duration_seconds",
			Help:    "Time taken to complete a CSV import",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 1800},
		},
		[]string{"table"},
	)
)

func init() {
	prometheus.MustRegister(BufferPoolPagesUsed)
	prometheus.MustRegister(BufferPoolHitRate)
	prometheus.MustRegister(BufferPoolEvictionsTotal)
	prometheus.MustRegister(BufferPoolOutOfFramesTotal)

	prometheus.MustRegister(WALAppendedRecordsTotal)
	prometheus.MustRegister(WALFlushDuration)
	prometheus.MustRegister(WALLastLSN)
	prometheus.MustRegister(WALReplayedTransactionsTotal)
	prometheus.MustRegister(CheckpointsTotal)
	prometheus.MustRegister(CheckpointDuration)

	prometheus.MustRegister(NodeTableRowsTotal)
	prometheus.MustRegister(RelTableEdgesTotal)

	prometheus.MustRegister(CSVImportRowsTotal)
	prometheus.MustRegister(CSVImportThroughput)
	prometheus.MustRegister(CSVImportDuration)
}

// Handler returns the Prometheus HTTP handler for serving /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
