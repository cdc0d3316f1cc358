package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector contains all metrics for the vendor audit engine
type Collector struct {
	// Audit run metrics
	AuditRunsTotal     prometheus.Counter
	AuditRunsCompleted prometheus.Counter
	AuditRunsFailed    prometheus.Counter
	AuditRunDuration   prometheus.Histogram

	// Matching metrics
	NamePairsScoredTotal     prometheus.Counter
	MatchingDuration         prometheus.Histogram
	SimilarityScoreHistogram prometheus.Histogram

	// Finding metrics
	FindingsTotal  *prometheus.CounterVec
	FindingsPerRun prometheus.Histogram

	// System metrics
	InputRowsLoaded        *prometheus.CounterVec
	KafkaMessagesPublished prometheus.Counter
	ReportsWritten         prometheus.Counter

	// Error metrics
	LoaderErrors   prometheus.Counter
	MatchingErrors prometheus.Counter
	DatabaseErrors prometheus.Counter
	KafkaErrors    prometheus.Counter
	ReportErrors   prometheus.Counter
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		AuditRunsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vmf_audit_runs_total",
			Help: "The total number of audit runs started",
		}),
		AuditRunsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vmf_audit_runs_completed_total",
			Help: "The total number of audit runs completed successfully",
		}),
		AuditRunsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vmf_audit_runs_failed_total",
			Help: "The total number of audit runs that failed",
		}),
		AuditRunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vmf_audit_run_duration_seconds",
			Help:    "The duration of complete audit runs in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		NamePairsScoredTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vmf_audit_name_pairs_scored_total",
			Help: "The total number of name pairs scored for similarity",
		}),
		MatchingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vmf_audit_matching_duration_seconds",
			Help:    "The duration of name matching stages in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		SimilarityScoreHistogram: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vmf_audit_similarity_score",
			Help:    "The similarity scores of surviving name matches",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		}),

		FindingsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vmf_audit_findings_total",
			Help: "The total number of findings produced, by finding table",
		}, []string{"table"}),
		FindingsPerRun: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vmf_audit_findings_per_run",
			Help:    "The number of findings produced per audit run",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),

		InputRowsLoaded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vmf_audit_input_rows_loaded_total",
			Help: "The total number of input rows loaded, by table",
		}, []string{"table"}),
		KafkaMessagesPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vmf_audit_kafka_messages_published_total",
			Help: "The total number of finding events published to Kafka",
		}),
		ReportsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vmf_audit_reports_written_total",
			Help: "The total number of spreadsheet reports written",
		}),

		LoaderErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vmf_audit_loader_errors_total",
			Help: "The total number of input loading errors",
		}),
		MatchingErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vmf_audit_matching_errors_total",
			Help: "The total number of name matching errors",
		}),
		DatabaseErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vmf_audit_database_errors_total",
			Help: "The total number of database errors",
		}),
		KafkaErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vmf_audit_kafka_errors_total",
			Help: "The total number of Kafka errors",
		}),
		ReportErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vmf_audit_report_errors_total",
			Help: "The total number of report writing errors",
		}),
	}
}

// RecordRunStarted records the start of an audit run
func (c *Collector) RecordRunStarted() {
	c.AuditRunsTotal.Inc()
}

// RecordRunCompleted records the outcome and duration of an audit run
func (c *Collector) RecordRunCompleted(successful bool, findings int, duration time.Duration) {
	c.AuditRunDuration.Observe(duration.Seconds())
	if successful {
		c.AuditRunsCompleted.Inc()
		c.FindingsPerRun.Observe(float64(findings))
	} else {
		c.AuditRunsFailed.Inc()
	}
}

// RecordFindings records findings produced for one finding table
func (c *Collector) RecordFindings(table string, count int) {
	c.FindingsTotal.WithLabelValues(table).Add(float64(count))
}

// RecordInputRows records rows loaded for one input table
func (c *Collector) RecordInputRows(table string, count int) {
	c.InputRowsLoaded.WithLabelValues(table).Add(float64(count))
}

// RecordMatchingStage records one completed matching stage
func (c *Collector) RecordMatchingStage(pairs int, duration time.Duration) {
	c.NamePairsScoredTotal.Add(float64(pairs))
	c.MatchingDuration.Observe(duration.Seconds())
}

// RecordSimilarity records the similarity score of one surviving match
func (c *Collector) RecordSimilarity(score float64) {
	c.SimilarityScoreHistogram.Observe(score)
}
