package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval Prometheus metrics.
var (
	RetrievalQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trialscope",
			Name:      "retrieval_queries_total",
			Help:      "Total number of retrieval requests by filter path",
		},
		[]string{"path"}, // "pushdown" / "post_filter"
	)

	PostFilterRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trialscope",
			Name:      "postfilter_rows_total",
			Help:      "Rows kept or excluded by the post-filter evaluator",
		},
		[]string{"result"}, // "kept" / "excluded"
	)

	PostFilterExclusionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trialscope",
			Name:      "postfilter_exclusions_total",
			Help:      "Post-filter exclusions by reason",
		},
		[]string{"reason"}, // "phase_mismatch", "date_out_of_range", "bad_date", "bad_metadata"
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(RetrievalQueriesTotal)
	prometheus.MustRegister(PostFilterRowsTotal)
	prometheus.MustRegister(PostFilterExclusionsTotal)
	retrievalMetricsRegistered = true
}
