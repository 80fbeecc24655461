package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Search metrics
	SearchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ehonhub_search_requests_total",
			Help: "Total number of article search queries by stage and status",
		},
		[]string{"stage", "status"},
	)

	SearchResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ehonhub_search_results_total",
			Help: "Articles returned by search queries before de-duplication",
		},
		[]string{"stage"},
	)

	// Catalog lookup metrics
	LookupRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ehonhub_lookup_requests_total",
			Help: "Total number of bibliographic lookups by kind and status",
		},
		[]string{"kind", "status"},
	)

	// Build metrics
	BuildsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ehonhub_builds_total",
			Help: "Total number of ranking builds",
		},
		[]string{"mode", "status"},
	)

	BuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ehonhub_build_duration_seconds",
			Help:    "Ranking build duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"mode"},
	)

	BuildArticles = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ehonhub_build_articles",
			Help: "Articles seen by the last build, by pipeline step",
		},
		[]string{"step"},
	)

	RankingSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ehonhub_ranking_books",
			Help: "Number of books in the last written ranking snapshot",
		},
	)
)

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordSearch counts one search query.
func RecordSearch(stage string, results int, err error) {
	SearchRequests.WithLabelValues(stage, status(err)).Inc()
	if err == nil {
		SearchResults.WithLabelValues(stage).Add(float64(results))
	}
}

// RecordLookup counts one catalog lookup.
func RecordLookup(kind string, err error) {
	LookupRequests.WithLabelValues(kind, status(err)).Inc()
}

// RecordBuild records a finished build.
func RecordBuild(mode string, started time.Time, err error) {
	BuildsCompleted.WithLabelValues(mode, status(err)).Inc()
	BuildDuration.WithLabelValues(mode).Observe(time.Since(started).Seconds())
}
