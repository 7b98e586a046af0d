package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "yatube_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// PageCacheRequests counts page cache lookups by result (hit or miss).
	PageCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_page_cache_requests_total",
		Help: "Total number of page cache lookups by result",
	}, []string{"result"})

	// PostsWritten counts successful post writes by kind (create or edit).
	PostsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_posts_written_total",
		Help: "Total number of posts created or edited",
	}, []string{"kind"})

	// FollowChanges counts follow edge mutations by action.
	FollowChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_follow_changes_total",
		Help: "Total number of follow and unfollow actions",
	}, []string{"action"})
)

// ObserveQuery records the latency of a database query.
func ObserveQuery(operation, table string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		ObserveQuery(operation, table, start)
	}
}

// RecordCacheLookup increments the page cache counter for a hit or a miss.
func RecordCacheLookup(hit bool) {
	if hit {
		PageCacheRequests.WithLabelValues("hit").Inc()
		return
	}
	PageCacheRequests.WithLabelValues("miss").Inc()
}
