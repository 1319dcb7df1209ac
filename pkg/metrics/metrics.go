package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the exchange collectors. A private registry keeps tests free of
	// duplicate registration panics from the default one.
	Registry = prometheus.NewRegistry()

	HttpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coinexchange",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ResponseTimeHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "coinexchange",
			Subsystem: "http",
			Name:      "response_time_seconds",
			Help:      "Histogram of response times",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ClaimsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coinexchange",
			Subsystem: "exchange",
			Name:      "claims_total",
			Help:      "Completion claims by action kind and outcome.",
		},
		[]string{"action_kind", "outcome"},
	)

	EvidenceResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coinexchange",
			Subsystem: "verification",
			Name:      "resolutions_total",
			Help:      "Evidence reviews by result.",
		},
		[]string{"result"},
	)

	LedgerMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coinexchange",
			Subsystem: "ledger",
			Name:      "mutations_total",
			Help:      "Committed ledger entries by reason code.",
		},
		[]string{"reason"},
	)

	CoinsCredited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "coinexchange",
			Subsystem: "ledger",
			Name:      "coins_credited_total",
			Help:      "Coins paid out to performers.",
		},
	)
)

func init() {
	Registry.MustRegister(
		HttpRequestsTotal,
		ResponseTimeHistogram,
		ClaimsTotal,
		EvidenceResolutions,
		LedgerMutations,
		CoinsCredited,
	)
}

// Middleware records request count and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HttpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		ResponseTimeHistogram.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}
