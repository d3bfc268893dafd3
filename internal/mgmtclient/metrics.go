// metrics.go — Prometheus метрики обращений к management API.
package mgmtclient

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// mgmtRequestsTotal — количество запросов к management API.
	mgmtRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tc_mgmt_requests_total",
			Help: "Количество запросов Topic Console к management API",
		},
		[]string{"op", "status"},
	)

	// mgmtRequestDuration — длительность запросов к management API.
	mgmtRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tc_mgmt_request_duration_seconds",
			Help:    "Длительность запросов к management API в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

func observe(op, status string, d time.Duration) {
	mgmtRequestsTotal.WithLabelValues(op, status).Inc()
	mgmtRequestDuration.WithLabelValues(op).Observe(d.Seconds())
}
