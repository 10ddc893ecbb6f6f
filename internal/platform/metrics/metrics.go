package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsline_http_requests_total",
			Help: "HTTP requests handled, by service, method and status code.",
		},
		[]string{"service", "method", "status"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "opsline_http_request_duration_seconds",
			Help:    "HTTP request latency, by service and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method"},
	)
)

func ObserveRequest(service string, method string, status int, elapsed time.Duration) {
	requestsTotal.WithLabelValues(service, method, strconv.Itoa(status)).Inc()
	requestDuration.WithLabelValues(service, method).Observe(elapsed.Seconds())
}

func Handler() http.Handler {
	return promhttp.Handler()
}
