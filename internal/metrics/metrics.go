// Package metrics 暴露 Prometheus 指标：HTTP 请求、访问会话、OTP 与邮件发送。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 访问关闭的原因
const (
	CloseExplicit = "explicit"
	CloseImplicit = "implicit"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	visitsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "visits_started_total",
			Help: "Total number of visit sessions opened",
		},
	)

	visitsClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visits_closed_total",
			Help: "Total number of visit sessions closed",
		},
		[]string{"reason"},
	)

	otpIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_issued_total",
			Help: "Total number of one-time passcodes issued",
		},
		[]string{"purpose"},
	)

	otpVerified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_verified_total",
			Help: "Total number of one-time passcodes accepted",
		},
		[]string{"purpose"},
	)

	emailsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "emails_failed_total",
			Help: "Total number of outbound emails that could not be delivered",
		},
	)
)

// RecordHTTPRequest records one served request. route is the gin route template.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordVisitStarted() {
	visitsStarted.Inc()
}

// RecordVisitClosed 记录一次关闭，reason 为 CloseExplicit 或 CloseImplicit。
func RecordVisitClosed(reason string) {
	visitsClosed.WithLabelValues(reason).Inc()
}

func RecordOTPIssued(purpose string) {
	otpIssued.WithLabelValues(purpose).Inc()
}

func RecordOTPVerified(purpose string) {
	otpVerified.WithLabelValues(purpose).Inc()
}

func RecordEmailFailed() {
	emailsFailed.Inc()
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
