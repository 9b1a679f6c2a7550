package prometheus

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"license-service/pkg/config"
)

var (
	// License metrics
	ValidationCounter    *prometheus.CounterVec
	DomainCheckCounter   *prometheus.CounterVec
	LicensesIssuedCounter prometheus.Counter
	TransfersCounter     *prometheus.CounterVec
	ReactivationsCounter *prometheus.CounterVec
	RenewalsCounter      prometheus.Counter
	SweepExpiredCounter  prometheus.Counter

	// Request metrics
	RequestDurationHistogram *prometheus.HistogramVec
	APIRequestCounter        *prometheus.CounterVec

	// Namespace prefix for metrics
	namespace string
)

// InitMetrics initializes all Prometheus metrics
func InitMetrics(cfg *config.Config) {
	namespace = cfg.Metrics.Prefix

	ValidationCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Total number of license validation attempts by result code",
		},
		[]string{"result"},
	)

	DomainCheckCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "domain_checks_total",
			Help:      "Total number of key-less domain checks by result code",
		},
		[]string{"result"},
	)

	LicensesIssuedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "licenses_issued_total",
		Help:      "Total number of licenses issued",
	})

	TransfersCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_total",
			Help:      "Total number of domain transfer attempts by result code",
		},
		[]string{"result"},
	)

	ReactivationsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reactivations_total",
			Help:      "Total number of reactivation attempts by policy and result code",
		},
		[]string{"policy", "result"},
	)

	RenewalsCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "renewals_total",
		Help:      "Total number of license renewals",
	})

	SweepExpiredCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweep_expired_total",
		Help:      "Total number of licenses expired by the scheduled sweep",
	})

	RequestDurationHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	APIRequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
}

// MetricsMiddleware creates an Echo middleware that records HTTP request
// metrics.
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := strconv.Itoa(c.Response().Status)
			method := c.Request().Method
			path := c.Path()

			APIRequestCounter.WithLabelValues(method, path, status).Inc()
			RequestDurationHistogram.WithLabelValues(method, path, status).
				Observe(time.Since(start).Seconds())

			return err
		}
	}
}
