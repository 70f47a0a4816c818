package middleware

import (
	"net/http"
	"strconv"
	"time"

	"eventos/config"
	"eventos/internal/errors"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

// HTTPMetricsParams holds dependencies for HTTPMetrics, injected by Fx.
type HTTPMetricsParams struct {
	fx.In

	Config     *config.Config
	Registerer prometheus.Registerer `optional:"true"`
	Gatherer   prometheus.Gatherer   `optional:"true"`
}

// HTTPMetrics records request count, latency and in-flight requests.
type HTTPMetrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	InFlight prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewHTTPMetrics returns nil when metrics are disabled.
func NewHTTPMetrics(params HTTPMetricsParams) (*HTTPMetrics, error) {
	cfg := params.Config.Metrics
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	reg := params.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := params.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	labels := []string{"method", "route", "status"}

	requests, err := registerOrExisting(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests partitioned by method, route, and status code.",
	}, labels))
	if err != nil {
		return nil, err
	}

	duration, err := registerOrExisting(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Histogram of HTTP request latencies in seconds partitioned by method, route, and status code.",
		Buckets:   prometheus.DefBuckets,
	}, labels))
	if err != nil {
		return nil, err
	}

	inFlight, err := registerOrExisting(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Subsystem: "http",
		Name:      "in_flight_requests",
		Help:      "Current number of in-flight HTTP requests.",
	}))
	if err != nil {
		return nil, err
	}

	return &HTTPMetrics{
		Requests: requests,
		Duration: duration,
		InFlight: inFlight,
		gatherer: gatherer,
	}, nil
}

// registerOrExisting reuses a collector that is already registered under the
// same descriptor, so the server can be built twice in one process.
func registerOrExisting[T prometheus.Collector](reg prometheus.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var already prometheus.AlreadyRegisteredError
	if !errors.As(err, &already) {
		return collector, errors.Wrap(err, "register collector")
	}
	existing, ok := already.ExistingCollector.(T)
	if !ok {
		return collector, errors.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
	}

	return existing, nil
}

// Handle is the echo middleware. A nil receiver records nothing.
func (m *HTTPMetrics) Handle(next echo.HandlerFunc) echo.HandlerFunc {
	if m == nil {
		return next
	}

	return func(c echo.Context) error {
		start := time.Now()
		m.InFlight.Inc()
		defer m.InFlight.Dec()

		err := next(c)

		// The central error handler has not run yet, so derive the status
		// the way it will render it.
		status := c.Response().Status
		if err != nil {
			status = statusOf(err)
		}

		route := c.Path()
		if route == "" {
			route = c.Request().URL.Path
		}

		labels := prometheus.Labels{
			"method": c.Request().Method,
			"route":  route,
			"status": strconv.Itoa(status),
		}
		m.Requests.With(labels).Inc()
		m.Duration.With(labels).Observe(time.Since(start).Seconds())

		return err
	}
}

// Handler exposes the gathered metrics.
func (m *HTTPMetrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
}

func statusOf(err error) int {
	var coded interface{ HTTPCode() int }
	if errors.As(err, &coded) {
		return coded.HTTPCode()
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}

	return http.StatusInternalServerError
}
