// Package metrics exports Prometheus collectors for the HTTP layer and for
// dose calculations:
//   - tpn_http_requests_total: counter by method, route and status
//   - tpn_http_request_duration_seconds: histogram by method and route
//   - tpn_http_requests_in_flight: gauge of concurrent requests
//   - tpn_calculations_total: counter by outcome
//   - tpn_validation_failures_total: counter by rule
//   - tpn_gir_mg_per_kg_per_min: histogram of computed glucose infusion rates
//   - tpn_rate_limiter_buckets: gauge of tracked client buckets
//
// Collectors are registered with the default registry on init.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Calculation outcomes
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeInvalid  = "invalid_input"
)

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tpn_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tpn_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tpn_http_requests_in_flight",
			Help: "Current in-flight requests",
		},
	)

	CalculationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tpn_calculations_total",
			Help: "Dose calculations by outcome",
		},
		[]string{"outcome"},
	)

	ValidationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tpn_validation_failures_total",
			Help: "Mixture rule violations by rule",
		},
		[]string{"rule"},
	)

	GIRObserved = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tpn_gir_mg_per_kg_per_min",
			Help:    "Glucose infusion rate of successful calculations",
			Buckets: []float64{2, 4, 6, 8, 10, 12, 14, 16, 20, 30},
		},
	)

	RateLimiterBuckets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tpn_rate_limiter_buckets",
			Help: "Client buckets currently tracked by the rate limiter",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestTotals,
		HTTPRequestDuration,
		HTTPRequestInFlight,
		CalculationsTotal,
		ValidationFailuresTotal,
		GIRObserved,
		RateLimiterBuckets,
	)
}

// RecordCalculation counts a successful calculation and records its GIR
func RecordCalculation(gir float64) {
	CalculationsTotal.WithLabelValues(OutcomeOK).Inc()
	GIRObserved.Observe(gir)
}

// RecordRejection counts a calculation refused by the mixture rules
func RecordRejection(rules ...string) {
	CalculationsTotal.WithLabelValues(OutcomeRejected).Inc()
	for _, rule := range rules {
		ValidationFailuresTotal.WithLabelValues(rule).Inc()
	}
}

// RecordInvalidInput counts a request refused before calculation
func RecordInvalidInput() {
	CalculationsTotal.WithLabelValues(OutcomeInvalid).Inc()
}
