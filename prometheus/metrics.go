package prometheus

import (
	"errors"
	"fmt"

	"github.com/abczzz13/forwardedheaders"
	prom "github.com/prometheus/client_golang/prometheus"
)

const (
	resolutionsMetricName    = "forwarded_headers_resolutions_total"
	securityEventsMetricName = "forwarded_headers_security_events_total"
)

// PrometheusMetrics is a Prometheus-backed implementation of
// forwardedheaders.Metrics.
type PrometheusMetrics struct {
	resolutionsTotal *prom.CounterVec
	securityEvents   *prom.CounterVec
}

// WithMetrics returns a forwardedheaders option that installs
// Prometheus-backed metrics using prom.DefaultRegisterer.
func WithMetrics() forwardedheaders.Option {
	return withMetricsFactory(New)
}

// WithRegisterer returns a forwardedheaders option that installs
// Prometheus-backed metrics using the provided registerer.
//
// If registerer is nil, prom.DefaultRegisterer is used.
func WithRegisterer(registerer prom.Registerer) forwardedheaders.Option {
	return withMetricsFactory(func() (*PrometheusMetrics, error) {
		return NewWithRegisterer(registerer)
	})
}

// withMetricsFactory adapts a PrometheusMetrics constructor into a
// forwardedheaders.Option.
func withMetricsFactory(factory func() (*PrometheusMetrics, error)) forwardedheaders.Option {
	return forwardedheaders.WithMetricsFactory(func() (forwardedheaders.Metrics, error) {
		metrics, err := factory()
		if err != nil {
			return nil, err
		}
		return metrics, nil
	})
}

// New creates PrometheusMetrics and registers its collectors on
// prom.DefaultRegisterer.
func New() (*PrometheusMetrics, error) {
	return NewWithRegisterer(prom.DefaultRegisterer)
}

// NewWithRegisterer creates PrometheusMetrics and registers its collectors on
// the given registerer.
//
// If registerer is nil, prom.DefaultRegisterer is used. If the metrics are
// already registered, existing compatible collectors are reused.
func NewWithRegisterer(registerer prom.Registerer) (*PrometheusMetrics, error) {
	if registerer == nil {
		registerer = prom.DefaultRegisterer
	}

	resolutionsCollector := prom.NewCounterVec(
		prom.CounterOpts{
			Name: resolutionsMetricName,
			Help: "Total number of forwarded header resolutions by outcome (unchanged, aborted, partial, applied).",
		},
		[]string{"outcome"},
	)
	securityEventsCollector := prom.NewCounterVec(
		prom.CounterOpts{
			Name: securityEventsMetricName,
			Help: "Rejected forwarded values and trust boundary stops, labeled by event.",
		},
		[]string{"event"},
	)

	resolutionsTotal, err := registerCounterVec(registerer, resolutionsCollector, resolutionsMetricName)
	if err != nil {
		return nil, err
	}

	securityEvents, err := registerCounterVec(registerer, securityEventsCollector, securityEventsMetricName)
	if err != nil {
		return nil, err
	}

	return &PrometheusMetrics{
		resolutionsTotal: resolutionsTotal,
		securityEvents:   securityEvents,
	}, nil
}

func registerCounterVec(registerer prom.Registerer, collector *prom.CounterVec, metricName string) (*prom.CounterVec, error) {
	if err := registerer.Register(collector); err != nil {
		var alreadyRegistered prom.AlreadyRegisteredError
		if errors.As(err, &alreadyRegistered) {
			existing, ok := alreadyRegistered.ExistingCollector.(*prom.CounterVec)
			if ok {
				return existing, nil
			}
			return nil, fmt.Errorf("metric %q already registered with incompatible collector type %T", metricName, alreadyRegistered.ExistingCollector)
		}

		return nil, fmt.Errorf("register metric %q: %w", metricName, err)
	}

	return collector, nil
}

// RecordResolution increments forwarded_headers_resolutions_total for the
// provided outcome.
func (m *PrometheusMetrics) RecordResolution(outcome string) {
	m.resolutionsTotal.WithLabelValues(outcome).Inc()
}

// RecordSecurityEvent increments forwarded_headers_security_events_total for
// the provided event label.
func (m *PrometheusMetrics) RecordSecurityEvent(event string) {
	m.securityEvents.WithLabelValues(event).Inc()
}
