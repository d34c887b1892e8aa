package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer captures telemetry for external calls and submission outcomes.
type Observer interface {
	ObserveCall(target, op string, duration time.Duration, err error)
	ObserveSubmission(workflow string, outcome string)
}

type PrometheusObserver struct {
	callDuration *prometheus.HistogramVec
	callErrors   *prometheus.CounterVec
	submissions  *prometheus.CounterVec
}

// NewPrometheusObserver registers the intake metrics on reg, reusing collectors
// that are already registered.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "field_uploader"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &PrometheusObserver{
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "external_call_duration_seconds",
			Help:      "Latency of calls to object storage and the record store.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"target", "operation"}),
		callErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_call_errors_total",
			Help:      "Failed calls to object storage and the record store.",
		}, []string{"target", "operation"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Image submissions by workflow and outcome.",
		}, []string{"workflow", "outcome"}),
	}

	var err error
	o.callDuration, err = register(reg, o.callDuration)
	if err != nil {
		return nil, err
	}
	o.callErrors, err = register(reg, o.callErrors)
	if err != nil {
		return nil, err
	}
	o.submissions, err = register(reg, o.submissions)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register metric: %w", err)
	}
	return c, nil
}

func (o *PrometheusObserver) ObserveCall(target, op string, duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.callDuration.WithLabelValues(target, op).Observe(duration.Seconds())
	if err != nil {
		o.callErrors.WithLabelValues(target, op).Inc()
	}
}

func (o *PrometheusObserver) ObserveSubmission(workflow string, outcome string) {
	if o == nil {
		return
	}
	o.submissions.WithLabelValues(workflow, outcome).Inc()
}

type Nop struct{}

func (Nop) ObserveCall(string, string, time.Duration, error) {}

func (Nop) ObserveSubmission(string, string) {}
