package observability

import (
	"context"
	"errors"

	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records wizard activity as Prometheus collectors.
type Metrics struct {
	StepVisits         *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	Submissions        *prometheus.CounterVec
	SubmitDuration     *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg skips registration.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		StepVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formflow_step_visits_total",
				Help: "Total number of wizard step entries",
			},
			[]string{"wizard", "step"},
		),
		ValidationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formflow_validation_failures_total",
				Help: "Field failures reported by step gates, by reason",
			},
			[]string{"wizard", "step", "reason"},
		),
		Submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formflow_submissions_total",
				Help: "Submissions handed to the submitter, by outcome",
			},
			[]string{"wizard", "outcome"},
		),
		SubmitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "formflow_submit_duration_seconds",
				Help:    "Duration of submitter calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"wizard"},
		),
	}

	if reg != nil {
		var err error
		if m.StepVisits, err = register(reg, m.StepVisits); err != nil {
			return nil, err
		}
		if m.ValidationFailures, err = register(reg, m.ValidationFailures); err != nil {
			return nil, err
		}
		if m.Submissions, err = register(reg, m.Submissions); err != nil {
			return nil, err
		}
		if m.SubmitDuration, err = register(reg, m.SubmitDuration); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// register reuses an identical collector that is already registered, so
// several engines in one process can share the metrics.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			m.StepVisits.WithLabelValues(e.WizardID, e.StepID).Inc()
		},
		OnValidationFailed: func(ctx context.Context, e *domain.StepEvent) {
			for _, f := range e.Failures {
				m.ValidationFailures.WithLabelValues(e.WizardID, e.StepID, string(f.Reason)).Inc()
			}
		},
		OnSubmitResult: func(ctx context.Context, e *domain.SubmitEvent) {
			outcome := "success"
			if e.Err != nil {
				outcome = "failure"
			}
			m.Submissions.WithLabelValues(e.WizardID, outcome).Inc()
			m.SubmitDuration.WithLabelValues(e.WizardID).Observe(e.Duration.Seconds())
		},
	}
}
