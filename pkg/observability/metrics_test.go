package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func base(kind domain.EventType) domain.EventBase {
	return domain.EventBase{Type: kind, SessionID: "s1", WizardID: "intake"}
}

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnStepEnter(ctx, &domain.StepEvent{EventBase: base(domain.EventStepEnter), StepID: "account"})
	hooks.OnStepEnter(ctx, &domain.StepEvent{EventBase: base(domain.EventStepEnter), StepID: "account"})
	hooks.OnValidationFailed(ctx, &domain.StepEvent{
		EventBase: base(domain.EventValidationFailed),
		StepID:    "account",
		Failures: domain.Failures{
			{Field: "email", Reason: domain.ReasonMissingRequired},
			{Field: "password", Reason: domain.ReasonLengthTooShort},
		},
	})
	hooks.OnSubmitResult(ctx, &domain.SubmitEvent{EventBase: base(domain.EventSubmitResult), Duration: 20 * time.Millisecond})
	hooks.OnSubmitResult(ctx, &domain.SubmitEvent{EventBase: base(domain.EventSubmitResult), Err: errors.New("down")})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StepVisits.WithLabelValues("intake", "account")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationFailures.WithLabelValues("intake", "account", "length_too_short")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("intake", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("intake", "failure")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.SubmitDuration))
}

func TestNewMetrics_RegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	second, err := observability.NewMetrics(reg)
	require.NoError(t, err, "already registered collectors are reused")

	second.StepVisits.WithLabelValues("intake", "account").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(first.StepVisits.WithLabelValues("intake", "account")))
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	hooks := observability.LogHooks(slog.New(slog.NewTextHandler(&buf, nil)))

	hooks.OnValidationFailed(context.Background(), &domain.StepEvent{
		EventBase: base(domain.EventValidationFailed),
		StepID:    "account",
		Failures:  domain.Failures{{Field: "password", Reason: domain.ReasonLengthTooShort, Message: "secret123"}},
	})

	assert.Contains(t, buf.String(), "validation_failed")
	assert.Contains(t, buf.String(), "password")
	assert.NotContains(t, buf.String(), "secret123")
}
