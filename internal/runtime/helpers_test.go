package runtime_test

import (
	"context"
	"testing"

	"github.com/clubdesk/formflow/internal/runtime"
	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/ports"
	"github.com/clubdesk/formflow/pkg/registration"
	"github.com/stretchr/testify/require"
)

// validAnswers passes every step of the registration wizard.
var validAnswers = []map[string]any{
	{
		"fullName":        "Ada Lovelace",
		"email":           "ada@example.com",
		"password":        "longenough1",
		"confirmPassword": "longenough1",
	},
	{
		"phone":       "+44 20 7946 0000",
		"dateOfBirth": "1990-12-10",
	},
	{
		"chronicIllness": "no",
		"injuries":       "no",
	},
	{
		"sports":        "Yoga, Pilates, , Meditation",
		"priorTraining": "yes",
		"trainingYears": "4",
	},
	{
		"membershipPlan": "annual",
		"agreeToTerms":   true,
	},
}

// recorder is a Submitter that remembers calls and fails on demand.
type recorder struct {
	calls    int
	payloads []domain.Payload
	err      error
}

func (r *recorder) Submit(ctx context.Context, wizardID string, payload domain.Payload) error {
	r.calls++
	r.payloads = append(r.payloads, payload)
	return r.err
}

var _ ports.Submitter = (*recorder)(nil)

func newEngine(t *testing.T, opts ...runtime.EngineOption) *runtime.Engine {
	t.Helper()
	e, err := runtime.NewEngine(registration.Definition(), opts...)
	require.NoError(t, err)
	return e
}

func set(t *testing.T, e *runtime.Engine, state *domain.State, values map[string]any) *domain.State {
	t.Helper()
	next, err := e.SetFields(context.Background(), state, values)
	require.NoError(t, err)
	return next
}

// advanceTo fills valid answers and walks forward until step is reached.
func advanceTo(t *testing.T, e *runtime.Engine, step int) *domain.State {
	t.Helper()
	ctx := context.Background()
	state, err := e.Start(ctx, "sess-test", nil)
	require.NoError(t, err)

	for i := 0; i < step; i++ {
		state = set(t, e, state, validAnswers[i])
		var failures domain.Failures
		state, failures, err = e.Next(ctx, state)
		require.NoError(t, err)
		require.Empty(t, failures, "step %d should pass", i)
	}
	require.Equal(t, step, state.CurrentStep)
	return state
}
