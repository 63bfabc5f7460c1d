package runtime_test

import (
	"context"
	"testing"

	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/registration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResume_RewindsToMissingPassword(t *testing.T) {
	e := newEngine(t)
	state := advanceTo(t, e, registration.StepSports)

	// What a store hands back after the password was dropped.
	state = set(t, e, state, map[string]any{"password": "", "confirmPassword": ""})

	resumed, err := e.Resume(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, registration.StepAccount, resumed.CurrentStep)
	assert.True(t, resumed.LastFailures.Has("password", domain.ReasonMissingRequired))
	assert.Equal(t, "Ada Lovelace", resumed.Fields.Value("fullName"), "other answers kept")
	assert.Equal(t, "4", resumed.Fields.Value("trainingYears"))
}

func TestResume_ValidStateUnchanged(t *testing.T) {
	e := newEngine(t)
	state := advanceTo(t, e, registration.StepHealth)

	resumed, err := e.Resume(context.Background(), state)
	require.NoError(t, err)
	assert.Same(t, state, resumed)
}

func TestResume_IgnoresNonActive(t *testing.T) {
	e := newEngine(t)
	state := advanceTo(t, e, registration.StepConfirm)
	state.Status = domain.StatusPending
	state = set(t, e, state, map[string]any{"password": ""})

	resumed, err := e.Resume(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, registration.StepConfirm, resumed.CurrentStep)
}
