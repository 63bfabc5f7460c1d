package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/clubdesk/formflow"
	"github.com/clubdesk/formflow/pkg/adapters/memory"
	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/registration"
	"github.com/clubdesk/formflow/pkg/registry"
	"github.com/clubdesk/formflow/pkg/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	err      error
	payloads []domain.Payload
}

func (c *capture) Submit(ctx context.Context, wizardID string, payload domain.Payload) error {
	if c.err != nil {
		return c.err
	}
	c.payloads = append(c.payloads, payload)
	return nil
}

func newServer(t *testing.T, sub *capture) *Server {
	t.Helper()
	loader, err := memory.NewLoader(registration.Definition())
	require.NoError(t, err)
	return NewServer(registry.New(loader, formflow.WithSubmitter(sub)), nil)
}

var req = mcp.CallToolRequest{}

func TestServer_StartAndNavigate(t *testing.T) {
	s := newServer(t, &capture{})
	ctx := context.Background()

	resp, err := s.handleStart(ctx, req, startArgs{
		WizardID:  registration.WizardID,
		SessionID: "ada",
		Values:    `{"fullName": "Ada Lovelace", "email": "ada@example.com"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "account", resp.View.ID)
	assert.Equal(t, "Ada Lovelace", resp.State.Fields.Value("fullName"))

	resp, err = s.handleNext(ctx, req, sessionArgs{SessionID: "ada"})
	require.NoError(t, err, "failures are data, not errors")
	assert.True(t, resp.Failures.Has("password", domain.ReasonMissingRequired))
	assert.Equal(t, registration.StepAccount, resp.View.Index)

	for _, v := range []setFieldArgs{
		{SessionID: "ada", Name: "password", Value: "longenough1"},
		{SessionID: "ada", Name: "confirmPassword", Value: "longenough1"},
	} {
		resp, err = s.handleSetField(ctx, req, v)
		require.NoError(t, err)
	}
	assert.Equal(t, "", resp.State.Fields.Value("password"), "sensitive values are blank in responses")

	resp, err = s.handleNext(ctx, req, sessionArgs{SessionID: "ada"})
	require.NoError(t, err)
	assert.Equal(t, registration.StepPersonal, resp.View.Index)

	resp, err = s.handleBack(ctx, req, sessionArgs{SessionID: "ada"})
	require.NoError(t, err)
	assert.Equal(t, registration.StepAccount, resp.View.Index)

	resp, err = s.handleGetState(ctx, req, sessionArgs{SessionID: "ada"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", resp.State.Fields.Value("email"))
}

func TestServer_StartErrors(t *testing.T) {
	s := newServer(t, &capture{})
	ctx := context.Background()

	_, err := s.handleStart(ctx, req, startArgs{WizardID: "nope"})
	assert.ErrorIs(t, err, domain.ErrWizardNotFound)

	_, err = s.handleStart(ctx, req, startArgs{WizardID: registration.WizardID, Values: "[1,2]"})
	assert.Error(t, err)

	_, err = s.handleStart(ctx, req, startArgs{WizardID: registration.WizardID, SessionID: "dup"})
	require.NoError(t, err)
	_, err = s.handleStart(ctx, req, startArgs{WizardID: registration.WizardID, SessionID: "dup"})
	assert.ErrorContains(t, err, "already exists")

	_, err = s.handleSetField(ctx, req, setFieldArgs{SessionID: "dup", Name: "nickname", Value: "x"})
	assert.ErrorIs(t, err, domain.ErrUnknownField)

	_, err = s.handleNext(ctx, req, sessionArgs{SessionID: "missing"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestServer_Submit(t *testing.T) {
	sub := &capture{}
	s := newServer(t, sub)
	ctx := context.Background()

	values, err := json.Marshal(map[string]any{
		"fullName": "Ada Lovelace", "email": "ada@example.com",
		"password": "longenough1", "confirmPassword": "longenough1",
		"phone": "+44 20 7946 0000", "dateOfBirth": "1990-12-10",
		"sports": "Yoga, Pilates", "membershipPlan": "annual",
	})
	require.NoError(t, err)
	_, err = s.handleStart(ctx, req, startArgs{WizardID: registration.WizardID, SessionID: "s1", Values: string(values)})
	require.NoError(t, err)

	for range registration.StepConfirm {
		resp, err := s.handleNext(ctx, req, sessionArgs{SessionID: "s1"})
		require.NoError(t, err)
		require.Empty(t, resp.Failures)
	}

	resp, err := s.handleSubmit(ctx, req, sessionArgs{SessionID: "s1"})
	require.NoError(t, err)
	assert.True(t, resp.Failures.Has("agreeToTerms", domain.ReasonMissingRequired))
	assert.Empty(t, sub.payloads)

	_, err = s.handleSetField(ctx, req, setFieldArgs{SessionID: "s1", Name: "agreeToTerms", Value: "true"})
	require.NoError(t, err)

	sub.err = errors.New("backend down")
	_, err = s.handleSubmit(ctx, req, sessionArgs{SessionID: "s1"})
	var se *domain.SubmissionError
	require.ErrorAs(t, err, &se)

	sub.err = nil
	resp, err = s.handleSubmit(ctx, req, sessionArgs{SessionID: "s1"})
	require.NoError(t, err)
	assert.True(t, resp.Terminal)
	require.Len(t, sub.payloads, 1)
	assert.Equal(t, []string{"Yoga", "Pilates"}, sub.payloads[0]["sports"])

	_, err = s.handleGetState(ctx, req, sessionArgs{SessionID: "s1"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound, "submitted sessions are removed")
}

func TestServer_SubmitAfterInterruptedDelivery(t *testing.T) {
	sub := &capture{}
	s := newServer(t, sub)
	ctx := context.Background()

	values, err := json.Marshal(map[string]any{
		"fullName": "Ada Lovelace", "email": "ada@example.com",
		"password": "longenough1", "confirmPassword": "longenough1",
		"phone": "+44 20 7946 0000", "dateOfBirth": "1990-12-10",
		"sports": "Yoga", "membershipPlan": "annual", "agreeToTerms": true,
	})
	require.NoError(t, err)
	_, err = s.handleStart(ctx, req, startArgs{WizardID: registration.WizardID, SessionID: "s1", Values: string(values)})
	require.NoError(t, err)
	for range registration.StepConfirm {
		_, err := s.handleNext(ctx, req, sessionArgs{SessionID: "s1"})
		require.NoError(t, err)
	}

	// Left pending by a process that stopped before recording the outcome.
	_, err = s.sessions.Update(ctx, "s1", func(ctx context.Context, current *domain.State) (*domain.State, error) {
		next := current.Snapshot()
		next.Status = domain.StatusPending
		return next, nil
	})
	require.NoError(t, err)

	resp, err := s.handleGetState(ctx, req, sessionArgs{SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, resp.State.Status)
	assert.Equal(t, domain.ErrSubmissionInterrupted.Error(), resp.State.SubmissionError)
	assert.Equal(t, registration.StepConfirm, resp.View.Index)

	resp, err = s.handleSubmit(ctx, req, sessionArgs{SessionID: "s1"})
	require.NoError(t, err)
	assert.True(t, resp.Terminal)
	assert.Len(t, sub.payloads, 1)
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, "Yoga, Pilates", parseValue("Yoga, Pilates"))
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, "4", parseValue("4"))
	assert.Equal(t, "quoted", parseValue(`"quoted"`))
	assert.Equal(t, map[string]any{"from": "18:00", "to": "20:00"}, parseValue(`{"from":"18:00","to":"20:00"}`))
}

func TestServer_DefinitionResources(t *testing.T) {
	s := newServer(t, &capture{})
	ctx := context.Background()

	list, err := s.readDefinitions(ctx, mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Contains(t, list[0].(mcp.TextResourceContents).Text, registration.WizardID)

	var one mcp.ReadResourceRequest
	one.Params.URI = definitionsURI + "/" + registration.WizardID
	contents, err := s.readDefinition(ctx, one)
	require.NoError(t, err)
	require.Len(t, contents, 1)

	var def schema.Definition
	require.NoError(t, json.Unmarshal([]byte(contents[0].(mcp.TextResourceContents).Text), &def))
	assert.Len(t, def.Steps, 5)

	one.Params.URI = definitionsURI + "/nope"
	_, err = s.readDefinition(ctx, one)
	assert.ErrorIs(t, err, domain.ErrWizardNotFound)
}
