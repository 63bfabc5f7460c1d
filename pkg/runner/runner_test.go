package runner_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/clubdesk/formflow"
	"github.com/clubdesk/formflow/pkg/adapters/memory"
	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/dsl"
	"github.com/clubdesk/formflow/pkg/persistence/middleware"
	"github.com/clubdesk/formflow/pkg/ports"
	"github.com/clubdesk/formflow/pkg/registration"
	"github.com/clubdesk/formflow/pkg/runner"
	"github.com/clubdesk/formflow/pkg/schema"
	"github.com/clubdesk/formflow/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	payloads []domain.Payload
}

func (c *capture) Submit(ctx context.Context, wizardID string, payload domain.Payload) error {
	c.payloads = append(c.payloads, payload)
	return nil
}

func lines(ls ...string) *bytes.Buffer {
	return bytes.NewBufferString(strings.Join(ls, "\n") + "\n")
}

func registrationEngine(t *testing.T, sub ports.Submitter) *formflow.Engine {
	t.Helper()
	eng, err := formflow.New(registration.Definition(), formflow.WithSubmitter(sub))
	require.NoError(t, err)
	return eng
}

func TestRunner_FullRegistration(t *testing.T) {
	sub := &capture{}
	out := &bytes.Buffer{}
	in := lines(
		// account
		"Ada Lovelace", "ada@example.com", "longenough1", "longenough1",
		// personal: preferred name, phone, date of birth, gender, emergency contact
		"", "+44 20 7946 0000", "1990-12-10", "", "",
		// health: chronic illness reveals its details in place
		"yes", "Asthma", "", "",
		// sports: list, prior training, availability, goals (multi-line)
		"Yoga, Pilates", "no", "18:00-20:00", "Run a 10k", "Learn to swim", "",
		// confirm
		"annual", "yes",
	)

	r := runner.NewRunner(
		runner.WithWizard(registrationEngine(t, sub)),
		runner.WithInputHandler(runner.NewTextHandler(in, out)),
		runner.WithHeadless(true),
	)

	state, err := r.Run(context.Background())
	require.NoError(t, err)
	require.True(t, state.Terminal(), out.String())

	require.Len(t, sub.payloads, 1)
	payload := sub.payloads[0]
	assert.Equal(t, []string{"Yoga", "Pilates"}, payload["sports"])
	assert.Equal(t, []string{"Run a 10k", "Learn to swim"}, payload["goals"])
	assert.Equal(t, "Asthma", payload["chronicIllnessDetails"])
	assert.Equal(t, map[string]any{"from": "18:00", "to": "20:00"}, payload["availability"])
	assert.Contains(t, out.String(), "[1/5] Account")
	assert.Contains(t, out.String(), "Submitted")
}

func newsletterEngine(t *testing.T, sub ports.Submitter) *formflow.Engine {
	t.Helper()
	eng, err := formflow.New(twoStepWizard(t), formflow.WithSubmitter(sub))
	require.NoError(t, err)
	return eng
}

func twoStepWizard(t *testing.T) *schema.Definition {
	t.Helper()
	b := dsl.New("newsletter")
	b.Step("who").Title("Who").
		Field("email").Label("E-mail").Kind(domain.KindEmail).Required()
	b.Step("what").Title("What").
		Field("topics").Label("Topics").Kind(domain.KindList).Required()
	def, err := b.Build()
	require.NoError(t, err)
	return def
}

func TestRunner_RepromptsOnFailures(t *testing.T) {
	sub := &capture{}
	eng := newsletterEngine(t, sub)
	out := &bytes.Buffer{}

	r := runner.NewRunner(
		runner.WithWizard(eng),
		runner.WithInputHandler(runner.NewTextHandler(lines("", "ada@example.com", "news"), out)),
		runner.WithHeadless(true),
	)

	state, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, state.Terminal())
	assert.Equal(t, 2, strings.Count(out.String(), "[1/2] Who"), "step shown again after failing")
	assert.Contains(t, out.String(), "✗")
}

func TestRunner_BackCommand(t *testing.T) {
	eng := newsletterEngine(t, &capture{})

	r := runner.NewRunner(
		runner.WithWizard(eng),
		runner.WithInputHandler(runner.NewTextHandler(lines("ada@example.com", runner.CommandBack), &bytes.Buffer{})),
		runner.WithHeadless(true),
	)

	state, err := r.Run(context.Background())
	require.NoError(t, err, "end of input is a clean exit")
	assert.Equal(t, 0, state.CurrentStep)
	assert.Equal(t, "ada@example.com", state.Fields.Value("email"))
}

func TestRunner_QuitAndResume(t *testing.T) {
	def := registration.Definition()
	underlying := memory.NewStore()
	sensitive, err := middleware.NewSensitiveMiddleware([]*schema.Definition{def})
	require.NoError(t, err)
	manager := session.NewManager(middleware.Chain(underlying, sensitive))
	eng := registrationEngine(t, &capture{})

	first := runner.NewRunner(
		runner.WithWizard(eng),
		runner.WithSessions(manager),
		runner.WithSessionID("ada"),
		runner.WithInputHandler(runner.NewTextHandler(lines(
			"Ada Lovelace", "ada@example.com", "longenough1", "longenough1",
			runner.CommandQuit,
		), &bytes.Buffer{})),
	)
	state, err := first.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, registration.StepPersonal, state.CurrentStep)

	stored, err := underlying.Load(context.Background(), "ada")
	require.NoError(t, err)
	assert.Equal(t, "", stored.Fields.Value("password"), "password never persisted")

	// A new process: nothing kept in memory.
	restarted, err := middleware.NewSensitiveMiddleware([]*schema.Definition{def})
	require.NoError(t, err)
	out := &bytes.Buffer{}
	second := runner.NewRunner(
		runner.WithWizard(eng),
		runner.WithSessions(session.NewManager(middleware.Chain(underlying, restarted))),
		runner.WithSessionID("ada"),
		runner.WithInputHandler(runner.NewTextHandler(&bytes.Buffer{}, out)),
	)
	state, err = second.Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, out.String(), `Resuming session "ada"`)
	assert.Equal(t, registration.StepAccount, state.CurrentStep, "rewound to ask for the password again")
	assert.Equal(t, "Ada Lovelace", state.Fields.Value("fullName"))
}

func TestRunner_ConfirmationDeclined(t *testing.T) {
	sub := &capture{}
	eng := newsletterEngine(t, sub)
	out := &bytes.Buffer{}

	r := runner.NewRunner(
		runner.WithWizard(eng),
		runner.WithInputHandler(runner.NewTextHandler(lines("ada@example.com", "news", "no"), out)),
	)

	state, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sub.payloads)
	assert.Equal(t, domain.StatusActive, state.Status)
	assert.Equal(t, runner.ErrSubmitCancelled.Error(), state.SubmissionError)
	assert.Contains(t, out.String(), "topics: news")
}

func TestRunner_Interrupted(t *testing.T) {
	eng := newsletterEngine(t, &capture{})

	interrupt := make(chan struct{})
	close(interrupt)

	blocking, w := io.Pipe()
	defer w.Close()

	r := runner.NewRunner(
		runner.WithWizard(eng),
		runner.WithInputHandler(runner.NewTextHandler(blocking, &bytes.Buffer{})),
		runner.WithInterruptSource(interrupt),
	)

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, runner.ErrInterrupted)
}

func TestRunner_RequiresWizard(t *testing.T) {
	_, err := runner.NewRunner().Run(context.Background())
	assert.ErrorIs(t, err, runner.ErrNoWizard)
}
