package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/clubdesk/formflow"
	"github.com/clubdesk/formflow/internal/logging"
	"github.com/clubdesk/formflow/pkg/adapters/memory"
	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/dsl"
	"github.com/clubdesk/formflow/pkg/observability"
	"github.com/clubdesk/formflow/pkg/ports"
	"github.com/clubdesk/formflow/pkg/registration"
	"github.com/clubdesk/formflow/pkg/registry"
	"github.com/clubdesk/formflow/pkg/schema"
	"github.com/clubdesk/formflow/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionBody struct {
	State    domain.State    `json:"state"`
	View     domain.StepView `json:"view"`
	Failures domain.Failures `json:"failures"`
	Terminal bool            `json:"terminal"`
	Error    string          `json:"error"`
}

type submissions struct {
	mu       sync.Mutex
	err      error
	payloads []domain.Payload
}

func (s *submissions) submitter() ports.Submitter {
	return ports.SubmitterFunc(func(ctx context.Context, wizardID string, payload domain.Payload) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.err != nil {
			return s.err
		}
		s.payloads = append(s.payloads, payload)
		return nil
	})
}

func (s *submissions) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *submissions) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}

func pingWizard(t *testing.T) *schema.Definition {
	t.Helper()
	b := dsl.New("ping")
	b.Step("only").
		Field("email").Kind(domain.KindEmail).Required().
		Field("pin").Kind(domain.KindPassword).Sensitive().Optional()
	def, err := b.Build()
	require.NoError(t, err)
	return def
}

type fixture struct {
	srv      *httptest.Server
	server   *Server
	sessions *session.Manager
	sub      *submissions
}

func newFixture(t *testing.T, loader ports.DefinitionLoader, opts ...Option) *fixture {
	return newFixtureWith(t, loader, nil, opts...)
}

func newFixtureWith(t *testing.T, loader ports.DefinitionLoader, engineOpts []formflow.Option, opts ...Option) *fixture {
	t.Helper()
	if loader == nil {
		var err error
		loader, err = memory.NewLoader(registration.Definition(), pingWizard(t))
		require.NoError(t, err)
	}
	f := &fixture{sub: &submissions{}, sessions: session.NewManager(memory.NewStore())}
	reg := registry.New(loader, append([]formflow.Option{formflow.WithSubmitter(f.sub.submitter())}, engineOpts...)...)
	f.server = NewServer(reg, f.sessions, append([]Option{WithLogger(logging.NewNop())}, opts...)...)
	handler, err := f.server.Handler()
	require.NoError(t, err)
	f.srv = httptest.NewServer(handler)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) (int, sessionBody) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out sessionBody
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func (f *fixture) start(t *testing.T, wizardID, sessionID string) sessionBody {
	t.Helper()
	code, body := f.do(t, http.MethodPost, "/wizards/"+wizardID+"/sessions", map[string]any{"session_id": sessionID})
	require.Equal(t, http.StatusCreated, code, body.Error)
	return body
}

func TestServer_HealthInfoAndSpec(t *testing.T) {
	f := newFixture(t, nil, WithVersion("v9.9.9"))

	resp, err := http.Get(f.srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(f.srv.URL + "/info")
	require.NoError(t, err)
	var info map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	resp.Body.Close()
	assert.Equal(t, "v9.9.9", info["version"])
	assert.ElementsMatch(t, []any{"member-registration", "ping"}, info["wizards"])

	resp, err = http.Get(f.srv.URL + "/openapi.yaml")
	require.NoError(t, err)
	spec, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(spec), "openapi: 3.0.3")
}

func TestServer_Wizards(t *testing.T) {
	f := newFixture(t, nil)

	resp, err := http.Get(f.srv.URL + "/wizards")
	require.NoError(t, err)
	var list []wizardSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	assert.Contains(t, list, wizardSummary{ID: registration.WizardID, Title: "Member registration", Steps: 5})

	resp, err = http.Get(f.srv.URL + "/wizards/" + registration.WizardID)
	require.NoError(t, err)
	var def schema.Definition
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&def))
	resp.Body.Close()
	assert.Equal(t, "account", def.Steps[0].ID)

	code, body := f.do(t, http.MethodGet, "/wizards/nope", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, body.Error, "wizard not found")
}

func TestServer_RegistrationFlow(t *testing.T) {
	f := newFixture(t, nil)
	created := f.start(t, registration.WizardID, "ada")
	assert.Equal(t, 0, created.View.Index)

	code, body := f.do(t, http.MethodPost, "/sessions/ada/next", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.True(t, body.Failures.Has("fullName", domain.ReasonMissingRequired))
	assert.Equal(t, 0, body.State.CurrentStep)

	code, body = f.do(t, http.MethodPatch, "/sessions/ada/fields", map[string]any{"values": map[string]any{
		"fullName":        "Ada Lovelace",
		"email":           "ada@example.com",
		"password":        "longenough1",
		"confirmPassword": "longenough1",
	}})
	require.Equal(t, http.StatusOK, code, body.Error)
	assert.Equal(t, "", body.State.Fields.Value("password"), "sensitive values never leave the server")
	assert.Equal(t, "Ada Lovelace", body.State.Fields.Value("fullName"))

	code, body = f.do(t, http.MethodPost, "/sessions/ada/next", nil)
	require.Equal(t, http.StatusOK, code, body.Error)
	assert.Equal(t, registration.StepPersonal, body.View.Index)

	code, body = f.do(t, http.MethodPost, "/sessions/ada/back", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, registration.StepAccount, body.View.Index)

	code, body = f.do(t, http.MethodGet, "/sessions/ada", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, registration.StepAccount, body.State.CurrentStep)
	assert.Equal(t, "ada@example.com", body.State.Fields.Value("email"))
}

func TestServer_Errors(t *testing.T) {
	f := newFixture(t, nil, WithMaxInputSize(16))
	f.start(t, registration.WizardID, "s1")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		code   int
	}{
		{"unknown session", http.MethodGet, "/sessions/missing", nil, http.StatusNotFound},
		{"unknown field", http.MethodPatch, "/sessions/s1/fields", map[string]any{"values": map[string]any{"nickname": "x"}}, http.StatusBadRequest},
		{"missing values", http.MethodPatch, "/sessions/s1/fields", map[string]any{}, http.StatusBadRequest},
		{"extra property", http.MethodPatch, "/sessions/s1/fields", map[string]any{"values": map[string]any{"fullName": "x"}, "step": 2}, http.StatusBadRequest},
		{"too large", http.MethodPatch, "/sessions/s1/fields", map[string]any{"values": map[string]any{"fullName": strings.Repeat("a", 64)}}, http.StatusBadRequest},
		{"bad session id", http.MethodGet, "/sessions/bad%20id", nil, http.StatusBadRequest},
		{"submit off the last step", http.MethodPost, "/sessions/s1/submit", nil, http.StatusConflict},
		{"duplicate session", http.MethodPost, "/wizards/ping/sessions", map[string]any{"session_id": "s1"}, http.StatusConflict},
		{"unknown wizard", http.MethodPost, "/wizards/nope/sessions", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := f.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.code, code, body.Error)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestServer_CreateWithoutID(t *testing.T) {
	f := newFixture(t, nil)

	code, body := f.do(t, http.MethodPost, "/wizards/ping/sessions", map[string]any{"values": map[string]any{"email": "ada@example.com"}})
	require.Equal(t, http.StatusCreated, code, body.Error)
	assert.NotEmpty(t, body.State.SessionID)
	assert.Equal(t, "ada@example.com", body.State.Fields.Value("email"))

	ids, err := f.sessions.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{body.State.SessionID}, ids)
}

func TestServer_Submit(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t, "ping", "p1")

	code, body := f.do(t, http.MethodPost, "/sessions/p1/submit", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.True(t, body.Failures.Has("email", domain.ReasonMissingRequired))
	assert.Zero(t, f.sub.count(), "failing gate never reaches the submitter")

	code, _ = f.do(t, http.MethodPatch, "/sessions/p1/fields", map[string]any{"values": map[string]any{"email": "ada@example.com", "pin": "1234"}})
	require.Equal(t, http.StatusOK, code)

	f.sub.fail(errors.New("backend down"))
	code, body = f.do(t, http.MethodPost, "/sessions/p1/submit", nil)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "backend down", body.State.SubmissionError)
	assert.Equal(t, domain.StatusActive, body.State.Status)
	assert.False(t, body.Terminal)

	f.sub.fail(nil)
	code, body = f.do(t, http.MethodPost, "/sessions/p1/submit", nil)
	require.Equal(t, http.StatusOK, code, body.Error)
	assert.True(t, body.Terminal)
	require.Equal(t, 1, f.sub.count())
	assert.Equal(t, "1234", f.sub.payloads[0]["pin"], "submitter sees sensitive values")

	code, _ = f.do(t, http.MethodGet, "/sessions/p1", nil)
	assert.Equal(t, http.StatusNotFound, code, "submitted sessions are removed")
}

// savePending stores a ping session left pending, as after a crash between
// the two submission phases.
func (f *fixture) savePending(t *testing.T, sessionID string) {
	t.Helper()
	fields, err := pingWizard(t).Defaults().Set("email", "ada@example.com")
	require.NoError(t, err)
	state := domain.NewState(sessionID, "ping", fields)
	state.Status = domain.StatusPending
	require.NoError(t, f.sessions.Save(context.Background(), sessionID, state))
}

func TestServer_SubmitRetriesInterruptedSubmission(t *testing.T) {
	f := newFixture(t, nil)
	f.savePending(t, "stuck")

	code, body := f.do(t, http.MethodPost, "/sessions/stuck/submit", nil)
	require.Equal(t, http.StatusOK, code, body.Error)
	assert.True(t, body.Terminal)
	assert.Equal(t, 1, f.sub.count())
}

func TestServer_GetSettlesInterruptedSubmission(t *testing.T) {
	f := newFixture(t, nil)
	f.savePending(t, "stuck")

	code, body := f.do(t, http.MethodGet, "/sessions/stuck", nil)
	require.Equal(t, http.StatusOK, code, body.Error)
	assert.Equal(t, domain.StatusActive, body.State.Status)
	assert.Equal(t, domain.ErrSubmissionInterrupted.Error(), body.State.SubmissionError)

	stored, err := f.sessions.Load(context.Background(), "stuck")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, stored.Status, "recovery is saved")

	code, body = f.do(t, http.MethodPost, "/sessions/stuck/submit", nil)
	require.Equal(t, http.StatusOK, code, body.Error)
	assert.Equal(t, 1, f.sub.count())
}

func TestServer_InFlightSubmissionStaysPending(t *testing.T) {
	f := newFixture(t, nil)
	f.savePending(t, "busy")
	done := f.sessions.MarkDelivering("busy")
	defer done()

	code, body := f.do(t, http.MethodGet, "/sessions/busy", nil)
	require.Equal(t, http.StatusOK, code, body.Error)
	assert.Equal(t, domain.StatusPending, body.State.Status)

	code, _ = f.do(t, http.MethodPost, "/sessions/busy/submit", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Zero(t, f.sub.count())
}

func TestServer_DeleteSession(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t, "ping", "gone")

	code, _ := f.do(t, http.MethodDelete, "/sessions/gone", nil)
	assert.Equal(t, http.StatusNoContent, code)

	code, _ = f.do(t, http.MethodDelete, "/sessions/gone", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	f := newFixtureWith(t, nil, []formflow.Option{formflow.WithLifecycleHooks(metrics.Hooks())}, WithMetrics(reg))
	f.start(t, registration.WizardID, "m1")
	f.do(t, http.MethodPost, "/sessions/m1/next", nil)

	resp, err := http.Get(f.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), "formflow_")
}

// readEvents collects SSE data lines until want of them arrived or the
// deadline passed.
func readEvents(t *testing.T, url string, want int, trigger func()) []string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "event: ping\n", line)

	trigger()

	var events []string
	for len(events) < want {
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		if data, ok := strings.CutPrefix(line, "data: "); ok && data != "connected\n" {
			events = append(events, strings.TrimSpace(data))
		}
	}
	return events
}

func TestServer_SessionEvents(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t, registration.WizardID, "live")

	events := readEvents(t, f.srv.URL+"/sessions/live/events?watch=step", 1, func() {
		// Field edits are filtered out; only the step change is sent.
		f.do(t, http.MethodPatch, "/sessions/live/fields", map[string]any{"values": map[string]any{
			"fullName": "Ada", "email": "ada@example.com", "password": "longenough1", "confirmPassword": "longenough1",
		}})
		f.do(t, http.MethodPost, "/sessions/live/next", nil)
	})

	require.Len(t, events, 1)
	var diff domain.StateDiff
	require.NoError(t, json.Unmarshal([]byte(events[0]), &diff))
	require.NotNil(t, diff.CurrentStep)
	assert.Equal(t, registration.StepPersonal, *diff.CurrentStep)
	assert.NotContains(t, events[0], "longenough1")
}

func TestServer_SessionEventsUnknownSession(t *testing.T) {
	f := newFixture(t, nil)
	code, _ := f.do(t, http.MethodGet, "/sessions/missing/events", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

type watchableLoader struct {
	*memory.Loader
	changes chan struct{}
}

func (l *watchableLoader) Watch(ctx context.Context) (<-chan struct{}, error) {
	return l.changes, nil
}

func TestServer_DefinitionEvents(t *testing.T) {
	base, err := memory.NewLoader(pingWizard(t))
	require.NoError(t, err)
	loader := &watchableLoader{Loader: base, changes: make(chan struct{}, 1)}
	f := newFixture(t, loader)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = f.server.WatchDefinitions(ctx) }()

	events := readEvents(t, f.srv.URL+"/events", 1, func() {
		require.Eventually(t, func() bool { return f.server.Streams.Subscribers(globalTopic) == 1 }, time.Second, 10*time.Millisecond)
		loader.changes <- struct{}{}
	})
	assert.Equal(t, []string{"reload"}, events)
}

func TestServer_WatchDefinitionsRequiresWatchable(t *testing.T) {
	f := newFixture(t, nil)
	assert.ErrorIs(t, f.server.WatchDefinitions(context.Background()), formflow.ErrNotWatchable)
}
