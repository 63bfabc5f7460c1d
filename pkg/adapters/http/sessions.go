package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/clubdesk/formflow"
	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/runner"
	"github.com/clubdesk/formflow/pkg/schema"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
)

var errSessionExists = errors.New("session already exists")

type createSessionRequest struct {
	SessionID string         `json:"session_id"`
	Values    map[string]any `json:"values"`
}

type setFieldsRequest struct {
	Values map[string]any `json:"values"`
}

type wizardSummary struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	Steps int    `json:"steps"`
}

// operation transforms a session state. It returns the failures of a gate
// when the step did not pass.
type operation func(ctx context.Context, eng *formflow.Engine, state *domain.State) (*domain.State, domain.Failures, error)

func pathParam(r *http.Request, name string) (string, error) {
	var v string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &v, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Required:      true,
	})
	return v, err
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) info(w http.ResponseWriter, r *http.Request) {
	ids, err := s.registry.List(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "formflow",
		"version": s.Version,
		"wizards": ids,
	})
}

func (s *Server) listWizards(w http.ResponseWriter, r *http.Request) {
	ids, err := s.registry.List(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	out := make([]wizardSummary, 0, len(ids))
	for _, id := range ids {
		def, err := s.registry.Loader().Get(r.Context(), id)
		if err != nil {
			s.Logger.Warn("skipping unreadable wizard", "wizard_id", id, "err", err)
			continue
		}
		out = append(out, wizardSummary{ID: def.ID, Title: def.Title, Steps: len(def.Steps)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getWizard(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "wizardId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	def, err := s.registry.Loader().Get(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	wizardID, err := pathParam(r, "wizardId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var body createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	values, err := s.sanitize(body.Values)
	if err != nil {
		s.fail(w, err)
		return
	}

	eng, err := s.registry.Get(r.Context(), wizardID)
	if err != nil {
		s.fail(w, err)
		return
	}

	sessionID := body.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	created := false
	state, err := s.Sessions.LoadOrStart(r.Context(), sessionID, func(ctx context.Context) (*domain.State, error) {
		created = true
		return eng.Start(ctx, sessionID, values)
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	if !created {
		s.fail(w, fmt.Errorf("%w: %s", errSessionExists, sessionID))
		return
	}

	s.Logger.Info("session started", "session_id", sessionID, "wizard_id", wizardID)
	s.respond(w, http.StatusCreated, eng, state, nil)
}

// getSession returns the session, rewound to the first earlier step that no
// longer validates when values were lost since it was saved.
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(ctx context.Context, eng *formflow.Engine, state *domain.State) (*domain.State, domain.Failures, error) {
		next, err := eng.Resume(ctx, state)
		if err != nil || next == state {
			return nil, nil, err
		}
		return next, nil, nil
	})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "sessionId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := s.Sessions.Load(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	if err := s.Sessions.Delete(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setFields(w http.ResponseWriter, r *http.Request) {
	var body setFieldsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	values, err := s.sanitize(body.Values)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.mutate(w, r, func(ctx context.Context, eng *formflow.Engine, state *domain.State) (*domain.State, domain.Failures, error) {
		next, err := eng.SetFields(ctx, state, values)
		return next, nil, err
	})
}

func (s *Server) nextStep(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(ctx context.Context, eng *formflow.Engine, state *domain.State) (*domain.State, domain.Failures, error) {
		return eng.Next(ctx, state)
	})
}

func (s *Server) previousStep(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(ctx context.Context, eng *formflow.Engine, state *domain.State) (*domain.State, domain.Failures, error) {
		next, err := eng.Back(ctx, state)
		return next, nil, err
	})
}

// submit runs the two submission phases in separate session updates so the
// pending state is stored while the payload is being delivered. A successful
// session is removed from the store.
func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "sessionId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		eng       *formflow.Engine
		before    *domain.State
		payload   domain.Payload
		failures  domain.Failures
		delivered = func() {}
	)
	pending, err := s.Sessions.Update(r.Context(), id, func(ctx context.Context, current *domain.State) (*domain.State, error) {
		before = current
		e, err := s.registry.Get(ctx, current.WizardID)
		if err != nil {
			return nil, err
		}
		eng = e
		if current, err = s.settle(ctx, eng, current); err != nil {
			return nil, err
		}
		next, p, f, err := eng.BeginSubmit(ctx, current)
		payload, failures = p, f
		if err == nil && len(f) == 0 {
			delivered = s.Sessions.MarkDelivering(id)
		}
		return next, err
	})
	defer delivered()
	if err != nil {
		s.fail(w, err)
		return
	}
	s.broadcast(eng.Definition(), before, pending)
	if len(failures) > 0 {
		s.respond(w, http.StatusUnprocessableEntity, eng, pending, failures)
		return
	}

	// The outcome is recorded even when the client goes away mid-delivery.
	ctx := context.WithoutCancel(r.Context())
	cause := eng.Deliver(ctx, pending, payload)

	done, err := s.Sessions.Update(ctx, id, func(ctx context.Context, current *domain.State) (*domain.State, error) {
		return eng.CompleteSubmit(ctx, current, cause)
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	s.broadcast(eng.Definition(), pending, done)

	if cause != nil {
		s.respond(w, http.StatusBadGateway, eng, done, nil)
		return
	}
	if err := s.Sessions.Delete(ctx, id); err != nil {
		s.Logger.Warn("failed to remove submitted session", "session_id", id, "err", err)
	}
	s.respond(w, http.StatusOK, eng, done, nil)
}

// mutate applies op to a session under its lock, stores the result and
// notifies stream subscribers. Gate failures answer 422.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, op operation) {
	id, err := pathParam(r, "sessionId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		eng      *formflow.Engine
		before   *domain.State
		failures domain.Failures
	)
	state, err := s.Sessions.Update(r.Context(), id, func(ctx context.Context, current *domain.State) (*domain.State, error) {
		before = current
		e, err := s.registry.Get(ctx, current.WizardID)
		if err != nil {
			return nil, err
		}
		eng = e
		settled, err := s.settle(ctx, eng, current)
		if err != nil {
			return nil, err
		}
		next, f, err := op(ctx, eng, settled)
		failures = f
		if next == nil && settled != current {
			next = settled
		}
		return next, err
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	s.broadcast(eng.Definition(), before, state)

	status := http.StatusOK
	if len(failures) > 0 {
		status = http.StatusUnprocessableEntity
	}
	s.respond(w, status, eng, state, failures)
}

// settle turns a pending state whose delivery stopped before recording its
// outcome into a failed attempt, so the session can be submitted again.
func (s *Server) settle(ctx context.Context, eng *formflow.Engine, state *domain.State) (*domain.State, error) {
	if !s.Sessions.StalePending(state) {
		return state, nil
	}
	return eng.RecoverPending(ctx, state)
}

func (s *Server) respond(w http.ResponseWriter, status int, eng *formflow.Engine, state *domain.State, failures domain.Failures) {
	writeJSON(w, status, runner.Respond(eng, eng.Definition().Redact(state), failures))
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.Logger.Error("request failed", "err", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func (s *Server) sanitize(values map[string]any) (map[string]any, error) {
	if values == nil {
		return nil, nil
	}
	clean, err := s.Sanitizer.SanitizeValue(values)
	if err != nil {
		return nil, err
	}
	return clean.(map[string]any), nil
}

func (s *Server) broadcast(def *schema.Definition, before, after *domain.State) {
	if before == nil || after == nil || before == after {
		return
	}
	diff := domain.Diff(def.Redact(before), def.Redact(after))
	data, err := json.Marshal(diff)
	if err != nil {
		s.Logger.Error("failed to encode state diff", "session_id", after.SessionID, "err", err)
		return
	}
	s.Streams.Broadcast(after.SessionID, string(data))
}
