package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/runner"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps engine and store errors to HTTP status codes.
func statusFor(err error) int {
	var se *domain.SubmissionError
	switch {
	case errors.As(err, &se):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrWizardNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnknownField), errors.Is(err, domain.ErrInvalidValue),
		errors.Is(err, runner.ErrInputTooLarge), errors.Is(err, runner.ErrInvalidUTF8):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSubmissionPending), errors.Is(err, domain.ErrAlreadySubmitted),
		errors.Is(err, domain.ErrOutOfRange), errors.Is(err, domain.ErrNotFinalStep),
		errors.Is(err, domain.ErrNoSubmissionPending), errors.Is(err, errSessionExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
