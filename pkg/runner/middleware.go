package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/clubdesk/formflow/pkg/domain"
)

// ErrSubmitCancelled is recorded as the submission error when a guard declines.
var ErrSubmitCancelled = errors.New("submission cancelled by user")

// SubmitGuard runs after the final gate passed and before the payload is
// delivered. It returns false to cancel the submission.
type SubmitGuard func(ctx context.Context, state *domain.State, payload domain.Payload) (bool, error)

// Review renders the lines shown before asking for confirmation.
type Review func(state *domain.State, payload domain.Payload) []string

// MultiGuard chains guards; the first refusal wins.
func MultiGuard(guards ...SubmitGuard) SubmitGuard {
	return func(ctx context.Context, state *domain.State, payload domain.Payload) (bool, error) {
		for _, guard := range guards {
			ok, err := guard(ctx, state, payload)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}
}

// ConfirmationGuard shows a review through the handler and asks the user to
// confirm. A nil review lists the payload.
func ConfirmationGuard(handler IOHandler, review Review) SubmitGuard {
	if review == nil {
		review = PayloadReview
	}
	return func(ctx context.Context, state *domain.State, payload domain.Payload) (bool, error) {
		msg := "Please review:\n" + strings.Join(review(state, payload), "\n")
		if err := handler.SystemOutput(ctx, msg); err != nil {
			return false, err
		}

		input, err := handler.Input(ctx, domain.FieldView{
			Name:     "confirm",
			Label:    "Submit now?",
			Kind:     domain.KindBoolean,
			Visible:  true,
			Required: true,
		})
		if err != nil {
			return false, err
		}

		input = strings.TrimSpace(strings.ToLower(input))
		return input == "y" || input == "yes", nil
	}
}

// AutoApprove allows every submission.
func AutoApprove() SubmitGuard {
	return func(context.Context, *domain.State, domain.Payload) (bool, error) {
		return true, nil
	}
}

// PayloadReview lists payload entries in key order.
func PayloadReview(_ *domain.State, payload domain.Payload) []string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("  %s: %s", k, domain.AsString(payload[k])))
	}
	return lines
}
