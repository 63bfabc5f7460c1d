package ports

import (
	"context"

	"github.com/clubdesk/formflow/pkg/domain"
)

// Submitter is the single external collaborator invoked on final confirmation.
// The engine only interprets success (nil) or failure (non-nil).
type Submitter interface {
	Submit(ctx context.Context, wizardID string, payload domain.Payload) error
}

// SubmitterFunc adapts a plain function to the Submitter interface.
type SubmitterFunc func(ctx context.Context, wizardID string, payload domain.Payload) error

func (f SubmitterFunc) Submit(ctx context.Context, wizardID string, payload domain.Payload) error {
	return f(ctx, wizardID, payload)
}
