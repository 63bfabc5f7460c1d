package observability

import (
	"context"
	"log/slog"

	"github.com/clubdesk/formflow/pkg/domain"
)

// LogHooks returns lifecycle hooks that write one structured record per event.
// Field values are never logged, only names and reasons.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			logger.InfoContext(ctx, "step_enter", "session_id", e.SessionID, "step", e.StepID, "index", e.StepIndex)
		},
		OnStepLeave: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step_leave", "session_id", e.SessionID, "step", e.StepID)
		},
		OnValidationFailed: func(ctx context.Context, e *domain.StepEvent) {
			logger.InfoContext(ctx, "validation_failed",
				"session_id", e.SessionID,
				"step", e.StepID,
				"fields", e.Failures.Fields(),
			)
		},
		OnSubmit: func(ctx context.Context, e *domain.SubmitEvent) {
			logger.InfoContext(ctx, "submit", "session_id", e.SessionID)
		},
		OnSubmitResult: func(ctx context.Context, e *domain.SubmitEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "submit_result", "session_id", e.SessionID, "duration", e.Duration, "err", e.Err)
				return
			}
			logger.InfoContext(ctx, "submit_result", "session_id", e.SessionID, "duration", e.Duration)
		},
	}
}
