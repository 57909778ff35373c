package notify

import (
	"context"

	"github.com/zatekoja/orderdesk/backend/internal/domain/providers"
	"github.com/zatekoja/orderdesk/backend/internal/infrastructure/observability"
)

// LogNotifier records staff-facing outcomes in the service log. The HTTP
// layer returns the same messages to the caller.
type LogNotifier struct{}

// NewLogNotifier creates a log notifier
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

var _ providers.Notifier = (*LogNotifier)(nil)

// Success logs a successful action
func (n *LogNotifier) Success(ctx context.Context, message string) {
	observability.LoggerFromContext(ctx).Info().Str("notification", "success").Msg(message)
}

// Failure logs a failed action
func (n *LogNotifier) Failure(ctx context.Context, message string) {
	observability.LoggerFromContext(ctx).Warn().Str("notification", "failure").Msg(message)
}
