package port

import (
	"context"

	"github.com/remate/marketplace/internal/core/domain"
)

// NotificationEmitter is a fire-and-forget event sink. Emit errors are
// logged by callers, never propagated into business results.
type NotificationEmitter interface {
	Emit(ctx context.Context, event domain.NotificationEvent) error
}
