package notify

import (
	"context"

	"github.com/remate/marketplace/internal/core/domain"
	"github.com/remate/marketplace/pkg/logging"
)

// LogEmitter writes events to the structured log. Used when Kafka is
// not configured.
type LogEmitter struct{}

func NewLogEmitter() *LogEmitter {
	return &LogEmitter{}
}

func (e *LogEmitter) Emit(ctx context.Context, event domain.NotificationEvent) error {
	logging.Log(logging.Fields{
		Service: "notifications",
		OrderID: event.OrderID,
		UserID:  event.UserID,
		Step:    "emit",
		Status:  event.Type,
	})
	return nil
}
