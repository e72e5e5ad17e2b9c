package port

import (
	"context"
	"time"

	"github.com/remate/marketplace/internal/core/domain"
)

type OrderListFilter struct {
	Page   int
	Limit  int
	Status domain.OrderStatus // empty = all
}

type OrderRepository interface {
	// CreateOrder persists the order and its line items in one
	// transaction.
	CreateOrder(ctx context.Context, order *domain.Order) error

	// FindByID returns the full order or nil when absent.
	FindByID(ctx context.Context, orderID string) (*domain.Order, error)

	// FindByTrackingCode returns the full order or nil. Callers serving
	// the public tracking endpoint must project it down themselves.
	FindByTrackingCode(ctx context.Context, code string) (*domain.Order, error)

	// ListByUser returns one page of the user's orders (line items not
	// loaded) plus the total match count.
	ListByUser(ctx context.Context, userID string, f OrderListFilter) ([]domain.Order, int, error)

	// MarkPaid transitions the order to paid and records the payment
	// reference, guarded by a conditional update on the source states.
	// Returns false when the order is absent or not in a payable state.
	MarkPaid(ctx context.Context, orderID, reference, lastFour string, at time.Time) (bool, error)

	// MarkPendingVerification moves a pending order to
	// pendiente_verificacion and attaches the transfer proof reference.
	MarkPendingVerification(ctx context.Context, orderID, proofRef string, at time.Time) (bool, error)

	// UpdateStatus transitions the order to the target state only if its
	// current state is one of from, stamping the matching timestamp
	// column. Returns false when no row matched.
	UpdateStatus(ctx context.Context, orderID string, from []domain.OrderStatus, to domain.OrderStatus, at time.Time) (bool, error)
}
