package port

import (
	"context"

	"github.com/remate/marketplace/internal/core/domain"
)

type CartRepository interface {
	// FindByUser returns the user's active cart with items, or nil when
	// the user has none.
	FindByUser(ctx context.Context, userID string) (*domain.Cart, error)

	// Create persists a new empty cart.
	Create(ctx context.Context, cart *domain.Cart) error

	// FindItem returns a cart item or nil when absent.
	FindItem(ctx context.Context, itemID string) (*domain.CartItem, error)

	// SaveItem inserts or updates a line and touches the cart's
	// updated_at timestamp.
	SaveItem(ctx context.Context, item *domain.CartItem) error

	RemoveItem(ctx context.Context, itemID string) error

	// Clear removes every item from the user's cart.
	Clear(ctx context.Context, userID string) error
}
