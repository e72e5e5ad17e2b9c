package port

import (
	"context"

	"github.com/remate/marketplace/internal/core/domain"
)

type CatalogReader interface {
	// FindProduct returns the product or nil when it does not exist.
	FindProduct(ctx context.Context, productID string) (*domain.Product, error)
}
