package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/remate/marketplace/internal/core/domain"
	"github.com/remate/marketplace/internal/port"
)

type CartService struct {
	carts     port.CartRepository
	catalog   port.CatalogReader
	inventory port.InventoryLedger
}

func NewCartService(carts port.CartRepository, catalog port.CatalogReader, inventory port.InventoryLedger) *CartService {
	return &CartService{carts: carts, catalog: catalog, inventory: inventory}
}

// Get returns the user's cart, or an empty one if none exists yet. The
// cart is only persisted on the first mutation.
func (s *CartService) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find cart: %w", err)
	}
	if cart == nil {
		return &domain.Cart{UserID: userID}, nil
	}
	return cart, nil
}

// AddItem adds a product to the cart, merging into an existing line.
// Stock is validated against the merged total quantity, not the delta,
// and the line is re-priced from the current catalog price.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.catalog.FindProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("find product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if !product.Purchasable() {
		return nil, ErrProductUnavailable
	}

	cart, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find cart: %w", err)
	}
	if cart == nil {
		cart = &domain.Cart{
			ID:        uuid.NewString(),
			UserID:    userID,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		if err := s.carts.Create(ctx, cart); err != nil {
			return nil, fmt.Errorf("create cart: %w", err)
		}
	}

	item := cart.Item(productID)
	newTotal := quantity
	if item != nil {
		newTotal += item.Quantity
	}
	if err := s.checkStock(ctx, productID, newTotal); err != nil {
		return nil, err
	}

	if item == nil {
		item = &domain.CartItem{
			ID:        uuid.NewString(),
			CartID:    cart.ID,
			ProductID: productID,
			Title:     product.Title,
		}
	}
	item.Quantity = newTotal
	item.UnitPrice = product.UnitPrice

	if err := s.carts.SaveItem(ctx, item); err != nil {
		return nil, fmt.Errorf("save cart item: %w", err)
	}
	return item, nil
}

// UpdateItem replaces a line's quantity, re-pricing it from the catalog.
func (s *CartService) UpdateItem(ctx context.Context, userID, itemID string, quantity int) (*domain.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	product, err := s.catalog.FindProduct(ctx, item.ProductID)
	if err != nil {
		return nil, fmt.Errorf("find product: %w", err)
	}
	if product == nil || !product.Purchasable() {
		return nil, ErrProductUnavailable
	}

	if err := s.checkStock(ctx, item.ProductID, quantity); err != nil {
		return nil, err
	}

	item.Quantity = quantity
	item.UnitPrice = product.UnitPrice

	if err := s.carts.SaveItem(ctx, item); err != nil {
		return nil, fmt.Errorf("save cart item: %w", err)
	}
	return item, nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) error {
	if _, err := s.ownedItem(ctx, userID, itemID); err != nil {
		return err
	}
	if err := s.carts.RemoveItem(ctx, itemID); err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	return nil
}

func (s *CartService) Clear(ctx context.Context, userID string) error {
	if err := s.carts.Clear(ctx, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// checkStock is a point-in-time availability read; the binding check
// happens at checkout via Reserve.
func (s *CartService) checkStock(ctx context.Context, productID string, quantity int) error {
	available, managed, err := s.inventory.Available(ctx, productID)
	if err != nil {
		return fmt.Errorf("read inventory: %w", err)
	}
	if managed && available < quantity {
		return ErrInsufficientStock
	}
	return nil
}

func (s *CartService) ownedItem(ctx context.Context, userID, itemID string) (*domain.CartItem, error) {
	item, err := s.carts.FindItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("find cart item: %w", err)
	}
	if item == nil {
		return nil, ErrCartItemNotFound
	}
	cart, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find cart: %w", err)
	}
	if cart == nil || cart.ID != item.CartID {
		return nil, ErrCartItemNotFound
	}
	return item, nil
}
