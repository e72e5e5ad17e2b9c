package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/remate/marketplace/internal/core/domain"
	"github.com/remate/marketplace/internal/port"
	"github.com/remate/marketplace/pkg/logging"
)

// TrackingView is the reduced projection served on the public tracking
// endpoint: never the address, payment data, or line item prices.
type TrackingView struct {
	TrackingCode string
	Status       domain.OrderStatus
	ItemCount    int
	Total        decimal.Decimal
	City         string
	CreatedAt    time.Time
	PaidAt       *time.Time
	ShippedAt    *time.Time
	DeliveredAt  *time.Time
	CancelledAt  *time.Time
}

type OrderService struct {
	orders    port.OrderRepository
	inventory port.InventoryLedger
	notifier  port.NotificationEmitter
}

func NewOrderService(orders port.OrderRepository, inventory port.InventoryLedger, notifier port.NotificationEmitter) *OrderService {
	return &OrderService{orders: orders, inventory: inventory, notifier: notifier}
}

// Get returns the full order, owner-scoped.
func (s *OrderService) Get(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.UserID != userID {
		return nil, ErrAccessDenied
	}
	return order, nil
}

func (s *OrderService) List(ctx context.Context, userID string, f port.OrderListFilter) ([]domain.Order, int, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
	orders, total, err := s.orders.ListByUser(ctx, userID, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// Track resolves a public tracking code to its reduced projection.
func (s *OrderService) Track(ctx context.Context, code string) (*TrackingView, error) {
	order, err := s.orders.FindByTrackingCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("find order by code: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return &TrackingView{
		TrackingCode: order.TrackingCode,
		Status:       order.Status,
		ItemCount:    order.ItemCount(),
		Total:        order.Total,
		City:         order.Shipping.City,
		CreatedAt:    order.CreatedAt,
		PaidAt:       order.PaidAt,
		ShippedAt:    order.ShippedAt,
		DeliveredAt:  order.DeliveredAt,
		CancelledAt:  order.CancelledAt,
	}, nil
}

// Cancel moves a pending or paid order to cancelled and restores every
// line item's stock. The conditional update is the race guard: under
// concurrent cancels only one caller releases the stock.
func (s *OrderService) Cancel(ctx context.Context, userID, orderID string) error {
	order, err := s.owned(ctx, userID, orderID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	ok, err := s.orders.UpdateStatus(ctx, orderID, domain.TransitionSources(domain.OrderStatusCancelled), domain.OrderStatusCancelled, now)
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	if !ok {
		return ErrOrderNotFound
	}

	for _, item := range order.Items {
		if err := s.inventory.Release(ctx, item.ProductID, item.Quantity); err != nil {
			logging.Log(logging.Fields{
				Service: "orders", OrderID: orderID, ProductID: item.ProductID,
				Step: "restore_stock", Status: "error", Error: err.Error(),
			})
		}
	}

	order.Status = domain.OrderStatusCancelled
	order.CancelledAt = &now
	s.emit(ctx, order, domain.EventOrderCancelled)
	return nil
}

// ConfirmDelivery moves a shipped order to delivered, owner-only.
func (s *OrderService) ConfirmDelivery(ctx context.Context, userID, orderID string) error {
	order, err := s.owned(ctx, userID, orderID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	ok, err := s.orders.UpdateStatus(ctx, orderID, domain.TransitionSources(domain.OrderStatusDelivered), domain.OrderStatusDelivered, now)
	if err != nil {
		return fmt.Errorf("confirm delivery: %w", err)
	}
	if !ok {
		return ErrOrderNotFound
	}

	order.Status = domain.OrderStatusDelivered
	order.DeliveredAt = &now
	s.emit(ctx, order, domain.EventOrderDelivered)
	return nil
}

// Ship marks an order as shipped. Back-office operation, not
// owner-scoped.
func (s *OrderService) Ship(ctx context.Context, orderID string) error {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("find order: %w", err)
	}
	if order == nil {
		return ErrOrderNotFound
	}

	now := time.Now().UTC()
	ok, err := s.orders.UpdateStatus(ctx, orderID, domain.TransitionSources(domain.OrderStatusShipped), domain.OrderStatusShipped, now)
	if err != nil {
		return fmt.Errorf("ship order: %w", err)
	}
	if !ok {
		return ErrOrderNotFound
	}

	order.Status = domain.OrderStatusShipped
	order.ShippedAt = &now
	s.emit(ctx, order, domain.EventOrderShipped)
	return nil
}

func (s *OrderService) owned(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.UserID != userID {
		return nil, ErrAccessDenied
	}
	return order, nil
}

func (s *OrderService) emit(ctx context.Context, order *domain.Order, eventType string) {
	event := domain.NotificationEvent{
		OrderID:      order.ID,
		TrackingCode: order.TrackingCode,
		UserID:       order.UserID,
		Type:         eventType,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.notifier.Emit(ctx, event); err != nil {
		logging.Log(logging.Fields{
			Service: "orders", OrderID: order.ID,
			Step: "emit_" + eventType, Status: "error", Error: err.Error(),
		})
	}
}
