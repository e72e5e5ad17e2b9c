package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/remate/marketplace/internal/core/domain"
	"github.com/remate/marketplace/internal/port"
	"github.com/remate/marketplace/pkg/logging"
)

const serviceName = "checkout"

type CheckoutInput struct {
	Shipping       domain.ShippingAddress
	ShippingMethod domain.ShippingMethod
	PaymentMethod  domain.PaymentMethod
	Card           *domain.CardDetails
	TransferProof  string
	Discount       decimal.Decimal

	// IdempotencyKey, when set, rejects a repeated submission of the
	// same checkout before any stock is touched.
	IdempotencyKey string
}

// Payment outcome statuses returned alongside the created order.
const (
	PaymentStatusPaid                = "pagado"
	PaymentStatusFailed              = "fallido"
	PaymentStatusPendingVerification = "pendiente_verificacion"
	PaymentStatusPending             = "pendiente"
)

type PaymentOutcome struct {
	Status    string
	Reference string
	LastFour  string
	Detail    string
}

type CheckoutResult struct {
	Order   *domain.Order
	Payment PaymentOutcome
}

type CheckoutService struct {
	orders    port.OrderRepository
	carts     port.CartRepository
	catalog   port.CatalogReader
	inventory port.InventoryLedger
	payments  port.PaymentAdapter
	notifier  port.NotificationEmitter
	cache     port.CacheRepository // nil disables idempotency checks
}

func NewCheckoutService(
	orders port.OrderRepository,
	carts port.CartRepository,
	catalog port.CatalogReader,
	inventory port.InventoryLedger,
	payments port.PaymentAdapter,
	notifier port.NotificationEmitter,
	cache port.CacheRepository,
) *CheckoutService {
	return &CheckoutService{
		orders:    orders,
		carts:     carts,
		catalog:   catalog,
		inventory: inventory,
		payments:  payments,
		notifier:  notifier,
		cache:     cache,
	}
}

// Checkout turns the user's cart into an order. Stock is reserved line
// by line; if any line cannot be reserved, every reservation made in
// this attempt is released before returning, so a failed checkout never
// consumes stock. A card decline after the order exists does NOT roll
// back inventory; the order stays pending for a retried payment.
func (s *CheckoutService) Checkout(ctx context.Context, userID string, in CheckoutInput) (*CheckoutResult, error) {
	start := time.Now()

	if !in.Shipping.Complete() {
		return nil, ErrMissingShippingInfo
	}
	if !in.ShippingMethod.IsValid() {
		in.ShippingMethod = domain.ShippingStandard
	}
	if !in.PaymentMethod.IsValid() {
		in.PaymentMethod = domain.PaymentCash
	}

	if s.cache != nil && in.IdempotencyKey != "" {
		ok, err := s.cache.SetIdempotency(ctx, fmt.Sprintf("checkout:%s:%s", userID, in.IdempotencyKey))
		if err != nil {
			return nil, fmt.Errorf("idempotency check: %w", err)
		}
		if !ok {
			return nil, ErrDuplicateRequest
		}
	}

	cart, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find cart: %w", err)
	}
	if cart == nil || cart.IsEmpty() {
		return nil, ErrEmptyOrder
	}

	items, err := s.reserveAll(ctx, userID, cart.Items)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		ID:             uuid.NewString(),
		TrackingCode:   domain.NewTrackingCode(),
		UserID:         userID,
		Items:          items,
		Shipping:       in.Shipping,
		ShippingMethod: in.ShippingMethod,
		PaymentMethod:  in.PaymentMethod,
		Discount:       in.Discount,
		Status:         domain.OrderStatusPending,
		CreatedAt:      time.Now().UTC(),
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	order.ComputeTotals()

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		// The order does not exist, so the reservations must not survive.
		s.releaseAll(ctx, items)
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := s.carts.Clear(ctx, userID); err != nil {
		// The order is already placed; a stale cart is recoverable.
		logging.Log(logging.Fields{
			Service: serviceName, OrderID: order.ID, UserID: userID,
			Step: "clear_cart", Status: "error", Error: err.Error(),
		})
	}

	s.emit(ctx, order, domain.EventOrderCreated)

	outcome := s.executePayment(ctx, order, in)

	logging.Log(logging.Fields{
		Service: serviceName, OrderID: order.ID, UserID: userID,
		Step: "checkout", Status: outcome.Status,
		DurationMS: time.Since(start).Milliseconds(),
	})

	return &CheckoutResult{Order: order, Payment: outcome}, nil
}

// reserveAll re-verifies every product and reserves its stock. On any
// failure it releases the reservations already made in this attempt and
// returns without a single unit consumed.
func (s *CheckoutService) reserveAll(ctx context.Context, userID string, cartItems []domain.CartItem) ([]domain.OrderLineItem, error) {
	type reservation struct {
		productID string
		quantity  int
	}
	var reserved []reservation

	rollback := func() {
		for i := len(reserved) - 1; i >= 0; i-- {
			if err := s.inventory.Release(ctx, reserved[i].productID, reserved[i].quantity); err != nil {
				logging.Log(logging.Fields{
					Service: serviceName, UserID: userID, ProductID: reserved[i].productID,
					Step: "rollback_reservation", Status: "error", Error: err.Error(),
				})
			}
		}
	}

	items := make([]domain.OrderLineItem, 0, len(cartItems))
	for _, ci := range cartItems {
		product, err := s.catalog.FindProduct(ctx, ci.ProductID)
		if err != nil {
			rollback()
			return nil, fmt.Errorf("find product: %w", err)
		}
		if product == nil || !product.Purchasable() {
			rollback()
			return nil, ErrProductUnavailable
		}

		ok, err := s.inventory.Reserve(ctx, ci.ProductID, ci.Quantity)
		if err != nil {
			rollback()
			return nil, fmt.Errorf("reserve stock: %w", err)
		}
		if !ok {
			rollback()
			return nil, ErrInsufficientStock
		}
		reserved = append(reserved, reservation{productID: ci.ProductID, quantity: ci.Quantity})

		// Price comes from the cart line, frozen here into the order.
		items = append(items, domain.OrderLineItem{
			ID:        uuid.NewString(),
			ProductID: ci.ProductID,
			Title:     ci.Title,
			Quantity:  ci.Quantity,
			UnitPrice: ci.UnitPrice,
		})
	}
	return items, nil
}

func (s *CheckoutService) releaseAll(ctx context.Context, items []domain.OrderLineItem) {
	for _, item := range items {
		if err := s.inventory.Release(ctx, item.ProductID, item.Quantity); err != nil {
			logging.Log(logging.Fields{
				Service: serviceName, ProductID: item.ProductID,
				Step: "release_stock", Status: "error", Error: err.Error(),
			})
		}
	}
}

func (s *CheckoutService) executePayment(ctx context.Context, order *domain.Order, in CheckoutInput) PaymentOutcome {
	switch order.PaymentMethod {
	case domain.PaymentCard:
		return s.payCard(ctx, order, in.Card)
	case domain.PaymentTransfer:
		return s.payTransfer(ctx, order, in.TransferProof)
	default:
		// Cash on delivery: no adapter call, fulfillment on trust.
		return PaymentOutcome{Status: PaymentStatusPending, Detail: "pago contra entrega"}
	}
}

func (s *CheckoutService) payCard(ctx context.Context, order *domain.Order, card *domain.CardDetails) PaymentOutcome {
	if card == nil {
		return PaymentOutcome{Status: PaymentStatusFailed, Detail: "datos de tarjeta requeridos"}
	}

	result, err := s.payments.AuthorizeCard(ctx, *card, order.Total)
	if err != nil {
		// Gateway failure: the order stays pending, inventory stays
		// committed. Retry is the caller's concern.
		logging.Log(logging.Fields{
			Service: serviceName, OrderID: order.ID,
			Step: "authorize_card", Status: "error", Error: err.Error(),
		})
		return PaymentOutcome{Status: PaymentStatusFailed, Detail: "error del procesador de pagos"}
	}
	if !result.Approved {
		return PaymentOutcome{Status: PaymentStatusFailed, Detail: result.Declined}
	}

	now := time.Now().UTC()
	ok, err := s.orders.MarkPaid(ctx, order.ID, result.Reference, result.LastFour, now)
	if err != nil || !ok {
		detail := "no se pudo registrar el pago"
		if err != nil {
			logging.Log(logging.Fields{
				Service: serviceName, OrderID: order.ID,
				Step: "mark_paid", Status: "error", Error: err.Error(),
			})
		}
		return PaymentOutcome{Status: PaymentStatusFailed, Reference: result.Reference, Detail: detail}
	}

	order.Status = domain.OrderStatusPaid
	order.PaymentRef = result.Reference
	order.CardLastFour = result.LastFour
	order.PaidAt = &now

	s.emit(ctx, order, domain.EventPaymentSucceeded)

	return PaymentOutcome{Status: PaymentStatusPaid, Reference: result.Reference, LastFour: result.LastFour}
}

func (s *CheckoutService) payTransfer(ctx context.Context, order *domain.Order, proofRef string) PaymentOutcome {
	if proofRef == "" {
		proofRef = "comprobante-pendiente"
	}
	if err := s.payments.RecordTransferProof(ctx, order.ID, proofRef); err != nil {
		logging.Log(logging.Fields{
			Service: serviceName, OrderID: order.ID,
			Step: "record_transfer_proof", Status: "error", Error: err.Error(),
		})
		return PaymentOutcome{Status: PaymentStatusFailed, Detail: "no se pudo registrar el comprobante"}
	}

	now := time.Now().UTC()
	ok, err := s.orders.MarkPendingVerification(ctx, order.ID, proofRef, now)
	if err != nil {
		logging.Log(logging.Fields{
			Service: serviceName, OrderID: order.ID,
			Step: "mark_pending_verification", Status: "error", Error: err.Error(),
		})
	}
	if err == nil && ok {
		order.Status = domain.OrderStatusPendingVerification
		order.ProofRef = proofRef
		s.emit(ctx, order, domain.EventPaymentPendingVerification)
	}

	return PaymentOutcome{Status: PaymentStatusPendingVerification, Detail: "transferencia en verificación"}
}

func (s *CheckoutService) emit(ctx context.Context, order *domain.Order, eventType string) {
	event := domain.NotificationEvent{
		OrderID:      order.ID,
		TrackingCode: order.TrackingCode,
		UserID:       order.UserID,
		Type:         eventType,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.notifier.Emit(ctx, event); err != nil {
		logging.Log(logging.Fields{
			Service: serviceName, OrderID: order.ID,
			Step: "emit_" + eventType, Status: "error", Error: err.Error(),
		})
	}
}
