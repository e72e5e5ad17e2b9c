package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending             OrderStatus = "pendiente"
	OrderStatusPendingVerification OrderStatus = "pendiente_verificacion"
	OrderStatusPaid                OrderStatus = "pagado"
	OrderStatusShipped             OrderStatus = "enviado"
	OrderStatusDelivered           OrderStatus = "entregado"
	OrderStatusCancelled           OrderStatus = "cancelado"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPendingVerification, OrderStatusPaid,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no transition leaves this state.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

type PaymentMethod string

const (
	PaymentCard     PaymentMethod = "tarjeta"
	PaymentTransfer PaymentMethod = "transferencia"
	PaymentCash     PaymentMethod = "efectivo"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentCard, PaymentTransfer, PaymentCash:
		return true
	default:
		return false
	}
}

// ShippingAddress is copied into the order at creation so later profile
// edits cannot alter a placed order.
type ShippingAddress struct {
	Name       string
	Address    string
	City       string
	PostalCode string
	Phone      string
}

func (a ShippingAddress) Complete() bool {
	return a.Name != "" && a.Address != "" && a.City != "" &&
		a.PostalCode != "" && a.Phone != ""
}

// OrderLineItem is a frozen snapshot of one product at order creation.
// It is a historical record, never a live view of the catalog.
type OrderLineItem struct {
	ID        string
	OrderID   string
	ProductID string
	Title     string
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

type Order struct {
	ID           string
	TrackingCode string
	UserID       string
	Items        []OrderLineItem
	Shipping     ShippingAddress

	ShippingMethod ShippingMethod
	PaymentMethod  PaymentMethod

	Subtotal     decimal.Decimal
	ShippingCost decimal.Decimal
	Tax          decimal.Decimal
	Discount     decimal.Decimal
	Total        decimal.Decimal

	Status       OrderStatus
	PaymentRef   string
	CardLastFour string
	ProofRef     string

	CreatedAt   time.Time
	PaidAt      *time.Time
	ShippedAt   *time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time
}

func (o *Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// CanTransition reports whether the order state machine permits moving
// from the current state to the target. The authoritative guard is the
// storage layer's conditional update; this is the in-memory mirror.
func (o *Order) CanTransition(to OrderStatus) bool {
	for _, from := range TransitionSources(to) {
		if o.Status == from {
			return true
		}
	}
	return false
}

// TransitionSources returns the states a transition to the target state
// is permitted from.
func TransitionSources(to OrderStatus) []OrderStatus {
	switch to {
	case OrderStatusPendingVerification:
		return []OrderStatus{OrderStatusPending}
	case OrderStatusPaid:
		return []OrderStatus{OrderStatusPending, OrderStatusPendingVerification}
	case OrderStatusShipped:
		// Cash-on-delivery orders ship while still pending.
		return []OrderStatus{OrderStatusPending, OrderStatusPaid}
	case OrderStatusDelivered:
		return []OrderStatus{OrderStatusShipped}
	case OrderStatusCancelled:
		return []OrderStatus{OrderStatusPending, OrderStatusPaid}
	default:
		return nil
	}
}
