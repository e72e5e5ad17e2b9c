package domain

import "time"

// Notification event types emitted on order lifecycle transitions.
const (
	EventOrderCreated               = "order_created"
	EventPaymentSucceeded           = "payment_succeeded"
	EventPaymentPendingVerification = "payment_pending_verification"
	EventOrderShipped               = "order_shipped"
	EventOrderDelivered             = "order_delivered"
	EventOrderCancelled             = "order_cancelled"
)

// NotificationEvent is fire-and-forget: the core emits it and moves on.
// It is not persisted here.
type NotificationEvent struct {
	OrderID      string    `json:"order_id"`
	TrackingCode string    `json:"tracking_code"`
	UserID       string    `json:"user_id"`
	Type         string    `json:"type"`
	CreatedAt    time.Time `json:"created_at"`
}
