package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/remate/marketplace/internal/core/domain"
	"github.com/remate/marketplace/internal/port"
)

const orderColumns = `id, codigo, usuario_id,
	nombre_envio, direccion_envio, ciudad_envio, codigo_postal_envio, telefono_envio,
	metodo_envio, metodo_pago,
	subtotal, costo_envio, impuesto, descuento, total,
	estado, referencia_pago, tarjeta_ultimos, comprobante,
	created_at, fecha_pago, fecha_envio, fecha_entrega, fecha_cancelacion`

// CreateOrder persists the order and its line items in one transaction.
// Line items are embedded in the order and never touched again.
func (m *MySQLAdapter) CreateOrder(ctx context.Context, order *domain.Order) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ordenes (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, NULL, NULL)`,
		order.ID, order.TrackingCode, order.UserID,
		order.Shipping.Name, order.Shipping.Address, order.Shipping.City,
		order.Shipping.PostalCode, order.Shipping.Phone,
		string(order.ShippingMethod), string(order.PaymentMethod),
		order.Subtotal, order.ShippingCost, order.Tax, order.Discount, order.Total,
		string(order.Status), order.PaymentRef, order.CardLastFour, order.ProofRef,
		order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO orden_items (id, orden_id, producto_id, titulo, cantidad, precio_unitario, subtotal)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			item.ID, order.ID, item.ProductID, item.Title, item.Quantity, item.UnitPrice, item.Subtotal,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return tx.Commit()
}

func (m *MySQLAdapter) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	return m.findOrder(ctx, "id = ?", orderID)
}

func (m *MySQLAdapter) FindByTrackingCode(ctx context.Context, code string) (*domain.Order, error) {
	return m.findOrder(ctx, "codigo = ?", code)
}

func (m *MySQLAdapter) findOrder(ctx context.Context, where string, arg any) (*domain.Order, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM ordenes WHERE `+where, arg)

	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT id, orden_id, producto_id, titulo, cantidad, precio_unitario, subtotal
		FROM orden_items WHERE orden_id = ?`, order.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderLineItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Title,
			&item.Quantity, &item.UnitPrice, &item.Subtotal); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return order, nil
}

// ListByUser returns a page of order summaries, newest first. Line
// items are not loaded for list views.
func (m *MySQLAdapter) ListByUser(ctx context.Context, userID string, f port.OrderListFilter) ([]domain.Order, int, error) {
	where := "usuario_id = ?"
	args := []any{userID}
	if f.Status != "" {
		where += " AND estado = ?"
		args = append(args, string(f.Status))
	}

	var total int
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ordenes WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	offset := (f.Page - 1) * f.Limit
	rows, err := m.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM ordenes WHERE `+where+` ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		append(args, f.Limit, offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, total, nil
}

// MarkPaid is a conditional update: zero rows means the order is absent
// or not in a payable state.
func (m *MySQLAdapter) MarkPaid(ctx context.Context, orderID, reference, lastFour string, at time.Time) (bool, error) {
	result, err := m.db.ExecContext(ctx, `
		UPDATE ordenes
		SET estado = ?, referencia_pago = ?, tarjeta_ultimos = ?, fecha_pago = ?
		WHERE id = ? AND estado IN (?, ?)`,
		string(domain.OrderStatusPaid), reference, lastFour, at,
		orderID, string(domain.OrderStatusPending), string(domain.OrderStatusPendingVerification),
	)
	if err != nil {
		return false, fmt.Errorf("mark paid: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (m *MySQLAdapter) MarkPendingVerification(ctx context.Context, orderID, proofRef string, at time.Time) (bool, error) {
	result, err := m.db.ExecContext(ctx, `
		UPDATE ordenes
		SET estado = ?, comprobante = ?
		WHERE id = ? AND estado = ?`,
		string(domain.OrderStatusPendingVerification), proofRef,
		orderID, string(domain.OrderStatusPending),
	)
	if err != nil {
		return false, fmt.Errorf("mark pending verification: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// UpdateStatus transitions the order guarded by its current state and
// stamps the timestamp column matching the target state.
func (m *MySQLAdapter) UpdateStatus(ctx context.Context, orderID string, from []domain.OrderStatus, to domain.OrderStatus, at time.Time) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}

	stampColumn := ""
	switch to {
	case domain.OrderStatusShipped:
		stampColumn = "fecha_envio"
	case domain.OrderStatusDelivered:
		stampColumn = "fecha_entrega"
	case domain.OrderStatusCancelled:
		stampColumn = "fecha_cancelacion"
	}

	set := "estado = ?"
	args := []any{string(to)}
	if stampColumn != "" {
		set += ", " + stampColumn + " = ?"
		args = append(args, at)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(from)), ", ")
	args = append(args, orderID)
	for _, s := range from {
		args = append(args, string(s))
	}

	result, err := m.db.ExecContext(ctx,
		`UPDATE ordenes SET `+set+` WHERE id = ? AND estado IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order                                  domain.Order
		shippingMethod, paymentMethod, status  string
		paymentRef, cardLastFour, proofRef     sql.NullString
		paidAt, shippedAt, deliveredAt, cancAt sql.NullTime
	)
	err := row.Scan(
		&order.ID, &order.TrackingCode, &order.UserID,
		&order.Shipping.Name, &order.Shipping.Address, &order.Shipping.City,
		&order.Shipping.PostalCode, &order.Shipping.Phone,
		&shippingMethod, &paymentMethod,
		&order.Subtotal, &order.ShippingCost, &order.Tax, &order.Discount, &order.Total,
		&status, &paymentRef, &cardLastFour, &proofRef,
		&order.CreatedAt, &paidAt, &shippedAt, &deliveredAt, &cancAt,
	)
	if err != nil {
		return nil, err
	}

	order.ShippingMethod = domain.ShippingMethod(shippingMethod)
	order.PaymentMethod = domain.PaymentMethod(paymentMethod)
	order.Status = domain.OrderStatus(status)
	order.PaymentRef = paymentRef.String
	order.CardLastFour = cardLastFour.String
	order.ProofRef = proofRef.String
	if paidAt.Valid {
		order.PaidAt = &paidAt.Time
	}
	if shippedAt.Valid {
		order.ShippedAt = &shippedAt.Time
	}
	if deliveredAt.Valid {
		order.DeliveredAt = &deliveredAt.Time
	}
	if cancAt.Valid {
		order.CancelledAt = &cancAt.Time
	}
	return &order, nil
}
