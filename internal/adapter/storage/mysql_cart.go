package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/remate/marketplace/internal/core/domain"
)

func (m *MySQLAdapter) FindByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart
	err := m.db.QueryRowContext(ctx, `
		SELECT id, usuario_id, created_at, updated_at
		FROM carritos WHERE usuario_id = ?`, userID,
	).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT id, carrito_id, producto_id, titulo, cantidad, precio_unitario
		FROM carrito_items WHERE carrito_id = ? ORDER BY created_at`, cart.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Title, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}
	return &cart, nil
}

func (m *MySQLAdapter) Create(ctx context.Context, cart *domain.Cart) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO carritos (id, usuario_id, created_at, updated_at)
		VALUES (?, ?, ?, ?)`,
		cart.ID, cart.UserID, cart.CreatedAt, cart.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert cart: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) FindItem(ctx context.Context, itemID string) (*domain.CartItem, error) {
	var item domain.CartItem
	err := m.db.QueryRowContext(ctx, `
		SELECT id, carrito_id, producto_id, titulo, cantidad, precio_unitario
		FROM carrito_items WHERE id = ?`, itemID,
	).Scan(&item.ID, &item.CartID, &item.ProductID, &item.Title, &item.Quantity, &item.UnitPrice)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query cart item: %w", err)
	}
	return &item, nil
}

// SaveItem upserts the line and touches the cart timestamp in one
// transaction.
func (m *MySQLAdapter) SaveItem(ctx context.Context, item *domain.CartItem) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO carrito_items (id, carrito_id, producto_id, titulo, cantidad, precio_unitario, created_at)
		VALUES (?, ?, ?, ?, ?, ?, NOW())
		ON DUPLICATE KEY UPDATE cantidad = ?, precio_unitario = ?, titulo = ?`,
		item.ID, item.CartID, item.ProductID, item.Title, item.Quantity, item.UnitPrice,
		item.Quantity, item.UnitPrice, item.Title,
	)
	if err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE carritos SET updated_at = NOW() WHERE id = ?`, item.CartID); err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}

	return tx.Commit()
}

func (m *MySQLAdapter) RemoveItem(ctx context.Context, itemID string) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var cartID string
	err = tx.QueryRowContext(ctx, `
		SELECT carrito_id FROM carrito_items WHERE id = ?`, itemID,
	).Scan(&cartID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("query cart item: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM carrito_items WHERE id = ?`, itemID); err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE carritos SET updated_at = NOW() WHERE id = ?`, cartID); err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}

	return tx.Commit()
}

func (m *MySQLAdapter) Clear(ctx context.Context, userID string) error {
	_, err := m.db.ExecContext(ctx, `
		DELETE ci FROM carrito_items ci
		JOIN carritos c ON c.id = ci.carrito_id
		WHERE c.usuario_id = ?`, userID,
	)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	_, err = m.db.ExecContext(ctx, `
		UPDATE carritos SET updated_at = NOW() WHERE usuario_id = ?`, userID,
	)
	if err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	return nil
}
