package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/remate/marketplace/internal/core/domain"
)

// MySQLAdapter is the source of truth for catalog, inventory, carts and
// orders. One struct implements all four ports; the files mysql_cart.go
// and mysql_order.go hold the cart and order halves.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// FindProduct implements port.CatalogReader. A NULL estado column reads
// as active, matching the legacy rows that predate the lifecycle field.
func (m *MySQLAdapter) FindProduct(ctx context.Context, productID string) (*domain.Product, error) {
	var (
		p     domain.Product
		state sql.NullString
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT id, titulo, precio, estado
		FROM productos WHERE id = ?`, productID,
	).Scan(&p.ID, &p.Title, &p.UnitPrice, &state)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}

	if state.Valid {
		p.State = domain.ProductState(state.String)
	} else {
		p.State = domain.ProductActive
	}
	return &p, nil
}

// Reserve implements port.InventoryLedger. The conditional UPDATE is the
// atomicity boundary: the decrement only happens when enough stock is
// available, in one statement, so concurrent callers cannot oversell
// regardless of how many service instances share the database.
func (m *MySQLAdapter) Reserve(ctx context.Context, productID string, quantity int) (bool, error) {
	result, err := m.db.ExecContext(ctx, `
		UPDATE inventario
		SET cantidad_disponible = cantidad_disponible - ?,
		    cantidad_reservada = cantidad_reservada + ?,
		    updated_at = NOW()
		WHERE producto_id = ? AND cantidad_disponible >= ?`,
		quantity, quantity, productID, quantity,
	)
	if err != nil {
		return false, fmt.Errorf("reserve stock: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows > 0 {
		return true, nil
	}

	// Zero rows: either insufficient stock, or no inventory record at
	// all. Unmanaged products reserve unconditionally.
	var exists bool
	err = m.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM inventario WHERE producto_id = ?)`, productID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check inventory record: %w", err)
	}
	return !exists, nil
}

// Release restores previously reserved stock. A no-op for unmanaged
// products.
func (m *MySQLAdapter) Release(ctx context.Context, productID string, quantity int) error {
	_, err := m.db.ExecContext(ctx, `
		UPDATE inventario
		SET cantidad_disponible = cantidad_disponible + ?,
		    cantidad_reservada = GREATEST(cantidad_reservada - ?, 0),
		    updated_at = NOW()
		WHERE producto_id = ?`,
		quantity, quantity, productID,
	)
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) Available(ctx context.Context, productID string) (int, bool, error) {
	var available int
	err := m.db.QueryRowContext(ctx, `
		SELECT cantidad_disponible FROM inventario WHERE producto_id = ?`, productID,
	).Scan(&available)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query inventory: %w", err)
	}
	return available, true, nil
}

// SetStock seeds or resets an inventory record. Used by wiring and
// tests, not by the checkout path.
func (m *MySQLAdapter) SetStock(ctx context.Context, productID string, quantity int) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO inventario (producto_id, cantidad_disponible, cantidad_reservada, updated_at)
		VALUES (?, ?, 0, NOW())
		ON DUPLICATE KEY UPDATE cantidad_disponible = ?, cantidad_reservada = 0, updated_at = NOW()`,
		productID, quantity, quantity,
	)
	if err != nil {
		return fmt.Errorf("set stock: %w", err)
	}
	return nil
}
