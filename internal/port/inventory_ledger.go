package port

import "context"

// InventoryLedger is the single source of truth for stock. Reserve must
// be atomic in the backing store: two concurrent reservations for the
// last unit must not both succeed, even across service instances.
type InventoryLedger interface {
	// Reserve atomically decrements available stock, returning false when
	// there is not enough. Products with no inventory record are
	// unmanaged and reserve unconditionally.
	Reserve(ctx context.Context, productID string, quantity int) (bool, error)

	// Release restores stock (cancellation or checkout rollback). Callers
	// must only release reservations they made; double-release is a
	// caller bug, not absorbed here.
	Release(ctx context.Context, productID string, quantity int) error

	// Available is a point-in-time read. The managed flag is false for
	// products without an inventory record.
	Available(ctx context.Context, productID string) (quantity int, managed bool, err error)
}
