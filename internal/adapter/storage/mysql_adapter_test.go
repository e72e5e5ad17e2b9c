package storage

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/remate/marketplace/internal/core/domain"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/remate?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	return db
}

func TestReserve_Success(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	// Setup
	if err := adapter.SetStock(ctx, "test-item", 10); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	ok, err := adapter.Reserve(ctx, "test-item", 3)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if !ok {
		t.Error("expected success")
	}

	// Verify both counters moved
	var available, reserved int
	db.QueryRowContext(ctx, `
		SELECT cantidad_disponible, cantidad_reservada
		FROM inventario WHERE producto_id = 'test-item'`).Scan(&available, &reserved)
	if available != 7 {
		t.Errorf("expected available 7, got %d", available)
	}
	if reserved != 3 {
		t.Errorf("expected reserved 3, got %d", reserved)
	}
}

func TestReserve_InsufficientStock(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	// Setup
	if err := adapter.SetStock(ctx, "scarce-item", 2); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	ok, err := adapter.Reserve(ctx, "scarce-item", 5)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if ok {
		t.Error("expected failure due to insufficient stock")
	}

	// Verify stock unchanged
	var available int
	db.QueryRowContext(ctx, `
		SELECT cantidad_disponible FROM inventario WHERE producto_id = 'scarce-item'`).Scan(&available)
	if available != 2 {
		t.Errorf("expected available 2, got %d", available)
	}
}

func TestReserve_UnmanagedProduct(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	// Setup - ensure no inventory record exists
	db.ExecContext(ctx, `DELETE FROM inventario WHERE producto_id = 'untracked-item'`)

	ok, err := adapter.Reserve(ctx, "untracked-item", 100)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if !ok {
		t.Error("expected unmanaged product to reserve")
	}
}

func TestReserve_Concurrent(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	initialStock := 20
	totalRequests := 50

	// Setup
	if err := adapter.SetStock(ctx, "concurrent-item", initialStock); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := adapter.Reserve(ctx, "concurrent-item", 1)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if ok {
				successCount.Add(1)
			}
		}()
	}

	wg.Wait()

	if successCount.Load() != int32(initialStock) {
		t.Errorf("expected %d successes, got %d", initialStock, successCount.Load())
	}

	var available int
	db.QueryRowContext(ctx, `
		SELECT cantidad_disponible FROM inventario WHERE producto_id = 'concurrent-item'`).Scan(&available)
	if available != 0 {
		t.Errorf("expected available 0, got %d", available)
	}
}

func TestRelease(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	// Setup - reserve first so there is something to release
	if err := adapter.SetStock(ctx, "release-item", 10); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if ok, _ := adapter.Reserve(ctx, "release-item", 4); !ok {
		t.Fatal("setup reserve failed")
	}

	if err := adapter.Release(ctx, "release-item", 4); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	var available, reserved int
	db.QueryRowContext(ctx, `
		SELECT cantidad_disponible, cantidad_reservada
		FROM inventario WHERE producto_id = 'release-item'`).Scan(&available, &reserved)
	if available != 10 {
		t.Errorf("expected available 10, got %d", available)
	}
	if reserved != 0 {
		t.Errorf("expected reserved 0, got %d", reserved)
	}
}

func TestAvailable_NotFound(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	db.ExecContext(ctx, `DELETE FROM inventario WHERE producto_id = 'missing-item'`)

	qty, managed, err := adapter.Available(ctx, "missing-item")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if managed || qty != 0 {
		t.Errorf("expected (0, false), got (%d, %v)", qty, managed)
	}
}

func TestFindProduct_NotFound(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	p, err := adapter.FindProduct(ctx, "nonexistent-product")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != nil {
		t.Error("expected nil for nonexistent product")
	}
}

func testOrder() *domain.Order {
	now := time.Now().Truncate(time.Second)
	order := &domain.Order{
		ID:           uuid.NewString(),
		TrackingCode: domain.NewTrackingCode(),
		UserID:       "test-user",
		Shipping: domain.ShippingAddress{
			Name:       "Ana Torres",
			Address:    "Av. Siempre Viva 742",
			City:       "Lima",
			PostalCode: "15001",
			Phone:      "999888777",
		},
		ShippingMethod: domain.ShippingStandard,
		PaymentMethod:  domain.PaymentCash,
		Status:         domain.OrderStatusPending,
		CreatedAt:      now,
		Items: []domain.OrderLineItem{
			{
				ID:        uuid.NewString(),
				ProductID: "test-item",
				Title:     "producto de prueba",
				Quantity:  2,
				UnitPrice: decimal.NewFromInt(10),
			},
		},
	}
	order.Items[0].OrderID = order.ID
	order.ComputeTotals()
	return order
}

func TestCreateOrder_Roundtrip(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	order := testOrder()
	if err := adapter.CreateOrder(ctx, order); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	defer func() {
		db.ExecContext(ctx, `DELETE FROM orden_items WHERE orden_id = ?`, order.ID)
		db.ExecContext(ctx, `DELETE FROM ordenes WHERE id = ?`, order.ID)
	}()

	got, err := adapter.FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if got == nil {
		t.Fatal("order not found after create")
	}
	if got.TrackingCode != order.TrackingCode {
		t.Errorf("expected code %s, got %s", order.TrackingCode, got.TrackingCode)
	}
	if got.Status != domain.OrderStatusPending {
		t.Errorf("expected pendiente, got %s", got.Status)
	}
	if len(got.Items) != 1 || got.Items[0].Quantity != 2 {
		t.Errorf("unexpected items: %+v", got.Items)
	}
	if !got.Total.Equal(order.Total) {
		t.Errorf("expected total %s, got %s", order.Total, got.Total)
	}

	// Lookup by tracking code hits the same row.
	byCode, err := adapter.FindByTrackingCode(ctx, order.TrackingCode)
	if err != nil {
		t.Fatalf("FindByTrackingCode failed: %v", err)
	}
	if byCode == nil || byCode.ID != order.ID {
		t.Error("tracking code lookup did not return the order")
	}
}

func TestUpdateStatus_Guarded(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	order := testOrder()
	if err := adapter.CreateOrder(ctx, order); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	defer func() {
		db.ExecContext(ctx, `DELETE FROM orden_items WHERE orden_id = ?`, order.ID)
		db.ExecContext(ctx, `DELETE FROM ordenes WHERE id = ?`, order.ID)
	}()

	now := time.Now().Truncate(time.Second)

	// Wrong source state: no rows match.
	ok, err := adapter.UpdateStatus(ctx, order.ID,
		[]domain.OrderStatus{domain.OrderStatusShipped}, domain.OrderStatusDelivered, now)
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if ok {
		t.Error("expected guarded update to refuse wrong source state")
	}

	// Matching source state transitions and stamps the timestamp.
	ok, err = adapter.UpdateStatus(ctx, order.ID,
		[]domain.OrderStatus{domain.OrderStatusPending, domain.OrderStatusPaid},
		domain.OrderStatusCancelled, now)
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if !ok {
		t.Error("expected transition to succeed")
	}

	got, _ := adapter.FindByID(ctx, order.ID)
	if got.Status != domain.OrderStatusCancelled {
		t.Errorf("expected cancelado, got %s", got.Status)
	}
	if got.CancelledAt == nil {
		t.Error("expected fecha_cancelacion to be stamped")
	}
}

func TestMarkPaid_Guarded(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	order := testOrder()
	if err := adapter.CreateOrder(ctx, order); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	defer func() {
		db.ExecContext(ctx, `DELETE FROM orden_items WHERE orden_id = ?`, order.ID)
		db.ExecContext(ctx, `DELETE FROM ordenes WHERE id = ?`, order.ID)
	}()

	now := time.Now().Truncate(time.Second)

	ok, err := adapter.MarkPaid(ctx, order.ID, "AUTH-123", "4242", now)
	if err != nil {
		t.Fatalf("MarkPaid failed: %v", err)
	}
	if !ok {
		t.Error("expected pending order to be payable")
	}

	// A second MarkPaid finds no payable row.
	ok, err = adapter.MarkPaid(ctx, order.ID, "AUTH-456", "4242", now)
	if err != nil {
		t.Fatalf("MarkPaid failed: %v", err)
	}
	if ok {
		t.Error("expected already-paid order to refuse MarkPaid")
	}

	got, _ := adapter.FindByID(ctx, order.ID)
	if got.PaymentRef != "AUTH-123" {
		t.Errorf("expected reference AUTH-123, got %s", got.PaymentRef)
	}
	if got.PaidAt == nil {
		t.Error("expected fecha_pago to be stamped")
	}
}
