package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/remate/marketplace/internal/core/domain"
	"github.com/remate/marketplace/internal/port"
)

// Mock CatalogReader

type mockCatalog struct {
	mu       sync.Mutex
	products map[string]domain.Product
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{products: make(map[string]domain.Product)}
}

func (m *mockCatalog) put(id, title string, price float64, state domain.ProductState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[id] = domain.Product{ID: id, Title: title, UnitPrice: decimal.NewFromFloat(price), State: state}
}

func (m *mockCatalog) FindProduct(ctx context.Context, productID string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// Mock InventoryLedger. Products without an entry are unmanaged.

type mockInventory struct {
	mu    sync.Mutex
	stock map[string]int
}

func newMockInventory() *mockInventory {
	return &mockInventory{stock: make(map[string]int)}
}

func (m *mockInventory) set(productID string, quantity int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[productID] = quantity
}

func (m *mockInventory) get(productID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stock[productID]
}

func (m *mockInventory) Reserve(ctx context.Context, productID string, quantity int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, managed := m.stock[productID]
	if !managed {
		return true, nil
	}
	if current < quantity {
		return false, nil
	}
	m.stock[productID] = current - quantity
	return true, nil
}

func (m *mockInventory) Release(ctx context.Context, productID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, managed := m.stock[productID]; managed {
		m.stock[productID] += quantity
	}
	return nil
}

func (m *mockInventory) Available(ctx context.Context, productID string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, managed := m.stock[productID]
	return current, managed, nil
}

// Mock CartRepository

type mockCarts struct {
	mu    sync.Mutex
	carts map[string]*domain.Cart // by user id
	items map[string]*domain.CartItem
}

func newMockCarts() *mockCarts {
	return &mockCarts{
		carts: make(map[string]*domain.Cart),
		items: make(map[string]*domain.CartItem),
	}
}

func (m *mockCarts) seed(userID string, items ...domain.CartItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart := &domain.Cart{ID: "cart-" + userID, UserID: userID, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.carts[userID] = cart
	for i := range items {
		items[i].CartID = cart.ID
		m.items[items[i].ID] = &items[i]
	}
}

func (m *mockCarts) FindByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[userID]
	if !ok {
		return nil, nil
	}
	view := *cart
	view.Items = nil
	for _, item := range m.items {
		if item.CartID == cart.ID {
			view.Items = append(view.Items, *item)
		}
	}
	return &view, nil
}

func (m *mockCarts) Create(ctx context.Context, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *cart
	m.carts[cart.UserID] = &copied
	return nil
}

func (m *mockCarts) FindItem(ctx context.Context, itemID string) (*domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (m *mockCarts) SaveItem(ctx context.Context, item *domain.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *item
	m.items[item.ID] = &copied
	return nil
}

func (m *mockCarts) RemoveItem(ctx context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, itemID)
	return nil
}

func (m *mockCarts) Clear(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[userID]
	if !ok {
		return nil
	}
	for id, item := range m.items {
		if item.CartID == cart.ID {
			delete(m.items, id)
		}
	}
	return nil
}

// Mock OrderRepository

type mockOrders struct {
	mu        sync.Mutex
	orders    map[string]*domain.Order
	createErr error
}

func newMockOrders() *mockOrders {
	return &mockOrders{orders: make(map[string]*domain.Order)}
}

func (m *mockOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *mockOrders) CreateOrder(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	copied := *order
	copied.Items = append([]domain.OrderLineItem(nil), order.Items...)
	m.orders[order.ID] = &copied
	return nil
}

func (m *mockOrders) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return nil, nil
	}
	copied := *order
	return &copied, nil
}

func (m *mockOrders) FindByTrackingCode(ctx context.Context, code string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, order := range m.orders {
		if order.TrackingCode == code {
			copied := *order
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockOrders) ListByUser(ctx context.Context, userID string, f port.OrderListFilter) ([]domain.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, order := range m.orders {
		if order.UserID != userID {
			continue
		}
		if f.Status != "" && order.Status != f.Status {
			continue
		}
		out = append(out, *order)
	}
	return out, len(out), nil
}

func (m *mockOrders) MarkPaid(ctx context.Context, orderID, reference, lastFour string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return false, nil
	}
	if order.Status != domain.OrderStatusPending && order.Status != domain.OrderStatusPendingVerification {
		return false, nil
	}
	order.Status = domain.OrderStatusPaid
	order.PaymentRef = reference
	order.CardLastFour = lastFour
	order.PaidAt = &at
	return true, nil
}

func (m *mockOrders) MarkPendingVerification(ctx context.Context, orderID, proofRef string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok || order.Status != domain.OrderStatusPending {
		return false, nil
	}
	order.Status = domain.OrderStatusPendingVerification
	order.ProofRef = proofRef
	return true, nil
}

func (m *mockOrders) UpdateStatus(ctx context.Context, orderID string, from []domain.OrderStatus, to domain.OrderStatus, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return false, nil
	}
	matched := false
	for _, s := range from {
		if order.Status == s {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	order.Status = to
	switch to {
	case domain.OrderStatusShipped:
		order.ShippedAt = &at
	case domain.OrderStatusDelivered:
		order.DeliveredAt = &at
	case domain.OrderStatusCancelled:
		order.CancelledAt = &at
	}
	return true, nil
}

// Mock PaymentAdapter

type mockPayments struct {
	mu             sync.Mutex
	authResult     domain.CardAuthResult
	authErr        error
	authorizeCalls int
	proofCalls     int
}

func newMockPayments() *mockPayments {
	return &mockPayments{
		authResult: domain.CardAuthResult{Approved: true, Reference: "AUTH-TEST", LastFour: "4242"},
	}
}

func (m *mockPayments) AuthorizeCard(ctx context.Context, card domain.CardDetails, amount decimal.Decimal) (domain.CardAuthResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authorizeCalls++
	return m.authResult, m.authErr
}

func (m *mockPayments) RecordTransferProof(ctx context.Context, orderID, proofRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proofCalls++
	return nil
}

// Mock NotificationEmitter

type mockNotifier struct {
	mu     sync.Mutex
	events []domain.NotificationEvent
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{}
}

func (m *mockNotifier) Emit(ctx context.Context, event domain.NotificationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockNotifier) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

func (m *mockNotifier) has(eventType string) bool {
	for _, t := range m.types() {
		if t == eventType {
			return true
		}
	}
	return false
}

// Mock CacheRepository

type mockCache struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMockCache() *mockCache {
	return &mockCache{keys: make(map[string]bool)}
}

func (m *mockCache) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}
