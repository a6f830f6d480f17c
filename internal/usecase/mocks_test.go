package usecase

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/OzanT1/ECommerce-Backend-System/internal/entity"
)

// memStore is an in-memory OrderRepo whose transactions stage their writes
// and apply them on Commit, so rollback semantics match the real repository.
type memStore struct {
	mu       sync.Mutex
	products map[string]*domain.Product
	orders   map[string]*domain.Order

	beginErr  error
	insertErr error
	commitErr error
}

func newMemStore(products ...*domain.Product) *memStore {
	s := &memStore{
		products: map[string]*domain.Product{},
		orders:   map[string]*domain.Order{},
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *memStore) Begin(context.Context) (Tx, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	return &memTx{store: s, stockDelta: map[string]int{}}, nil
}

func (s *memStore) GetByID(_ context.Context, orderID, userID string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *memStore) ListByUser(_ context.Context, userID string, _, _ int) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *memStore) stock(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[productID].StockQuantity
}

func (s *memStore) order(orderID string) *domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[orderID]
}

type memTx struct {
	store      *memStore
	stockDelta map[string]int
	inserts    []*domain.Order
	updates    []*domain.Order
	done       bool
}

func (t *memTx) Commit() error {
	if t.store.commitErr != nil {
		return t.store.commitErr
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for id, delta := range t.stockDelta {
		t.store.products[id].StockQuantity += delta
	}
	for _, o := range t.inserts {
		cp := *o
		t.store.orders[o.ID] = &cp
	}
	for _, o := range t.updates {
		cp := *o
		t.store.orders[o.ID] = &cp
	}
	t.done = true
	return nil
}

func (t *memTx) Rollback() error {
	t.done = true
	return nil
}

func (t *memTx) FindByID(_ context.Context, orderID string) (*domain.Order, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	o, ok := t.store.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, domain.ErrOrderNotFound)
	}
	cp := *o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	return &cp, nil
}

func (t *memTx) InsertOrder(_ context.Context, o *domain.Order) error {
	if t.store.insertErr != nil {
		return t.store.insertErr
	}
	t.inserts = append(t.inserts, o)
	return nil
}

func (t *memTx) UpdateOrder(_ context.Context, o *domain.Order) error {
	t.updates = append(t.updates, o)
	return nil
}

func (t *memTx) FindProductByID(_ context.Context, productID string) (*domain.Product, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	p, ok := t.store.products[productID]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", productID, domain.ErrProductUnavailable)
	}
	cp := *p
	return &cp, nil
}

func (t *memTx) AdjustProductStock(_ context.Context, productID string, delta int) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	p, ok := t.store.products[productID]
	if !ok {
		return fmt.Errorf("product %s (delta %d): %w", productID, delta, domain.ErrStockConsistency)
	}
	if p.StockQuantity+t.stockDelta[productID]+delta < 0 {
		return fmt.Errorf("product %s (delta %d): %w", productID, delta, domain.ErrStockConsistency)
	}
	t.stockDelta[productID] += delta
	return nil
}

// memCarts implements CartStore.
type memCarts struct {
	carts    map[string]*domain.Cart
	clearErr error
	cleared  []string
}

func newMemCarts() *memCarts {
	return &memCarts{carts: map[string]*domain.Cart{}}
}

func (m *memCarts) Get(_ context.Context, userID string) (*domain.Cart, error) {
	if c, ok := m.carts[userID]; ok {
		return c, nil
	}
	return domain.NewCart(userID), nil
}

func (m *memCarts) Set(_ context.Context, cart *domain.Cart) error {
	m.carts[cart.UserID] = cart
	return nil
}

func (m *memCarts) Clear(_ context.Context, userID string) error {
	if m.clearErr != nil {
		return m.clearErr
	}
	delete(m.carts, userID)
	m.cleared = append(m.cleared, userID)
	return nil
}

// mockUsers implements UserDirectory.
type mockUsers struct {
	email string
	err   error
}

func (m *mockUsers) EmailByID(context.Context, string) (string, error) {
	return m.email, m.err
}

// mockPublisher implements EventPublisher.
type mockPublisher struct {
	published []OrderPaidMsg
	err       error
}

func (m *mockPublisher) PublishOrderPaid(_ context.Context, msg OrderPaidMsg) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, msg)
	return nil
}

// mockAuditor implements StatusAuditor.
type mockAuditor struct {
	events []OrderStatusChangedMsg
	err    error
}

func (m *mockAuditor) PublishStatusChanged(_ context.Context, msg OrderStatusChangedMsg) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, msg)
	return nil
}
