package mocks

import (
	"context"
	"sync"

	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/domain/order"
	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/domain/user"
	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/infrastructure/store"
)

// MockOrderStore is an in-memory OrderStore for tests. Its mutex plays the
// role of the Postgres transaction: the creation check-reserve-insert
// sequence and the cancel release-update sequence each run under one lock.
type MockOrderStore struct {
	mu       sync.Mutex
	byID     map[string]*order.Order
	inserted []string // insertion order, oldest first

	products *MockProductStore
	users    *MockUserStore

	CreateCalls []string // order ids passed to Create, successful or not
}

func NewMockOrderStore(products *MockProductStore, users *MockUserStore) *MockOrderStore {
	return &MockOrderStore{
		byID:     make(map[string]*order.Order),
		products: products,
		users:    users,
	}
}

func cloneOrder(o *order.Order) *order.Order {
	cp := *o
	cp.Items = append([]order.Item(nil), o.Items...)
	if o.Transaction != nil {
		txn := *o.Transaction
		cp.Transaction = &txn
	}
	return &cp
}

func (m *MockOrderStore) Create(ctx context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateCalls = append(m.CreateCalls, o.ID)

	if _, err := m.users.FindByID(ctx, o.UserID); err != nil {
		return user.ErrUserNotFound
	}

	needed := make(map[string]int)
	for _, it := range o.Items {
		needed[it.ProductID] += it.Quantity
	}
	if err := m.products.reserve(needed); err != nil {
		return err
	}

	m.byID[o.ID] = cloneOrder(o)
	m.inserted = append(m.inserted, o.ID)
	return nil
}

func (m *MockOrderStore) FindByID(ctx context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findLocked(id)
}

func (m *MockOrderStore) findLocked(id string) (*order.Order, error) {
	o, ok := m.byID[id]
	if !ok || o.IsDeleted {
		return nil, order.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (m *MockOrderStore) List(ctx context.Context, filter store.ListFilter, page, limit int) ([]*order.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*order.Order
	// newest first, matching the Postgres created_at DESC ordering
	for i := len(m.inserted) - 1; i >= 0; i-- {
		o := m.byID[m.inserted[i]]
		if o.IsDeleted {
			continue
		}
		if filter.Status != "" && string(o.Status) != filter.Status {
			continue
		}
		if filter.PaymentStatus != "" && string(o.PaymentStatus) != filter.PaymentStatus {
			continue
		}
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		matched = append(matched, o)
	}

	total := len(matched)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	pageOrders := make([]*order.Order, 0, end-start)
	for _, o := range matched[start:end] {
		pageOrders = append(pageOrders, cloneOrder(o))
	}
	return pageOrders, total, nil
}

func (m *MockOrderStore) ListByUser(ctx context.Context, userID string) ([]*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var orders []*order.Order
	for i := len(m.inserted) - 1; i >= 0; i-- {
		o := m.byID[m.inserted[i]]
		if !o.IsDeleted && o.UserID == userID {
			orders = append(orders, cloneOrder(o))
		}
	}
	return orders, nil
}

func (m *MockOrderStore) ListPaid(ctx context.Context) ([]*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var orders []*order.Order
	for _, id := range m.inserted {
		o := m.byID[id]
		if !o.IsDeleted && o.PaymentStatus == order.PaymentPaid {
			orders = append(orders, cloneOrder(o))
		}
	}
	return orders, nil
}

func (m *MockOrderStore) UpdateStatus(ctx context.Context, id string, target order.Status) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.byID[id]
	if !ok || o.IsDeleted {
		return nil, order.ErrOrderNotFound
	}
	if !o.CanTransitionTo(target) {
		return nil, o.TransitionError(target)
	}

	if target == order.StatusCancelled {
		restock := make(map[string]int)
		for _, it := range o.Items {
			restock[it.ProductID] += it.Quantity
		}
		m.products.release(restock)
	}

	o.Status = target
	return cloneOrder(o), nil
}

func (m *MockOrderStore) UpdateTransaction(ctx context.Context, orderID string, txn *order.Transaction, ps order.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.byID[orderID]
	if !ok || o.IsDeleted {
		return order.ErrOrderNotFound
	}
	cp := *txn
	o.Transaction = &cp
	if ps != "" {
		o.PaymentStatus = ps
	}
	return nil
}

func (m *MockOrderStore) UpdateTransactionByRef(ctx context.Context, transactionID string, txn *order.Transaction, ps order.PaymentStatus) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, o := range m.byID {
		if o.IsDeleted || o.Transaction == nil || o.Transaction.ID != transactionID {
			continue
		}
		o.Transaction.TransactionStatus = txn.TransactionStatus
		o.Transaction.BankStatus = txn.BankStatus
		o.Transaction.SPCode = txn.SPCode
		o.Transaction.SPMessage = txn.SPMessage
		o.Transaction.Method = txn.Method
		o.Transaction.DateTime = txn.DateTime
		if ps != "" {
			o.PaymentStatus = ps
		}
		return cloneOrder(o), nil
	}
	return nil, order.ErrOrderNotFound
}

func (m *MockOrderStore) SoftDelete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.byID[id]
	if !ok || o.IsDeleted {
		return order.ErrOrderNotFound
	}
	o.IsDeleted = true
	return nil
}
