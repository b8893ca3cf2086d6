package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/domain/product"
)

// MockProductStore is an in-memory ProductStore for tests. Reserve and
// Release mirror the locked check-and-decrement the Postgres order store
// performs, so concurrency tests exercise the same serialization.
type MockProductStore struct {
	mu       sync.Mutex
	products map[string]*product.Product
}

func NewMockProductStore() *MockProductStore {
	return &MockProductStore{products: make(map[string]*product.Product)}
}

func (m *MockProductStore) Insert(ctx context.Context, p *product.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *MockProductStore) FindByID(ctx context.Context, id string) (*product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok || p.IsDeleted {
		return nil, fmt.Errorf("%w: %s", product.ErrProductNotFound, id)
	}
	cp := *p
	return &cp, nil
}

func (m *MockProductStore) FindByIDs(ctx context.Context, ids []string) (map[string]*product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*product.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (m *MockProductStore) TotalStock(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, p := range m.products {
		if !p.IsDeleted {
			total += p.Stock
		}
	}
	return total, nil
}

// Stock returns the current stock for assertions.
func (m *MockProductStore) Stock(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[id]; ok {
		return p.Stock
	}
	return 0
}

// reserve checks and decrements stock for every product under one lock.
// Either all quantities are reserved or none are.
func (m *MockProductStore) reserve(needed map[string]int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, qty := range needed {
		p, ok := m.products[id]
		if !ok || p.IsDeleted {
			return fmt.Errorf("%w: %s", product.ErrProductNotFound, id)
		}
		if p.Stock < qty {
			return fmt.Errorf("%w for %s", product.ErrInsufficientStock, p.Name)
		}
	}
	for id, qty := range needed {
		m.products[id].Stock -= qty
	}
	return nil
}

// release credits stock back unconditionally.
func (m *MockProductStore) release(quantities map[string]int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, qty := range quantities {
		if p, ok := m.products[id]; ok {
			p.Stock += qty
		}
	}
}
