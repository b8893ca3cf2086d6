package mocks

import (
	"context"
	"sync"

	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/domain/user"
)

// MockUserStore is an in-memory UserStore for tests.
type MockUserStore struct {
	mu    sync.Mutex
	users map[string]*user.User
}

func NewMockUserStore() *MockUserStore {
	return &MockUserStore{users: make(map[string]*user.User)}
}

func (m *MockUserStore) Insert(ctx context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email && !existing.IsDeleted {
			return user.ErrEmailTaken
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MockUserStore) FindByID(ctx context.Context, id string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.IsDeleted {
		return nil, user.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserStore) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email && !u.IsDeleted {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (m *MockUserStore) CountByRole(ctx context.Context, role string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, u := range m.users {
		if u.Role == role && !u.IsDeleted {
			count++
		}
	}
	return count, nil
}
