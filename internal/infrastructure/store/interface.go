package store

import (
	"context"

	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/domain/order"
	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/domain/product"
	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/domain/user"
)

// ListFilter narrows order listings. Empty fields are ignored.
type ListFilter struct {
	Status        string
	PaymentStatus string
	UserID        string
}

// OrderStore persists orders. Create and UpdateStatus are atomic units that
// also move product stock (reservation on create, restitution on cancel);
// no other writer touches stock.
type OrderStore interface {
	// Create persists the order and reserves stock for every line item in a
	// single transaction. If the customer or any product is missing, or any
	// product has insufficient stock, nothing is written.
	Create(ctx context.Context, o *order.Order) error

	// FindByID returns a non-deleted order with its items.
	FindByID(ctx context.Context, id string) (*order.Order, error)

	// List returns a page of non-deleted orders plus the total match count.
	List(ctx context.Context, filter ListFilter, page, limit int) ([]*order.Order, int, error)

	// ListByUser returns all non-deleted orders belonging to a customer.
	ListByUser(ctx context.Context, userID string) ([]*order.Order, error)

	// ListPaid returns all non-deleted orders with payment status paid,
	// items included. Used by the sales aggregator.
	ListPaid(ctx context.Context) ([]*order.Order, error)

	// UpdateStatus transitions the order to target, releasing reserved stock
	// back to the products when target is cancelled. The current status is
	// re-read under lock so a concurrent cancel cannot double-credit stock.
	UpdateStatus(ctx context.Context, id string, target order.Status) (*order.Order, error)

	// UpdateTransaction overwrites the order's gateway transaction record.
	// An empty payment status leaves the stored payment status unchanged.
	UpdateTransaction(ctx context.Context, orderID string, txn *order.Transaction, ps order.PaymentStatus) error

	// UpdateTransactionByRef is UpdateTransaction keyed by the gateway's
	// transaction id instead of the order id.
	UpdateTransactionByRef(ctx context.Context, transactionID string, txn *order.Transaction, ps order.PaymentStatus) (*order.Order, error)

	// SoftDelete marks the order deleted; deleted orders disappear from all
	// read paths, including FindByID.
	SoftDelete(ctx context.Context, id string) error
}

type ProductStore interface {
	Insert(ctx context.Context, p *product.Product) error
	FindByID(ctx context.Context, id string) (*product.Product, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*product.Product, error)
	// TotalStock sums stock over non-deleted products.
	TotalStock(ctx context.Context) (int, error)
}

type UserStore interface {
	Insert(ctx context.Context, u *user.User) error
	FindByID(ctx context.Context, id string) (*user.User, error)
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	CountByRole(ctx context.Context, role string) (int, error)
}
