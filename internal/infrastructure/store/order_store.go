package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/domain/order"
	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/domain/product"
	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/domain/user"
)

// PostgresOrderStore implements OrderStore on PostgreSQL.
type PostgresOrderStore struct {
	db *sql.DB
}

func NewPostgresOrderStore(db *sql.DB) *PostgresOrderStore {
	return &PostgresOrderStore{db: db}
}

const orderColumns = `id, user_id, total_price, phone_number, payment_method, status, payment_status,
	street, city, state, zip_code, country,
	transaction_id, transaction_status, bank_status, sp_code, sp_message, transaction_method, transaction_date,
	is_deleted, created_at, updated_at`

// Create runs the whole creation atomic unit: customer lookup, stock check
// and reservation, and the order/items insert commit or roll back together.
// Product rows are locked in sorted id order so two multi-item orders cannot
// deadlock each other.
func (s *PostgresOrderStore) Create(ctx context.Context, o *order.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin order transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1 AND is_deleted = FALSE)`,
		o.UserID,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return user.ErrUserNotFound
	}

	// A product may appear on several lines; reserve the summed quantity.
	needed := make(map[string]int)
	for _, it := range o.Items {
		needed[it.ProductID] += it.Quantity
	}
	productIDs := make([]string, 0, len(needed))
	for id := range needed {
		productIDs = append(productIDs, id)
	}
	sort.Strings(productIDs)

	for _, productID := range productIDs {
		var name string
		var stock int
		err := tx.QueryRowContext(ctx,
			`SELECT name, stock FROM products WHERE id = $1 AND is_deleted = FALSE FOR UPDATE`,
			productID,
		).Scan(&name, &stock)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", product.ErrProductNotFound, productID)
		}
		if err != nil {
			return err
		}
		if stock < needed[productID] {
			return fmt.Errorf("%w for %s", product.ErrInsufficientStock, name)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, total_price, phone_number, payment_method, status, payment_status,
			street, city, state, zip_code, country, is_deleted, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, FALSE, $13, $14)`,
		o.ID, o.UserID, o.TotalPrice, o.PhoneNumber, o.PaymentMethod, o.Status, o.PaymentStatus,
		o.ShippingAddress.Street, o.ShippingAddress.City, o.ShippingAddress.State,
		o.ShippingAddress.ZipCode, o.ShippingAddress.Country, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range o.Items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, price) VALUES ($1, $2, $3, $4)`,
			o.ID, it.ProductID, it.Quantity, it.Price,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	for _, productID := range productIDs {
		_, err = tx.ExecContext(ctx,
			`UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1`,
			productID, needed[productID],
		)
		if err != nil {
			return fmt.Errorf("reserve stock: %w", err)
		}
	}

	return tx.Commit()
}

func (s *PostgresOrderStore) FindByID(ctx context.Context, id string) (*order.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND is_deleted = FALSE`, id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *PostgresOrderStore) List(ctx context.Context, filter ListFilter, page, limit int) ([]*order.Order, int, error) {
	where := "WHERE is_deleted = FALSE"
	args := []any{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.PaymentStatus != "" {
		args = append(args, filter.PaymentStatus)
		where += fmt.Sprintf(" AND payment_status = $%d", len(args))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where += fmt.Sprintf(" AND user_id = $%d", len(args))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf("SELECT %s FROM orders %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		orderColumns, where, len(args)-1, len(args))
	orders, err := s.queryOrders(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (s *PostgresOrderStore) ListByUser(ctx context.Context, userID string) ([]*order.Order, error) {
	return s.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 AND is_deleted = FALSE ORDER BY created_at DESC`,
		userID)
}

func (s *PostgresOrderStore) ListPaid(ctx context.Context) ([]*order.Order, error) {
	return s.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE payment_status = $1 AND is_deleted = FALSE ORDER BY created_at ASC`,
		order.PaymentPaid)
}

// UpdateStatus re-reads the order under a row lock, validates the transition
// and, for a cancellation, credits every line item's stock back in the same
// transaction. A concurrent second cancel sees status=cancelled after the
// lock and fails without touching stock again.
func (s *PostgresOrderStore) UpdateStatus(ctx context.Context, id string, target order.Status) (*order.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin status transaction: %w", err)
	}
	defer tx.Rollback()

	var current order.Status
	var isDeleted bool
	err = tx.QueryRowContext(ctx,
		`SELECT status, is_deleted FROM orders WHERE id = $1 FOR UPDATE`, id,
	).Scan(&current, &isDeleted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if isDeleted {
		return nil, order.ErrOrderNotFound
	}

	locked := &order.Order{Status: current}
	if !locked.CanTransitionTo(target) {
		return nil, locked.TransitionError(target)
	}

	if target == order.StatusCancelled {
		rows, err := tx.QueryContext(ctx,
			`SELECT product_id, quantity FROM order_items WHERE order_id = $1`, id)
		if err != nil {
			return nil, err
		}
		restock := make(map[string]int)
		for rows.Next() {
			var productID string
			var qty int
			if err := rows.Scan(&productID, &qty); err != nil {
				rows.Close()
				return nil, err
			}
			restock[productID] += qty
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
		for productID, qty := range restock {
			_, err = tx.ExecContext(ctx,
				`UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1`,
				productID, qty,
			)
			if err != nil {
				return nil, fmt.Errorf("release stock: %w", err)
			}
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, target)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return s.FindByID(ctx, id)
}

func (s *PostgresOrderStore) UpdateTransaction(ctx context.Context, orderID string, txn *order.Transaction, ps order.PaymentStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET
			transaction_id = $2, transaction_status = $3, bank_status = $4,
			sp_code = $5, sp_message = $6, transaction_method = $7, transaction_date = $8,
			payment_status = COALESCE(NULLIF($9, ''), payment_status),
			updated_at = NOW()
		 WHERE id = $1 AND is_deleted = FALSE`,
		orderID, txn.ID, txn.TransactionStatus, txn.BankStatus,
		txn.SPCode, txn.SPMessage, txn.Method, txn.DateTime, string(ps),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return order.ErrOrderNotFound
	}
	return nil
}

func (s *PostgresOrderStore) UpdateTransactionByRef(ctx context.Context, transactionID string, txn *order.Transaction, ps order.PaymentStatus) (*order.Order, error) {
	var orderID string
	err := s.db.QueryRowContext(ctx,
		`UPDATE orders SET
			transaction_status = $2, bank_status = $3,
			sp_code = $4, sp_message = $5, transaction_method = $6, transaction_date = $7,
			payment_status = COALESCE(NULLIF($8, ''), payment_status),
			updated_at = NOW()
		 WHERE transaction_id = $1 AND is_deleted = FALSE
		 RETURNING id`,
		transactionID, txn.TransactionStatus, txn.BankStatus,
		txn.SPCode, txn.SPMessage, txn.Method, txn.DateTime, string(ps),
	).Scan(&orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.FindByID(ctx, orderID)
}

func (s *PostgresOrderStore) SoftDelete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1 AND is_deleted = FALSE`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return order.ErrOrderNotFound
	}
	return nil
}

func (s *PostgresOrderStore) queryOrders(ctx context.Context, query string, args ...any) ([]*order.Order, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, o := range orders {
		if err := s.loadItems(ctx, o); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (s *PostgresOrderStore) loadItems(ctx context.Context, o *order.Order) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT product_id, quantity, price FROM order_items WHERE order_id = $1`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var it order.Item
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.Price); err != nil {
			return err
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var o order.Order
	var txnID, txnStatus, bankStatus, spCode, spMessage, txnMethod, txnDate sql.NullString
	err := row.Scan(
		&o.ID, &o.UserID, &o.TotalPrice, &o.PhoneNumber, &o.PaymentMethod, &o.Status, &o.PaymentStatus,
		&o.ShippingAddress.Street, &o.ShippingAddress.City, &o.ShippingAddress.State,
		&o.ShippingAddress.ZipCode, &o.ShippingAddress.Country,
		&txnID, &txnStatus, &bankStatus, &spCode, &spMessage, &txnMethod, &txnDate,
		&o.IsDeleted, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if txnID.Valid && txnID.String != "" {
		o.Transaction = &order.Transaction{
			ID:                txnID.String,
			TransactionStatus: txnStatus.String,
			BankStatus:        bankStatus.String,
			SPCode:            spCode.String,
			SPMessage:         spMessage.String,
			Method:            txnMethod.String,
			DateTime:          txnDate.String,
		}
	}
	return &o, nil
}
