package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shalauddinahmedshipon/pedelux-bicyle-store-server/internal/domain/product"
)

// PostgresProductStore implements ProductStore on PostgreSQL. The order
// store mutates stock inside its own transactions; this store only reads it.
type PostgresProductStore struct {
	db *sql.DB
}

func NewPostgresProductStore(db *sql.DB) *PostgresProductStore {
	return &PostgresProductStore{db: db}
}

const productColumns = `id, name, brand, model, category, image_url, price, stock, is_deleted, created_at, updated_at`

func (s *PostgresProductStore) Insert(ctx context.Context, p *product.Product) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (id, name, brand, model, category, image_url, price, stock, is_deleted, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.Name, p.Brand, p.Model, p.Category, p.ImageURL, p.Price, p.Stock, p.IsDeleted, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (s *PostgresProductStore) FindByID(ctx context.Context, id string) (*product.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 AND is_deleted = FALSE`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", product.ErrProductNotFound, id)
	}
	return p, err
}

func (s *PostgresProductStore) FindByIDs(ctx context.Context, ids []string) (map[string]*product.Product, error) {
	if len(ids) == 0 {
		return map[string]*product.Product{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make(map[string]*product.Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products[p.ID] = p
	}
	return products, rows.Err()
}

func (s *PostgresProductStore) TotalStock(ctx context.Context) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(stock), 0) FROM products WHERE is_deleted = FALSE`).Scan(&total)
	return total, err
}

func scanProduct(row rowScanner) (*product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Brand, &p.Model, &p.Category, &p.ImageURL,
		&p.Price, &p.Stock, &p.IsDeleted, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
