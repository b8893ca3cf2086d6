package store

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

// ConnectPostgres establishes a connection to PostgreSQL.
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// EnsureSchema creates the tables if they do not exist yet.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role          TEXT NOT NULL DEFAULT 'customer',
			status        TEXT NOT NULL DEFAULT 'active',
			is_deleted    BOOLEAN NOT NULL DEFAULT FALSE,
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS products (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			brand      TEXT NOT NULL DEFAULT '',
			model      TEXT NOT NULL DEFAULT '',
			category   TEXT NOT NULL DEFAULT '',
			image_url  TEXT NOT NULL DEFAULT '',
			price      NUMERIC(12,2) NOT NULL DEFAULT 0,
			stock      INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
			is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS orders (
			id                 TEXT PRIMARY KEY,
			user_id            TEXT NOT NULL REFERENCES users(id),
			total_price        NUMERIC(12,2) NOT NULL,
			phone_number       TEXT NOT NULL,
			payment_method     TEXT NOT NULL,
			status             TEXT NOT NULL DEFAULT 'pending',
			payment_status     TEXT NOT NULL DEFAULT 'pending',
			street             TEXT NOT NULL,
			city               TEXT NOT NULL,
			state              TEXT NOT NULL,
			zip_code           TEXT NOT NULL,
			country            TEXT NOT NULL,
			transaction_id     TEXT,
			transaction_status TEXT,
			bank_status        TEXT,
			sp_code            TEXT,
			sp_message         TEXT,
			transaction_method TEXT,
			transaction_date   TEXT,
			is_deleted         BOOLEAN NOT NULL DEFAULT FALSE,
			created_at         TIMESTAMPTZ NOT NULL,
			updated_at         TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id);
		CREATE INDEX IF NOT EXISTS idx_orders_transaction_id ON orders(transaction_id);

		CREATE TABLE IF NOT EXISTS order_items (
			order_id   TEXT NOT NULL REFERENCES orders(id),
			product_id TEXT NOT NULL REFERENCES products(id),
			quantity   INTEGER NOT NULL CHECK (quantity >= 1),
			price      NUMERIC(12,2) NOT NULL CHECK (price >= 0)
		);

		CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);
	`)
	return err
}
