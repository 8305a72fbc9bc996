package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres SQLSTATE codes mapped to domain errors.
const (
	UniqueViolation     = "23505"
	ForeignKeyViolation = "23503"
)

// Open connects through the pgx stdlib driver and pings the server.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

// Migrate creates every table the service needs and seeds the delivery row.
// Statements are idempotent so it runs on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}

// ConstraintOf returns the constraint name when err is a unique violation.
func ConstraintOf(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == UniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// IsForeignKeyViolation reports whether err references a missing row.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == ForeignKeyViolation
}

// Tx runs fn inside a transaction, rolling back when fn fails.
func Tx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		username TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT,
		phone VARCHAR(11),
		avatar_src TEXT,
		avatar_alt TEXT,
		available BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT users_username_key UNIQUE (username),
		CONSTRAINT users_email_key UNIQUE (email),
		CONSTRAINT users_phone_key UNIQUE (phone)
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id SERIAL PRIMARY KEY,
		title TEXT NOT NULL UNIQUE,
		image_src TEXT,
		image_alt TEXT,
		parent_id INT REFERENCES categories(id) ON DELETE SET NULL,
		favorite BOOLEAN NOT NULL DEFAULT FALSE,
		available BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS tags (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id SERIAL PRIMARY KEY,
		category_id INT NOT NULL REFERENCES categories(id) ON DELETE RESTRICT,
		price NUMERIC(10,2) NOT NULL DEFAULT 0,
		count INT NOT NULL DEFAULT 0,
		date TIMESTAMPTZ NOT NULL DEFAULT now(),
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		full_description TEXT NOT NULL DEFAULT '',
		free_delivery BOOLEAN NOT NULL DEFAULT FALSE,
		limited BOOLEAN NOT NULL DEFAULT FALSE,
		available BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS product_tags (
		product_id INT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		tag_id INT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		PRIMARY KEY (product_id, tag_id)
	)`,
	`CREATE TABLE IF NOT EXISTS product_images (
		id SERIAL PRIMARY KEY,
		product_id INT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		src TEXT NOT NULL,
		alt TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS product_specifications (
		id SERIAL PRIMARY KEY,
		product_id INT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS product_reviews (
		id SERIAL PRIMARY KEY,
		product_id INT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		user_id INT REFERENCES users(id) ON DELETE CASCADE,
		author TEXT NOT NULL,
		email TEXT NOT NULL,
		text TEXT NOT NULL,
		rate SMALLINT NOT NULL CHECK (rate BETWEEN 1 AND 5),
		date TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT product_reviews_product_email_key UNIQUE (product_id, email)
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS sale_items (
		id SERIAL PRIMARY KEY,
		sale_id INT NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
		product_id INT NOT NULL UNIQUE REFERENCES products(id) ON DELETE CASCADE,
		discount SMALLINT NOT NULL CHECK (discount BETWEEN 1 AND 99),
		date_from DATE NOT NULL,
		date_to DATE NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		CHECK (date_from < date_to)
	)`,
	`CREATE TABLE IF NOT EXISTS baskets (
		id SERIAL PRIMARY KEY,
		user_id INT REFERENCES users(id) ON DELETE CASCADE,
		session_key TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK ((user_id IS NULL) <> (session_key IS NULL))
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS baskets_user_idx ON baskets (user_id) WHERE user_id IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS baskets_session_idx ON baskets (session_key) WHERE session_key IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS basket_items (
		basket_id INT NOT NULL REFERENCES baskets(id) ON DELETE CASCADE,
		product_id INT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		quantity INT NOT NULL CHECK (quantity > 0),
		PRIMARY KEY (basket_id, product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS deliveries (
		id INT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
		ordinary_price NUMERIC(10,2) NOT NULL,
		express_price NUMERIC(10,2) NOT NULL,
		free_delivery_price NUMERIC(10,2) NOT NULL
	)`,
	`INSERT INTO deliveries (id, ordinary_price, express_price, free_delivery_price)
		VALUES (1, 200, 500, 2000) ON CONFLICT (id) DO NOTHING`,
	`CREATE TABLE IF NOT EXISTS orders (
		id SERIAL PRIMARY KEY,
		user_id INT REFERENCES users(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		full_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		delivery_type TEXT NOT NULL DEFAULT 'ORDINARY',
		payment_type TEXT NOT NULL DEFAULT 'ONLINE',
		total_cost NUMERIC(10,2) NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'NEW',
		city TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		available BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS order_products (
		order_id INT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id INT NOT NULL REFERENCES products(id) ON DELETE RESTRICT,
		count INT NOT NULL DEFAULT 1,
		price NUMERIC(10,2) NOT NULL DEFAULT 0,
		added_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (order_id, product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id SERIAL PRIMARY KEY,
		order_id INT NOT NULL UNIQUE REFERENCES orders(id) ON DELETE CASCADE,
		number VARCHAR(8) NOT NULL,
		name TEXT NOT NULL,
		month VARCHAR(2) NOT NULL,
		year VARCHAR(4) NOT NULL,
		code VARCHAR(3) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}
