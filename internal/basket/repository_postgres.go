package basket

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/engineer-developer/marketplace/internal/database"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	basketColumns      = `id, COALESCE(user_id, 0), COALESCE(session_key, ''), created_at, updated_at`
	findByUserQuery    = `SELECT ` + basketColumns + ` FROM baskets WHERE user_id = $1`
	findBySessionQuery = `SELECT ` + basketColumns + ` FROM baskets WHERE session_key = $1`
	insertBasketQuery  = `
		INSERT INTO baskets (user_id, session_key)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`
	linesQuery      = `SELECT product_id, quantity FROM basket_items WHERE basket_id = $1 ORDER BY product_id`
	upsertLineQuery = `
		INSERT INTO basket_items (basket_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (basket_id, product_id)
		DO UPDATE SET quantity = basket_items.quantity + EXCLUDED.quantity
	`
	lockLineQuery      = `SELECT quantity FROM basket_items WHERE basket_id = $1 AND product_id = $2 FOR UPDATE`
	deleteLineQuery    = `DELETE FROM basket_items WHERE basket_id = $1 AND product_id = $2`
	decrementLineQuery = `UPDATE basket_items SET quantity = quantity - $3 WHERE basket_id = $1 AND product_id = $2`
	clearLinesQuery    = `DELETE FROM basket_items WHERE basket_id = $1`
	touchBasketQuery   = `UPDATE baskets SET updated_at = now() WHERE id = $1`
	deleteStaleQuery   = `DELETE FROM baskets WHERE session_key IS NOT NULL AND updated_at < $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetOrCreate inserts a basket when owner has none. Two concurrent creations
// for the same owner make one of them fail on the unique index.
func (r *PostgresRepository) GetOrCreate(ctx context.Context, owner Owner) (Basket, error) {
	b, err := r.Find(ctx, owner)
	if !errors.Is(err, ErrNotFound) {
		return b, err
	}

	var userID sql.NullInt64
	var sessionKey sql.NullString
	if owner.anonymous() {
		sessionKey = sql.NullString{String: owner.SessionKey, Valid: true}
	} else {
		userID = sql.NullInt64{Int64: int64(owner.UserID), Valid: true}
	}
	b = Basket{UserID: owner.UserID, SessionKey: sessionKey.String}
	if err := r.db.QueryRowContext(ctx, insertBasketQuery, userID, sessionKey).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return Basket{}, err
	}
	return b, nil
}

func (r *PostgresRepository) Find(ctx context.Context, owner Owner) (Basket, error) {
	var row *sql.Row
	if owner.anonymous() {
		row = r.db.QueryRowContext(ctx, findBySessionQuery, owner.SessionKey)
	} else {
		row = r.db.QueryRowContext(ctx, findByUserQuery, owner.UserID)
	}

	var b Basket
	if err := row.Scan(&b.ID, &b.UserID, &b.SessionKey, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Basket{}, ErrNotFound
		}
		return Basket{}, err
	}

	lines, err := r.lines(ctx, b.ID)
	if err != nil {
		return Basket{}, err
	}
	b.Lines = lines
	return b, nil
}

func (r *PostgresRepository) Add(ctx context.Context, basketID, productID, count int) error {
	return database.Tx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, upsertLineQuery, basketID, productID, count); err != nil {
			return err
		}
		return touch(ctx, tx, basketID)
	})
}

func (r *PostgresRepository) Remove(ctx context.Context, basketID, productID, count int) (bool, error) {
	deleted := false
	err := database.Tx(ctx, r.db, func(tx *sql.Tx) error {
		var quantity int
		if err := tx.QueryRowContext(ctx, lockLineQuery, basketID, productID).Scan(&quantity); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrLineNotFound
			}
			return err
		}

		if quantity <= count {
			if _, err := tx.ExecContext(ctx, deleteLineQuery, basketID, productID); err != nil {
				return err
			}
			deleted = true
		} else if _, err := tx.ExecContext(ctx, decrementLineQuery, basketID, productID, count); err != nil {
			return err
		}
		return touch(ctx, tx, basketID)
	})
	return deleted, err
}

func (r *PostgresRepository) Clear(ctx context.Context, basketID int) error {
	return database.Tx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, clearLinesQuery, basketID); err != nil {
			return err
		}
		return touch(ctx, tx, basketID)
	})
}

func (r *PostgresRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, deleteStaleQuery, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) lines(ctx context.Context, basketID int) ([]Line, error) {
	rows, err := r.db.QueryContext(ctx, linesQuery, basketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Line, 0)
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ProductID, &l.Quantity); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func touch(ctx context.Context, tx *sql.Tx, basketID int) error {
	res, err := tx.ExecContext(ctx, touchBasketQuery, basketID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}
