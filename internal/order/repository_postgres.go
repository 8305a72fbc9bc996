package order

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/engineer-developer/marketplace/internal/database"
	"github.com/engineer-developer/marketplace/internal/product"
)

type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	orderColumns = `id, COALESCE(user_id, 0), created_at, full_name, email, phone, delivery_type, payment_type,
		total_cost, status, city, address, available`

	insertOrderQuery = `INSERT INTO orders (status, total_cost) VALUES ('NEW', 0) RETURNING ` + orderColumns
	insertLineQuery  = `
		INSERT INTO order_products (order_id, product_id, count, price)
		VALUES ($1, $2, $3, $4)
		RETURNING added_at
	`
	getOrderQuery   = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND available`
	listByUserQuery = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 AND available ORDER BY created_at DESC, id DESC`
	orderLinesQuery = `
		SELECT order_id, product_id, count, price, added_at
		FROM order_products
		WHERE order_id = ANY($1::int[])
		ORDER BY added_at, product_id
	`
	updateOrderQuery = `
		UPDATE orders
		SET user_id = $1,
			full_name = $2,
			email = $3,
			phone = $4,
			delivery_type = $5,
			payment_type = $6,
			total_cost = $7,
			status = $8,
			city = $9,
			address = $10
		WHERE id = $11 AND available
	`
	setStatusQuery     = `UPDATE orders SET status = $1 WHERE id = $2 AND available`
	upsertPaymentQuery = `
		INSERT INTO payments (order_id, number, name, month, year, code)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (order_id) DO UPDATE
		SET number = EXCLUDED.number,
			name = EXCLUDED.name,
			month = EXCLUDED.month,
			year = EXCLUDED.year,
			code = EXCLUDED.code
		RETURNING id, created_at
	`
	deliveryQuery    = `SELECT ordinary_price, express_price, free_delivery_price FROM deliveries WHERE id = 1`
	deleteOrderQuery = `UPDATE orders SET available = FALSE WHERE id = $1 AND available`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, lines []Line) (Order, error) {
	var o Order
	err := database.Tx(ctx, r.db, func(tx *sql.Tx) error {
		created, err := scanOrder(tx.QueryRowContext(ctx, insertOrderQuery))
		if err != nil {
			return err
		}
		for _, l := range lines {
			if err := tx.QueryRowContext(ctx, insertLineQuery, created.ID, l.ProductID, l.Count, l.Price).Scan(&l.AddedAt); err != nil {
				if database.IsForeignKeyViolation(err) {
					return product.ErrNotFound
				}
				return err
			}
			created.Lines = append(created.Lines, l)
		}
		o = created
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int) (Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, getOrderQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	orders := []Order{o}
	if err := r.attachLines(ctx, orders); err != nil {
		return Order{}, err
	}
	return orders[0], nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, listByUserQuery, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachLines(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRepository) Update(ctx context.Context, o Order) error {
	var userID sql.NullInt64
	if o.UserID > 0 {
		userID = sql.NullInt64{Int64: int64(o.UserID), Valid: true}
	}
	return r.exec(ctx, updateOrderQuery,
		userID,
		o.FullName,
		o.Email,
		o.Phone,
		string(o.DeliveryType),
		string(o.PaymentType),
		o.TotalCost,
		string(o.Status),
		o.City,
		o.Address,
		o.ID,
	)
}

func (r *PostgresRepository) SetStatus(ctx context.Context, id int, status Status) error {
	return r.exec(ctx, setStatusQuery, string(status), id)
}

func (r *PostgresRepository) CompletePayment(ctx context.Context, p Payment) (Payment, error) {
	err := database.Tx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, setStatusQuery, string(StatusPaid), p.OrderID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrNotFound
		}
		return tx.QueryRowContext(ctx, upsertPaymentQuery,
			p.OrderID, p.Number, p.Name, p.Month, p.Year, p.Code,
		).Scan(&p.ID, &p.CreatedAt)
	})
	if err != nil {
		return Payment{}, err
	}
	return p, nil
}

func (r *PostgresRepository) Delivery(ctx context.Context) (Delivery, error) {
	var d Delivery
	err := r.db.QueryRowContext(ctx, deliveryQuery).Scan(&d.OrdinaryPrice, &d.ExpressPrice, &d.FreeDeliveryPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultDelivery, nil
	}
	return d, err
}

func (r *PostgresRepository) Delete(ctx context.Context, id int) error {
	return r.exec(ctx, deleteOrderQuery, id)
}

func (r *PostgresRepository) attachLines(ctx context.Context, orders []Order) error {
	if len(orders) == 0 {
		return nil
	}
	index := make(map[int]int, len(orders))
	ids := make([]int, 0, len(orders))
	for i, o := range orders {
		index[o.ID] = i
		ids = append(ids, o.ID)
	}

	rows, err := r.db.QueryContext(ctx, orderLinesQuery, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var orderID int
		var l Line
		if err := rows.Scan(&orderID, &l.ProductID, &l.Count, &l.Price, &l.AddedAt); err != nil {
			return err
		}
		orders[index[orderID]].Lines = append(orders[index[orderID]].Lines, l)
	}
	return rows.Err()
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanOrder(scanner rowScanner) (Order, error) {
	var (
		o                 Order
		delivery, payment string
		status            string
	)
	if err := scanner.Scan(
		&o.ID,
		&o.UserID,
		&o.CreatedAt,
		&o.FullName,
		&o.Email,
		&o.Phone,
		&delivery,
		&payment,
		&o.TotalCost,
		&status,
		&o.City,
		&o.Address,
		&o.Available,
	); err != nil {
		return Order{}, err
	}
	o.DeliveryType = DeliveryType(delivery)
	o.PaymentType = PaymentType(payment)
	o.Status = Status(status)
	return o, nil
}
