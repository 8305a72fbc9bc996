package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engineer-developer/marketplace/internal/product"
)

var orderRowColumns = []string{"id", "user_id", "created_at", "full_name", "email", "phone", "delivery_type", "payment_type", "total_cost", "status", "city", "address", "available"}

func newMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func TestPostgresCreate_InsertsLinesInOneTransaction(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows(orderRowColumns).AddRow(11, 0, now, "", "", "", "ORDINARY", "ONLINE", "0", "NEW", "", "", true))
	mock.ExpectQuery("INSERT INTO order_products").
		WithArgs(11, 1, 2, "2000").
		WillReturnRows(sqlmock.NewRows([]string{"added_at"}).AddRow(now))
	mock.ExpectCommit()

	o, err := repo.Create(context.Background(), []Line{{ProductID: 1, Count: 2, Price: decimal.NewFromInt(2000)}})
	require.NoError(t, err)
	assert.Equal(t, 11, o.ID)
	assert.Equal(t, StatusNew, o.Status)
	require.Len(t, o.Lines, 1)
	assert.Equal(t, now, o.Lines[0].AddedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreate_UnknownProductRollsBack(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows(orderRowColumns).AddRow(12, 0, now, "", "", "", "ORDINARY", "ONLINE", "0", "NEW", "", "", true))
	mock.ExpectQuery("INSERT INTO order_products").
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "order_products_product_id_fkey"})
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), []Line{{ProductID: 99, Count: 1, Price: decimal.NewFromInt(10)}})
	assert.ErrorIs(t, err, product.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetByID_LoadsLines(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery("FROM orders WHERE id = \\$1 AND available").WithArgs(3).
		WillReturnRows(sqlmock.NewRows(orderRowColumns).AddRow(3, 7, now, "Jenny", "j@example.com", "123", "EXPRESS", "SOMEONE", "3000.00", "CONFIRMED", "Moscow", "Street", true))
	mock.ExpectQuery("FROM order_products").WithArgs("{3}").
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "product_id", "count", "price", "added_at"}).
			AddRow(3, 1, 1, "2500.00", now))
	mock.ExpectQuery("FROM orders WHERE id = \\$1 AND available").WithArgs(4).
		WillReturnRows(sqlmock.NewRows(orderRowColumns))

	o, err := repo.GetByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, DeliveryExpress, o.DeliveryType)
	assert.Equal(t, PaymentSomeone, o.PaymentType)
	assert.True(t, o.TotalCost.Equal(decimal.NewFromInt(3000)))
	require.Len(t, o.Lines, 1)
	assert.True(t, o.Lines[0].Price.Equal(decimal.NewFromInt(2500)))

	_, err = repo.GetByID(context.Background(), 4)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdate_StoresNullOwner(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec("UPDATE orders").
		WithArgs(nil, "", "", "", "ORDINARY", "ONLINE", "2250", "NEW", "", "", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE orders").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), Order{ID: 3, DeliveryType: DeliveryOrdinary, PaymentType: PaymentOnline, Status: StatusNew, TotalCost: decimal.NewFromInt(2250)})
	require.NoError(t, err)

	err = repo.Update(context.Background(), Order{ID: 4})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCompletePayment(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET status").WithArgs("PAIDED", 8).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO payments").
		WithArgs(8, "1112", "Jenny", "02", "2024", "123").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(5, now))
	mock.ExpectCommit()

	p, err := repo.CompletePayment(context.Background(), Payment{OrderID: 8, Number: "1112", Name: "Jenny", Month: "02", Year: "2024", Code: "123"})
	require.NoError(t, err)
	assert.Equal(t, 5, p.ID)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET status").WithArgs("PAIDED", 9).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err = repo.CompletePayment(context.Background(), Payment{OrderID: 9})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDelivery_FallsBackToDefaults(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("FROM deliveries").
		WillReturnRows(sqlmock.NewRows([]string{"ordinary_price", "express_price", "free_delivery_price"}).AddRow("150", "400", "3000"))
	mock.ExpectQuery("FROM deliveries").
		WillReturnRows(sqlmock.NewRows([]string{"ordinary_price", "express_price", "free_delivery_price"}))

	d, err := repo.Delivery(context.Background())
	require.NoError(t, err)
	assert.True(t, d.FreeDeliveryPrice.Equal(decimal.NewFromInt(3000)))

	d, err = repo.Delivery(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultDelivery, d)

	mock.ExpectQuery("FROM deliveries").WillReturnError(errors.New("connection reset"))
	_, err = repo.Delivery(context.Background())
	assert.Error(t, err)
}
