package basket

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPostgresGetOrCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	now := time.Now()
	mock.ExpectQuery("FROM baskets WHERE session_key = \\$1").WithArgs("abc").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("INSERT INTO baskets").WithArgs(nil, "abc").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(5, now, now))

	b, err := repo.GetOrCreate(context.Background(), Owner{SessionKey: "abc"})
	if err != nil {
		t.Fatalf("get or create failed: %v", err)
	}
	if b.ID != 5 || b.SessionKey != "abc" || b.UserID != 0 {
		t.Fatalf("unexpected basket %+v", b)
	}

	mock.ExpectQuery("FROM baskets WHERE user_id = \\$1").WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "session_key", "created_at", "updated_at"}).AddRow(6, 7, "", now, now))
	mock.ExpectQuery("FROM basket_items WHERE basket_id").WithArgs(6).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity"}).AddRow(1, 2).AddRow(3, 1))

	b, err = repo.GetOrCreate(context.Background(), Owner{UserID: 7})
	if err != nil {
		t.Fatalf("get existing failed: %v", err)
	}
	if len(b.Lines) != 2 || b.Lines[0].Quantity != 2 {
		t.Fatalf("unexpected lines %+v", b.Lines)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresAdd_UpsertsAndTouches(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("ON CONFLICT \\(basket_id, product_id\\)").WithArgs(6, 1, 3).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE baskets SET updated_at").WithArgs(6).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Add(context.Background(), 6, 1, 3); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresRemove(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	// decrement
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs(6, 1).WillReturnRows(sqlmock.NewRows([]string{"quantity"}).AddRow(5))
	mock.ExpectExec("SET quantity = quantity - \\$3").WithArgs(6, 1, 2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE baskets SET updated_at").WithArgs(6).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// delete
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs(6, 1).WillReturnRows(sqlmock.NewRows([]string{"quantity"}).AddRow(3))
	mock.ExpectExec("DELETE FROM basket_items WHERE basket_id = \\$1 AND product_id").WithArgs(6, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE baskets SET updated_at").WithArgs(6).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// missing line
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs(6, 9).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	deleted, err := repo.Remove(context.Background(), 6, 1, 2)
	if err != nil || deleted {
		t.Fatalf("expected decrement, got deleted=%v err=%v", deleted, err)
	}
	deleted, err = repo.Remove(context.Background(), 6, 1, 3)
	if err != nil || !deleted {
		t.Fatalf("expected delete, got deleted=%v err=%v", deleted, err)
	}
	if _, err := repo.Remove(context.Background(), 6, 9, 1); !errors.Is(err, ErrLineNotFound) {
		t.Fatalf("expected ErrLineNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresDeleteStale(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	before := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("DELETE FROM baskets WHERE session_key IS NOT NULL").WithArgs(before).WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.DeleteStale(context.Background(), before)
	if err != nil || n != 4 {
		t.Fatalf("unexpected result n=%d err=%v", n, err)
	}
}
