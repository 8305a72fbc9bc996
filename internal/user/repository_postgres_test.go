package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

var userRowColumns = []string{"id", "username", "password_hash", "first_name", "last_name", "email", "phone", "avatar_src", "avatar_alt", "available", "created_at", "updated_at"}

func TestPostgresGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(userRowColumns).
		AddRow(4, "anna", "hash", "Anna", "K", "anna@example.com", nil, nil, nil, true, now, now)
	mock.ExpectQuery("FROM users WHERE id = \\$1").WithArgs(4).WillReturnRows(rows)
	mock.ExpectQuery("FROM users WHERE id = \\$1").WithArgs(5).WillReturnRows(sqlmock.NewRows(userRowColumns))

	u, err := repo.GetByID(context.Background(), 4)
	if err != nil {
		t.Fatalf("expected nil err, got %v", err)
	}
	if u.Username != "anna" || u.Email != "anna@example.com" || u.Phone != "" {
		t.Fatalf("unexpected user %+v", u)
	}

	if _, err := repo.GetByID(context.Background(), 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresCreate_MapsUniqueViolations(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	now := time.Now()
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("anna", "hash", "Anna", "", nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "available", "created_at", "updated_at"}).AddRow(9, true, now, now))
	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

	created, err := repo.Create(context.Background(), User{Username: "anna", PasswordHash: "hash", FirstName: "Anna"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.ID != 9 || !created.Available {
		t.Fatalf("unexpected created user %+v", created)
	}

	if _, err := repo.Create(context.Background(), User{Username: "anna", PasswordHash: "hash"}); !errors.Is(err, ErrUsernameExists) {
		t.Fatalf("expected ErrUsernameExists, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresUpdate_EmailConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectQuery("UPDATE users").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err = repo.Update(context.Background(), User{ID: 1, Email: "dup@example.com"})
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestPostgresSetPassword_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectExec("UPDATE users SET password_hash").WithArgs("h", 77).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.SetPassword(context.Background(), 77, "h"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
