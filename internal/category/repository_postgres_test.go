package category

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

var categoryColumns = []string{"id", "title", "image_src", "image_alt", "parent_id", "favorite", "available"}

func TestPostgresList(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	rows := sqlmock.NewRows(categoryColumns).
		AddRow(1, "Electronics", "/media/e.png", nil, nil, true, true).
		AddRow(2, "Phones", nil, nil, 1, false, true)
	mock.ExpectQuery("SELECT id, title").WillReturnRows(rows)

	all, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(all))
	}
	if all[0].ParentID != nil || all[1].ParentID == nil || *all[1].ParentID != 1 {
		t.Fatalf("parent ids not scanned: %+v", all)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresGetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectQuery("FROM categories WHERE id").WithArgs(8).WillReturnRows(sqlmock.NewRows(categoryColumns))

	if _, err := repo.GetByID(context.Background(), 8); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
