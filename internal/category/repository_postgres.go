package category

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresRepository implements Repository using Postgres.
type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	listCategoriesQuery = `SELECT id, title, image_src, image_alt, parent_id, favorite, available FROM categories ORDER BY id`
	getCategoryQuery    = `SELECT id, title, image_src, image_alt, parent_id, favorite, available FROM categories WHERE id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, listCategoriesQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int) (Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx, getCategoryQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Category{}, ErrNotFound
	}
	return c, err
}

func scanCategory(s rowScanner) (Category, error) {
	var (
		c        Category
		src, alt sql.NullString
		parent   sql.NullInt64
	)
	if err := s.Scan(&c.ID, &c.Title, &src, &alt, &parent, &c.Favorite, &c.Available); err != nil {
		return Category{}, err
	}
	c.Image = Image{Src: src.String, Alt: alt.String}
	if parent.Valid {
		p := int(parent.Int64)
		c.ParentID = &p
	}
	return c, nil
}
