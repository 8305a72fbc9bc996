package tag

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	listTagsQuery           = `SELECT id, name FROM tags ORDER BY id`
	listTagsByCategoryQuery = `
		SELECT DISTINCT t.id, t.name
		FROM tags t
		JOIN product_tags pt ON pt.tag_id = t.id
		JOIN products p ON p.id = pt.product_id
		WHERE p.category_id = ANY($1::int[])
		ORDER BY t.id
	`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]Tag, error) {
	return r.query(ctx, listTagsQuery)
}

func (r *PostgresRepository) ListByCategories(ctx context.Context, categoryIDs []int) ([]Tag, error) {
	return r.query(ctx, listTagsByCategoryQuery, pq.Array(categoryIDs))
}

func (r *PostgresRepository) query(ctx context.Context, q string, args ...any) ([]Tag, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Tag, 0)
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
