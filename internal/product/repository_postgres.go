package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/engineer-developer/marketplace/internal/database"
	"github.com/engineer-developer/marketplace/internal/pagination"
	"github.com/engineer-developer/marketplace/internal/tag"
)

type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	productColumns = `p.id, p.category_id, p.price, p.count, p.date, p.title, p.description, p.full_description,
		p.free_delivery, p.limited, p.available,
		COALESCE(r.review_count, 0), COALESCE(r.rate_sum, 0), COALESCE(o.order_count, 0)`
	productFrom = `
		FROM products p
		LEFT JOIN (
			SELECT product_id, COUNT(*) AS review_count, SUM(rate) AS rate_sum
			FROM product_reviews GROUP BY product_id
		) r ON r.product_id = p.id
		LEFT JOIN (
			SELECT product_id, COUNT(*) AS order_count
			FROM order_products GROUP BY product_id
		) o ON o.product_id = p.id`
	selectProducts = `SELECT ` + productColumns + productFrom

	getProductQuery      = selectProducts + ` WHERE p.id = $1 AND p.available`
	listByIDsQuery       = selectProducts + ` WHERE p.id = ANY($1::int[]) ORDER BY p.id`
	popularQuery         = selectProducts + ` WHERE p.available ORDER BY COALESCE(o.order_count, 0) DESC, p.id LIMIT $1`
	limitedQuery         = selectProducts + ` WHERE p.available AND p.limited ORDER BY p.id LIMIT $1`
	firstInCategoryQuery = selectProducts + ` WHERE p.available AND p.category_id = $1 ORDER BY p.id LIMIT 1`

	imagesQuery = `SELECT product_id, src, alt FROM product_images WHERE product_id = ANY($1::int[]) ORDER BY id`
	tagsQuery   = `
		SELECT pt.product_id, t.id, t.name
		FROM product_tags pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE pt.product_id = ANY($1::int[])
		ORDER BY t.id
	`
	saleColumns    = `si.id, si.sale_id, si.product_id, si.discount, si.date_from, si.date_to, si.is_active, s.is_active`
	saleItemsQuery = `SELECT ` + saleColumns + ` FROM sale_items si JOIN sales s ON s.id = si.sale_id WHERE si.product_id = ANY($1::int[])`
	specsQuery     = `SELECT name, value FROM product_specifications WHERE product_id = $1 ORDER BY id`
	reviewsQuery   = `
		SELECT id, product_id, COALESCE(user_id, 0), author, email, text, rate, date
		FROM product_reviews WHERE product_id = $1 ORDER BY date, id
	`

	runningSalesWhere = `
		FROM sale_items si JOIN sales s ON s.id = si.sale_id
		WHERE s.is_active AND si.is_active AND si.date_from <= $1 AND si.date_to >= $1`
	countRunningSalesQuery = `SELECT COUNT(*) ` + runningSalesWhere
	runningSalesQuery      = `SELECT ` + saleColumns + runningSalesWhere + ` ORDER BY si.id LIMIT $2 OFFSET $3`

	insertReviewQuery = `
		INSERT INTO product_reviews (product_id, user_id, author, email, text, rate)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, date
	`
)

var sortColumns = map[SortField]string{
	SortPrice:   "p.price",
	SortReviews: "COALESCE(r.review_count, 0)",
	SortDate:    "p.date",
	SortRating:  "COALESCE(ROUND(r.rate_sum::numeric / r.review_count, 1), 0)",
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// catalogQueries builds the count and page queries for f. Both share the
// same leading arguments.
func catalogQueries(f Filter, p pagination.Params) (string, string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Name != "" {
		add("p.title ILIKE '%%' || $%d || '%%'", escapeLike(f.Name))
	}
	if f.MinPrice != nil {
		add("p.price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("p.price <= $%d", *f.MaxPrice)
	}
	if f.FreeDelivery != nil {
		add("p.free_delivery = $%d", *f.FreeDelivery)
	}
	if f.Available != nil {
		add("p.available = $%d", *f.Available)
	}
	if f.CategoryIDs != nil {
		add("p.category_id = ANY($%d::int[])", pq.Array(f.CategoryIDs))
	}
	if len(f.TagIDs) > 0 {
		add("p.id IN (SELECT product_id FROM product_tags WHERE tag_id = ANY($%d::int[]))", pq.Array(f.TagIDs))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	order := " ORDER BY p.id"
	if col, ok := sortColumns[f.Sort]; ok {
		dir := "DESC"
		if f.Ascending {
			dir = "ASC"
		}
		order = fmt.Sprintf(" ORDER BY %s %s, p.id", col, dir)
	}

	count := `SELECT COUNT(*) FROM products p` + where
	page := selectProducts + where + order + fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	return count, page, args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *PostgresRepository) Catalog(ctx context.Context, f Filter, p pagination.Params) ([]Product, int, error) {
	countQuery, pageQuery, args := catalogQueries(f, p)

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []Product{}, 0, nil
	}

	products, err := r.list(ctx, pageQuery, append(args, p.Size, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int) (Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, getProductQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}

	ps := []Product{p}
	if err := r.attach(ctx, ps); err != nil {
		return Product{}, err
	}
	p = ps[0]
	if p.Specifications, err = r.specifications(ctx, id); err != nil {
		return Product{}, err
	}
	if p.Reviews, err = r.reviews(ctx, id); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *PostgresRepository) ListByIDs(ctx context.Context, ids []int) ([]Product, error) {
	if len(ids) == 0 {
		return []Product{}, nil
	}
	return r.list(ctx, listByIDsQuery, pq.Array(ids))
}

func (r *PostgresRepository) Popular(ctx context.Context, limit int) ([]Product, error) {
	return r.list(ctx, popularQuery, limit)
}

func (r *PostgresRepository) Limited(ctx context.Context, limit int) ([]Product, error) {
	return r.list(ctx, limitedQuery, limit)
}

func (r *PostgresRepository) FirstInCategory(ctx context.Context, categoryID int) (Product, error) {
	ps, err := r.list(ctx, firstInCategoryQuery, categoryID)
	if err != nil {
		return Product{}, err
	}
	if len(ps) == 0 {
		return Product{}, ErrNotFound
	}
	return ps[0], nil
}

func (r *PostgresRepository) Sales(ctx context.Context, today time.Time, p pagination.Params) ([]SaleItem, []Product, int, error) {
	day := dateOnly(today)

	var total int
	if err := r.db.QueryRowContext(ctx, countRunningSalesQuery, day).Scan(&total); err != nil {
		return nil, nil, 0, err
	}
	if total == 0 {
		return []SaleItem{}, []Product{}, 0, nil
	}

	items, err := r.saleItems(ctx, runningSalesQuery, day, p.Size, p.Offset())
	if err != nil {
		return nil, nil, 0, err
	}
	ids := make([]int, 0, len(items))
	for _, s := range items {
		ids = append(ids, s.ProductID)
	}
	found, err := r.ListByIDs(ctx, ids)
	if err != nil {
		return nil, nil, 0, err
	}
	byID := make(map[int]Product, len(found))
	for _, pr := range found {
		byID[pr.ID] = pr
	}

	products := make([]Product, 0, len(items))
	for _, s := range items {
		products = append(products, byID[s.ProductID])
	}
	return items, products, total, nil
}

func (r *PostgresRepository) AddReview(ctx context.Context, rv Review) (Review, error) {
	var userID sql.NullInt64
	if rv.UserID > 0 {
		userID = sql.NullInt64{Int64: int64(rv.UserID), Valid: true}
	}
	err := r.db.QueryRowContext(ctx, insertReviewQuery,
		rv.ProductID, userID, rv.Author, rv.Email, rv.Text, rv.Rate,
	).Scan(&rv.ID, &rv.Date)
	if err != nil {
		if name, ok := database.ConstraintOf(err); ok && name == "product_reviews_product_email_key" {
			return Review{}, ErrDuplicateReview
		}
		return Review{}, err
	}
	return rv, nil
}

// list runs a product query and attaches images, tags and sale items.
func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attach(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRepository) attach(ctx context.Context, products []Product) error {
	if len(products) == 0 {
		return nil
	}
	index := make(map[int]int, len(products))
	ids := make([]int, 0, len(products))
	for i, p := range products {
		index[p.ID] = i
		ids = append(ids, p.ID)
	}
	arr := pq.Array(ids)

	rows, err := r.db.QueryContext(ctx, imagesQuery, arr)
	if err != nil {
		return err
	}
	for rows.Next() {
		var id int
		var img Image
		if err := rows.Scan(&id, &img.Src, &img.Alt); err != nil {
			rows.Close()
			return err
		}
		products[index[id]].Images = append(products[index[id]].Images, img)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.db.QueryContext(ctx, tagsQuery, arr)
	if err != nil {
		return err
	}
	for rows.Next() {
		var id int
		var t tag.Tag
		if err := rows.Scan(&id, &t.ID, &t.Name); err != nil {
			rows.Close()
			return err
		}
		products[index[id]].Tags = append(products[index[id]].Tags, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	sales, err := r.saleItems(ctx, saleItemsQuery, arr)
	if err != nil {
		return err
	}
	for _, s := range sales {
		products[index[s.ProductID]].Sales = append(products[index[s.ProductID]].Sales, s)
	}
	return nil
}

func (r *PostgresRepository) saleItems(ctx context.Context, query string, args ...any) ([]SaleItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]SaleItem, 0)
	for rows.Next() {
		var s SaleItem
		if err := rows.Scan(&s.ID, &s.SaleID, &s.ProductID, &s.Discount, &s.DateFrom, &s.DateTo, &s.Active, &s.SaleActive); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) specifications(ctx context.Context, productID int) ([]Specification, error) {
	rows, err := r.db.QueryContext(ctx, specsQuery, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Specification, 0)
	for rows.Next() {
		var s Specification
		if err := rows.Scan(&s.Name, &s.Value); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) reviews(ctx context.Context, productID int) ([]Review, error) {
	rows, err := r.db.QueryContext(ctx, reviewsQuery, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Review, 0)
	for rows.Next() {
		var rv Review
		if err := rows.Scan(&rv.ID, &rv.ProductID, &rv.UserID, &rv.Author, &rv.Email, &rv.Text, &rv.Rate, &rv.Date); err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func scanProduct(scanner rowScanner) (Product, error) {
	p := Product{}
	if err := scanner.Scan(
		&p.ID,
		&p.CategoryID,
		&p.Price,
		&p.Count,
		&p.Date,
		&p.Title,
		&p.Description,
		&p.FullDescription,
		&p.FreeDelivery,
		&p.Limited,
		&p.Available,
		&p.ReviewCount,
		&p.RateSum,
		&p.OrderCount,
	); err != nil {
		return Product{}, err
	}
	return p, nil
}
