package product

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/engineer-developer/marketplace/internal/pagination"
)

const (
	PopularLimit = 8
	LimitedLimit = 16
)

// CategoryScope expands a category id into the ids a catalog filter covers.
type CategoryScope interface {
	Scope(ctx context.Context, id int) ([]int, error)
}

type Service struct {
	repo       Repository
	categories CategoryScope
	now        func() time.Time
	log        *zap.Logger
}

func NewService(repo Repository, categories CategoryScope, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, categories: categories, now: time.Now, log: log}
}

// Catalog filters, sorts and pages products. Filtering by tags only ever
// returns available products.
func (s *Service) Catalog(ctx context.Context, f Filter, p pagination.Params) (pagination.Page[Short], error) {
	if f.CategoryID != 0 {
		ids, err := s.categories.Scope(ctx, f.CategoryID)
		if err != nil {
			return pagination.Page[Short]{}, err
		}
		f.CategoryIDs = ids
	}
	if len(f.TagIDs) > 0 {
		available := true
		f.Available = &available
	}

	products, total, err := s.repo.Catalog(ctx, f, p)
	if err != nil {
		return pagination.Page[Short]{}, err
	}
	return pagination.New(shorts(products), total, p), nil
}

func (s *Service) Get(ctx context.Context, id int) (Full, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Full{}, err
	}
	return p.Full(), nil
}

// ReviewInput is a review written by a signed-in user.
type ReviewInput struct {
	UserID int
	Author string
	Email  string
	Text   string
	Rate   int
}

// AddReview stores a review on an available product. One review per email.
func (s *Service) AddReview(ctx context.Context, productID int, in ReviewInput) ([]ReviewView, error) {
	if _, err := s.repo.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	rv, err := s.repo.AddReview(ctx, Review{
		ProductID: productID,
		UserID:    in.UserID,
		Author:    strings.TrimSpace(in.Author),
		Email:     strings.TrimSpace(in.Email),
		Text:      strings.TrimSpace(in.Text),
		Rate:      in.Rate,
		Date:      s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("review added", zap.Int("product_id", productID), zap.Int("user_id", in.UserID))
	return reviewViews([]Review{rv}), nil
}

func (s *Service) Popular(ctx context.Context) ([]Short, error) {
	products, err := s.repo.Popular(ctx, PopularLimit)
	if err != nil {
		return nil, err
	}
	return shorts(products), nil
}

func (s *Service) Limited(ctx context.Context) ([]Short, error) {
	products, err := s.repo.Limited(ctx, LimitedLimit)
	if err != nil {
		return nil, err
	}
	return shorts(products), nil
}

func (s *Service) Sales(ctx context.Context, p pagination.Params) (pagination.Page[SaleView], error) {
	today := s.now()
	items, products, total, err := s.repo.Sales(ctx, today, p)
	if err != nil {
		return pagination.Page[SaleView]{}, err
	}
	views := make([]SaleView, 0, len(items))
	for i, item := range items {
		views = append(views, saleView(products[i], item, today))
	}
	return pagination.New(views, total, p), nil
}

func (s *Service) FirstInCategory(ctx context.Context, categoryID int) (Short, error) {
	p, err := s.repo.FirstInCategory(ctx, categoryID)
	if err != nil {
		return Short{}, err
	}
	return p.Short(), nil
}

// Lookup returns the products with the given ids keyed by id, including
// unavailable ones.
func (s *Service) Lookup(ctx context.Context, ids []int) (map[int]Product, error) {
	products, err := s.repo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int]Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// EffectivePrice is the lowest current sale price of a product, or its list price.
func (s *Service) EffectivePrice(ctx context.Context, productID int) (decimal.Decimal, error) {
	found, err := s.Lookup(ctx, []int{productID})
	if err != nil {
		return decimal.Zero, err
	}
	p, ok := found[productID]
	if !ok {
		return decimal.Zero, ErrNotFound
	}
	return p.EffectivePrice(s.now()), nil
}

// Today is the service clock, shared with callers that price products.
func (s *Service) Today() time.Time {
	return s.now()
}

func shorts(products []Product) []Short {
	out := make([]Short, 0, len(products))
	for _, p := range products {
		out = append(out, p.Short())
	}
	return out
}
