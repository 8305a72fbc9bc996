package product

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/engineer-developer/marketplace/internal/pagination"
	"github.com/engineer-developer/marketplace/internal/tag"
)

var (
	ErrNotFound        = errors.New("product not found")
	ErrDuplicateReview = errors.New("review with such email already exists")
)

type Repository interface {
	// Catalog returns one page of products matching f and the total match count.
	Catalog(ctx context.Context, f Filter, p pagination.Params) ([]Product, int, error)
	// GetByID returns an available product with every relation loaded.
	GetByID(ctx context.Context, id int) (Product, error)
	// ListByIDs returns products regardless of availability, with images, tags,
	// sale items and review aggregates. Missing ids are skipped.
	ListByIDs(ctx context.Context, ids []int) ([]Product, error)
	Popular(ctx context.Context, limit int) ([]Product, error)
	Limited(ctx context.Context, limit int) ([]Product, error)
	FirstInCategory(ctx context.Context, categoryID int) (Product, error)
	// Sales returns one page of sale items running on today, together with
	// their products, and the total.
	Sales(ctx context.Context, today time.Time, p pagination.Params) ([]SaleItem, []Product, int, error)
	AddReview(ctx context.Context, r Review) (Review, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
type InMemoryRepository struct {
	mu      sync.RWMutex
	storage []Product
	nextID  int
}

func NewInMemoryRepository(seed []Product) *InMemoryRepository {
	r := &InMemoryRepository{nextID: 1}
	for _, p := range seed {
		r.storage = append(r.storage, p)
		for _, rv := range p.Reviews {
			r.nextID = max(r.nextID, rv.ID+1)
		}
	}
	return r
}

func (r *InMemoryRepository) Catalog(_ context.Context, f Filter, p pagination.Params) ([]Product, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]Product, 0)
	for _, pr := range r.storage {
		if f.matches(pr) {
			matched = append(matched, pr)
		}
	}
	sortProducts(matched, f.Sort, f.Ascending)

	page := pagination.Slice(matched, p)
	return page.Items, len(matched), nil
}

func (f Filter) matches(p Product) bool {
	if f.Name != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(f.Name)) {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.FreeDelivery != nil && p.FreeDelivery != *f.FreeDelivery {
		return false
	}
	if f.Available != nil && p.Available != *f.Available {
		return false
	}
	if f.CategoryIDs != nil && !slices.Contains(f.CategoryIDs, p.CategoryID) {
		return false
	}
	if len(f.TagIDs) > 0 && !slices.ContainsFunc(p.Tags, func(t tag.Tag) bool { return slices.Contains(f.TagIDs, t.ID) }) {
		return false
	}
	return true
}

func sortProducts(ps []Product, field SortField, asc bool) {
	key := func(a, b Product) int {
		switch field {
		case SortPrice:
			return a.Price.Cmp(b.Price)
		case SortReviews:
			na, _ := a.reviewStats()
			nb, _ := b.reviewStats()
			return cmp.Compare(na, nb)
		case SortDate:
			return a.Date.Compare(b.Date)
		case SortRating:
			return cmp.Compare(a.Rating(), b.Rating())
		}
		return cmp.Compare(a.ID, b.ID)
	}
	slices.SortStableFunc(ps, func(a, b Product) int {
		c := key(a, b)
		if field != SortNone && !asc {
			c = -c
		}
		if c == 0 {
			return cmp.Compare(a.ID, b.ID)
		}
		return c
	})
}

func (r *InMemoryRepository) GetByID(_ context.Context, id int) (Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.storage {
		if p.ID == id && p.Available {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (r *InMemoryRepository) ListByIDs(_ context.Context, ids []int) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Product, 0, len(ids))
	for _, p := range r.storage {
		if slices.Contains(ids, p.ID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *InMemoryRepository) Popular(_ context.Context, limit int) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := r.available(func(Product) bool { return true })
	slices.SortStableFunc(out, func(a, b Product) int {
		if c := cmp.Compare(b.OrderCount, a.OrderCount); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out[:min(limit, len(out))], nil
}

func (r *InMemoryRepository) Limited(_ context.Context, limit int) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := r.available(func(p Product) bool { return p.Limited })
	return out[:min(limit, len(out))], nil
}

func (r *InMemoryRepository) FirstInCategory(_ context.Context, categoryID int) (Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := r.available(func(p Product) bool { return p.CategoryID == categoryID })
	if len(out) == 0 {
		return Product{}, ErrNotFound
	}
	return out[0], nil
}

// available must be called with the lock held.
func (r *InMemoryRepository) available(keep func(Product) bool) []Product {
	out := make([]Product, 0)
	for _, p := range r.storage {
		if p.Available && keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func (r *InMemoryRepository) Sales(_ context.Context, today time.Time, p pagination.Params) ([]SaleItem, []Product, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type pair struct {
		item    SaleItem
		product Product
	}
	running := make([]pair, 0)
	for _, pr := range r.storage {
		for _, s := range pr.Sales {
			if s.Running(today) {
				running = append(running, pair{s, pr})
			}
		}
	}
	slices.SortFunc(running, func(a, b pair) int { return cmp.Compare(a.item.ID, b.item.ID) })

	page := pagination.Slice(running, p)
	items := make([]SaleItem, 0, len(page.Items))
	products := make([]Product, 0, len(page.Items))
	for _, pp := range page.Items {
		items = append(items, pp.item)
		products = append(products, pp.product)
	}
	return items, products, len(running), nil
}

func (r *InMemoryRepository) AddReview(_ context.Context, rv Review) (Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.storage {
		if r.storage[i].ID != rv.ProductID {
			continue
		}
		for _, existing := range r.storage[i].Reviews {
			if existing.Email == rv.Email {
				return Review{}, ErrDuplicateReview
			}
		}
		rv.ID = r.nextID
		r.nextID++
		if rv.Date.IsZero() {
			rv.Date = time.Now()
		}
		r.storage[i].Reviews = append(r.storage[i].Reviews, rv)
		return rv, nil
	}
	return Review{}, ErrNotFound
}
