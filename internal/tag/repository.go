package tag

import (
	"context"
	"slices"
	"sync"
)

type Repository interface {
	List(ctx context.Context) ([]Tag, error)
	// ListByCategories returns the distinct tags of products in any of the
	// given categories.
	ListByCategories(ctx context.Context, categoryIDs []int) ([]Tag, error)
}

// InMemoryRepository keeps, per tag, the categories of the products that
// carry it.
type InMemoryRepository struct {
	mu         sync.RWMutex
	tags       []Tag
	categories map[int][]int
}

func NewInMemoryRepository(tags []Tag, categories map[int][]int) *InMemoryRepository {
	if categories == nil {
		categories = map[int][]int{}
	}
	return &InMemoryRepository{tags: append([]Tag(nil), tags...), categories: categories}
}

func (r *InMemoryRepository) List(_ context.Context) ([]Tag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Tag(nil), r.tags...), nil
}

func (r *InMemoryRepository) ListByCategories(_ context.Context, categoryIDs []int) ([]Tag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tag, 0)
	for _, t := range r.tags {
		for _, c := range r.categories[t.ID] {
			if slices.Contains(categoryIDs, c) {
				out = append(out, t)
				break
			}
		}
	}
	return out, nil
}
