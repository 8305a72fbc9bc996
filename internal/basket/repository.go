package basket

import (
	"context"
	"slices"
	"sync"
	"time"
)

type Repository interface {
	GetOrCreate(ctx context.Context, owner Owner) (Basket, error)
	// Find returns the basket of owner without creating one.
	Find(ctx context.Context, owner Owner) (Basket, error)
	// Add creates the line with count or adds count to it.
	Add(ctx context.Context, basketID, productID, count int) error
	// Remove deletes the line when count covers its quantity and decrements
	// it otherwise. It reports whether the line was deleted.
	Remove(ctx context.Context, basketID, productID, count int) (bool, error)
	Clear(ctx context.Context, basketID int) error
	// DeleteStale drops anonymous baskets not updated since before.
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
}

// InMemoryRepository keeps baskets in memory, for tests and local runs.
type InMemoryRepository struct {
	mu      sync.Mutex
	baskets []Basket
	nextID  int
	now     func() time.Time
}

func NewInMemoryRepository(seed []Basket) *InMemoryRepository {
	r := &InMemoryRepository{nextID: 1, now: time.Now}
	for _, b := range seed {
		r.baskets = append(r.baskets, b)
		r.nextID = max(r.nextID, b.ID+1)
	}
	return r
}

func (r *InMemoryRepository) GetOrCreate(_ context.Context, owner Owner) (Basket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.index(owner); i >= 0 {
		return r.copyOf(i), nil
	}
	now := r.now()
	b := Basket{ID: r.nextID, UserID: owner.UserID, SessionKey: owner.SessionKey, CreatedAt: now, UpdatedAt: now}
	if !owner.anonymous() {
		b.SessionKey = ""
	}
	r.nextID++
	r.baskets = append(r.baskets, b)
	return b, nil
}

func (r *InMemoryRepository) Find(_ context.Context, owner Owner) (Basket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.index(owner); i >= 0 {
		return r.copyOf(i), nil
	}
	return Basket{}, ErrNotFound
}

func (r *InMemoryRepository) Add(_ context.Context, basketID, productID, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.byID(basketID)
	if b == nil {
		return ErrNotFound
	}
	if j := slices.IndexFunc(b.Lines, func(l Line) bool { return l.ProductID == productID }); j >= 0 {
		b.Lines[j].Quantity += count
	} else {
		b.Lines = append(b.Lines, Line{ProductID: productID, Quantity: count})
	}
	b.UpdatedAt = r.now()
	return nil
}

func (r *InMemoryRepository) Remove(_ context.Context, basketID, productID, count int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.byID(basketID)
	if b == nil {
		return false, ErrNotFound
	}
	j := slices.IndexFunc(b.Lines, func(l Line) bool { return l.ProductID == productID })
	if j < 0 {
		return false, ErrLineNotFound
	}
	b.UpdatedAt = r.now()
	if b.Lines[j].Quantity <= count {
		b.Lines = slices.Delete(b.Lines, j, j+1)
		return true, nil
	}
	b.Lines[j].Quantity -= count
	return false, nil
}

func (r *InMemoryRepository) Clear(_ context.Context, basketID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.byID(basketID)
	if b == nil {
		return ErrNotFound
	}
	b.Lines = nil
	b.UpdatedAt = r.now()
	return nil
}

func (r *InMemoryRepository) DeleteStale(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	r.baskets = slices.DeleteFunc(r.baskets, func(b Basket) bool {
		stale := b.UserID == 0 && b.UpdatedAt.Before(before)
		if stale {
			n++
		}
		return stale
	})
	return n, nil
}

func (r *InMemoryRepository) index(owner Owner) int {
	return slices.IndexFunc(r.baskets, func(b Basket) bool {
		if owner.anonymous() {
			return b.UserID == 0 && b.SessionKey == owner.SessionKey
		}
		return b.UserID == owner.UserID
	})
}

func (r *InMemoryRepository) byID(id int) *Basket {
	for i := range r.baskets {
		if r.baskets[i].ID == id {
			return &r.baskets[i]
		}
	}
	return nil
}

func (r *InMemoryRepository) copyOf(i int) Basket {
	b := r.baskets[i]
	b.Lines = slices.Clone(b.Lines)
	return b
}
