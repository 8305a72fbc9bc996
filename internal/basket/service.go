package basket

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/engineer-developer/marketplace/internal/product"
)

// Products resolves basket lines to catalog products.
type Products interface {
	Lookup(ctx context.Context, ids []int) (map[int]product.Product, error)
	Today() time.Time
}

type Service struct {
	repo     Repository
	products Products
	now      func() time.Time
	log      *zap.Logger
}

func NewService(repo Repository, products Products, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, products: products, now: time.Now, log: log}
}

// Get lists the basket as short products: count is the quantity in the
// basket and price the current sale price.
func (s *Service) Get(ctx context.Context, owner Owner) ([]product.Short, error) {
	b, err := s.repo.GetOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, b.Lines)
}

// Add puts count items of a product into the basket.
func (s *Service) Add(ctx context.Context, owner Owner, productID, count int) ([]product.Short, error) {
	found, err := s.products.Lookup(ctx, []int{productID})
	if err != nil {
		return nil, err
	}
	if _, ok := found[productID]; !ok {
		return nil, product.ErrNotFound
	}

	b, err := s.repo.GetOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Add(ctx, b.ID, productID, count); err != nil {
		return nil, err
	}
	return s.Get(ctx, owner)
}

// Remove takes count items of a product out of the basket. deleted reports
// that the whole line went away.
func (s *Service) Remove(ctx context.Context, owner Owner, productID, count int) (deleted bool, items []product.Short, err error) {
	b, err := s.repo.GetOrCreate(ctx, owner)
	if err != nil {
		return false, nil, err
	}
	deleted, err = s.repo.Remove(ctx, b.ID, productID, count)
	if err != nil {
		return false, nil, err
	}
	if deleted {
		return true, nil, nil
	}
	items, err = s.Get(ctx, owner)
	return false, items, err
}

// Flush empties the basket of a user. A user without a basket is a no-op.
func (s *Service) Flush(ctx context.Context, userID int) error {
	b, err := s.repo.Find(ctx, Owner{UserID: userID})
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.repo.Clear(ctx, b.ID)
}

// Totals sums list price times quantity and the quantities of a basket.
type Totals struct {
	Price    decimal.Decimal
	Quantity int
}

func (s *Service) Totals(ctx context.Context, owner Owner) (Totals, error) {
	b, err := s.repo.GetOrCreate(ctx, owner)
	if err != nil {
		return Totals{}, err
	}
	found, err := s.products.Lookup(ctx, productIDs(b.Lines))
	if err != nil {
		return Totals{}, err
	}
	t := Totals{Price: decimal.Zero}
	for _, l := range b.Lines {
		if p, ok := found[l.ProductID]; ok {
			t.Price = t.Price.Add(p.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
		}
		t.Quantity += l.Quantity
	}
	return t, nil
}

// PurgeStale deletes anonymous baskets idle for longer than ttl.
func (s *Service) PurgeStale(ctx context.Context, ttl time.Duration) (int64, error) {
	return s.repo.DeleteStale(ctx, s.now().Add(-ttl))
}

// RunJanitor purges stale anonymous baskets every interval until ctx is done.
func (s *Service) RunJanitor(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeStale(ctx, ttl)
			if err != nil {
				s.log.Error("purge stale baskets", zap.Error(err))
				continue
			}
			if n > 0 {
				s.log.Info("purged stale baskets", zap.Int64("count", n))
			}
		}
	}
}

func (s *Service) render(ctx context.Context, lines []Line) ([]product.Short, error) {
	if len(lines) == 0 {
		return []product.Short{}, nil
	}
	found, err := s.products.Lookup(ctx, productIDs(lines))
	if err != nil {
		return nil, err
	}
	today := s.products.Today()
	out := make([]product.Short, 0, len(lines))
	for _, l := range lines {
		p, ok := found[l.ProductID]
		if !ok {
			continue
		}
		short := p.Short()
		short.Count = l.Quantity
		short.Price = p.EffectivePrice(today)
		out = append(out, short)
	}
	return out, nil
}

func productIDs(lines []Line) []int {
	ids := make([]int, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	return ids
}
