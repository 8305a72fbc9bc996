package banner

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/engineer-developer/marketplace/internal/product"
)

// Service provides business logic for banners.
type Service struct {
	categories Categories
	products   Products
	log        *zap.Logger
}

func NewService(categories Categories, products Products, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{categories: categories, products: products, log: log}
}

// List returns the first available product of each favourite category.
// Categories without products are skipped.
func (s *Service) List(ctx context.Context) ([]product.Short, error) {
	favorites, err := s.categories.Favorites(ctx, Limit)
	if err != nil {
		return nil, err
	}
	out := make([]product.Short, 0, len(favorites))
	for _, c := range favorites {
		p, err := s.products.FirstInCategory(ctx, c.ID)
		if errors.Is(err, product.ErrNotFound) {
			s.log.Debug("favourite category has no products", zap.Int("category_id", c.ID))
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
