package banner

import (
	"context"

	"github.com/engineer-developer/marketplace/internal/category"
	"github.com/engineer-developer/marketplace/internal/product"
)

// Limit is the number of favourite categories shown as banners.
const Limit = 3

// Categories lists favourite categories.
type Categories interface {
	Favorites(ctx context.Context, limit int) ([]category.Category, error)
}

// Products picks the product shown for a category.
type Products interface {
	FirstInCategory(ctx context.Context, categoryID int) (product.Short, error)
}
