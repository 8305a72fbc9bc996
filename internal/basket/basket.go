package basket

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("basket not found")
	ErrLineNotFound = errors.New("product not in basket")
)

// Owner identifies a basket: a signed-in user or an anonymous session.
// Exactly one field is set.
type Owner struct {
	UserID     int
	SessionKey string
}

func (o Owner) anonymous() bool {
	return o.UserID == 0
}

type Basket struct {
	ID         int
	UserID     int
	SessionKey string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Lines      []Line
}

// Line is one product in a basket.
type Line struct {
	ProductID int
	Quantity  int
}
