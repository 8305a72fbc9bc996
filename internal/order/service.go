package order

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/engineer-developer/marketplace/internal/product"
	"github.com/engineer-developer/marketplace/internal/user"
	"github.com/engineer-developer/marketplace/internal/validation"
)

type Products interface {
	Lookup(ctx context.Context, ids []int) (map[int]product.Product, error)
}

type Users interface {
	GetByID(ctx context.Context, id int) (user.User, error)
}

// Baskets empties the basket of the order owner after confirmation.
type Baskets interface {
	Flush(ctx context.Context, userID int) error
}

type Service struct {
	repo     Repository
	products Products
	users    Users
	baskets  Baskets
	cards    *CardValidator
	log      *zap.Logger
}

func NewService(repo Repository, products Products, users Users, baskets Baskets, cards *CardValidator, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if cards == nil {
		cards = NewCardValidator()
	}
	return &Service{repo: repo, products: products, users: users, baskets: baskets, cards: cards, log: log}
}

// LineInput is one basket entry sent at checkout. Price is the unit price.
type LineInput struct {
	ProductID int
	Count     int
	Price     decimal.Decimal
}

// Create opens a NEW order with a zero total. Repeated product ids collapse
// into one line carrying the last values sent.
func (s *Service) Create(ctx context.Context, items []LineInput) (Order, error) {
	lines := make([]Line, 0, len(items))
	seen := make(map[int]int, len(items))
	for _, it := range items {
		l := Line{ProductID: it.ProductID, Count: it.Count, Price: it.Price}
		if i, ok := seen[it.ProductID]; ok {
			lines[i] = l
			continue
		}
		seen[it.ProductID] = len(lines)
		lines = append(lines, l)
	}

	if len(lines) > 0 {
		found, err := s.products.Lookup(ctx, productIDs(lines))
		if err != nil {
			return Order{}, err
		}
		for _, l := range lines {
			if _, ok := found[l.ProductID]; !ok {
				s.log.Warn("order references unknown product", zap.Int("product_id", l.ProductID))
				return Order{}, product.ErrNotFound
			}
		}
	}

	o, err := s.repo.Create(ctx, lines)
	if err != nil {
		return Order{}, err
	}
	s.log.Debug("order created", zap.Int("order_id", o.ID), zap.Int("lines", len(o.Lines)))
	return o, nil
}

func (s *Service) List(ctx context.Context, userID int) ([]View, error) {
	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, orders...)
}

// Get returns an order view. A signed-in viewer claims an ownerless order and
// its recipient is filled in from the viewer's profile. A zero total is
// replaced by the sum of the line prices.
func (s *Service) Get(ctx context.Context, id, viewerID int) (View, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return View{}, err
	}

	changed := false
	if o.UserID == 0 && viewerID > 0 {
		u, err := s.users.GetByID(ctx, viewerID)
		if err != nil {
			return View{}, err
		}
		o.UserID = u.ID
		o.FullName = u.FullName()
		o.Email = u.Email
		o.Phone = u.Phone
		changed = true
		s.log.Debug("order attached to user", zap.Int("order_id", o.ID), zap.Int("user_id", u.ID))
	}
	if ApplyProductCost(&o) {
		changed = true
	}
	if changed {
		if err := s.repo.Update(ctx, o); err != nil {
			return View{}, err
		}
	}

	views, err := s.render(ctx, o)
	if err != nil {
		return View{}, err
	}
	return views[0], nil
}

// Payable reports ErrAlreadyPaid for a paid order and ErrNotFound for a
// missing one.
func (s *Service) Payable(ctx context.Context, id int) error {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if o.Paid() {
		s.log.Warn("order already paided", zap.Int("order_id", o.ID))
		return ErrAlreadyPaid
	}
	return nil
}

// DeliveryInfo is the checkout form. Empty recipient fields keep the values
// already on the order.
type DeliveryInfo struct {
	FullName     string
	Email        string
	Phone        string
	DeliveryType DeliveryType
	PaymentType  PaymentType
	City         string
	Address      string
}

// Confirm merges delivery info, adds the delivery cost and empties the
// owner's basket. Paid orders are rejected unchanged.
func (s *Service) Confirm(ctx context.Context, id int, info DeliveryInfo) (Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if o.Paid() {
		s.log.Warn("order already paided", zap.Int("order_id", o.ID))
		return o, ErrAlreadyPaid
	}

	if v := strings.TrimSpace(info.FullName); v != "" {
		o.FullName = v
	}
	if v := strings.TrimSpace(info.Email); v != "" {
		o.Email = v
	}
	if v := strings.TrimSpace(info.Phone); v != "" {
		o.Phone = v
	}
	if info.DeliveryType != "" {
		o.DeliveryType = info.DeliveryType
	}
	if info.PaymentType != "" {
		o.PaymentType = info.PaymentType
	}
	o.City = strings.TrimSpace(info.City)
	o.Address = strings.TrimSpace(info.Address)

	delivery, err := s.repo.Delivery(ctx)
	if err != nil {
		return Order{}, err
	}
	// Orders confirmed without being viewed still have a zero total.
	ApplyProductCost(&o)
	ApplyDeliveryCost(&o, delivery)
	o.Status = StatusConfirmed

	if err := s.repo.Update(ctx, o); err != nil {
		return Order{}, err
	}
	s.log.Debug("order confirmed", zap.Int("order_id", o.ID), zap.String("total", o.TotalCost.StringFixed(2)))

	if o.UserID > 0 && s.baskets != nil {
		if err := s.baskets.Flush(ctx, o.UserID); err != nil {
			return Order{}, err
		}
		s.log.Debug("basket flushed", zap.Int("user_id", o.UserID))
	}
	return o, nil
}

// Pay records a payment attempt. The order waits for payment while the card
// is checked, then becomes PAIDED or PAYMENT_ERROR.
func (s *Service) Pay(ctx context.Context, id int, card Card) (Payment, error) {
	if err := s.repo.SetStatus(ctx, id, StatusAwaitingPayment); err != nil {
		return Payment{}, err
	}
	s.log.Debug("order awaiting payment", zap.Int("order_id", id))

	valid, err := s.cards.Validate(card)
	if err != nil {
		var fe validation.FieldErrors
		if errors.As(err, &fe) {
			s.log.Warn("payment rejected", zap.Int("order_id", id), zap.Any("errors", fe))
		}
		if serr := s.repo.SetStatus(ctx, id, StatusPaymentError); serr != nil {
			return Payment{}, serr
		}
		return Payment{}, err
	}
	s.log.Debug("payment data is valid", zap.Int("order_id", id))

	p, err := s.repo.CompletePayment(ctx, Payment{
		OrderID: id,
		Number:  valid.Number,
		Name:    valid.Name,
		Month:   valid.Month,
		Year:    valid.Year,
		Code:    valid.Code,
	})
	if err != nil {
		return Payment{}, err
	}
	s.log.Debug("order paided", zap.Int("order_id", id), zap.Int("payment_id", p.ID))
	return p, nil
}

// Delete hides the order from every listing.
func (s *Service) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

// View is the order representation returned to clients.
type View struct {
	ID           int             `json:"id"`
	CreatedAt    string          `json:"createdAt"`
	FullName     string          `json:"fullName"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone"`
	DeliveryType string          `json:"deliveryType"`
	PaymentType  string          `json:"paymentType"`
	TotalCost    decimal.Decimal `json:"totalCost"`
	Status       string          `json:"status"`
	City         string          `json:"city"`
	Address      string          `json:"address"`
	Products     []product.Short `json:"products"`
}

const createdAtLayout = "2006-01-02T15:04:05.000Z07:00"

func (s *Service) render(ctx context.Context, orders ...Order) ([]View, error) {
	var ids []int
	for _, o := range orders {
		ids = append(ids, productIDs(o.Lines)...)
	}
	found := map[int]product.Product{}
	if len(ids) > 0 {
		var err error
		if found, err = s.products.Lookup(ctx, ids); err != nil {
			return nil, err
		}
	}

	out := make([]View, 0, len(orders))
	for _, o := range orders {
		items := make([]product.Short, 0, len(o.Lines))
		for _, l := range o.Lines {
			p, ok := found[l.ProductID]
			if !ok {
				continue
			}
			short := p.Short()
			short.Count = l.Count
			short.Price = l.Price
			items = append(items, short)
		}
		out = append(out, View{
			ID:           o.ID,
			CreatedAt:    o.CreatedAt.Format(createdAtLayout),
			FullName:     o.FullName,
			Email:        o.Email,
			Phone:        o.Phone,
			DeliveryType: label(o.DeliveryType),
			PaymentType:  label(o.PaymentType),
			TotalCost:    o.TotalCost,
			Status:       label(o.Status),
			City:         o.City,
			Address:      o.Address,
			Products:     items,
		})
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
