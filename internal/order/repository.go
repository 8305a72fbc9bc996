package order

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type Repository interface {
	// Create stores a NEW order and its lines atomically.
	Create(ctx context.Context, lines []Line) (Order, error)
	// GetByID returns an available order with its lines.
	GetByID(ctx context.Context, id int) (Order, error)
	// ListByUser returns the user's available orders, newest first.
	ListByUser(ctx context.Context, userID int) ([]Order, error)
	// Update writes the order header fields.
	Update(ctx context.Context, o Order) error
	SetStatus(ctx context.Context, id int, status Status) error
	// CompletePayment creates or replaces the order's payment and marks the
	// order paid in one step.
	CompletePayment(ctx context.Context, p Payment) (Payment, error)
	Delivery(ctx context.Context) (Delivery, error)
	Delete(ctx context.Context, id int) error
}

// InMemoryRepository is used for tests and local runs.
type InMemoryRepository struct {
	mu            sync.RWMutex
	orders        []Order
	payments      map[int]Payment
	delivery      Delivery
	nextID        int
	nextPaymentID int
	now           func() time.Time
}

func NewInMemoryRepository(seed []Order, delivery Delivery) *InMemoryRepository {
	r := &InMemoryRepository{
		payments:      map[int]Payment{},
		delivery:      delivery,
		nextID:        1,
		nextPaymentID: 1,
		now:           time.Now,
	}
	for _, o := range seed {
		r.orders = append(r.orders, o)
		r.nextID = max(r.nextID, o.ID+1)
	}
	return r
}

func (r *InMemoryRepository) Create(_ context.Context, lines []Line) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	o := Order{
		ID:           r.nextID,
		CreatedAt:    now,
		DeliveryType: DeliveryOrdinary,
		PaymentType:  PaymentOnline,
		TotalCost:    decimal.Zero,
		Status:       StatusNew,
		Available:    true,
	}
	for _, l := range lines {
		l.AddedAt = now
		o.Lines = append(o.Lines, l)
	}
	r.nextID++
	r.orders = append(r.orders, o)
	return r.clone(o), nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id int) (Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.index(id); i >= 0 {
		return r.clone(r.orders[i]), nil
	}
	return Order{}, ErrNotFound
}

func (r *InMemoryRepository) ListByUser(_ context.Context, userID int) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Order, 0)
	for _, o := range r.orders {
		if o.Available && o.UserID == userID {
			out = append(out, r.clone(o))
		}
	}
	slices.SortStableFunc(out, func(a, b Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (r *InMemoryRepository) Update(_ context.Context, o Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(o.ID)
	if i < 0 {
		return ErrNotFound
	}
	o.Lines = r.orders[i].Lines
	o.CreatedAt = r.orders[i].CreatedAt
	o.Available = r.orders[i].Available
	r.orders[i] = o
	return nil
}

func (r *InMemoryRepository) SetStatus(_ context.Context, id int, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return ErrNotFound
	}
	r.orders[i].Status = status
	return nil
}

func (r *InMemoryRepository) CompletePayment(_ context.Context, p Payment) (Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(p.OrderID)
	if i < 0 {
		return Payment{}, ErrNotFound
	}
	if existing, ok := r.payments[p.OrderID]; ok {
		p.ID, p.CreatedAt = existing.ID, existing.CreatedAt
	} else {
		p.ID, p.CreatedAt = r.nextPaymentID, r.now()
		r.nextPaymentID++
	}
	r.payments[p.OrderID] = p
	r.orders[i].Status = StatusPaid
	return p, nil
}

// PaymentOf returns the payment stored for an order.
func (r *InMemoryRepository) PaymentOf(orderID int) (Payment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[orderID]
	return p, ok
}

func (r *InMemoryRepository) Delivery(_ context.Context) (Delivery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.delivery, nil
}

func (r *InMemoryRepository) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return ErrNotFound
	}
	r.orders[i].Available = false
	return nil
}

// index finds an available order; the lock must be held.
func (r *InMemoryRepository) index(id int) int {
	return slices.IndexFunc(r.orders, func(o Order) bool { return o.ID == id && o.Available })
}

func (r *InMemoryRepository) clone(o Order) Order {
	o.Lines = slices.Clone(o.Lines)
	return o
}
