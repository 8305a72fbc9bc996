package order

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound    = errors.New("order not found")
	ErrAlreadyPaid = errors.New("order already paided")
)

type Status string

const (
	StatusNew             Status = "NEW"
	StatusConfirmed       Status = "CONFIRMED"
	StatusAwaitingPayment Status = "AWAITING_PAYMENT"
	StatusPaymentError    Status = "PAYMENT_ERROR"
	StatusPaid            Status = "PAIDED"
)

type DeliveryType string

const (
	DeliveryOrdinary DeliveryType = "ORDINARY"
	DeliveryExpress  DeliveryType = "EXPRESS"
)

type PaymentType string

const (
	PaymentOnline  PaymentType = "ONLINE"
	PaymentSomeone PaymentType = "SOMEONE"
)

// label is the lowercase form used on the wire for every choice field.
func label[T ~string](v T) string {
	return strings.ToLower(string(v))
}

// fromLabel maps a wire label back to its stored value.
func fromLabel[T ~string](l string, choices ...T) (T, bool) {
	for _, c := range choices {
		if label(c) == l {
			return c, true
		}
	}
	var zero T
	return zero, false
}

type Order struct {
	ID           int
	UserID       int
	CreatedAt    time.Time
	FullName     string
	Email        string
	Phone        string
	DeliveryType DeliveryType
	PaymentType  PaymentType
	TotalCost    decimal.Decimal
	Status       Status
	City         string
	Address      string
	Available    bool
	Lines        []Line
}

// Line is a product in an order. Price is the unit price captured when the
// order was placed.
type Line struct {
	ProductID int
	Count     int
	Price     decimal.Decimal
	AddedAt   time.Time
}

func (o Order) Paid() bool {
	return o.Status == StatusPaid
}

// Delivery holds the delivery tariffs. There is a single row.
type Delivery struct {
	OrdinaryPrice     decimal.Decimal
	ExpressPrice      decimal.Decimal
	FreeDeliveryPrice decimal.Decimal
}

// DefaultDelivery matches the seeded tariffs.
var DefaultDelivery = Delivery{
	OrdinaryPrice:     decimal.NewFromInt(200),
	ExpressPrice:      decimal.NewFromInt(500),
	FreeDeliveryPrice: decimal.NewFromInt(2000),
}

type Payment struct {
	ID        int
	OrderID   int
	Number    string
	Name      string
	Month     string
	Year      string
	Code      string
	CreatedAt time.Time
}
