package product

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/engineer-developer/marketplace/internal/tag"
)

// Image is a product picture.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

type Specification struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Review struct {
	ID        int
	ProductID int
	UserID    int
	Author    string
	Email     string
	Text      string
	Rate      int
	Date      time.Time
}

// SaleItem is a discount on one product. A product has at most one.
type SaleItem struct {
	ID         int
	SaleID     int
	ProductID  int
	Discount   int
	DateFrom   time.Time
	DateTo     time.Time
	Active     bool
	SaleActive bool
}

// SalePrice applies the discount when the item is active and today lies in
// [DateFrom, DateTo]; otherwise price is returned unchanged.
func (s SaleItem) SalePrice(price decimal.Decimal, today time.Time) decimal.Decimal {
	if !s.Active {
		return price
	}
	day := dateOnly(today)
	if day.Before(dateOnly(s.DateFrom)) || day.After(dateOnly(s.DateTo)) {
		return price
	}
	cut := price.Mul(decimal.NewFromInt(int64(s.Discount))).Div(decimal.NewFromInt(100))
	return price.Sub(cut).Round(2)
}

// Running reports whether the item belongs on the sales page today.
func (s SaleItem) Running(today time.Time) bool {
	day := dateOnly(today)
	return s.Active && s.SaleActive && !day.Before(dateOnly(s.DateFrom)) && !day.After(dateOnly(s.DateTo))
}

type Product struct {
	ID              int
	CategoryID      int
	Price           decimal.Decimal
	Count           int
	Date            time.Time
	Title           string
	Description     string
	FullDescription string
	FreeDelivery    bool
	Limited         bool
	Available       bool
	Images          []Image
	Tags            []tag.Tag
	Specifications  []Specification
	Reviews         []Review
	Sales           []SaleItem

	// aggregates filled by list queries when Reviews is not loaded
	ReviewCount int
	RateSum     int
	OrderCount  int
}

func (p Product) reviewStats() (int, int) {
	if len(p.Reviews) == 0 {
		return p.ReviewCount, p.RateSum
	}
	sum := 0
	for _, r := range p.Reviews {
		sum += r.Rate
	}
	return len(p.Reviews), sum
}

// Rating is the average review rate rounded to one digit, 0 without reviews.
func (p Product) Rating() float64 {
	n, sum := p.reviewStats()
	if n == 0 {
		return 0
	}
	return math.Round(float64(sum)/float64(n)*10) / 10
}

// EffectivePrice is the lowest sale price over the product's sale items, or
// the list price.
func (p Product) EffectivePrice(today time.Time) decimal.Decimal {
	best := p.Price
	for i, s := range p.Sales {
		sp := s.SalePrice(p.Price, today)
		if i == 0 || sp.LessThan(best) {
			best = sp
		}
	}
	return best
}

// Short is the list representation used by the catalog, basket and orders.
type Short struct {
	ID           int             `json:"id"`
	Category     int             `json:"category"`
	Price        decimal.Decimal `json:"price"`
	Count        int             `json:"count"`
	Date         string          `json:"date"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	FreeDelivery bool            `json:"freeDelivery"`
	Images       []Image         `json:"images"`
	Tags         []tag.Tag       `json:"tags"`
	Reviews      int             `json:"reviews"`
	Rating       float64         `json:"rating"`
}

type ReviewView struct {
	Author string `json:"author"`
	Email  string `json:"email"`
	Text   string `json:"text"`
	Rate   int    `json:"rate"`
	Date   string `json:"date"`
}

// Full is the product detail representation.
type Full struct {
	ID              int             `json:"id"`
	Category        int             `json:"category"`
	Price           decimal.Decimal `json:"price"`
	Count           int             `json:"count"`
	Date            string          `json:"date"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	FullDescription string          `json:"fullDescription"`
	FreeDelivery    bool            `json:"freeDelivery"`
	Images          []Image         `json:"images"`
	Tags            []string        `json:"tags"`
	Reviews         []ReviewView    `json:"reviews"`
	Specifications  []Specification `json:"specifications"`
	Rating          float64         `json:"rating"`
}

// SaleView is one entry of the sales page.
type SaleView struct {
	ID        int             `json:"id"`
	Price     decimal.Decimal `json:"price"`
	SalePrice decimal.Decimal `json:"salePrice"`
	DateFrom  string          `json:"dateFrom"`
	DateTo    string          `json:"dateTo"`
	Title     string          `json:"title"`
	Images    []Image         `json:"images"`
}

const (
	dateLayout     = "2006-01-02T15:04:05.000Z07:00"
	saleDateLayout = "01-06"
)

func (p Product) Short() Short {
	n, _ := p.reviewStats()
	return Short{
		ID:           p.ID,
		Category:     p.CategoryID,
		Price:        p.Price,
		Count:        p.Count,
		Date:         p.Date.Format(dateLayout),
		Title:        p.Title,
		Description:  p.Description,
		FreeDelivery: p.FreeDelivery,
		Images:       nonNil(p.Images),
		Tags:         nonNil(p.Tags),
		Reviews:      n,
		Rating:       p.Rating(),
	}
}

func (p Product) Full() Full {
	tags := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		tags = append(tags, t.Name)
	}
	return Full{
		ID:              p.ID,
		Category:        p.CategoryID,
		Price:           p.Price,
		Count:           p.Count,
		Date:            p.Date.Format(dateLayout),
		Title:           p.Title,
		Description:     p.Description,
		FullDescription: p.FullDescription,
		FreeDelivery:    p.FreeDelivery,
		Images:          nonNil(p.Images),
		Tags:            tags,
		Reviews:         reviewViews(p.Reviews),
		Specifications:  nonNil(p.Specifications),
		Rating:          p.Rating(),
	}
}

func saleView(p Product, s SaleItem, today time.Time) SaleView {
	return SaleView{
		ID:        p.ID,
		Price:     p.Price,
		SalePrice: s.SalePrice(p.Price, today),
		DateFrom:  s.DateFrom.Format(saleDateLayout),
		DateTo:    s.DateTo.Format(saleDateLayout),
		Title:     p.Title,
		Images:    nonNil(p.Images),
	}
}

func reviewViews(reviews []Review) []ReviewView {
	out := make([]ReviewView, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, ReviewView{
			Author: r.Author,
			Email:  r.Email,
			Text:   r.Text,
			Rate:   r.Rate,
			Date:   r.Date.Format("2006-01-02 15:04"),
		})
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
