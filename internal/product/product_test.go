package product

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSalePrice(t *testing.T) {
	price := decimal.NewFromInt(1000)
	item := SaleItem{Discount: 15, DateFrom: day(2026, 1, 1), DateTo: day(2026, 1, 31), Active: true, SaleActive: true}

	tests := []struct {
		name  string
		item  SaleItem
		today time.Time
		want  string
	}{
		{"in range", item, day(2026, 1, 10), "850"},
		{"first day", item, day(2026, 1, 1), "850"},
		{"last day late evening", item, time.Date(2026, 1, 31, 23, 0, 0, 0, time.UTC), "850"},
		{"before", item, day(2025, 12, 31), "1000"},
		{"after", item, day(2026, 2, 1), "1000"},
		{"inactive item", SaleItem{Discount: 15, DateFrom: item.DateFrom, DateTo: item.DateTo}, day(2026, 1, 10), "1000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.item.SalePrice(price, tt.today).String())
		})
	}
}

func TestSalePrice_Rounds(t *testing.T) {
	item := SaleItem{Discount: 33, DateFrom: day(2026, 1, 1), DateTo: day(2026, 2, 1), Active: true}
	assert.Equal(t, "66.99", item.SalePrice(decimal.RequireFromString("99.99"), day(2026, 1, 5)).String())
}

func TestRunning_NeedsActiveSale(t *testing.T) {
	item := SaleItem{Discount: 10, DateFrom: day(2026, 1, 1), DateTo: day(2026, 2, 1), Active: true}
	assert.False(t, item.Running(day(2026, 1, 5)))
	item.SaleActive = true
	assert.True(t, item.Running(day(2026, 1, 5)))
}

func TestRating(t *testing.T) {
	assert.Equal(t, 0.0, Product{}.Rating())
	p := Product{Reviews: []Review{{Rate: 5}, {Rate: 4}, {Rate: 4}}}
	assert.Equal(t, 4.3, p.Rating())
	assert.Equal(t, 3.5, Product{ReviewCount: 2, RateSum: 7}.Rating())
}

func TestEffectivePrice(t *testing.T) {
	today := day(2026, 3, 3)
	p := Product{Price: decimal.NewFromInt(200)}
	assert.True(t, p.EffectivePrice(today).Equal(decimal.NewFromInt(200)))

	p.Sales = []SaleItem{{Discount: 50, DateFrom: day(2026, 3, 1), DateTo: day(2026, 3, 9), Active: true}}
	assert.True(t, p.EffectivePrice(today).Equal(decimal.NewFromInt(100)))

	// expired discount leaves the list price
	assert.True(t, p.EffectivePrice(day(2026, 4, 1)).Equal(decimal.NewFromInt(200)))
}

func TestShortAndFull(t *testing.T) {
	p := Product{
		ID: 3, CategoryID: 2, Price: decimal.NewFromInt(10), Title: "Mouse",
		Reviews: []Review{{Author: "A", Email: "a@x", Text: "ok", Rate: 3, Date: day(2026, 1, 2)}},
	}
	s := p.Short()
	assert.Equal(t, 1, s.Reviews)
	assert.NotNil(t, s.Images)
	assert.NotNil(t, s.Tags)

	f := p.Full()
	assert.Len(t, f.Reviews, 1)
	assert.Equal(t, "2026-01-02 00:00", f.Reviews[0].Date)
	assert.Equal(t, []string{}, f.Tags)
}
