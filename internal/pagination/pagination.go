package pagination

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

const (
	DefaultSize = 10
	MaxSize     = 100
)

// Params selects one page. Page is 1-based.
type Params struct {
	Page int
	Size int
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.Size
}

// Page is the envelope every paginated endpoint returns.
type Page[T any] struct {
	Items       []T `json:"items"`
	CurrentPage int `json:"currentPage"`
	LastPage    int `json:"lastPage"`
}

// FromQuery reads currentPage and, when sizeParam is not empty, the page
// size. Bad or missing values fall back to defaults.
func FromQuery(c *fiber.Ctx, sizeParam string) Params {
	p := Params{Page: 1, Size: DefaultSize}
	if v, err := strconv.Atoi(c.Query("currentPage")); err == nil && v > 0 {
		p.Page = v
	}
	if sizeParam != "" {
		if v, err := strconv.Atoi(c.Query(sizeParam)); err == nil && v > 0 {
			p.Size = min(v, MaxSize)
		}
	}
	return p
}

// New builds the envelope for items out of total matching rows.
func New[T any](items []T, total int, p Params) Page[T] {
	if items == nil {
		items = []T{}
	}
	last := 1
	if total > 0 && p.Size > 0 {
		last = (total + p.Size - 1) / p.Size
	}
	return Page[T]{Items: items, CurrentPage: p.Page, LastPage: last}
}

// Slice pages an in-memory list.
func Slice[T any](all []T, p Params) Page[T] {
	start := min(p.Offset(), len(all))
	end := min(start+p.Size, len(all))
	return New(all[start:end], len(all), p)
}
