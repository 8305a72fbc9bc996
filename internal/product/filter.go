package product

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/engineer-developer/marketplace/internal/validation"
)

type SortField string

const (
	SortNone    SortField = ""
	SortPrice   SortField = "price"
	SortReviews SortField = "reviews"
	SortDate    SortField = "date"
	SortRating  SortField = "rating"
)

// Filter narrows the catalog. Nil pointers mean "not filtered".
type Filter struct {
	Name         string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	FreeDelivery *bool
	Available    *bool
	CategoryID   int
	// CategoryIDs is resolved from CategoryID by the service; nil means any.
	CategoryIDs []int
	TagIDs      []int
	Sort        SortField
	Ascending   bool
}

// ParseFilter reads catalog query parameters. Unknown sort values and
// unparseable booleans are ignored; bad numbers are reported.
func ParseFilter(c *fiber.Ctx) (Filter, error) {
	f := Filter{Name: strings.TrimSpace(c.Query("filter[name]"))}
	errs := validation.FieldErrors{}

	for key, dst := range map[string]**decimal.Decimal{
		"minPrice": &f.MinPrice,
		"maxPrice": &f.MaxPrice,
	} {
		raw := strings.TrimSpace(c.Query("filter[" + key + "]"))
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			errs.Add(key, "A valid number is required.")
			continue
		}
		*dst = &d
	}
	f.FreeDelivery = parseBool(c.Query("filter[freeDelivery]"))
	f.Available = parseBool(c.Query("filter[available]"))

	if raw := c.Query("category"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			errs.Add("category", "A valid integer is required.")
		} else {
			f.CategoryID = id
		}
	}

	for _, raw := range c.Context().QueryArgs().PeekMulti("tags[]") {
		id, err := strconv.Atoi(string(raw))
		if err != nil {
			errs.Add("tags", "A valid integer is required.")
			continue
		}
		f.TagIDs = append(f.TagIDs, id)
	}

	switch s := SortField(c.Query("sort")); s {
	case SortPrice, SortReviews, SortDate, SortRating:
		f.Sort = s
	}
	f.Ascending = c.Query("sortType") == "inc"

	if len(errs) > 0 {
		return Filter{}, errs
	}
	return f, nil
}

func parseBool(raw string) *bool {
	var v bool
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "on":
		v = true
	case "false", "0", "off":
		v = false
	default:
		return nil
	}
	return &v
}
