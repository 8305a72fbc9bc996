package order

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/engineer-developer/marketplace/internal/validation"
)

// Card is the payment form as submitted.
type Card struct {
	Number string `json:"number"`
	Name   string `json:"name"`
	Month  string `json:"month"`
	Year   string `json:"year"`
	Code   string `json:"code"`
}

// CardValidator checks card fields. The card number rule is a simulated
// acquirer: odd numbers and numbers ending in zero are declined.
type CardValidator struct {
	now     func() time.Time
	errorNo func() int
}

func NewCardValidator() *CardValidator {
	return &CardValidator{
		now:     time.Now,
		errorNo: func() int { return rand.IntN(100) + 1 },
	}
}

// Validate returns the card with a two-digit year expanded to 20xx, or
// FieldErrors naming every failing field.
func (v *CardValidator) Validate(c Card) (Card, error) {
	errs := validation.FieldErrors{}
	c.Number = strings.TrimSpace(c.Number)
	c.Month = strings.TrimSpace(c.Month)
	c.Year = strings.TrimSpace(c.Year)
	c.Code = strings.TrimSpace(c.Code)

	check := func(field, value string, fn func(string) (string, string)) string {
		if value == "" {
			errs.Add(field, "This field is required.")
			return value
		}
		normalized, msg := fn(value)
		if msg != "" {
			errs.Add(field, msg)
		}
		return normalized
	}

	c.Number = check("number", c.Number, v.number)
	c.Name = check("name", c.Name, name)
	c.Month = check("month", c.Month, month)
	c.Year = check("year", c.Year, v.year)
	c.Code = check("code", c.Code, code)

	if len(errs) > 0 {
		return Card{}, errs
	}
	return c, nil
}

func (v *CardValidator) number(s string) (string, string) {
	if !digits(s) {
		return s, "Is not a digit"
	}
	if len(s) > 8 {
		return s, "Is not a valid length"
	}
	n, _ := strconv.Atoi(s)
	if n%2 == 1 || n%10 == 0 {
		return s, fmt.Sprintf("Payment error №%d: Card number odd or have trailing zero", v.errorNo())
	}
	return s, ""
}

func name(s string) (string, string) {
	for _, word := range strings.Split(s, " ") {
		if word == "" {
			return s, "Is not a valid name"
		}
		for _, r := range word {
			if !unicode.IsLetter(r) {
				return s, "Is not a valid name"
			}
		}
	}
	return s, ""
}

func month(s string) (string, string) {
	if !digits(s) {
		return s, "Is not a digit"
	}
	if len(s) != 2 {
		return s, "Is not a valid length"
	}
	if m, _ := strconv.Atoi(s); m < 1 || m > 12 {
		return s, "Is not a valid month"
	}
	return s, ""
}

func (v *CardValidator) year(s string) (string, string) {
	if !digits(s) {
		return s, "Is not a digit"
	}
	if len(s) == 2 {
		s = "20" + s
	}
	if len(s) != 4 {
		return s, "Is not a valid length. Place 4 digits or last 2 digits of the year"
	}
	if y, _ := strconv.Atoi(s); y > v.now().Year() {
		return s, "Year cannot be greater than current year"
	}
	return s, ""
}

func code(s string) (string, string) {
	if !digits(s) {
		return s, "Is not a digit"
	}
	if len(s) != 3 {
		return s, "Is not a valid length"
	}
	return s, ""
}

func digits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
