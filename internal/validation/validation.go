package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// FieldErrors maps a JSON field name to its error messages. It is rendered
// as the response body of a 400.
type FieldErrors map[string][]string

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for field, msgs := range e {
		parts = append(parts, field+": "+strings.Join(msgs, ", "))
	}
	return strings.Join(parts, "; ")
}

// Add appends msg to the messages of field.
func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

var (
	once     sync.Once
	validate *validatorv10.Validate
)

// New returns the shared validator. Field names in errors use json tags.
func New() *validatorv10.Validate {
	once.Do(func() {
		validate = validatorv10.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Struct validates v and converts failures to FieldErrors.
func Struct(v any) error {
	if err := New().Struct(v); err != nil {
		return toFieldErrors(err)
	}
	return nil
}

// Bind parses the JSON body into out and validates it. On failure it writes
// the 400 response and returns a non-nil error so the handler can stop.
func Bind(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
		return err
	}
	if err := Struct(out); err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(err)
		return err
	}
	return nil
}

// Respond writes err as a 400 if it carries field errors.
func Respond(c *fiber.Ctx, err error) (bool, error) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return true, c.Status(fiber.StatusBadRequest).JSON(fe)
	}
	return false, nil
}

func toFieldErrors(err error) error {
	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	out := FieldErrors{}
	for _, fe := range ve {
		out.Add(fieldPath(fe), message(fe))
	}
	return out
}

// fieldPath drops the root struct name.
func fieldPath(fe validatorv10.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validatorv10.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min", "gte":
		if fe.Kind() == reflect.String {
			return "Ensure this field has at least " + fe.Param() + " characters."
		}
		return "Ensure this value is greater than or equal to " + fe.Param() + "."
	case "max", "lte":
		if fe.Kind() == reflect.String {
			return "Ensure this field has no more than " + fe.Param() + " characters."
		}
		return "Ensure this value is less than or equal to " + fe.Param() + "."
	case "oneof":
		return "\"" + stringValue(fe) + "\" is not a valid choice."
	case "email":
		return "Enter a valid email address."
	default:
		return "Invalid value."
	}
}

func stringValue(fe validatorv10.FieldError) string {
	if s, ok := fe.Value().(string); ok {
		return s
	}
	return ""
}
