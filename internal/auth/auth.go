package auth

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// ContextKey is where the parsed *jwt.Token lives in fiber locals.
const ContextKey = "user"

var ErrUnauthorized = errors.New("unauthorized")

// Issuer signs HS256 tokens for signed-in users.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (i *Issuer) Issue(userID int, username string) (string, error) {
	now := i.now()
	claims := jwt.MapClaims{
		"user_id":  userID,
		"username": username,
		"iat":      now.Unix(),
		"exp":      now.Add(i.ttl).Unix(),
		"jti":      uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Denylist remembers revoked tokens until they would have expired anyway.
type Denylist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewDenylist() *Denylist {
	return &Denylist{revoked: make(map[string]time.Time)}
}

func (d *Denylist) Revoke(raw string, until time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now()
	for k, exp := range d.revoked {
		if exp.Before(now) {
			delete(d.revoked, k)
		}
	}
	d.revoked[raw] = until
}

func (d *Denylist) Revoked(raw string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	exp, ok := d.revoked[raw]
	return ok && exp.After(time.Now())
}

// Required rejects requests without a valid, unrevoked bearer token.
func Required(secret string, deny *Denylist) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: []byte(secret),
		ContextKey: ContextKey,
		SuccessHandler: func(c *fiber.Ctx) error {
			if tok, ok := c.Locals(ContextKey).(*jwt.Token); ok && deny != nil && deny.Revoked(tok.Raw) {
				return unauthorized(c)
			}
			return c.Next()
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return unauthorized(c)
		},
	})
}

// Optional parses a bearer token when one is present. Missing, invalid or
// revoked tokens leave the request anonymous.
func Optional(secret string, deny *Denylist) fiber.Handler {
	key := []byte(secret)
	return func(c *fiber.Ctx) error {
		raw, ok := bearer(c)
		if !ok {
			return c.Next()
		}
		tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrUnauthorized
			}
			return key, nil
		})
		if err == nil && tok.Valid && (deny == nil || !deny.Revoked(raw)) {
			c.Locals(ContextKey, tok)
		}
		return c.Next()
	}
}

// Token returns the raw token and its expiry for the current request.
func Token(c *fiber.Ctx) (string, time.Time, bool) {
	tok, ok := c.Locals(ContextKey).(*jwt.Token)
	if !ok {
		return "", time.Time{}, false
	}
	until := time.Now()
	if claims, ok := tok.Claims.(jwt.MapClaims); ok {
		if exp, ok := claims["exp"].(float64); ok {
			until = time.Unix(int64(exp), 0)
		}
	}
	return tok.Raw, until, true
}

// UserIDFromCtx extracts the user_id claim from the token stored in locals.
func UserIDFromCtx(c *fiber.Ctx) (int, error) {
	tok, ok := c.Locals(ContextKey).(*jwt.Token)
	if !ok {
		return 0, ErrUnauthorized
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrUnauthorized
	}
	switch v := claims["user_id"].(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case string:
		id, err := strconv.Atoi(v)
		if err != nil {
			return 0, ErrUnauthorized
		}
		return id, nil
	default:
		return 0, ErrUnauthorized
	}
}

func bearer(c *fiber.Ctx) (string, bool) {
	h := c.Get(fiber.HeaderAuthorization)
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return "", false
	}
	return strings.TrimSpace(h[7:]), true
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
}
