package basket

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/engineer-developer/marketplace/internal/auth"
	"github.com/engineer-developer/marketplace/internal/product"
	"github.com/engineer-developer/marketplace/internal/validation"
)

type Handler struct {
	service    *Service
	cookie     string
	sessionTTL time.Duration
	log        *zap.Logger
}

func NewHandler(s *Service, cookie string, sessionTTL time.Duration, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{service: s, cookie: cookie, sessionTTL: sessionTTL, log: log}
}

type lineRequest struct {
	ID    int `json:"id" validate:"min=1"`
	Count int `json:"count" validate:"min=1"`
}

// RegisterPublicRoutes mounts the basket. Anonymous callers get a session
// cookie; signed-in callers use their own basket.
func (h *Handler) RegisterPublicRoutes(r fiber.Router) {
	r.Get("/api/basket", h.getBasket)
	r.Post("/api/basket", h.addToBasket)
	r.Delete("/api/basket", h.removeFromBasket)
}

func (h *Handler) getBasket(c *fiber.Ctx) error {
	items, err := h.service.Get(c.UserContext(), h.owner(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(items)
}

func (h *Handler) addToBasket(c *fiber.Ctx) error {
	var payload lineRequest
	if err := validation.Bind(c, &payload); err != nil {
		return nil
	}
	items, err := h.service.Add(c.UserContext(), h.owner(c), payload.ID, payload.Count)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(items)
}

func (h *Handler) removeFromBasket(c *fiber.Ctx) error {
	var payload lineRequest
	if err := validation.Bind(c, &payload); err != nil {
		return nil
	}
	deleted, items, err := h.service.Remove(c.UserContext(), h.owner(c), payload.ID, payload.Count)
	if err != nil {
		return h.respondError(c, err)
	}
	if deleted {
		return c.JSON([]string{"product deleted"})
	}
	return c.JSON(items)
}

// owner picks the caller's basket, issuing a session cookie to anonymous
// callers that have none.
func (h *Handler) owner(c *fiber.Ctx) Owner {
	if id, err := auth.UserIDFromCtx(c); err == nil {
		return Owner{UserID: id}
	}
	// Cookies aliases the request buffer, which fasthttp reuses.
	key := utils.CopyString(c.Cookies(h.cookie))
	if _, err := uuid.Parse(key); err != nil {
		key = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     h.cookie,
			Value:    key,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Expires:  time.Now().Add(h.sessionTTL),
		})
	}
	return Owner{SessionKey: key}
}

func (h *Handler) respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, product.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "product not found"})
	case errors.Is(err, ErrLineNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "product not in basket"})
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "basket not found"})
	default:
		h.log.Error("basket request failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
}
