package product

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/engineer-developer/marketplace/internal/auth"
	"github.com/engineer-developer/marketplace/internal/category"
	"github.com/engineer-developer/marketplace/internal/pagination"
	"github.com/engineer-developer/marketplace/internal/user"
	"github.com/engineer-developer/marketplace/internal/validation"
)

// Users resolves the author of a review.
type Users interface {
	GetByID(ctx context.Context, id int) (user.User, error)
}

type Handler struct {
	service *Service
	users   Users
	log     *zap.Logger
}

func NewHandler(service *Service, users Users, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{service: service, users: users, log: log}
}

type reviewRequest struct {
	Text string `json:"text" validate:"required"`
	Rate int    `json:"rate" validate:"min=1,max=5"`
}

func (h *Handler) RegisterPublicRoutes(r fiber.Router) {
	r.Get("/api/catalog", h.getCatalog)
	r.Get("/api/product/:id", h.getProduct)
	r.Get("/api/products/popular", h.getPopular)
	r.Get("/api/products/limited", h.getLimited)
	r.Get("/api/sales", h.getSales)
}

func (h *Handler) RegisterProtectedRoutes(r fiber.Router) {
	r.Post("/api/product/:id/reviews", h.addReview)
}

func (h *Handler) getCatalog(c *fiber.Ctx) error {
	f, err := ParseFilter(c)
	if err != nil {
		_, werr := validation.Respond(c, err)
		return werr
	}
	page, err := h.service.Catalog(c.UserContext(), f, pagination.FromQuery(c, "limit"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(page)
}

func (h *Handler) getProduct(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "product not found"})
	}
	p, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(p)
}

func (h *Handler) getPopular(c *fiber.Ctx) error {
	ps, err := h.service.Popular(c.UserContext())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(ps)
}

func (h *Handler) getLimited(c *fiber.Ctx) error {
	ps, err := h.service.Limited(c.UserContext())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(ps)
}

func (h *Handler) getSales(c *fiber.Ctx) error {
	page, err := h.service.Sales(c.UserContext(), pagination.FromQuery(c, ""))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(page)
}

func (h *Handler) addReview(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "product not found"})
	}

	var payload reviewRequest
	if err := validation.Bind(c, &payload); err != nil {
		return nil
	}

	u, err := h.users.GetByID(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
		}
		return h.respondError(c, err)
	}

	views, err := h.service.AddReview(c.UserContext(), id, ReviewInput{
		UserID: u.ID,
		Author: u.FullName(),
		Email:  u.Email,
		Text:   payload.Text,
		Rate:   payload.Rate,
	})
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(views)
}

func (h *Handler) respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "product not found"})
	case errors.Is(err, category.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "category not found"})
	case errors.Is(err, ErrDuplicateReview):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"Error": "Review with such email already exist"})
	default:
		h.log.Error("product request failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
}
