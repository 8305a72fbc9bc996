package order

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/engineer-developer/marketplace/internal/auth"
	"github.com/engineer-developer/marketplace/internal/product"
	"github.com/engineer-developer/marketplace/internal/validation"
)

var minLinePrice = decimal.RequireFromString("0.01")

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{service: service, log: log}
}

type lineRequest struct {
	ID    int             `json:"id" validate:"min=1"`
	Count int             `json:"count" validate:"min=1"`
	Price decimal.Decimal `json:"price"`
}

type confirmRequest struct {
	FullName     string `json:"fullName" validate:"max=120"`
	Email        string `json:"email" validate:"omitempty,email,max=120"`
	Phone        string `json:"phone" validate:"omitempty,max=11"`
	DeliveryType string `json:"deliveryType" validate:"required,oneof=ordinary express"`
	PaymentType  string `json:"paymentType" validate:"required,oneof=online someone"`
	City         string `json:"city" validate:"required,max=120"`
	Address      string `json:"address" validate:"required,max=120"`
}

// RegisterPublicRoutes mounts checkout start and order detail. Both work for
// anonymous callers.
func (h *Handler) RegisterPublicRoutes(r fiber.Router) {
	r.Post("/api/orders", h.createOrder)
	r.Get("/api/order/:id", h.getOrder)
}

func (h *Handler) RegisterProtectedRoutes(r fiber.Router) {
	r.Get("/api/orders", h.listOrders)
	r.Post("/api/order/:id", h.confirmOrder)
	r.Post("/api/payment/:id", h.pay)
}

func (h *Handler) createOrder(c *fiber.Ctx) error {
	var payload []lineRequest
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	// Errors are reported per element, in request order.
	errs := make([]validation.FieldErrors, len(payload))
	failed := false
	items := make([]LineInput, 0, len(payload))
	for i, l := range payload {
		errs[i] = validation.FieldErrors{}
		if err := validation.Struct(l); err != nil {
			var fe validation.FieldErrors
			if !errors.As(err, &fe) {
				return h.respondError(c, err)
			}
			errs[i] = fe
		}
		if l.Price.LessThan(minLinePrice) {
			errs[i].Add("price", "Ensure this value is greater than or equal to 0.01.")
		}
		if len(errs[i]) > 0 {
			failed = true
		}
		items = append(items, LineInput{ProductID: l.ID, Count: l.Count, Price: l.Price})
	}
	if failed {
		return c.Status(fiber.StatusBadRequest).JSON(errs)
	}

	o, err := h.service.Create(c.UserContext(), items)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"orderId": o.ID})
}

func (h *Handler) listOrders(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	views, err := h.service.List(c.UserContext(), userID)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(views)
}

func (h *Handler) getOrder(c *fiber.Ctx) error {
	id, ok := orderID(c)
	if !ok {
		return h.respondError(c, ErrNotFound)
	}
	viewerID, _ := auth.UserIDFromCtx(c)

	view, err := h.service.Get(c.UserContext(), id, viewerID)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(view)
}

func (h *Handler) confirmOrder(c *fiber.Ctx) error {
	if _, err := auth.UserIDFromCtx(c); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	id, ok := orderID(c)
	if !ok {
		return h.respondError(c, ErrNotFound)
	}

	if err := h.service.Payable(c.UserContext(), id); err != nil {
		return h.respondConfirmError(c, id, err)
	}

	var payload confirmRequest
	if err := validation.Bind(c, &payload); err != nil {
		return nil
	}
	delivery, _ := fromLabel(payload.DeliveryType, DeliveryOrdinary, DeliveryExpress)
	payment, _ := fromLabel(payload.PaymentType, PaymentOnline, PaymentSomeone)

	o, err := h.service.Confirm(c.UserContext(), id, DeliveryInfo{
		FullName:     payload.FullName,
		Email:        payload.Email,
		Phone:        payload.Phone,
		DeliveryType: delivery,
		PaymentType:  payment,
		City:         payload.City,
		Address:      payload.Address,
	})
	if err != nil {
		return h.respondConfirmError(c, id, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"orderId": o.ID})
}

func (h *Handler) pay(c *fiber.Ctx) error {
	if _, err := auth.UserIDFromCtx(c); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	id, ok := orderID(c)
	if !ok {
		return h.respondError(c, ErrNotFound)
	}

	var card Card
	if err := c.BodyParser(&card); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	p, err := h.service.Pay(c.UserContext(), id, card)
	if err != nil {
		if handled, werr := validation.Respond(c, err); handled {
			return werr
		}
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"paymentId": p.ID})
}

func (h *Handler) respondConfirmError(c *fiber.Ctx, id int, err error) error {
	if errors.Is(err, ErrAlreadyPaid) {
		return c.Status(fiber.StatusNotAcceptable).JSON(fmt.Sprintf("Order %d already paided", id))
	}
	return h.respondError(c, err)
}

func orderID(c *fiber.Ctx) (int, bool) {
	id, err := strconv.Atoi(c.Params("id"))
	return id, err == nil && id > 0
}

func (h *Handler) respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "order not found"})
	case errors.Is(err, product.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "product not found"})
	default:
		h.log.Error("order request failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
}
