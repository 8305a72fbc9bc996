package user

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/engineer-developer/marketplace/internal/auth"
	"github.com/engineer-developer/marketplace/internal/validation"
)

// MaxAvatarSize is the largest accepted avatar upload.
const MaxAvatarSize = 2 << 20

type Handler struct {
	service  *Service
	issuer   *auth.Issuer
	deny     *auth.Denylist
	mediaDir string
	log      *zap.Logger
}

func NewHandler(service *Service, issuer *auth.Issuer, deny *auth.Denylist, mediaDir string, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{service: service, issuer: issuer, deny: deny, mediaDir: mediaDir, log: log}
}

type signInRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type signUpRequest struct {
	Name     string `json:"name" validate:"required,max=150"`
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required"`
}

type profileRequest struct {
	FullName string `json:"fullName" validate:"required,max=150"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"omitempty,max=11,numeric"`
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

func (h *Handler) RegisterPublicRoutes(r fiber.Router) {
	r.Post("/api/sign-in", h.signIn)
	r.Post("/api/sign-up", h.signUp)
	r.Post("/api/sign-out", h.signOut)
}

func (h *Handler) RegisterProtectedRoutes(r fiber.Router) {
	r.Get("/api/profile", h.getProfile)
	r.Post("/api/profile", h.updateProfile)
	r.Delete("/api/profile", h.deleteProfile)
	r.Post("/api/profile/avatar", h.uploadAvatar)
	r.Post("/api/profile/password", h.changePassword)
}

func (h *Handler) signIn(c *fiber.Ctx) error {
	var payload signInRequest
	if err := validation.Bind(c, &payload); err != nil {
		return nil
	}

	u, err := h.service.Authenticate(c.UserContext(), payload.Username, payload.Password)
	if err != nil {
		h.log.Warn("sign-in rejected", zap.String("username", payload.Username))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Authenticate error"})
	}
	return h.respondWithToken(c, u, "Login successful")
}

func (h *Handler) signUp(c *fiber.Ctx) error {
	var payload signUpRequest
	if err := validation.Bind(c, &payload); err != nil {
		return nil
	}

	created, err := h.service.Register(c.UserContext(), payload.Name, payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, ErrUsernameExists) {
			msg := fmt.Sprintf("User with username '%s' already exists", strings.TrimSpace(payload.Username))
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": msg})
		}
		h.log.Error("sign-up failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return h.respondWithToken(c, created, "Registration successful")
}

// signOut revokes the presented token, if any. Anonymous callers get 200 too.
func (h *Handler) signOut(c *fiber.Ctx) error {
	if raw, until, ok := auth.Token(c); ok && h.deny != nil {
		h.deny.Revoke(raw, until)
	}
	c.ClearCookie()
	return c.JSON(fiber.Map{"message": "Logout successful"})
}

func (h *Handler) getProfile(c *fiber.Ctx) error {
	u, err := h.currentUser(c)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(u.Profile())
}

func (h *Handler) updateProfile(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	var payload profileRequest
	if err := validation.Bind(c, &payload); err != nil {
		return nil
	}

	updated, err := h.service.UpdateProfile(c.UserContext(), userID, ProfileUpdate{
		FullName: payload.FullName,
		Email:    payload.Email,
		Phone:    payload.Phone,
	})
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(updated.Profile())
}

func (h *Handler) deleteProfile(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	if err := h.service.Delete(c.UserContext(), userID); err != nil {
		return h.respondError(c, err)
	}
	if raw, until, ok := auth.Token(c); ok && h.deny != nil {
		h.deny.Revoke(raw, until)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) uploadAvatar(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	file, err := c.FormFile("avatar")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"avatar": []string{"No file was submitted."}})
	}
	if file.Size > MaxAvatarSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"avatar": []string{"File too large"}})
	}
	if !strings.HasPrefix(file.Header.Get(fiber.HeaderContentType), "image/") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"avatar": []string{"Upload a valid image."}})
	}

	name := filepath.Base(file.Filename)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"avatar": []string{"Invalid file name."}})
	}

	rel := path.Join("users", fmt.Sprintf("user_%d", userID), "profile", "avatar", name)
	dest := filepath.Join(h.mediaDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	if err := c.SaveFile(file, dest); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}

	src := "/media/" + rel
	updated, previous, err := h.service.SetAvatar(c.UserContext(), userID, src, avatarAlt(name))
	if err != nil {
		return h.respondError(c, err)
	}
	if previous != "" && previous != src {
		old := filepath.Join(h.mediaDir, filepath.FromSlash(strings.TrimPrefix(previous, "/media/")))
		if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
			h.log.Warn("could not remove previous avatar", zap.String("path", old), zap.Error(err))
		}
	}
	return c.JSON(fiber.Map{"avatar": updated.AvatarSrc})
}

func (h *Handler) changePassword(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	var payload passwordRequest
	if err := validation.Bind(c, &payload); err != nil {
		return nil
	}

	if err := h.service.ChangePassword(c.UserContext(), userID, payload.CurrentPassword, payload.NewPassword); err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"message": "Password changed"})
}

func (h *Handler) currentUser(c *fiber.Ctx) (User, error) {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return User{}, err
	}
	return h.service.GetByID(c.UserContext(), userID)
}

func (h *Handler) respondWithToken(c *fiber.Ctx, u User, msg string) error {
	token, err := h.issuer.Issue(u.ID, u.Username)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to generate token"})
	}
	return c.JSON(fiber.Map{"message": msg, "token": token})
}

func (h *Handler) respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "user not found"})
	case errors.Is(err, ErrWrongPassword):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Current password is incorrect"})
	case errors.Is(err, ErrEmailExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"email": []string{"Profile with this email already exists."}})
	case errors.Is(err, ErrPhoneExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"phone": []string{"Profile with this phone already exists."}})
	default:
		h.log.Error("user request failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
}

func avatarAlt(filename string) string {
	return strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
}
