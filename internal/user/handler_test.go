package user

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/engineer-developer/marketplace/internal/auth"
)

// makeApp injects a jwt.Token into locals when the X-User-ID header is set,
// which keeps the tests free of real token handling.
func makeApp(h *Handler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if v := c.Get("X-User-ID"); v != "" {
			id, err := strconv.Atoi(v)
			if err == nil {
				c.Locals("user", &jwt.Token{Claims: jwt.MapClaims{"user_id": id}})
			}
		}
		return c.Next()
	})
	h.RegisterPublicRoutes(app)
	h.RegisterProtectedRoutes(app)
	return app
}

func hash(t *testing.T, password string) string {
	t.Helper()
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return string(b)
}

func newTestHandler(t *testing.T, seed []User) (*Handler, *InMemoryRepository, string) {
	t.Helper()
	repo := NewInMemoryRepository(seed)
	media := t.TempDir()
	h := NewHandler(NewService(repo, nil), auth.NewIssuer("secret", time.Hour), auth.NewDenylist(), media, nil)
	return h, repo, media
}

func doJSON(t *testing.T, app *fiber.App, method, url, userID, body string) (*fiber.Map, int) {
	t.Helper()
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	res, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	out := fiber.Map{}
	b, _ := io.ReadAll(res.Body)
	_ = json.Unmarshal(b, &out)
	return &out, res.StatusCode
}

func TestRoutesRegistered(t *testing.T) {
	h, _, _ := newTestHandler(t, nil)
	app := makeApp(h)

	routes := map[string]bool{}
	for _, grp := range app.Stack() {
		for _, r := range grp {
			routes[r.Method+" "+r.Path] = true
		}
	}
	for _, want := range []string{
		"POST /api/sign-in",
		"POST /api/sign-up",
		"POST /api/sign-out",
		"GET /api/profile",
		"POST /api/profile",
		"POST /api/profile/avatar",
		"POST /api/profile/password",
	} {
		if !routes[want] {
			t.Fatalf("expected route %q to be registered", want)
		}
	}
}

func TestSignUpAndSignIn(t *testing.T) {
	h, repo, _ := newTestHandler(t, nil)
	app := makeApp(h)

	body, status := doJSON(t, app, "POST", "/api/sign-up", "", `{"name":"Ivan Petrov","username":"ivan","password":"s3cret"}`)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 on sign-up, got %d", status)
	}
	if (*body)["token"] == "" || (*body)["token"] == nil {
		t.Fatalf("sign-up response should carry a token: %v", *body)
	}

	u, err := repo.GetByUsername(t.Context(), "ivan")
	if err != nil {
		t.Fatalf("user was not stored: %v", err)
	}
	if u.FirstName != "Ivan" || u.LastName != "Petrov" {
		t.Fatalf("name not split: %+v", u)
	}

	body, status = doJSON(t, app, "POST", "/api/sign-up", "", `{"name":"Other","username":"ivan","password":"x"}`)
	if status != fiber.StatusConflict {
		t.Fatalf("expected 409 for duplicate username, got %d", status)
	}
	if (*body)["message"] != "User with username 'ivan' already exists" {
		t.Fatalf("unexpected conflict message: %v", *body)
	}

	_, status = doJSON(t, app, "POST", "/api/sign-in", "", `{"username":"ivan","password":"s3cret"}`)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 on sign-in, got %d", status)
	}

	body, status = doJSON(t, app, "POST", "/api/sign-in", "", `{"username":"ivan","password":"wrong"}`)
	if status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 on bad password, got %d", status)
	}
	if (*body)["message"] != "Authenticate error" {
		t.Fatalf("unexpected message: %v", *body)
	}
}

func TestSignUp_ValidationErrors(t *testing.T) {
	h, _, _ := newTestHandler(t, nil)
	app := makeApp(h)

	body, status := doJSON(t, app, "POST", "/api/sign-up", "", `{"username":"ivan"}`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if _, ok := (*body)["password"]; !ok {
		t.Fatalf("expected password field error, got %v", *body)
	}
}

func TestSignIn_InactiveUser(t *testing.T) {
	h, _, _ := newTestHandler(t, []User{{ID: 3, Username: "gone", PasswordHash: hash(t, "pw"), Available: false}})
	app := makeApp(h)

	_, status := doJSON(t, app, "POST", "/api/sign-in", "", `{"username":"gone","password":"pw"}`)
	if status != fiber.StatusUnauthorized {
		t.Fatalf("deactivated user must not sign in, got %d", status)
	}
}

func TestProfile(t *testing.T) {
	seed := []User{
		{ID: 7, Username: "jenny", FirstName: "Jenny", LastName: "Test", Email: "j@example.com", Phone: "123", Available: true},
		{ID: 8, Username: "taken", Email: "taken@example.com", Available: true},
	}
	h, repo, _ := newTestHandler(t, seed)
	app := makeApp(h)

	_, status := doJSON(t, app, "GET", "/api/profile", "", "")
	if status != fiber.StatusUnauthorized {
		t.Fatalf("expected unauthorized status, got %d", status)
	}

	body, status := doJSON(t, app, "GET", "/api/profile", "7", "")
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 OK for authorized profile, got %d", status)
	}
	if (*body)["fullName"] != "Jenny Test" || (*body)["email"] != "j@example.com" {
		t.Fatalf("unexpected profile: %v", *body)
	}
	if _, ok := (*body)["password"]; ok {
		t.Fatalf("profile must not expose password")
	}

	body, status = doJSON(t, app, "POST", "/api/profile", "7", `{"fullName":"Jane Van Doe","email":"jane@example.com","phone":"89001234567"}`)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 on update, got %d: %v", status, *body)
	}
	u, _ := repo.GetByID(t.Context(), 7)
	if u.FirstName != "Jane" || u.LastName != "Van Doe" || u.Phone != "89001234567" {
		t.Fatalf("profile update not persisted: %+v", u)
	}

	_, status = doJSON(t, app, "POST", "/api/profile", "7", `{"fullName":"Jane","email":"taken@example.com"}`)
	if status != fiber.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", status)
	}

	_, status = doJSON(t, app, "POST", "/api/profile", "7", `{"fullName":"Jane","email":"not-an-email"}`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for invalid email, got %d", status)
	}
}

func TestChangePassword(t *testing.T) {
	h, repo, _ := newTestHandler(t, []User{{ID: 5, Username: "max", PasswordHash: hash(t, "old"), Available: true}})
	app := makeApp(h)

	body, status := doJSON(t, app, "POST", "/api/profile/password", "5", `{"currentPassword":"nope","newPassword":"new"}`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if (*body)["message"] != "Current password is incorrect" {
		t.Fatalf("unexpected message: %v", *body)
	}

	_, status = doJSON(t, app, "POST", "/api/profile/password", "5", `{"currentPassword":"old","newPassword":"new"}`)
	if status != fiber.StatusAccepted {
		t.Fatalf("expected 202, got %d", status)
	}
	u, _ := repo.GetByID(t.Context(), 5)
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("new")) != nil {
		t.Fatalf("password was not changed")
	}
}

type upload struct {
	body        *bytes.Buffer
	contentType string
}

func avatarRequest(t *testing.T, filename, contentType string, data []byte) upload {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="avatar"; filename="`+filename+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write(data)
	w.Close()
	return upload{body: body, contentType: w.FormDataContentType()}
}

func postAvatar(t *testing.T, app *fiber.App, u upload) int {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/profile/avatar", u.body)
	req.Header.Set("X-User-ID", "15")
	req.Header.Set("Content-Type", u.contentType)
	res, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("avatar upload failed: %v", err)
	}
	return res.StatusCode
}

func TestUploadAvatar(t *testing.T) {
	h, repo, media := newTestHandler(t, []User{{ID: 15, Username: "u15", Available: true}})
	app := makeApp(h)

	if status := postAvatar(t, app, avatarRequest(t, "me.png", "image/png", []byte("PNGDATA"))); status != fiber.StatusOK {
		t.Fatalf("expected 200 OK avatar upload, got %d", status)
	}
	u, _ := repo.GetByID(t.Context(), 15)
	if u.AvatarSrc != "/media/users/user_15/profile/avatar/me.png" {
		t.Fatalf("unexpected avatar src %q", u.AvatarSrc)
	}
	first := filepath.Join(media, "users", "user_15", "profile", "avatar", "me.png")
	if _, err := os.Stat(first); err != nil {
		t.Fatalf("avatar file not written: %v", err)
	}

	if status := postAvatar(t, app, avatarRequest(t, "new.jpg", "image/jpeg", []byte("JPG"))); status != fiber.StatusOK {
		t.Fatalf("expected 200 OK on replacement, got %d", status)
	}
	if _, err := os.Stat(first); !os.IsNotExist(err) {
		t.Fatalf("previous avatar should be removed")
	}

	if status := postAvatar(t, app, avatarRequest(t, "notes.txt", "text/plain", []byte("hi"))); status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for non-image, got %d", status)
	}

	big := make([]byte, MaxAvatarSize+1)
	if status := postAvatar(t, app, avatarRequest(t, "big.png", "image/png", big)); status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for oversized avatar, got %d", status)
	}
}

func TestUploadAvatar_RejectsDirectoryNames(t *testing.T) {
	h, repo, media := newTestHandler(t, []User{{ID: 15, Username: "u15", Available: true}})
	app := makeApp(h)

	for _, name := range []string{"..", "avatar/.."} {
		if status := postAvatar(t, app, avatarRequest(t, name, "image/png", []byte("PNG"))); status != fiber.StatusBadRequest {
			t.Fatalf("expected 400 for file name %q, got %d", name, status)
		}
	}
	u, _ := repo.GetByID(t.Context(), 15)
	if u.AvatarSrc != "" {
		t.Fatalf("avatar should stay unset, got %q", u.AvatarSrc)
	}
	if _, err := os.Stat(filepath.Join(media, "users", "user_15", "profile")); !os.IsNotExist(err) {
		t.Fatalf("nothing should be written under the profile dir")
	}
}
