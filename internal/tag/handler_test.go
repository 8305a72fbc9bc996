package tag

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engineer-developer/marketplace/internal/category"
)

func ptr(i int) *int { return &i }

func newApp() *fiber.App {
	categories := category.NewService(category.NewInMemoryRepository([]category.Category{
		{ID: 1, Title: "Electronics", Available: true},
		{ID: 2, Title: "Phones", ParentID: ptr(1), Available: true},
		{ID: 3, Title: "Laptops", ParentID: ptr(1), Available: true},
		{ID: 4, Title: "Books", Available: true},
	}))
	repo := NewInMemoryRepository(
		[]Tag{{ID: 10, Name: "Gaming"}, {ID: 11, Name: "Mobile"}, {ID: 12, Name: "Fiction"}},
		map[int][]int{10: {3}, 11: {2}, 12: {4}},
	)
	app := fiber.New()
	NewHandler(NewService(repo, categories), nil).RegisterPublicRoutes(app)
	return app
}

func getTags(t *testing.T, app *fiber.App, url string) ([]Tag, int) {
	t.Helper()
	res, err := app.Test(httptest.NewRequest("GET", url, nil))
	require.NoError(t, err)
	var tags []Tag
	if res.StatusCode == fiber.StatusOK {
		require.NoError(t, json.NewDecoder(res.Body).Decode(&tags))
	}
	return tags, res.StatusCode
}

func TestGetTags(t *testing.T) {
	app := newApp()

	all, status := getTags(t, app, "/api/tags")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, all, 3)

	// a root category matches through its subcategories
	root, _ := getTags(t, app, "/api/tags?category=1")
	assert.ElementsMatch(t, []Tag{{ID: 10, Name: "Gaming"}, {ID: 11, Name: "Mobile"}}, root)

	sub, _ := getTags(t, app, "/api/tags?category=2")
	assert.Equal(t, []Tag{{ID: 11, Name: "Mobile"}}, sub)

	// a root without subcategories covers nothing
	books, _ := getTags(t, app, "/api/tags?category=4")
	assert.Empty(t, books)

	_, status = getTags(t, app, "/api/tags?category=99")
	assert.Equal(t, fiber.StatusNotFound, status)

	_, status = getTags(t, app, "/api/tags?category=abc")
	assert.Equal(t, fiber.StatusBadRequest, status)
}
