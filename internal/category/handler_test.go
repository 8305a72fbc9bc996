package category

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(i int) *int { return &i }

func seed() []Category {
	return []Category{
		{ID: 1, Title: "Electronics", Image: Image{Src: "/media/categories/electronics.png"}, Favorite: true, Available: true},
		{ID: 2, Title: "Phones", ParentID: ptr(1), Available: true},
		{ID: 3, Title: "Laptops", ParentID: ptr(1), Available: true},
		{ID: 4, Title: "Hidden", ParentID: ptr(1), Available: false},
		{ID: 5, Title: "Archive", Available: false},
		{ID: 6, Title: "Books", Favorite: true, Available: true},
	}
}

func TestGetCategories(t *testing.T) {
	h := NewHandler(NewService(NewInMemoryRepository(seed())), nil)
	app := fiber.New()
	h.RegisterPublicRoutes(app)

	res, err := app.Test(httptest.NewRequest("GET", "/api/categories", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var items []Item
	require.NoError(t, json.NewDecoder(res.Body).Decode(&items))
	require.Len(t, items, 2)
	assert.Equal(t, "Electronics", items[0].Title)
	assert.Equal(t, "electronics.png", items[0].Image.Alt)
	assert.Len(t, items[0].Subcategories, 2)
	assert.Equal(t, "Books", items[1].Title)
	assert.NotNil(t, items[1].Subcategories)
}

func TestScope(t *testing.T) {
	s := NewService(NewInMemoryRepository(seed()))

	ids, err := s.Scope(context.Background(), 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{2, 3, 4}, ids)

	ids, err = s.Scope(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, ids)

	_, err = s.Scope(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFavorites(t *testing.T) {
	s := NewService(NewInMemoryRepository(seed()))

	favs, err := s.Favorites(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, 1, favs[0].ID)
}
