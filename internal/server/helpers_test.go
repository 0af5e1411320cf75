package server

import (
	"net/http/httptest"
	"testing"

	"chitchat/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParsePagination(t *testing.T) {
	t.Parallel()

	app := fiber.New()
	var got Pagination
	app.Get("/posts", func(c *fiber.Ctx) error {
		got = parsePagination(c, 10)
		return c.SendStatus(fiber.StatusOK)
	})

	cases := []struct {
		name  string
		query string
		page  int64
		limit int64
	}{
		{"defaults", "", 1, 10},
		{"explicit", "?page=3&limit=25", 3, 25},
		{"negative page", "?page=-2", 1, 10},
		{"zero limit", "?limit=0", 1, 10},
		{"limit capped", "?limit=5000", 1, 100},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", "/posts"+tc.query, nil))
			require.NoError(t, err)
			require.Equal(t, fiber.StatusOK, resp.StatusCode)
			assert.Equal(t, tc.page, got.Page)
			assert.Equal(t, tc.limit, got.Limit)
		})
	}
}

func TestParseObjectID(t *testing.T) {
	t.Parallel()

	s := &Server{}
	app := fiber.New()
	app.Get("/items/:id", func(c *fiber.Ctx) error {
		id, err := s.parseObjectID(c, "id")
		if err != nil {
			return nil
		}
		return c.JSON(fiber.Map{"id": id.Hex()})
	})

	t.Run("valid", func(t *testing.T) {
		id := primitive.NewObjectID().Hex()
		resp, err := app.Test(httptest.NewRequest("GET", "/items/"+id, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("invalid", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/items/not-an-id", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestRespondServiceErrorStatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", models.NewValidationError("bad input"), fiber.StatusBadRequest},
		{"not found", models.NewNotFoundError("missing"), fiber.StatusNotFound},
		{"conflict", models.NewConflictError("duplicate"), fiber.StatusConflict},
		{"rate limited", models.NewRateLimitError("slow down"), fiber.StatusTooManyRequests},
		{"unauthorized", models.NewUnauthorizedError("no token"), fiber.StatusUnauthorized},
		{"internal", models.NewInternalError(assert.AnError), fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				return respondServiceError(c, tc.err)
			})
			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestLivenessCheck(t *testing.T) {
	t.Parallel()

	s := &Server{}
	app := fiber.New()
	app.Get("/health/live", s.LivenessCheck)

	resp, err := app.Test(httptest.NewRequest("GET", "/health/live", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
