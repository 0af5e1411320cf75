// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"errors"

	"chitchat/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// currentUserEmail returns the authenticated user's email set by the auth
// middleware.
func currentUserEmail(c *fiber.Ctx) string {
	email, _ := c.Locals("userEmail").(string)
	return email
}

// parseObjectID extracts a route parameter by name as an ObjectID.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseObjectID(c *fiber.Ctx, param string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Params(param))
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+param))
		return primitive.NilObjectID, errResponseWritten
	}
	return id, nil
}

// Pagination holds parsed page/limit query parameters.
type Pagination struct {
	Page  int64
	Limit int64
}

const maxPaginationLimit = 100

// parsePagination extracts page and limit query parameters with the given
// default limit. Page numbers start at 1.
func parsePagination(c *fiber.Ctx, defaultLimit int64) Pagination {
	page := int64(c.QueryInt("page", 1))
	if page < 1 {
		page = 1
	}
	limit := int64(c.QueryInt("limit", int(defaultLimit)))
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}
	return Pagination{Page: page, Limit: limit}
}

// respondServiceError writes the HTTP response for a service-layer error.
func respondServiceError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusForError(err), err)
}
