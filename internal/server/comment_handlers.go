package server

import (
	"chitchat/internal/models"
	"chitchat/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	id, err := s.parseObjectID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Comment string `json:"comment"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.commentService.CreateComment(c.Context(), service.CreateCommentInput{
		PostID:      id,
		AuthorEmail: currentUserEmail(c),
		Text:        req.Comment,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishBroadcastEvent(EventNewComment, map[string]interface{}{
		"postId":  id.Hex(),
		"comment": comment,
	})

	return c.Status(fiber.StatusCreated).JSON(comment)
}
