package server

import (
	"chitchat/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetChatUser handles GET /api/chat/users/:email. The online flag reflects
// presence on this instance's notification hub only.
func (s *Server) GetChatUser(c *fiber.Ctx) error {
	summary, err := s.chatService.GetChatUser(c.Context(), c.Params("email"))
	if err != nil {
		return respondServiceError(c, err)
	}

	online := s.hub != nil && s.hub.IsOnline(summary.Email)
	return c.JSON(fiber.Map{
		"user":   summary,
		"online": online,
	})
}

// SendChatMessage handles POST /api/chat/messages
func (s *Server) SendChatMessage(c *fiber.Ctx) error {
	var req struct {
		ReceiverEmail string `json:"receiverEmail"`
		Text          string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	msg, err := s.chatService.SendMessage(c.Context(), currentUserEmail(c), req.ReceiverEmail, req.Text)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// GetChatMessages handles GET /api/chat/messages/:email
func (s *Server) GetChatMessages(c *fiber.Ctx) error {
	messages, err := s.chatService.Messages(c.Context(), currentUserEmail(c), c.Params("email"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(messages)
}
