package server

import (
	"chitchat/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SendFriendRequest handles POST /api/friends/requests
func (s *Server) SendFriendRequest(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	adder := currentUserEmail(c)
	if err := s.friendService.SendRequest(c.Context(), adder, req.Email); err != nil {
		return respondServiceError(c, err)
	}

	s.publishUserEvent(req.Email, EventFriendRequest, map[string]interface{}{
		"from": adder,
	})

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Friend request sent successfully",
	})
}

// GetFriendRequests handles GET /api/friends/requests
func (s *Server) GetFriendRequests(c *fiber.Ctx) error {
	user, err := s.userService.GetProfile(c.Context(), currentUserEmail(c))
	if err != nil {
		return respondServiceError(c, err)
	}

	requests, err := s.friendService.ListRequests(c.Context(), user.ID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(requests)
}

// AcceptFriendRequest handles POST /api/friends/requests/:requestId/accept
func (s *Server) AcceptFriendRequest(c *fiber.Ctx) error {
	requestID, err := s.parseObjectID(c, "requestId")
	if err != nil {
		return nil
	}

	result, err := s.friendService.Accept(c.Context(), currentUserEmail(c), requestID)
	if err != nil {
		return respondServiceError(c, err)
	}

	payload := map[string]interface{}{
		"friendId": result.EdgeID.Hex(),
		"user":     result.UserEmail,
		"sender":   result.SenderEmail,
	}
	s.publishUserEvent(result.SenderEmail, EventFriendAccepted, payload)
	s.publishUserEvent(result.UserEmail, EventFriendAccepted, payload)

	return c.JSON(fiber.Map{
		"success":  true,
		"friendId": result.EdgeID.Hex(),
	})
}

// DeclineFriendRequest handles DELETE /api/friends/requests/:requestId
func (s *Server) DeclineFriendRequest(c *fiber.Ctx) error {
	requestID, err := s.parseObjectID(c, "requestId")
	if err != nil {
		return nil
	}

	if err := s.friendService.Decline(c.Context(), currentUserEmail(c), requestID); err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Friend request deleted successfully",
	})
}

// Unfriend handles DELETE /api/friends/:edgeId
func (s *Server) Unfriend(c *fiber.Ctx) error {
	edgeID, err := s.parseObjectID(c, "edgeId")
	if err != nil {
		return nil
	}

	result, err := s.friendService.Unfriend(c.Context(), currentUserEmail(c), edgeID)
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishUserEvent(result.UserEmail, EventFriendRemoved, map[string]interface{}{
		"friendId": edgeID.Hex(),
		"email":    result.FriendEmail,
	})
	s.publishUserEvent(result.FriendEmail, EventFriendRemoved, map[string]interface{}{
		"friendId": edgeID.Hex(),
		"email":    result.UserEmail,
	})

	return c.JSON(fiber.Map{"success": true})
}

// Follow handles POST /api/follow/:email
func (s *Server) Follow(c *fiber.Ctx) error {
	target := c.Params("email")
	if err := s.friendService.Follow(c.Context(), currentUserEmail(c), target); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// Unfollow handles DELETE /api/follow/:email
func (s *Server) Unfollow(c *fiber.Ctx) error {
	target := c.Params("email")
	if err := s.friendService.Unfollow(c.Context(), currentUserEmail(c), target); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}
