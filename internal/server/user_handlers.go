package server

import (
	"github.com/gofiber/fiber/v2"

	"chitchat/internal/models"
)

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	email := currentUserEmail(c)

	user, err := s.userService.GetProfile(c.Context(), email)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// GetUserProfile handles GET /api/users/:email
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	email := c.Params("email")
	if email == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Email is required"))
	}

	user, err := s.userService.PublicProfile(c.Context(), email)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// GetAllUsers handles GET /api/users
func (s *Server) GetAllUsers(c *fiber.Ctx) error {
	users, err := s.friendService.ListUsers(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(users)
}

// SetProfileImage handles PUT /api/users/me/profile-image
func (s *Server) SetProfileImage(c *fiber.Ctx) error {
	email := currentUserEmail(c)

	var req struct {
		Media string `json:"media"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	url, err := s.userService.SetProfileImage(c.Context(), email, req.Media)
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishBroadcastEvent(EventNewProfileImage, map[string]interface{}{
		"email":        email,
		"profileImage": url,
	})

	return c.JSON(fiber.Map{
		"success":      true,
		"profileImage": url,
	})
}

// SetCoverImage handles PUT /api/users/me/cover-image. Accepts either a
// multipart "cover" file or a JSON body with a data-URL.
func (s *Server) SetCoverImage(c *fiber.Ctx) error {
	email := currentUserEmail(c)

	var url string
	if file, ferr := c.FormFile("cover"); ferr == nil {
		src, err := file.Open()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Could not read uploaded file"))
		}
		defer func() { _ = src.Close() }()

		url, err = s.userService.SetCoverImageFile(c.Context(), email,
			file.Header.Get("Content-Type"), src, file.Size)
		if err != nil {
			return respondServiceError(c, err)
		}
	} else {
		var req struct {
			Media string `json:"media"`
		}
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}

		var err error
		url, err = s.userService.SetCoverImage(c.Context(), email, req.Media)
		if err != nil {
			return respondServiceError(c, err)
		}
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"coverImage": url,
	})
}
