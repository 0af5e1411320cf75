package server

import (
	"chitchat/internal/models"
	"chitchat/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	email := currentUserEmail(c)

	var req struct {
		Title    string `json:"title"`
		PostText string `json:"postText"`
		Media    string `json:"media,omitempty"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.CreatePost(c.Context(), service.CreatePostInput{
		Email:        email,
		Title:        req.Title,
		PostText:     req.PostText,
		MediaDataURL: req.Media,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPosts handles GET /api/posts
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page := parsePagination(c, 10)

	posts, err := s.postService.ListPosts(c.Context(), page.Page, page.Limit)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(posts)
}

// GetUserPosts handles GET /api/posts/user/:email
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	posts, err := s.postService.PostsByOwner(c.Context(), c.Params("email"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseObjectID(c, "id")
	if err != nil {
		return nil
	}

	// An optional notification id marks the originating notification read.
	var notifID *primitive.ObjectID
	if raw := c.Query("notificationId"); raw != "" {
		parsed, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid notificationId"))
		}
		notifID = &parsed
	}

	post, err := s.postService.DisplayPost(c.Context(), id, currentUserEmail(c), notifID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// ClearNotification handles DELETE /api/notifications/:id
func (s *Server) ClearNotification(c *fiber.Ctx) error {
	id, err := s.parseObjectID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.ClearNotification(c.Context(), currentUserEmail(c), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// LikePost handles POST /api/posts/:id/like
func (s *Server) LikePost(c *fiber.Ctx) error {
	id, err := s.parseObjectID(c, "id")
	if err != nil {
		return nil
	}

	like, err := s.postService.Like(c.Context(), service.LikeInput{
		PostID:     id,
		LikerEmail: currentUserEmail(c),
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishUserEvent(like.PostOwnerEmail, EventPostLiked, map[string]interface{}{
		"postId": id.Hex(),
		"like":   like,
	})

	return c.Status(fiber.StatusCreated).JSON(like)
}

// UnlikePost handles DELETE /api/posts/:id/like
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	id, err := s.parseObjectID(c, "id")
	if err != nil {
		return nil
	}

	email := currentUserEmail(c)
	if err := s.postService.Unlike(c.Context(), service.LikeInput{
		PostID:     id,
		LikerEmail: email,
	}); err != nil {
		return respondServiceError(c, err)
	}

	s.publishBroadcastEvent(EventPostUnliked, map[string]interface{}{
		"postId":       id.Hex(),
		"likedByEmail": email,
	})

	return c.JSON(fiber.Map{"success": true})
}
