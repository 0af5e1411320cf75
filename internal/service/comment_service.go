package service

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"chitchat/internal/cache"
	"chitchat/internal/models"
	"chitchat/internal/observability"
	"chitchat/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

const (
	maxCommentLength = 500
	commentCooldown  = 10 * time.Second
)

// CommentService implements commenting with length bounds and the per-author
// cooldown. Comments are written to both post representations plus a
// notification on the poster.
type CommentService struct {
	users repository.UserRepository
	posts repository.PostRepository
	now   func() time.Time
}

// NewCommentService creates a new CommentService.
func NewCommentService(users repository.UserRepository, posts repository.PostRepository) *CommentService {
	return &CommentService{users: users, posts: posts, now: time.Now}
}

// CreateCommentInput carries the comment request fields.
type CreateCommentInput struct {
	PostID      primitive.ObjectID
	AuthorEmail string
	Text        string
}

// CreateComment validates the trimmed text, enforces the cooldown against
// the post's most recent comment only, then dual-writes the comment.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	if in.AuthorEmail == "" || in.PostID.IsZero() {
		return nil, models.NewValidationError("Missing required data")
	}

	text := strings.TrimSpace(in.Text)
	if n := utf8.RuneCountInString(text); n < 1 || n > maxCommentLength {
		return nil, models.NewValidationError("Comment must be between 1 and 500 characters")
	}

	author, err := s.cachedUser(ctx, in.AuthorEmail)
	if err != nil {
		return nil, err
	}

	post, err := s.posts.FindByID(ctx, in.PostID)
	if err == repository.ErrNotFound {
		return nil, models.NewNotFoundError("Post not found")
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	// Only the latest comment is inspected: an older comment by the same
	// author inside the window does not trip the cooldown.
	if last := post.LastComment(); last != nil && last.Email == author.Email {
		if s.now().Sub(last.CreatedAt) < commentCooldown {
			return nil, models.NewRateLimitError("You are commenting too fast. Please wait a few seconds.")
		}
	}

	now := s.now()
	comment := models.Comment{
		ID:           primitive.NewObjectID(),
		Email:        author.Email,
		FirstName:    author.FirstName,
		LastName:     author.LastName,
		ProfileImage: author.ProfileImage,
		CommentText:  text,
		CreatedAt:    now,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.users.AddCommentToEmbeddedPost(gctx, post.Email, post.ID, comment); err != nil {
			observability.RecordDualWriteFailure("comment", "users")
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := s.posts.AddComment(gctx, post.ID, comment); err != nil {
			observability.RecordDualWriteFailure("comment", "posts")
			return err
		}
		return nil
	})
	if author.Email != post.Email {
		notif := models.Notification{
			ID:           primitive.NewObjectID(),
			PostID:       post.ID,
			Email:        author.Email,
			FirstName:    author.FirstName,
			LastName:     author.LastName,
			ProfileImage: author.ProfileImage,
			Title:        post.Title,
			UserDid:      "commented on this post",
			CreatedAt:    now,
		}
		g.Go(func() error {
			return s.users.PushNotification(gctx, post.Email, notif)
		})
	}
	if err := g.Wait(); err != nil {
		observability.GlobalLogger.Error("comment dual write failed",
			slog.String("post_id", post.ID.Hex()), slog.String("author", author.Email),
			slog.String("error", err.Error()))
		return nil, models.NewInternalError(err)
	}

	s.refreshCaches(ctx, post.Email, post.ID)
	return &comment, nil
}

func (s *CommentService) cachedUser(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := cache.CacheAside(ctx, cache.UserKey(email), &user, cache.UserShortTTL, func() error {
		u, err := s.users.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		user = *u
		return nil
	})
	if err == repository.ErrNotFound {
		return nil, models.NewNotFoundError("Commenting user not found")
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (s *CommentService) refreshCaches(ctx context.Context, posterEmail string, postID primitive.ObjectID) {
	if poster, err := s.users.FindByEmail(ctx, posterEmail); err == nil {
		_ = cache.SetJSON(ctx, cache.UserKey(posterEmail), poster, cache.UserShortTTL)
	} else {
		cache.InvalidateUser(ctx, posterEmail)
	}
	if post, err := s.posts.FindByID(ctx, postID); err == nil {
		_ = cache.SetJSON(ctx, cache.PostKey(postID.Hex()), post, cache.PostTTL)
	} else {
		cache.Invalidate(ctx, cache.PostKey(postID.Hex()))
	}
}
