package service

import (
	"context"
	"log/slog"
	"time"

	"chitchat/internal/cache"
	"chitchat/internal/models"
	"chitchat/internal/observability"
	"chitchat/internal/repository"
	"chitchat/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// PostService implements post creation, feed reads, and the like operations.
// Posts live in two representations (embedded in the owner document and the
// flat posts collection); every mutation here writes both concurrently and
// never rolls back a partial success.
type PostService struct {
	users repository.UserRepository
	posts repository.PostRepository
	media storage.MediaStore
}

// NewPostService creates a new PostService.
func NewPostService(users repository.UserRepository, posts repository.PostRepository, media storage.MediaStore) *PostService {
	return &PostService{users: users, posts: posts, media: media}
}

// CreatePostInput carries the create-post request fields.
type CreatePostInput struct {
	Email    string
	Title    string
	PostText string
	// Optional base64 data URL with an image or video payload.
	MediaDataURL string
}

// CreatePost builds the post from the author's identity snapshot and writes
// both representations. List caches that would embed the new post are
// invalidated.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if in.Email == "" || in.Title == "" {
		return nil, models.NewValidationError("Email and title are required")
	}
	if in.PostText == "" && in.MediaDataURL == "" {
		return nil, models.NewValidationError("Post must have text or media")
	}

	author, err := s.cachedUser(ctx, in.Email)
	if err != nil {
		return nil, err
	}

	post := models.Post{
		ID:           primitive.NewObjectID(),
		Email:        author.Email,
		FirstName:    author.FirstName,
		LastName:     author.LastName,
		ProfileImage: author.ProfileImage,
		Title:        in.Title,
		PostText:     in.PostText,
		Liked:        []models.Like{},
		Comments:     []models.Comment{},
		CreatedAt:    time.Now(),
	}

	if in.MediaDataURL != "" {
		url, kind, err := s.media.UploadDataURL(ctx, in.MediaDataURL)
		if err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		post.MediaURL = url
		post.MediaType = models.MediaType(kind)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.users.PushEmbeddedPost(gctx, author.Email, post); err != nil {
			observability.RecordDualWriteFailure("create_post", "users")
			return err
		}
		return nil
	})
	g.Go(func() error {
		flat := post
		if err := s.posts.Insert(gctx, &flat); err != nil {
			observability.RecordDualWriteFailure("create_post", "posts")
			return err
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		observability.GlobalLogger.Error("post dual write failed",
			slog.String("email", author.Email), slog.String("post_id", post.ID.Hex()),
			slog.String("error", err.Error()))
		return nil, models.NewInternalError(err)
	}

	cache.InvalidateUser(ctx, author.Email)
	cache.InvalidatePostLists(ctx, author.Email)
	return &post, nil
}

// ListPosts serves one feed page, cache-aside per (page, limit).
func (s *PostService) ListPosts(ctx context.Context, page, limit int64) (*models.PostPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	var envelope models.PostPage
	err := cache.CacheAside(ctx, cache.PostsPageKey(page, limit), &envelope, cache.PostsPageTTL, func() error {
		posts, total, err := s.posts.FindPage(ctx, page, limit)
		if err != nil {
			return err
		}
		totalPages := total / limit
		if total%limit != 0 {
			totalPages++
		}
		envelope = models.PostPage{
			TotalCount:  total,
			TotalPages:  totalPages,
			CurrentPage: page,
			Data:        posts,
		}
		return nil
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &envelope, nil
}

// PostsByOwner returns one user's posts from the flat collection,
// cache-aside under the user-posts key.
func (s *PostService) PostsByOwner(ctx context.Context, email string) ([]models.Post, error) {
	if email == "" {
		return nil, models.NewValidationError("Email must not be empty")
	}

	var posts []models.Post
	err := cache.CacheAside(ctx, cache.UserPostsKey(email), &posts, cache.PostsPageTTL, func() error {
		var err error
		posts, err = s.posts.FindByOwner(ctx, email)
		return err
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}

// DisplayPost returns a single post cache-aside. When notifID is given the
// matching notification on the viewer is marked read.
func (s *PostService) DisplayPost(ctx context.Context, postID primitive.ObjectID, viewerEmail string, notifID *primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	err := cache.CacheAside(ctx, cache.PostKey(postID.Hex()), &post, cache.PostTTL, func() error {
		p, err := s.posts.FindByID(ctx, postID)
		if err != nil {
			return err
		}
		post = *p
		return nil
	})
	if err == repository.ErrNotFound {
		return nil, models.NewNotFoundError("Post not found")
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	if notifID != nil && viewerEmail != "" {
		if err := s.users.MarkNotificationRead(ctx, viewerEmail, *notifID); err != nil && err != repository.ErrNotFound {
			observability.GlobalLogger.Warn("notification read flag not set",
				slog.String("email", viewerEmail), slog.String("error", err.Error()))
		}
		cache.InvalidateUser(ctx, viewerEmail)
	}

	return &post, nil
}

// ClearNotification marks one notification read on the user.
func (s *PostService) ClearNotification(ctx context.Context, email string, notifID primitive.ObjectID) error {
	if err := s.users.MarkNotificationRead(ctx, email, notifID); err != nil {
		if err == repository.ErrNotFound {
			return models.NewNotFoundError("Notification not found")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, email)
	return nil
}

// LikeInput identifies the post and the liking user.
type LikeInput struct {
	PostID     primitive.ObjectID
	LikerEmail string
}

// Like guards against self-likes and duplicates, then writes the like to
// both post representations and appends a notification to the poster. The
// poster's cache snapshot is refreshed in place with the short TTL.
func (s *PostService) Like(ctx context.Context, in LikeInput) (*models.Like, error) {
	if in.LikerEmail == "" || in.PostID.IsZero() {
		return nil, models.NewValidationError("Required fields are missing")
	}

	// Hot path: the liker snapshot only lives for the short TTL.
	liker, err := s.cachedUserTTL(ctx, in.LikerEmail, cache.UserShortTTL)
	if err != nil {
		return nil, err
	}

	// The duplicate guard reads the store, not the cache: a stale snapshot
	// must not allow a second like through.
	post, err := s.posts.FindByID(ctx, in.PostID)
	if err == repository.ErrNotFound {
		return nil, models.NewNotFoundError("Post not found")
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	if post.Email == liker.Email {
		return nil, models.NewConflictError("You cannot like your own post")
	}
	if post.HasLikeFrom(liker.Email) {
		return nil, models.NewConflictError("You have already liked this post")
	}

	now := time.Now()
	like := models.Like{
		ID:             primitive.NewObjectID(),
		PostOwnerEmail: post.Email,
		LikedByEmail:   liker.Email,
		LikedByFirst:   liker.FirstName,
		LikedByLast:    liker.LastName,
		ProfileImage:   liker.ProfileImage,
		CreatedAt:      now,
	}
	notif := models.Notification{
		ID:           primitive.NewObjectID(),
		PostID:       post.ID,
		Email:        liker.Email,
		FirstName:    liker.FirstName,
		LastName:     liker.LastName,
		ProfileImage: liker.ProfileImage,
		Title:        post.Title,
		UserDid:      "liked this post",
		CreatedAt:    now,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.users.AddLikeToEmbeddedPost(gctx, post.Email, post.ID, like); err != nil {
			observability.RecordDualWriteFailure("like", "users")
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := s.posts.AddLike(gctx, post.ID, like); err != nil {
			observability.RecordDualWriteFailure("like", "posts")
			return err
		}
		return nil
	})
	g.Go(func() error {
		return s.users.PushNotification(gctx, post.Email, notif)
	})
	if err := g.Wait(); err != nil {
		observability.GlobalLogger.Error("like dual write failed",
			slog.String("post_id", post.ID.Hex()), slog.String("liker", liker.Email),
			slog.String("error", err.Error()))
		return nil, models.NewInternalError(err)
	}

	s.refreshPostCaches(ctx, post.Email, post.ID)
	return &like, nil
}

// Unlike removes the like from both representations.
func (s *PostService) Unlike(ctx context.Context, in LikeInput) error {
	if in.LikerEmail == "" || in.PostID.IsZero() {
		return models.NewValidationError("Required fields are missing")
	}

	post, err := s.posts.FindByID(ctx, in.PostID)
	if err == repository.ErrNotFound {
		return models.NewNotFoundError("Post not found")
	}
	if err != nil {
		return models.NewInternalError(err)
	}

	if post.Email == in.LikerEmail {
		return models.NewConflictError("You cannot unlike your own post")
	}
	if !post.HasLikeFrom(in.LikerEmail) {
		return models.NewValidationError("You have not liked this post")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.users.RemoveLikeFromEmbeddedPost(gctx, post.Email, post.ID, in.LikerEmail); err != nil {
			observability.RecordDualWriteFailure("unlike", "users")
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := s.posts.RemoveLike(gctx, post.ID, in.LikerEmail); err != nil {
			observability.RecordDualWriteFailure("unlike", "posts")
			return err
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		observability.GlobalLogger.Error("unlike dual write failed",
			slog.String("post_id", post.ID.Hex()), slog.String("liker", in.LikerEmail),
			slog.String("error", err.Error()))
		return models.NewInternalError(err)
	}

	s.refreshPostCaches(ctx, post.Email, post.ID)
	return nil
}

// cachedUser is the cache-aside user read shared by the guard phases.
func (s *PostService) cachedUser(ctx context.Context, email string) (*models.User, error) {
	return s.cachedUserTTL(ctx, email, cache.UserTTL)
}

func (s *PostService) cachedUserTTL(ctx context.Context, email string, ttl time.Duration) (*models.User, error) {
	var user models.User
	err := cache.CacheAside(ctx, cache.UserKey(email), &user, ttl, func() error {
		u, err := s.users.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		user = *u
		return nil
	})
	if err == repository.ErrNotFound {
		return nil, models.NewNotFoundError("User not found")
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// refreshPostCaches rewrites the poster and post snapshots from post-write
// store state with the short TTL. Failures only cost cache freshness.
func (s *PostService) refreshPostCaches(ctx context.Context, posterEmail string, postID primitive.ObjectID) {
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
