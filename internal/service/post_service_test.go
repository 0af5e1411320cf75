package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"chitchat/internal/cache"
	"chitchat/internal/models"
	"chitchat/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testUser(email string) *models.User {
	return &models.User{
		ID:        primitive.NewObjectID(),
		Email:     email,
		FirstName: "Ada",
		LastName:  "Lovelace",
	}
}

func TestCreatePostWritesBothRepresentations(t *testing.T) {
	t.Parallel()

	users := &userRepoStub{
		findByEmailFn: func(email string) (*models.User, error) { return testUser(email), nil },
	}
	posts := &postRepoStub{}
	svc := NewPostService(users, posts, &mediaStub{})

	post, err := svc.CreatePost(context.Background(), CreatePostInput{
		Email:    "ada@example.com",
		Title:    "hello",
		PostText: "first post",
	})
	require.NoError(t, err)
	assert.False(t, post.ID.IsZero())
	assert.Equal(t, "ada@example.com", post.Email)
	assert.NotNil(t, post.Liked)
	assert.NotNil(t, post.Comments)

	// The embedded copy and the flat document carry the same id.
	assert.True(t, users.called("PushEmbeddedPost"))
	require.Len(t, posts.inserted, 1)
	assert.Equal(t, post.ID, posts.inserted[0].ID)
	require.Len(t, users.posts, 1)
	assert.Equal(t, post.ID, users.posts[0].ID)
}

func TestCreatePostWithMedia(t *testing.T) {
	t.Parallel()

	users := &userRepoStub{
		findByEmailFn: func(email string) (*models.User, error) { return testUser(email), nil },
	}
	posts := &postRepoStub{}
	media := &mediaStub{uploadDataURLFn: func(string) (string, string, error) {
		return "https://cdn.test/clip.mp4", "video", nil
	}}
	svc := NewPostService(users, posts, media)

	post, err := svc.CreatePost(context.Background(), CreatePostInput{
		Email:        "ada@example.com",
		Title:        "clip",
		MediaDataURL: "data:video/mp4;base64,aGk=",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/clip.mp4", post.MediaURL)
	assert.Equal(t, models.MediaTypeVideo, post.MediaType)
}

func TestListPostsClampsPagination(t *testing.T) {
	t.Parallel()

	var gotPage, gotLimit int64
	posts := &postRepoStub{findPageFn: func(page, limit int64) ([]models.Post, int64, error) {
		gotPage, gotLimit = page, limit
		return []models.Post{}, 0, nil
	}}
	svc := NewPostService(&userRepoStub{}, posts, &mediaStub{})

	_, err := svc.ListPosts(context.Background(), -3, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gotPage)
	assert.Equal(t, int64(10), gotLimit)
}

func TestPostsByOwner(t *testing.T) {
	t.Parallel()

	t.Run("returns owner posts", func(t *testing.T) {
		t.Parallel()
		owned := []models.Post{{ID: primitive.NewObjectID(), Email: "ada@example.com", Title: "mine"}}
		posts := &postRepoStub{findByOwnerFn: func(email string) ([]models.Post, error) {
			assert.Equal(t, "ada@example.com", email)
			return owned, nil
		}}
		svc := NewPostService(&userRepoStub{}, posts, &mediaStub{})

		got, err := svc.PostsByOwner(context.Background(), "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, owned, got)
		assert.True(t, posts.called("FindByOwner"))
	})

	t.Run("no posts yields empty slice", func(t *testing.T) {
		t.Parallel()
		posts := &postRepoStub{findByOwnerFn: func(string) ([]models.Post, error) { return nil, nil }}
		svc := NewPostService(&userRepoStub{}, posts, &mediaStub{})

		got, err := svc.PostsByOwner(context.Background(), "ada@example.com")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("empty email rejected", func(t *testing.T) {
		t.Parallel()
		svc := NewPostService(&userRepoStub{}, &postRepoStub{}, &mediaStub{})

		_, err := svc.PostsByOwner(context.Background(), "")
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	})
}

func TestLike(t *testing.T) {
	t.Parallel()

	postID := primitive.NewObjectID()
	ownedBy := func(owner string, liked ...models.Like) func(primitive.ObjectID) (*models.Post, error) {
		return func(id primitive.ObjectID) (*models.Post, error) {
			if id != postID {
				return nil, repository.ErrNotFound
			}
			return &models.Post{ID: postID, Email: owner, Title: "hello", Liked: liked}, nil
		}
	}

	t.Run("self like rejected", func(t *testing.T) {
		t.Parallel()
		users := &userRepoStub{findByEmailFn: func(email string) (*models.User, error) { return testUser(email), nil }}
		posts := &postRepoStub{findByIDFn: ownedBy("ada@example.com")}
		svc := NewPostService(users, posts, &mediaStub{})

		_, err := svc.Like(context.Background(), LikeInput{PostID: postID, LikerEmail: "ada@example.com"})
		require.Error(t, err)
		appErr := &models.AppError{}
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "CONFLICT", appErr.Code)
		assert.Equal(t, "You cannot like your own post", appErr.Message)
		assert.False(t, posts.called("AddLike"))
	})

	t.Run("duplicate like rejected", func(t *testing.T) {
		t.Parallel()
		users := &userRepoStub{findByEmailFn: func(email string) (*models.User, error) { return testUser(email), nil }}
		posts := &postRepoStub{findByIDFn: ownedBy("bob@example.com",
			models.Like{LikedByEmail: "ada@example.com"})}
		svc := NewPostService(users, posts, &mediaStub{})

		_, err := svc.Like(context.Background(), LikeInput{PostID: postID, LikerEmail: "ada@example.com"})
		require.Error(t, err)
		appErr := &models.AppError{}
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "You have already liked this post", appErr.Message)
		assert.False(t, posts.called("AddLike"))
	})

	t.Run("writes both representations and notifies", func(t *testing.T) {
		t.Parallel()
		users := &userRepoStub{findByEmailFn: func(email string) (*models.User, error) { return testUser(email), nil }}
		posts := &postRepoStub{findByIDFn: ownedBy("bob@example.com")}
		svc := NewPostService(users, posts, &mediaStub{})

		like, err := svc.Like(context.Background(), LikeInput{PostID: postID, LikerEmail: "ada@example.com"})
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", like.LikedByEmail)
		assert.Equal(t, "bob@example.com", like.PostOwnerEmail)

		require.Len(t, users.likes, 1)
		require.Len(t, posts.likes, 1)
		assert.Equal(t, like.ID, users.likes[0].ID)
		assert.Equal(t, like.ID, posts.likes[0].ID)

		notifs := users.notifs["bob@example.com"]
		require.Len(t, notifs, 1)
		assert.Equal(t, "liked this post", notifs[0].UserDid)
		assert.Equal(t, postID, notifs[0].PostID)
	})

	t.Run("partial write surfaces internal error", func(t *testing.T) {
		t.Parallel()
		users := &userRepoStub{findByEmailFn: func(email string) (*models.User, error) { return testUser(email), nil }}
		posts := &postRepoStub{
			findByIDFn: ownedBy("bob@example.com"),
			failOn:     map[string]error{"AddLike": errors.New("write concern")},
		}
		svc := NewPostService(users, posts, &mediaStub{})

		_, err := svc.Like(context.Background(), LikeInput{PostID: postID, LikerEmail: "ada@example.com"})
		require.Error(t, err)
		appErr := &models.AppError{}
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "INTERNAL_ERROR", appErr.Code)
	})
}

// Not parallel: the test points the package-level cache client at miniredis
// and restores it before any parallel test resumes.
func TestLikeCachesLikerBriefly(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.InitRedis(mr.Addr())
	t.Cleanup(func() {
		addr := mr.Addr()
		mr.Close()
		// The address is unreachable now, so this resets the client to nil.
		cache.InitRedis(addr)
	})

	postID := primitive.NewObjectID()
	users := &userRepoStub{findByEmailFn: func(email string) (*models.User, error) { return testUser(email), nil }}
	posts := &postRepoStub{findByIDFn: func(id primitive.ObjectID) (*models.Post, error) {
		return &models.Post{ID: postID, Email: "bob@example.com", Title: "hello"}, nil
	}}
	svc := NewPostService(users, posts, &mediaStub{})

	_, err := svc.Like(context.Background(), LikeInput{PostID: postID, LikerEmail: "ada@example.com"})
	require.NoError(t, err)

	ttl := mr.TTL(cache.UserKey("ada@example.com"))
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, cache.UserShortTTL)
}

func TestUnlike(t *testing.T) {
	t.Parallel()

	postID := primitive.NewObjectID()
	post := &models.Post{
		ID:    postID,
		Email: "bob@example.com",
		Liked: []models.Like{{LikedByEmail: "ada@example.com"}},
	}

	t.Run("not liked rejected", func(t *testing.T) {
		t.Parallel()
		posts := &postRepoStub{findByIDFn: func(primitive.ObjectID) (*models.Post, error) {
			return &models.Post{ID: postID, Email: "bob@example.com"}, nil
		}}
		svc := NewPostService(&userRepoStub{}, posts, &mediaStub{})

		err := svc.Unlike(context.Background(), LikeInput{PostID: postID, LikerEmail: "ada@example.com"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "You have not liked this post")
	})

	t.Run("removes from both representations", func(t *testing.T) {
		t.Parallel()
		users := &userRepoStub{findByEmailFn: func(email string) (*models.User, error) { return testUser(email), nil }}
		posts := &postRepoStub{findByIDFn: func(primitive.ObjectID) (*models.Post, error) { return post, nil }}
		svc := NewPostService(users, posts, &mediaStub{})

		require.NoError(t, svc.Unlike(context.Background(), LikeInput{PostID: postID, LikerEmail: "ada@example.com"}))
		assert.True(t, users.called("RemoveLikeFromEmbeddedPost"))
		assert.True(t, posts.called("RemoveLike"))
	})
}

func TestClearNotificationNotFound(t *testing.T) {
	t.Parallel()

	users := &userRepoStub{failOn: map[string]error{
		"MarkNotificationRead:ada@example.com": repository.ErrNotFound,
	}}
	svc := NewPostService(users, &postRepoStub{}, &mediaStub{})

	err := svc.ClearNotification(context.Background(), "ada@example.com", primitive.NewObjectID())
	require.Error(t, err)
	appErr := &models.AppError{}
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}
