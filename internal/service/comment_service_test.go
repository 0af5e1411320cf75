package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"chitchat/internal/models"
	"chitchat/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newCommentFixture(postOwner string, comments ...models.Comment) (*CommentService, *userRepoStub, *postRepoStub, primitive.ObjectID) {
	postID := primitive.NewObjectID()
	users := &userRepoStub{
		findByEmailFn: func(email string) (*models.User, error) { return testUser(email), nil },
	}
	posts := &postRepoStub{
		findByIDFn: func(id primitive.ObjectID) (*models.Post, error) {
			if id != postID {
				return nil, repository.ErrNotFound
			}
			return &models.Post{ID: postID, Email: postOwner, Title: "hello", Comments: comments}, nil
		},
	}
	return NewCommentService(users, posts), users, posts, postID
}

func TestCreateCommentLengthBounds(t *testing.T) {
	t.Parallel()

	svc, _, _, postID := newCommentFixture("bob@example.com")

	cases := []struct {
		name string
		text string
		ok   bool
	}{
		{"empty", "", false},
		{"whitespace only", "   \n\t ", false},
		{"single char", "x", true},
		{"exactly 500", strings.Repeat("a", 500), true},
		{"501 rejected", strings.Repeat("a", 501), false},
		{"padded to 500 after trim", "  " + strings.Repeat("a", 500) + "  ", true},
		{"500 multibyte chars", strings.Repeat("é", 500), true},
		{"300 CJK chars", strings.Repeat("好", 300), true},
		{"501 multibyte chars rejected", strings.Repeat("é", 501), false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.CreateComment(context.Background(), CreateCommentInput{
				PostID: postID, AuthorEmail: "ada@example.com", Text: tc.text,
			})
			if tc.ok {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "Comment must be between 1 and 500 characters")
			}
		})
	}
}

func TestCreateCommentCooldown(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("latest own comment inside window", func(t *testing.T) {
		t.Parallel()
		svc, _, _, postID := newCommentFixture("bob@example.com",
			models.Comment{Email: "ada@example.com", CreatedAt: base.Add(-3 * time.Second)})
		svc.now = func() time.Time { return base }

		_, err := svc.CreateComment(context.Background(), CreateCommentInput{
			PostID: postID, AuthorEmail: "ada@example.com", Text: "again",
		})
		require.Error(t, err)
		appErr := &models.AppError{}
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "RATE_LIMITED", appErr.Code)
		assert.Equal(t, "You are commenting too fast. Please wait a few seconds.", appErr.Message)
	})

	t.Run("window elapsed", func(t *testing.T) {
		t.Parallel()
		svc, _, _, postID := newCommentFixture("bob@example.com",
			models.Comment{Email: "ada@example.com", CreatedAt: base.Add(-11 * time.Second)})
		svc.now = func() time.Time { return base }

		_, err := svc.CreateComment(context.Background(), CreateCommentInput{
			PostID: postID, AuthorEmail: "ada@example.com", Text: "again",
		})
		assert.NoError(t, err)
	})

	t.Run("latest comment by someone else", func(t *testing.T) {
		t.Parallel()
		// An older own comment inside the window does not trip the cooldown
		// when another user commented after it.
		svc, _, _, postID := newCommentFixture("bob@example.com",
			models.Comment{Email: "ada@example.com", CreatedAt: base.Add(-2 * time.Second)},
			models.Comment{Email: "eve@example.com", CreatedAt: base.Add(-time.Second)})
		svc.now = func() time.Time { return base }

		_, err := svc.CreateComment(context.Background(), CreateCommentInput{
			PostID: postID, AuthorEmail: "ada@example.com", Text: "again",
		})
		assert.NoError(t, err)
	})
}

func TestCreateCommentDualWriteAndNotification(t *testing.T) {
	t.Parallel()

	svc, users, posts, postID := newCommentFixture("bob@example.com")

	comment, err := svc.CreateComment(context.Background(), CreateCommentInput{
		PostID: postID, AuthorEmail: "ada@example.com", Text: "  nice post  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "nice post", comment.CommentText)

	require.Len(t, users.comments, 1)
	require.Len(t, posts.comments, 1)
	assert.Equal(t, comment.ID, users.comments[0].ID)
	assert.Equal(t, comment.ID, posts.comments[0].ID)

	notifs := users.notifs["bob@example.com"]
	require.Len(t, notifs, 1)
	assert.Equal(t, "commented on this post", notifs[0].UserDid)
}

func TestCreateCommentOwnPostSkipsNotification(t *testing.T) {
	t.Parallel()

	svc, users, _, postID := newCommentFixture("ada@example.com")

	_, err := svc.CreateComment(context.Background(), CreateCommentInput{
		PostID: postID, AuthorEmail: "ada@example.com", Text: "my own post",
	})
	require.NoError(t, err)
	assert.Empty(t, users.notifs["ada@example.com"])
}

func TestCreateCommentPostNotFound(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newCommentFixture("bob@example.com")

	_, err := svc.CreateComment(context.Background(), CreateCommentInput{
		PostID: primitive.NewObjectID(), AuthorEmail: "ada@example.com", Text: "hi",
	})
	require.Error(t, err)
	appErr := &models.AppError{}
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
	assert.Equal(t, "Post not found", appErr.Message)
}
