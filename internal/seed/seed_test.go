package seed

import (
	"testing"

	"chitchat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBuildUser(t *testing.T) {
	t.Parallel()

	f := NewFactory(Options{})
	hash, err := HashSeedPassword(SeedPassword)
	require.NoError(t, err)

	u := f.BuildUser(hash)

	assert.False(t, u.ID.IsZero())
	assert.NotEmpty(t, u.Email)
	assert.Contains(t, u.Email, "@example.com")
	assert.NotEmpty(t, u.FirstName)
	assert.True(t, u.IsVerified)
	assert.NotNil(t, u.Posts)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(SeedPassword)))
}

func TestBuildPostCarriesAuthorSnapshot(t *testing.T) {
	t.Parallel()

	f := NewFactory(Options{MaxDays: 30})
	hash, err := HashSeedPassword(SeedPassword)
	require.NoError(t, err)
	author := f.BuildUser(hash)

	post := f.BuildPost(author)

	assert.Equal(t, author.Email, post.Email)
	assert.Equal(t, author.FirstName, post.FirstName)
	assert.NotEmpty(t, post.Title)
	assert.NotNil(t, post.Liked)
	assert.NotNil(t, post.Comments)
	assert.False(t, post.CreatedAt.IsZero())
}

func TestBuildFriendEdgesAreSymmetric(t *testing.T) {
	t.Parallel()

	f := NewFactory(Options{})
	hash, err := HashSeedPassword(SeedPassword)
	require.NoError(t, err)
	a := f.BuildUser(hash)
	b := f.BuildUser(hash)

	edgeA, edgeB := f.BuildFriendEdges(a, b)

	assert.Equal(t, edgeA.ID, edgeB.ID)
	assert.Equal(t, b.Email, edgeA.Email)
	assert.Equal(t, a.Email, edgeB.Email)
	assert.NotNil(t, edgeA.Chats)
	assert.NotNil(t, edgeB.Chats)
}

func TestMeshFriendsLinksBothSides(t *testing.T) {
	t.Parallel()

	s := NewSeeder(nil, Options{})
	users, err := s.buildUsers(6)
	require.NoError(t, err)

	s.meshFriends(users)

	for _, u := range users {
		require.NotEmpty(t, u.Friends, "every user should have at least one friend")
		for _, edge := range u.Friends {
			counterpart := findUser(t, users, edge.Email)
			back := findEdge(counterpart, edge.ID.Hex())
			require.NotNil(t, back, "friend edge must exist on both sides")
			assert.Equal(t, u.Email, back.Email)
			assert.Equal(t, len(edge.Chats), len(back.Chats))
		}
	}
}

func TestAttachPostsMirrorsEmbeddedCopies(t *testing.T) {
	t.Parallel()

	s := NewSeeder(nil, Options{})
	users, err := s.buildUsers(4)
	require.NoError(t, err)

	posts := s.attachPosts(users, 20)
	require.Len(t, posts, 20)

	embedded := 0
	for _, u := range users {
		for _, p := range u.Posts {
			embedded++
			assert.Equal(t, u.Email, p.Email)
			for _, like := range p.Liked {
				assert.NotEqual(t, p.Email, like.LikedByEmail, "seed likes never come from the post owner")
			}
		}
	}
	assert.Equal(t, 20, embedded)
}

func findUser(t *testing.T, users []*models.User, email string) *models.User {
	t.Helper()
	for _, u := range users {
		if u.Email == email {
			return u
		}
	}
	t.Fatalf("user %s not found", email)
	return nil
}

func findEdge(u *models.User, edgeHex string) *models.Friend {
	for i := range u.Friends {
		if u.Friends[i].ID.Hex() == edgeHex {
			return &u.Friends[i]
		}
	}
	return nil
}
