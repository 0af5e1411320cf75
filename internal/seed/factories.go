// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"chitchat/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// Factory builds domain documents with fake but realistic content. It holds
// no database handle; the Seeder persists what the Factory builds.
type Factory struct {
	rng  *rand.Rand
	opts Options
}

// NewFactory creates a Factory seeded from the current time.
func NewFactory(opts Options) *Factory {
	seed := time.Now().UnixNano()
	gofakeit.Seed(seed)
	//nolint:gosec // weak randomness is fine for seeding
	return &Factory{rng: rand.New(rand.NewSource(seed)), opts: opts}
}

// pastTime returns a timestamp spread over the configured history window.
func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	return time.Now().Add(-back)
}

// BuildUser constructs a verified user with a bcrypt hash of the shared
// seed password.
func (f *Factory) BuildUser(passwordHash string) *models.User {
	first := gofakeit.FirstName()
	last := gofakeit.LastName()
	email := strings.ToLower(fmt.Sprintf("%s.%s%d@example.com", first, last, f.rng.Intn(10000)))

	return &models.User{
		ID:           primitive.NewObjectID(),
		Email:        email,
		FirstName:    first,
		LastName:     last,
		Password:     passwordHash,
		IsVerified:   true,
		ProfileImage: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", email),
		City:         gofakeit.City(),
		Country:      gofakeit.Country(),
		CreatedAt:    f.pastTime(),
		Posts:        []models.Post{},
	}
}

// BuildPost constructs a post authored by the given user. Roughly 40% of
// posts carry an image.
func (f *Factory) BuildPost(author *models.User) models.Post {
	post := models.Post{
		ID:           primitive.NewObjectID(),
		Email:        author.Email,
		FirstName:    author.FirstName,
		LastName:     author.LastName,
		ProfileImage: author.ProfileImage,
		Title:        gofakeit.Sentence(5),
		PostText:     gofakeit.Paragraph(1, 3, 8, " "),
		Liked:        []models.Like{},
		Comments:     []models.Comment{},
		CreatedAt:    f.pastTime(),
	}
	if f.rng.Float32() < 0.4 {
		post.MediaURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/800", gofakeit.UUID())
		post.MediaType = models.MediaTypeImage
	}
	return post
}

// BuildLike constructs a like on the given post by the given user.
func (f *Factory) BuildLike(post *models.Post, liker *models.User) models.Like {
	return models.Like{
		ID:             primitive.NewObjectID(),
		PostOwnerEmail: post.Email,
		LikedByEmail:   liker.Email,
		LikedByFirst:   liker.FirstName,
		LikedByLast:    liker.LastName,
		ProfileImage:   liker.ProfileImage,
		CreatedAt:      time.Now(),
	}
}

// BuildComment constructs a short comment by the given user.
func (f *Factory) BuildComment(commenter *models.User) models.Comment {
	return models.Comment{
		ID:           primitive.NewObjectID(),
		Email:        commenter.Email,
		FirstName:    commenter.FirstName,
		LastName:     commenter.LastName,
		ProfileImage: commenter.ProfileImage,
		CommentText:  gofakeit.Sentence(f.rng.Intn(12) + 3),
		CreatedAt:    time.Now(),
	}
}

// BuildFriendEdges constructs the symmetric pair of friend edges between two
// users. Both edges share one id; each side snapshots the counterpart.
func (f *Factory) BuildFriendEdges(a, b *models.User) (models.Friend, models.Friend) {
	edgeID := primitive.NewObjectID()
	created := f.pastTime()
	forA := models.Friend{
		ID:           edgeID,
		Email:        b.Email,
		FirstName:    b.FirstName,
		LastName:     b.LastName,
		ProfileImage: b.ProfileImage,
		CreatedAt:    created,
		Chats:        []models.ChatMessage{},
	}
	forB := models.Friend{
		ID:           edgeID,
		Email:        a.Email,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		ProfileImage: a.ProfileImage,
		CreatedAt:    created,
		Chats:        []models.ChatMessage{},
	}
	return forA, forB
}

// BuildChatMessage constructs a chat message from sender to receiver.
func (f *Factory) BuildChatMessage(sender, receiver *models.User) models.ChatMessage {
	return models.ChatMessage{
		ID:            primitive.NewObjectID(),
		SenderEmail:   sender.Email,
		ReceiverEmail: receiver.Email,
		Text:          gofakeit.Sentence(f.rng.Intn(10) + 2),
		CreatedAt:     f.pastTime(),
	}
}

// HashSeedPassword returns the bcrypt hash shared by all seed users.
func HashSeedPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash seed password: %w", err)
	}
	return string(hash), nil
}
