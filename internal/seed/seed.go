package seed

import (
	"context"
	"fmt"
	"log"

	"chitchat/internal/models"
	"chitchat/internal/repository"

	"go.mongodb.org/mongo-driver/mongo"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
	MaxDays     int
}

// SeedPassword is the shared plaintext password for every seeded user.
const SeedPassword = "password123"

// Seeder populates the database with demo data. Posts are written to both
// representations the same way the live write path does: embedded in the
// owner's document and mirrored into the flat posts collection.
type Seeder struct {
	db      *mongo.Database
	factory *Factory
}

// NewSeeder creates a Seeder bound to the provided database.
func NewSeeder(db *mongo.Database, opts Options) *Seeder {
	return &Seeder{db: db, factory: NewFactory(opts)}
}

// ClearAll drops the users and posts collections.
func (s *Seeder) ClearAll(ctx context.Context) error {
	log.Println("🗑️  Clearing existing data...")
	for _, name := range []string{repository.UsersCollection, repository.PostsCollection} {
		if err := s.db.Collection(name).Drop(ctx); err != nil {
			return fmt.Errorf("drop %s: %w", name, err)
		}
	}
	return nil
}

// Seed builds the full demo dataset: users, a friend mesh with chat history,
// posts with likes and comments, and a sprinkling of follows.
func (s *Seeder) Seed(ctx context.Context, opts Options) error {
	log.Printf("🌱 Starting database seeding with %d users and %d posts...", opts.NumUsers, opts.NumPosts)

	users, err := s.buildUsers(opts.NumUsers)
	if err != nil {
		return fmt.Errorf("build users: %w", err)
	}

	s.meshFriends(users)
	posts := s.attachPosts(users, opts.NumPosts)

	if err := s.persist(ctx, users, posts); err != nil {
		return err
	}

	log.Printf("✓ %d users created", len(users))
	log.Printf("✓ %d posts created", len(posts))
	log.Println("🎉 Database seeding completed successfully!")
	return nil
}

func (s *Seeder) buildUsers(count int) ([]*models.User, error) {
	hash, err := HashSeedPassword(SeedPassword)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, count)

	// Always include a couple of well-known accounts for manual testing.
	if count >= 2 {
		for _, name := range []struct{ first, last, email string }{
			{"Ada", "Lovelace", "ada@example.com"},
			{"Test", "User", "test@example.com"},
		} {
			u := s.factory.BuildUser(hash)
			u.FirstName = name.first
			u.LastName = name.last
			u.Email = name.email
			users = append(users, u)
		}
	}

	for i := len(users); i < count; i++ {
		users = append(users, s.factory.BuildUser(hash))
	}
	return users, nil
}

// meshFriends links each user to a handful of neighbors with symmetric
// edges and seeds a short chat history on each edge.
func (s *Seeder) meshFriends(users []*models.User) {
	if len(users) < 2 {
		return
	}
	for i, u := range users {
		degree := s.factory.rng.Intn(3) + 1
		for d := 1; d <= degree; d++ {
			v := users[(i+d)%len(users)]
			if u == v || hasFriend(u, v.Email) {
				continue
			}
			edgeU, edgeV := s.factory.BuildFriendEdges(u, v)

			for m := 0; m < s.factory.rng.Intn(6); m++ {
				sender, receiver := u, v
				if s.factory.rng.Intn(2) == 0 {
					sender, receiver = v, u
				}
				msg := s.factory.BuildChatMessage(sender, receiver)
				edgeU.Chats = append(edgeU.Chats, msg)
				edgeV.Chats = append(edgeV.Chats, msg)
			}

			u.Friends = append(u.Friends, edgeU)
			v.Friends = append(v.Friends, edgeV)
		}
	}
}

func hasFriend(u *models.User, email string) bool {
	for _, f := range u.Friends {
		if f.Email == email {
			return true
		}
	}
	return false
}

// attachPosts embeds posts into random owners and collects the flat mirror
// copies. Likes and comments are applied to the shared value before it is
// embedded, so both representations start identical.
func (s *Seeder) attachPosts(users []*models.User, count int) []models.Post {
	posts := make([]models.Post, 0, count)
	for i := 0; i < count; i++ {
		author := users[s.factory.rng.Intn(len(users))]
		post := s.factory.BuildPost(author)

		for l := 0; l < s.factory.rng.Intn(5); l++ {
			liker := users[s.factory.rng.Intn(len(users))]
			if liker.Email == post.Email || post.HasLikeFrom(liker.Email) {
				continue
			}
			post.Liked = append(post.Liked, s.factory.BuildLike(&post, liker))
		}
		for c := 0; c < s.factory.rng.Intn(3); c++ {
			commenter := users[s.factory.rng.Intn(len(users))]
			post.Comments = append(post.Comments, s.factory.BuildComment(commenter))
		}

		author.Posts = append(author.Posts, post)
		posts = append(posts, post)
	}
	return posts
}

func (s *Seeder) persist(ctx context.Context, users []*models.User, posts []models.Post) error {
	userDocs := make([]interface{}, len(users))
	for i, u := range users {
		userDocs[i] = u
	}
	if _, err := s.db.Collection(repository.UsersCollection).InsertMany(ctx, userDocs); err != nil {
		return fmt.Errorf("insert users: %w", err)
	}

	if len(posts) == 0 {
		return nil
	}
	postDocs := make([]interface{}, len(posts))
	for i := range posts {
		postDocs[i] = posts[i]
	}
	if _, err := s.db.Collection(repository.PostsCollection).InsertMany(ctx, postDocs); err != nil {
		return fmt.Errorf("insert posts: %w", err)
	}
	return nil
}
