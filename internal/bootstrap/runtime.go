// Package bootstrap wires the runtime dependencies shared by the server and
// the CLI tools.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"chitchat/internal/cache"
	"chitchat/internal/config"
	"chitchat/internal/database"
	"chitchat/internal/repository"
	"chitchat/internal/seed"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedIfEmpty bool
	SeedUsers   int
	SeedPosts   int
}

// InitRuntime connects to Mongo and Redis, ensures the collection indexes,
// and optionally seeds demo data into an empty development database.
func InitRuntime(cfg *config.Config, opts Options) (*mongo.Database, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := EnsureIndexes(ctx, db); err != nil {
		return nil, nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}

	if opts.SeedIfEmpty && cfg.Env == "development" {
		if err := seedIfEmpty(ctx, db, opts); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, r, nil
}

// EnsureIndexes creates the indexes both collections depend on. Email is the
// canonical identity, so the users collection carries a unique index on it.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(repository.UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users email index: %w", err)
	}

	_, err = db.Collection(repository.PostsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "email", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("posts indexes: %w", err)
	}
	return nil
}

func seedIfEmpty(ctx context.Context, db *mongo.Database, opts Options) error {
	count, err := db.Collection(repository.UsersCollection).EstimatedDocumentCount(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	numUsers := opts.SeedUsers
	if numUsers <= 0 {
		numUsers = 20
	}
	numPosts := opts.SeedPosts
	if numPosts <= 0 {
		numPosts = 60
	}

	log.Println("empty development database, seeding demo data")
	seedOpts := seed.Options{NumUsers: numUsers, NumPosts: numPosts}
	return seed.NewSeeder(db, seedOpts).Seed(ctx, seedOpts)
}
