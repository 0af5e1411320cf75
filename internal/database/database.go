// Package database manages the MongoDB connection for the application.
package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"chitchat/internal/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultMaxPoolSize = 100
	defaultMaxRetry    = 3
)

// Connect establishes the MongoDB connection and returns the application
// database handle. Transient connection errors are retried with a short
// backoff.
func Connect(cfg *config.Config) (*mongo.Database, error) {
	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetMaxPoolSize(defaultMaxPoolSize)

	var (
		client *mongo.Client
		err    error
	)
	for i := 0; i < defaultMaxRetry; i++ {
		client, err = connect(opts)
		if err == nil {
			break
		}
		time.Sleep(time.Second / 2)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	log.Println("Connected to MongoDB")
	return client.Database(cfg.MongoDatabase), nil
}

func connect(opts *options.ClientOptions) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// Disconnect closes the underlying client of the given database handle.
func Disconnect(ctx context.Context, db *mongo.Database) error {
	if db == nil {
		return nil
	}
	return db.Client().Disconnect(ctx)
}
