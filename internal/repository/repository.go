// Package repository implements MongoDB access for users, posts, and chats.
// Every mutation that touches a dual-representation document (embedded post
// plus the flat posts collection) is exposed as a named operation so the
// services can run both sides concurrently.
package repository

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// Collection names.
const (
	UsersCollection = "users"
	PostsCollection = "posts"
)

// ErrNotFound is returned when a document or embedded element does not exist.
var ErrNotFound = errors.New("document not found")

func mapMongoError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
