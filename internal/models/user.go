// Package models contains the document structures for the application's domain.
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the root document of the users collection. Social state is
// embedded: posts, friend edges, pending friend requests, notifications and
// follow edges all live inside the user document. The flat posts collection
// mirrors every embedded post for feed reads.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email        string             `bson:"email" json:"email"`
	FirstName    string             `bson:"firstName" json:"firstName"`
	LastName     string             `bson:"lastName" json:"lastName"`
	Password     string             `bson:"password,omitempty" json:"-"`
	OTP          string             `bson:"otp,omitempty" json:"-"`
	OTPExpire    time.Time          `bson:"otpExpire,omitempty" json:"-"`
	IsVerified   bool               `bson:"isVerified" json:"isVerified"`
	ProfileImage string             `bson:"profileImage,omitempty" json:"profileImage"`
	CoverImage   string             `bson:"coverImage,omitempty" json:"coverImage,omitempty"`
	City         string             `bson:"city,omitempty" json:"city,omitempty"`
	Country      string             `bson:"country,omitempty" json:"country,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`

	Posts          []Post          `bson:"posts,omitempty" json:"posts,omitempty"`
	Friends        []Friend        `bson:"Friends,omitempty" json:"Friends,omitempty"`
	FriendRequests []FriendRequest `bson:"FriendRequest,omitempty" json:"FriendRequest,omitempty"`
	Notifications  []Notification  `bson:"notifications,omitempty" json:"notifications,omitempty"`
	Followers      []FollowEdge    `bson:"followers,omitempty" json:"followers,omitempty"`
	Following      []FollowEdge    `bson:"following,omitempty" json:"following,omitempty"`
}

// Summary returns the identity snapshot denormalized into posts, friend
// edges, notifications and chat payloads.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		ProfileImage: u.ProfileImage,
	}
}

// UserSummary is the public identity snapshot of a user.
type UserSummary struct {
	ID           primitive.ObjectID `bson:"_id" json:"_id"`
	Email        string             `bson:"email" json:"email"`
	FirstName    string             `bson:"firstName" json:"firstName"`
	LastName     string             `bson:"lastName" json:"lastName"`
	ProfileImage string             `bson:"profileImage,omitempty" json:"profileImage"`
}

// FriendRequest is a pending request embedded in the receiver's document.
// It carries the sender's identity snapshot and is deleted on accept/decline.
type FriendRequest struct {
	ID           primitive.ObjectID `bson:"_id" json:"_id"`
	Email        string             `bson:"email" json:"email"`
	FirstName    string             `bson:"firstName" json:"firstName"`
	LastName     string             `bson:"lastName" json:"lastName"`
	ProfileImage string             `bson:"profileImage,omitempty" json:"profileImage"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

// Friend is one side of a symmetric friend edge. The same edge id is written
// to both users; each side snapshots the counterpart's identity. Chat
// messages between the two users are embedded in the edge on both sides.
type Friend struct {
	ID           primitive.ObjectID `bson:"_id" json:"_id"`
	Email        string             `bson:"email" json:"email"`
	FirstName    string             `bson:"firstName" json:"firstName"`
	LastName     string             `bson:"lastName" json:"lastName"`
	ProfileImage string             `bson:"profileImage,omitempty" json:"profileImage"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	Chats        []ChatMessage      `bson:"chats" json:"chats"`
}

// Notification is an append-only per-user record; only the read flag is
// ever mutated after insertion.
type Notification struct {
	ID           primitive.ObjectID `bson:"_id" json:"_id"`
	PostID       primitive.ObjectID `bson:"post_id,omitempty" json:"post_id,omitempty"`
	Email        string             `bson:"email,omitempty" json:"email,omitempty"`
	FirstName    string             `bson:"firstName" json:"firstName"`
	LastName     string             `bson:"lastName" json:"lastName"`
	ProfileImage string             `bson:"profileImage,omitempty" json:"profileImage"`
	Title        string             `bson:"title,omitempty" json:"title,omitempty"`
	UserDid      string             `bson:"userDid" json:"userDid"`
	Read         bool               `bson:"read" json:"read"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

// FollowEdge records a follow relation. It is written to the follower's
// `following` array and to the target's `followers` array.
type FollowEdge struct {
	ID            primitive.ObjectID `bson:"_id" json:"_id"`
	UserEmail     string             `bson:"UserEmail" json:"UserEmail"`
	FollowerEmail string             `bson:"FollowerEmail" json:"FollowerEmail"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}
