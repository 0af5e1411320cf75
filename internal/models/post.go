package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MediaType discriminates uploaded post media.
type MediaType string

const (
	// MediaTypeImage marks image media.
	MediaTypeImage MediaType = "image"
	// MediaTypeVideo marks video media.
	MediaTypeVideo MediaType = "video"
)

// Post exists in two places: embedded in the owning user's `posts` array and
// as a document in the flat posts collection. Every mutation (like, unlike,
// comment) must be applied to both copies.
type Post struct {
	ID           primitive.ObjectID `bson:"_id" json:"_id"`
	Email        string             `bson:"email" json:"email"`
	FirstName    string             `bson:"firstName" json:"firstName"`
	LastName     string             `bson:"lastName" json:"lastName"`
	ProfileImage string             `bson:"profileImage,omitempty" json:"profileImage"`
	Title        string             `bson:"title" json:"title"`
	PostText     string             `bson:"postText,omitempty" json:"postText,omitempty"`
	MediaURL     string             `bson:"mediaUrl,omitempty" json:"mediaUrl,omitempty"`
	MediaType    MediaType          `bson:"mediaType,omitempty" json:"mediaType,omitempty"`
	Liked        []Like             `bson:"liked" json:"liked"`
	Comments     []Comment          `bson:"comments" json:"comments"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

// HasLikeFrom reports whether the post already carries a like by the given
// user. Used by the duplicate-action guard.
func (p *Post) HasLikeFrom(email string) bool {
	for _, l := range p.Liked {
		if l.LikedByEmail == email {
			return true
		}
	}
	return false
}

// LastComment returns the most recent comment, or nil when there are none.
// The comment cooldown only ever inspects this single entry.
func (p *Post) LastComment() *Comment {
	if len(p.Comments) == 0 {
		return nil
	}
	return &p.Comments[len(p.Comments)-1]
}

// Like records one user liking one post. At most one like exists per
// (post, liker) pair; the guard is enforced before insertion.
type Like struct {
	ID             primitive.ObjectID `bson:"_id" json:"_id"`
	PostOwnerEmail string             `bson:"postOwnerEmail" json:"postOwnerEmail"`
	LikedByEmail   string             `bson:"likedByEmail" json:"likedByEmail"`
	LikedByFirst   string             `bson:"likedByFirstName" json:"likedByFirstName"`
	LikedByLast    string             `bson:"likedByLastName" json:"likedByLastName"`
	ProfileImage   string             `bson:"profileImage,omitempty" json:"profileImage"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
}

// Comment is an embedded comment with the commenter's identity snapshot.
type Comment struct {
	ID           primitive.ObjectID `bson:"_id" json:"_id"`
	Email        string             `bson:"email" json:"email"`
	FirstName    string             `bson:"firstName" json:"firstName"`
	LastName     string             `bson:"lastName" json:"lastName"`
	ProfileImage string             `bson:"profileImage,omitempty" json:"profileImage"`
	CommentText  string             `bson:"commentText" json:"commentText"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

// PostPage is the cached envelope for one page of the global feed.
type PostPage struct {
	TotalCount  int64  `json:"totalCount"`
	TotalPages  int64  `json:"totalPages"`
	CurrentPage int64  `json:"currentPage"`
	Data        []Post `json:"data"`
}
