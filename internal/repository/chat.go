package repository

import (
	"context"

	"chitchat/internal/models"
	"chitchat/internal/observability"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ChatRepository defines the interface for chat data operations. Messages
// live inside the friend edge's chats array; sends append the message to
// the edge on both users' documents.
type ChatRepository interface {
	FindEdge(ctx context.Context, ownerEmail, counterpartEmail string) (*models.Friend, error)
	AppendMessage(ctx context.Context, ownerEmail string, edgeID primitive.ObjectID, msg models.ChatMessage) error
	Messages(ctx context.Context, ownerEmail string, edgeID primitive.ObjectID) ([]models.ChatMessage, error)
}

type chatRepository struct {
	coll *mongo.Collection
	log  *observability.RepoLogger
}

// NewChatRepository creates a new chat repository.
func NewChatRepository(db *mongo.Database) ChatRepository {
	return &chatRepository{
		coll: db.Collection(UsersCollection),
		log:  observability.NewRepoLogger(UsersCollection),
	}
}

// FindEdge returns the friend edge held by ownerEmail for counterpartEmail.
// Uses a positional projection so only the single matching edge is decoded.
func (r *chatRepository) FindEdge(ctx context.Context, ownerEmail, counterpartEmail string) (*models.Friend, error) {
	defer observability.TrackQuery("findOne", UsersCollection)()

	opts := options.FindOne().SetProjection(bson.M{"Friends.$": 1})
	var doc struct {
		Friends []models.Friend `bson:"Friends"`
	}
	err := r.coll.FindOne(ctx,
		bson.M{"email": ownerEmail, "Friends.email": counterpartEmail},
		opts,
	).Decode(&doc)
	if err != nil {
		return nil, mapMongoError(err)
	}
	if len(doc.Friends) == 0 {
		return nil, ErrNotFound
	}
	return &doc.Friends[0], nil
}

func (r *chatRepository) AppendMessage(ctx context.Context, ownerEmail string, edgeID primitive.ObjectID, msg models.ChatMessage) error {
	defer observability.TrackQuery("updateOne", UsersCollection)()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"email": ownerEmail, "Friends._id": edgeID},
		bson.M{"$push": bson.M{"Friends.$.chats": msg}},
	)
	if err != nil {
		r.log.LogError(ctx, err, "update")
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *chatRepository) Messages(ctx context.Context, ownerEmail string, edgeID primitive.ObjectID) ([]models.ChatMessage, error) {
	defer observability.TrackQuery("findOne", UsersCollection)()

	opts := options.FindOne().SetProjection(bson.M{"Friends.$": 1})
	var doc struct {
		Friends []models.Friend `bson:"Friends"`
	}
	err := r.coll.FindOne(ctx,
		bson.M{"email": ownerEmail, "Friends._id": edgeID},
		opts,
	).Decode(&doc)
	if err != nil {
		return nil, mapMongoError(err)
	}
	if len(doc.Friends) == 0 {
		return nil, ErrNotFound
	}
	return doc.Friends[0].Chats, nil
}
