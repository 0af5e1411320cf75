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

// PostRepository defines the interface for flat posts collection operations.
// These mirror the embedded copies held in user documents; the services pair
// each method here with the matching embedded mutation.
type PostRepository interface {
	Insert(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	FindByOwner(ctx context.Context, email string) ([]models.Post, error)
	FindPage(ctx context.Context, page, limit int64) ([]models.Post, int64, error)

	AddLike(ctx context.Context, postID primitive.ObjectID, like models.Like) error
	RemoveLike(ctx context.Context, postID primitive.ObjectID, likerEmail string) error
	AddComment(ctx context.Context, postID primitive.ObjectID, comment models.Comment) error
	UpdateProfileImageByOwner(ctx context.Context, email, url string) error
}

type postRepository struct {
	coll *mongo.Collection
	log  *observability.RepoLogger
}

// NewPostRepository creates a new post repository.
func NewPostRepository(db *mongo.Database) PostRepository {
	return &postRepository{
		coll: db.Collection(PostsCollection),
		log:  observability.NewRepoLogger(PostsCollection),
	}
}

func (r *postRepository) Insert(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("insertOne", PostsCollection)()

	_, err := r.coll.InsertOne(ctx, post)
	if err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.LogCreate(ctx, map[string]interface{}{"post_id": post.ID.Hex(), "owner": post.Email})
	return nil
}

func (r *postRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	defer observability.TrackQuery("findOne", PostsCollection)()

	var post models.Post
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if err != nil {
		return nil, mapMongoError(err)
	}
	return &post, nil
}

func (r *postRepository) FindByOwner(ctx context.Context, email string) ([]models.Post, error) {
	defer observability.TrackQuery("find", PostsCollection)()

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.M{"email": email}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var posts []models.Post
	if err := cur.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// FindPage reads one feed page, newest first, and returns the total document
// count so callers can build the pagination envelope.
func (r *postRepository) FindPage(ctx context.Context, page, limit int64) ([]models.Post, int64, error) {
	defer observability.TrackQuery("find", PostsCollection)()

	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var posts []models.Post
	if err := cur.All(ctx, &posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *postRepository) AddLike(ctx context.Context, postID primitive.ObjectID, like models.Like) error {
	defer observability.TrackQuery("updateOne", PostsCollection)()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": postID},
		bson.M{"$addToSet": bson.M{"liked": like}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postRepository) RemoveLike(ctx context.Context, postID primitive.ObjectID, likerEmail string) error {
	defer observability.TrackQuery("updateOne", PostsCollection)()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": postID},
		bson.M{"$pull": bson.M{"liked": bson.M{"likedByEmail": likerEmail}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postRepository) AddComment(ctx context.Context, postID primitive.ObjectID, comment models.Comment) error {
	defer observability.TrackQuery("updateOne", PostsCollection)()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": postID},
		bson.M{"$push": bson.M{"comments": comment}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProfileImageByOwner rewrites the denormalized owner image on every
// flat post after a profile image change.
func (r *postRepository) UpdateProfileImageByOwner(ctx context.Context, email, url string) error {
	defer observability.TrackQuery("updateMany", PostsCollection)()

	_, err := r.coll.UpdateMany(ctx,
		bson.M{"email": email},
		bson.M{"$set": bson.M{"profileImage": url}},
	)
	return err
}
