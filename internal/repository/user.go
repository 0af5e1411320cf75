package repository

import (
	"context"
	"time"

	"chitchat/internal/models"
	"chitchat/internal/observability"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository defines the interface for user document operations.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	Insert(ctx context.Context, user *models.User) (primitive.ObjectID, error)
	ListSummaries(ctx context.Context) ([]models.UserSummary, error)

	SetOTP(ctx context.Context, email, otpHash string, expire time.Time) error
	MarkVerified(ctx context.Context, email string) error
	SetProfileImage(ctx context.Context, email, url string) error
	SetCoverImage(ctx context.Context, email, url string) error

	PushEmbeddedPost(ctx context.Context, email string, post models.Post) error
	AddLikeToEmbeddedPost(ctx context.Context, ownerEmail string, postID primitive.ObjectID, like models.Like) error
	RemoveLikeFromEmbeddedPost(ctx context.Context, ownerEmail string, postID primitive.ObjectID, likerEmail string) error
	AddCommentToEmbeddedPost(ctx context.Context, ownerEmail string, postID primitive.ObjectID, comment models.Comment) error

	PushNotification(ctx context.Context, email string, notif models.Notification) error
	MarkNotificationRead(ctx context.Context, email string, notifID primitive.ObjectID) error

	PushFriendRequest(ctx context.Context, email string, req models.FriendRequest) error
	PullFriendRequest(ctx context.Context, email string, requestID primitive.ObjectID) error
	PushFriend(ctx context.Context, email string, friend models.Friend) error
	PullFriend(ctx context.Context, email string, edgeID primitive.ObjectID) (*models.User, error)

	AddFollowing(ctx context.Context, followerEmail string, edge models.FollowEdge) error
	AddFollower(ctx context.Context, targetEmail string, edge models.FollowEdge) error
	RemoveFollowing(ctx context.Context, followerEmail, targetEmail string) error
	RemoveFollower(ctx context.Context, targetEmail, followerEmail string) error
	IsFollowing(ctx context.Context, followerEmail, targetEmail string) (bool, error)
}

// userRepository implements UserRepository on the users collection.
type userRepository struct {
	coll *mongo.Collection
	log  *observability.RepoLogger
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *mongo.Database) UserRepository {
	return &userRepository{
		coll: db.Collection(UsersCollection),
		log:  observability.NewRepoLogger(UsersCollection),
	}
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	defer observability.TrackQuery("findOne", UsersCollection)()

	var user models.User
	err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		return nil, mapMongoError(err)
	}
	return &user, nil
}

func (r *userRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	defer observability.TrackQuery("findOne", UsersCollection)()

	var user models.User
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		return nil, mapMongoError(err)
	}
	return &user, nil
}

func (r *userRepository) Insert(ctx context.Context, user *models.User) (primitive.ObjectID, error) {
	defer observability.TrackQuery("insertOne", UsersCollection)()

	res, err := r.coll.InsertOne(ctx, user)
	if err != nil {
		r.log.LogError(ctx, err, "create")
		return primitive.NilObjectID, err
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	r.log.LogCreate(ctx, map[string]interface{}{"email": user.Email})
	return id, nil
}

func (r *userRepository) ListSummaries(ctx context.Context) ([]models.UserSummary, error) {
	defer observability.TrackQuery("find", UsersCollection)()

	opts := options.Find().
		SetProjection(bson.M{"email": 1, "firstName": 1, "lastName": 1, "profileImage": 1}).
		SetSort(bson.D{{Key: "email", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var users []models.UserSummary
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) SetOTP(ctx context.Context, email, otpHash string, expire time.Time) error {
	return r.updateByEmail(ctx, email, bson.M{
		"$set": bson.M{"otp": otpHash, "otpExpire": expire, "updatedAt": time.Now()},
	})
}

func (r *userRepository) MarkVerified(ctx context.Context, email string) error {
	return r.updateByEmail(ctx, email, bson.M{
		"$set":   bson.M{"isVerified": true, "updatedAt": time.Now()},
		"$unset": bson.M{"otp": "", "otpExpire": ""},
	})
}

// SetProfileImage writes the new URL on the user and on every embedded post
// copy. The flat posts collection is updated separately by the post
// repository; both writes belong to the same dual-write operation.
func (r *userRepository) SetProfileImage(ctx context.Context, email, url string) error {
	return r.updateByEmail(ctx, email, bson.M{
		"$set": bson.M{
			"profileImage":           url,
			"posts.$[].profileImage": url,
			"updatedAt":              time.Now(),
		},
	})
}

func (r *userRepository) SetCoverImage(ctx context.Context, email, url string) error {
	return r.updateByEmail(ctx, email, bson.M{
		"$set": bson.M{"coverImage": url, "updatedAt": time.Now()},
	})
}

func (r *userRepository) PushEmbeddedPost(ctx context.Context, email string, post models.Post) error {
	return r.updateByEmail(ctx, email, bson.M{"$addToSet": bson.M{"posts": post}})
}

func (r *userRepository) AddLikeToEmbeddedPost(ctx context.Context, ownerEmail string, postID primitive.ObjectID, like models.Like) error {
	defer observability.TrackQuery("updateOne", UsersCollection)()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"email": ownerEmail, "posts._id": postID},
		bson.M{"$addToSet": bson.M{"posts.$.liked": like}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) RemoveLikeFromEmbeddedPost(ctx context.Context, ownerEmail string, postID primitive.ObjectID, likerEmail string) error {
	defer observability.TrackQuery("updateOne", UsersCollection)()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"email": ownerEmail, "posts._id": postID},
		bson.M{"$pull": bson.M{"posts.$.liked": bson.M{"likedByEmail": likerEmail}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) AddCommentToEmbeddedPost(ctx context.Context, ownerEmail string, postID primitive.ObjectID, comment models.Comment) error {
	defer observability.TrackQuery("updateOne", UsersCollection)()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"email": ownerEmail, "posts._id": postID},
		bson.M{"$push": bson.M{"posts.$.comments": comment}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) PushNotification(ctx context.Context, email string, notif models.Notification) error {
	return r.updateByEmail(ctx, email, bson.M{"$push": bson.M{"notifications": notif}})
}

func (r *userRepository) MarkNotificationRead(ctx context.Context, email string, notifID primitive.ObjectID) error {
	defer observability.TrackQuery("updateOne", UsersCollection)()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"email": email, "notifications._id": notifID},
		bson.M{"$set": bson.M{"notifications.$.read": true}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) PushFriendRequest(ctx context.Context, email string, req models.FriendRequest) error {
	return r.updateByEmail(ctx, email, bson.M{"$addToSet": bson.M{"FriendRequest": req}})
}

func (r *userRepository) PullFriendRequest(ctx context.Context, email string, requestID primitive.ObjectID) error {
	defer observability.TrackQuery("updateOne", UsersCollection)()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"email": email, "FriendRequest._id": requestID},
		bson.M{"$pull": bson.M{"FriendRequest": bson.M{"_id": requestID}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) PushFriend(ctx context.Context, email string, friend models.Friend) error {
	return r.updateByEmail(ctx, email, bson.M{"$addToSet": bson.M{"Friends": friend}})
}

// PullFriend removes the edge and returns the updated document so callers
// can rewrite the cache snapshot from the post-write state.
func (r *userRepository) PullFriend(ctx context.Context, email string, edgeID primitive.ObjectID) (*models.User, error) {
	defer observability.TrackQuery("findOneAndUpdate", UsersCollection)()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user models.User
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"email": email, "Friends._id": edgeID},
		bson.M{"$pull": bson.M{"Friends": bson.M{"_id": edgeID}}},
		opts,
	).Decode(&user)
	if err != nil {
		return nil, mapMongoError(err)
	}
	return &user, nil
}

func (r *userRepository) AddFollowing(ctx context.Context, followerEmail string, edge models.FollowEdge) error {
	return r.updateByEmail(ctx, followerEmail, bson.M{"$addToSet": bson.M{"following": edge}})
}

func (r *userRepository) AddFollower(ctx context.Context, targetEmail string, edge models.FollowEdge) error {
	return r.updateByEmail(ctx, targetEmail, bson.M{"$addToSet": bson.M{"followers": edge}})
}

func (r *userRepository) RemoveFollowing(ctx context.Context, followerEmail, targetEmail string) error {
	return r.updateByEmail(ctx, followerEmail, bson.M{
		"$pull": bson.M{"following": bson.M{"UserEmail": targetEmail}},
	})
}

func (r *userRepository) RemoveFollower(ctx context.Context, targetEmail, followerEmail string) error {
	return r.updateByEmail(ctx, targetEmail, bson.M{
		"$pull": bson.M{"followers": bson.M{"FollowerEmail": followerEmail}},
	})
}

func (r *userRepository) IsFollowing(ctx context.Context, followerEmail, targetEmail string) (bool, error) {
	defer observability.TrackQuery("findOne", UsersCollection)()

	err := r.coll.FindOne(ctx,
		bson.M{"email": followerEmail, "following.UserEmail": targetEmail},
		options.FindOne().SetProjection(bson.M{"_id": 1}),
	).Err()
	if err != nil {
		if mapMongoError(err) == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *userRepository) updateByEmail(ctx context.Context, email string, update bson.M) error {
	defer observability.TrackQuery("updateOne", UsersCollection)()

	res, err := r.coll.UpdateOne(ctx, bson.M{"email": email}, update)
	if err != nil {
		r.log.LogError(ctx, err, "update")
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
