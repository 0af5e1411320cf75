package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chitchat/internal/cache"
	"chitchat/internal/models"
	"chitchat/internal/observability"
	"chitchat/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// FriendService implements the friend-request state machine, symmetric
// friend edges, and follow relations. A request moves from none to requested
// and ends in accepted or declined; the request document is deleted either
// way, and acceptance writes the same edge id on both users.
type FriendService struct {
	users repository.UserRepository
}

// NewFriendService creates a new FriendService.
func NewFriendService(users repository.UserRepository) *FriendService {
	return &FriendService{users: users}
}

// ListUsers returns all user summaries, cache-aside with the list TTL.
func (s *FriendService) ListUsers(ctx context.Context) ([]models.UserSummary, error) {
	var users []models.UserSummary
	err := cache.CacheAside(ctx, cache.UsersListKey(), &users, cache.UsersListTTL, func() error {
		list, err := s.users.ListSummaries(ctx)
		if err != nil {
			return err
		}
		users = list
		return nil
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// SendRequest pushes a pending request onto the receiver plus notifications
// on both sides. No state is written when a guard rejects.
func (s *FriendService) SendRequest(ctx context.Context, adderEmail, receiverEmail string) error {
	if adderEmail == "" || receiverEmail == "" {
		return models.NewValidationError("Email must not be empty")
	}
	if adderEmail == receiverEmail {
		return models.NewValidationError("You cannot send a friend request to yourself")
	}

	receiver, err := s.users.FindByEmail(ctx, receiverEmail)
	if err == repository.ErrNotFound {
		return models.NewNotFoundError("Receiver user not found")
	}
	if err != nil {
		return models.NewInternalError(err)
	}
	for _, req := range receiver.FriendRequests {
		if req.Email == adderEmail {
			return models.NewConflictError("Friend request sent before")
		}
	}

	adder, err := s.cachedUser(ctx, adderEmail)
	if err == repository.ErrNotFound {
		return models.NewNotFoundError("Adder user not found")
	}
	if err != nil {
		return models.NewInternalError(err)
	}

	now := time.Now()
	id := primitive.NewObjectID()
	request := models.FriendRequest{
		ID:           id,
		Email:        adder.Email,
		FirstName:    adder.FirstName,
		LastName:     adder.LastName,
		ProfileImage: adder.ProfileImage,
		CreatedAt:    now,
	}
	receiverNotif := models.Notification{
		ID:           id,
		Email:        adder.Email,
		FirstName:    adder.FirstName,
		LastName:     adder.LastName,
		ProfileImage: adder.ProfileImage,
		UserDid:      fmt.Sprintf("friend request was sent from %s", adder.FirstName),
		CreatedAt:    now,
	}
	// The adder's notification snapshots the counterpart (the receiver),
	// like every other notification does.
	adderNotif := models.Notification{
		ID:           primitive.NewObjectID(),
		Email:        receiver.Email,
		FirstName:    receiver.FirstName,
		LastName:     receiver.LastName,
		ProfileImage: receiver.ProfileImage,
		UserDid:      "you sent a friend request",
		CreatedAt:    now,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.users.PushFriendRequest(gctx, receiverEmail, request); err != nil {
			observability.RecordDualWriteFailure("friend_request", "receiver")
			return err
		}
		return nil
	})
	g.Go(func() error {
		return s.users.PushNotification(gctx, receiverEmail, receiverNotif)
	})
	g.Go(func() error {
		return s.users.PushNotification(gctx, adderEmail, adderNotif)
	})
	if err := g.Wait(); err != nil {
		observability.GlobalLogger.Error("friend request partial write",
			slog.String("adder", adderEmail), slog.String("receiver", receiverEmail),
			slog.String("error", err.Error()))
		return models.NewInternalError(err)
	}

	cache.InvalidateUser(ctx, receiverEmail)
	cache.Invalidate(ctx, cache.FriendRequestsKey(receiver.ID.Hex()))
	return nil
}

// ListRequests returns the pending requests for the user id, cache-aside.
func (s *FriendService) ListRequests(ctx context.Context, userID primitive.ObjectID) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	err := cache.CacheAside(ctx, cache.FriendRequestsKey(userID.Hex()), &requests, cache.FriendRequestsTTL, func() error {
		user, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		requests = user.FriendRequests
		return nil
	})
	if err == repository.ErrNotFound {
		return nil, models.NewNotFoundError("User not found")
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return requests, nil
}

// AcceptResult reports the created edge and both parties for emission.
type AcceptResult struct {
	EdgeID      primitive.ObjectID
	UserEmail   string
	SenderEmail string
}

// Accept turns a pending request into a symmetric friend edge. The same edge
// id is written to both users, each side holding the counterpart's identity
// snapshot; the request is deleted and its notification marked read.
func (s *FriendService) Accept(ctx context.Context, userEmail string, requestID primitive.ObjectID) (*AcceptResult, error) {
	if userEmail == "" || requestID.IsZero() {
		return nil, models.NewValidationError("Email(s) or ID must be valid")
	}

	user, err := s.cachedUserTTL(ctx, userEmail, cache.UserTTL)
	if err == repository.ErrNotFound {
		return nil, models.NewNotFoundError("User not found")
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	var request *models.FriendRequest
	for i := range user.FriendRequests {
		if user.FriendRequests[i].ID == requestID {
			request = &user.FriendRequests[i]
			break
		}
	}
	if request == nil {
		return nil, models.NewNotFoundError("Friend request not found")
	}

	sender, err := s.cachedUserTTL(ctx, request.Email, cache.UserTTL)
	if err == repository.ErrNotFound {
		return nil, models.NewNotFoundError("Sender user not found")
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	now := time.Now()
	edgeID := primitive.NewObjectID()
	edgeForUser := models.Friend{
		ID:           edgeID,
		Email:        sender.Email,
		FirstName:    sender.FirstName,
		LastName:     sender.LastName,
		ProfileImage: sender.ProfileImage,
		CreatedAt:    now,
		Chats:        []models.ChatMessage{},
	}
	edgeForSender := models.Friend{
		ID:           edgeID,
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		ProfileImage: user.ProfileImage,
		CreatedAt:    now,
		Chats:        []models.ChatMessage{},
	}
	senderNotif := models.Notification{
		ID:           edgeID,
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		ProfileImage: user.ProfileImage,
		UserDid:      "accepted your friend request",
		CreatedAt:    now,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.users.PushFriend(gctx, user.Email, edgeForUser); err != nil {
			observability.RecordDualWriteFailure("friend_accept", "user")
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := s.users.PushFriend(gctx, sender.Email, edgeForSender); err != nil {
			observability.RecordDualWriteFailure("friend_accept", "sender")
			return err
		}
		return nil
	})
	g.Go(func() error {
		return s.users.PushNotification(gctx, sender.Email, senderNotif)
	})
	g.Go(func() error {
		return s.users.PullFriendRequest(gctx, user.Email, requestID)
	})
	g.Go(func() error {
		// The receiver's request notification shares the request id, so this
		// flags exactly that notification and never a like/comment one. A
		// missing notification is not an error.
		if err := s.users.MarkNotificationRead(gctx, user.Email, requestID); err != nil && err != repository.ErrNotFound {
			return err
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		observability.GlobalLogger.Error("friend accept partial write",
			slog.String("user", user.Email), slog.String("sender", sender.Email),
			slog.String("error", err.Error()))
		return nil, models.NewInternalError(err)
	}

	cache.InvalidateUser(ctx, user.Email)
	cache.InvalidateUser(ctx, sender.Email)
	cache.Invalidate(ctx, cache.FriendRequestsKey(user.ID.Hex()))

	return &AcceptResult{EdgeID: edgeID, UserEmail: user.Email, SenderEmail: sender.Email}, nil
}

// Decline deletes the pending request and marks its notification read.
func (s *FriendService) Decline(ctx context.Context, userEmail string, requestID primitive.ObjectID) error {
	if userEmail == "" || requestID.IsZero() {
		return models.NewValidationError("Your email or request ID is invalid")
	}

	if err := s.users.PullFriendRequest(ctx, userEmail, requestID); err != nil {
		if err == repository.ErrNotFound {
			return models.NewNotFoundError("Friend request not found")
		}
		return models.NewInternalError(err)
	}
	if err := s.users.MarkNotificationRead(ctx, userEmail, requestID); err != nil && err != repository.ErrNotFound {
		observability.GlobalLogger.Warn("decline notification flag not set",
			slog.String("user", userEmail), slog.String("error", err.Error()))
	}

	user, err := s.users.FindByEmail(ctx, userEmail)
	if err == nil {
		cache.Invalidate(ctx, cache.FriendRequestsKey(user.ID.Hex()))
	}
	cache.InvalidateUser(ctx, userEmail)
	return nil
}

// UnfriendResult reports both sides of the removed edge for emission.
type UnfriendResult struct {
	UserEmail   string
	FriendEmail string
}

// Unfriend pulls the shared edge from both users and rewrites both cache
// snapshots from the post-write documents with the short TTL.
func (s *FriendService) Unfriend(ctx context.Context, userEmail string, edgeID primitive.ObjectID) (*UnfriendResult, error) {
	if userEmail == "" || edgeID.IsZero() {
		return nil, models.NewValidationError("Email(s) or ID must be valid")
	}

	user, err := s.users.FindByEmail(ctx, userEmail)
	if err == repository.ErrNotFound {
		return nil, models.NewNotFoundError("User not found")
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	var friendEmail string
	for _, edge := range user.Friends {
		if edge.ID == edgeID {
			friendEmail = edge.Email
			break
		}
	}
	if friendEmail == "" {
		return nil, models.NewNotFoundError("Friend not found")
	}

	var updatedUser, updatedFriend *models.User
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := s.users.PullFriend(gctx, userEmail, edgeID)
		if err != nil {
			observability.RecordDualWriteFailure("unfriend", "user")
			return err
		}
		updatedUser = u
		return nil
	})
	g.Go(func() error {
		u, err := s.users.PullFriend(gctx, friendEmail, edgeID)
		if err != nil {
			observability.RecordDualWriteFailure("unfriend", "friend")
			return err
		}
		updatedFriend = u
		return nil
	})
	if err := g.Wait(); err != nil {
		observability.GlobalLogger.Error("unfriend partial write",
			slog.String("user", userEmail), slog.String("friend", friendEmail),
			slog.String("error", err.Error()))
		return nil, models.NewInternalError(err)
	}

	// Rewrite rather than invalidate: both documents are in hand and the
	// next profile read should not pay a store round trip.
	_ = cache.SetJSON(ctx, cache.UserKey(userEmail), updatedUser, cache.UserShortTTL)
	_ = cache.SetJSON(ctx, cache.UserKey(friendEmail), updatedFriend, cache.UserShortTTL)

	return &UnfriendResult{UserEmail: userEmail, FriendEmail: friendEmail}, nil
}

// Follow records a follow edge on both documents.
func (s *FriendService) Follow(ctx context.Context, followerEmail, targetEmail string) error {
	if followerEmail == "" || targetEmail == "" {
		return models.NewValidationError("Email must not be empty")
	}
	if followerEmail == targetEmail {
		return models.NewValidationError("You cannot follow yourself")
	}

	following, err := s.users.IsFollowing(ctx, followerEmail, targetEmail)
	if err != nil {
		return models.NewInternalError(err)
	}
	if following {
		return models.NewConflictError("You are already following this user")
	}

	edge := models.FollowEdge{
		ID:            primitive.NewObjectID(),
		UserEmail:     targetEmail,
		FollowerEmail: followerEmail,
		CreatedAt:     time.Now(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.users.AddFollowing(gctx, followerEmail, edge); err != nil {
			observability.RecordDualWriteFailure("follow", "follower")
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := s.users.AddFollower(gctx, targetEmail, edge); err != nil {
			observability.RecordDualWriteFailure("follow", "target")
			return err
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		observability.GlobalLogger.Error("follow partial write",
			slog.String("follower", followerEmail), slog.String("target", targetEmail),
			slog.String("error", err.Error()))
		return models.NewInternalError(err)
	}

	cache.InvalidateUser(ctx, followerEmail)
	cache.InvalidateUser(ctx, targetEmail)
	return nil
}

// Unfollow removes the follow edge from both documents.
func (s *FriendService) Unfollow(ctx context.Context, followerEmail, targetEmail string) error {
	if followerEmail == "" || targetEmail == "" {
		return models.NewValidationError("Email must not be empty")
	}

	following, err := s.users.IsFollowing(ctx, followerEmail, targetEmail)
	if err != nil {
		return models.NewInternalError(err)
	}
	if !following {
		return models.NewValidationError("You are not following this user")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.users.RemoveFollowing(gctx, followerEmail, targetEmail); err != nil {
			observability.RecordDualWriteFailure("unfollow", "follower")
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := s.users.RemoveFollower(gctx, targetEmail, followerEmail); err != nil {
			observability.RecordDualWriteFailure("unfollow", "target")
			return err
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		observability.GlobalLogger.Error("unfollow partial write",
			slog.String("follower", followerEmail), slog.String("target", targetEmail),
			slog.String("error", err.Error()))
		return models.NewInternalError(err)
	}

	cache.InvalidateUser(ctx, followerEmail)
	cache.InvalidateUser(ctx, targetEmail)
	return nil
}

func (s *FriendService) cachedUser(ctx context.Context, email string) (*models.User, error) {
	return s.cachedUserTTL(ctx, email, cache.UserTTL)
}

func (s *FriendService) cachedUserTTL(ctx context.Context, email string, ttl time.Duration) (*models.User, error) {
	var user models.User
	err := cache.CacheAside(ctx, cache.UserKey(email), &user, ttl, func() error {
		u, err := s.users.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		user = *u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
