package service

import (
	"context"
	"io"
	"sync"
	"time"

	"chitchat/internal/models"
	"chitchat/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// userRepoStub embeds the interface so tests only fill in what they use.
// Mutations are recorded under a per-method key; failOn injects an error for
// a given key to exercise partial-write paths.
type userRepoStub struct {
	repository.UserRepository

	mu     sync.Mutex
	calls  []string
	failOn map[string]error

	findByEmailFn func(email string) (*models.User, error)
	findByIDFn    func(id primitive.ObjectID) (*models.User, error)
	insertFn      func(u *models.User) (primitive.ObjectID, error)
	listFn        func() ([]models.UserSummary, error)
	isFollowingFn func(follower, target string) (bool, error)
	pullFriendFn  func(email string, edgeID primitive.ObjectID) (*models.User, error)

	notifs    map[string][]models.Notification
	readMarks map[string][]primitive.ObjectID
	requests  map[string][]models.FriendRequest
	friends   map[string][]models.Friend
	likes     []models.Like
	comments  []models.Comment
	posts     []models.Post
}

func (s *userRepoStub) record(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, key)
	if s.failOn != nil {
		if err, ok := s.failOn[key]; ok {
			return err
		}
	}
	return nil
}

func (s *userRepoStub) called(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.calls {
		if c == key {
			return true
		}
	}
	return false
}

func (s *userRepoStub) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return s.findByEmailFn(email)
}

func (s *userRepoStub) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findByIDFn(id)
}

func (s *userRepoStub) Insert(_ context.Context, u *models.User) (primitive.ObjectID, error) {
	if err := s.record("Insert"); err != nil {
		return primitive.NilObjectID, err
	}
	if s.insertFn != nil {
		return s.insertFn(u)
	}
	return primitive.NewObjectID(), nil
}

func (s *userRepoStub) ListSummaries(_ context.Context) ([]models.UserSummary, error) {
	return s.listFn()
}

func (s *userRepoStub) SetOTP(_ context.Context, _, _ string, _ time.Time) error {
	return s.record("SetOTP")
}

func (s *userRepoStub) MarkVerified(_ context.Context, _ string) error {
	return s.record("MarkVerified")
}

func (s *userRepoStub) SetProfileImage(_ context.Context, _, _ string) error {
	return s.record("SetProfileImage")
}

func (s *userRepoStub) SetCoverImage(_ context.Context, _, _ string) error {
	return s.record("SetCoverImage")
}

func (s *userRepoStub) PushEmbeddedPost(_ context.Context, _ string, post models.Post) error {
	if err := s.record("PushEmbeddedPost"); err != nil {
		return err
	}
	s.mu.Lock()
	s.posts = append(s.posts, post)
	s.mu.Unlock()
	return nil
}

func (s *userRepoStub) AddLikeToEmbeddedPost(_ context.Context, _ string, _ primitive.ObjectID, like models.Like) error {
	if err := s.record("AddLikeToEmbeddedPost"); err != nil {
		return err
	}
	s.mu.Lock()
	s.likes = append(s.likes, like)
	s.mu.Unlock()
	return nil
}

func (s *userRepoStub) RemoveLikeFromEmbeddedPost(_ context.Context, _ string, _ primitive.ObjectID, _ string) error {
	return s.record("RemoveLikeFromEmbeddedPost")
}

func (s *userRepoStub) AddCommentToEmbeddedPost(_ context.Context, _ string, _ primitive.ObjectID, comment models.Comment) error {
	if err := s.record("AddCommentToEmbeddedPost"); err != nil {
		return err
	}
	s.mu.Lock()
	s.comments = append(s.comments, comment)
	s.mu.Unlock()
	return nil
}

func (s *userRepoStub) PushNotification(_ context.Context, email string, notif models.Notification) error {
	if err := s.record("PushNotification:" + email); err != nil {
		return err
	}
	s.mu.Lock()
	if s.notifs == nil {
		s.notifs = make(map[string][]models.Notification)
	}
	s.notifs[email] = append(s.notifs[email], notif)
	s.mu.Unlock()
	return nil
}

func (s *userRepoStub) MarkNotificationRead(_ context.Context, email string, id primitive.ObjectID) error {
	if err := s.record("MarkNotificationRead:" + email); err != nil {
		return err
	}
	s.mu.Lock()
	if s.readMarks == nil {
		s.readMarks = make(map[string][]primitive.ObjectID)
	}
	s.readMarks[email] = append(s.readMarks[email], id)
	s.mu.Unlock()
	return nil
}

func (s *userRepoStub) PushFriendRequest(_ context.Context, email string, req models.FriendRequest) error {
	if err := s.record("PushFriendRequest:" + email); err != nil {
		return err
	}
	s.mu.Lock()
	if s.requests == nil {
		s.requests = make(map[string][]models.FriendRequest)
	}
	s.requests[email] = append(s.requests[email], req)
	s.mu.Unlock()
	return nil
}

func (s *userRepoStub) PullFriendRequest(_ context.Context, email string, _ primitive.ObjectID) error {
	return s.record("PullFriendRequest:" + email)
}

func (s *userRepoStub) PushFriend(_ context.Context, email string, friend models.Friend) error {
	if err := s.record("PushFriend:" + email); err != nil {
		return err
	}
	s.mu.Lock()
	if s.friends == nil {
		s.friends = make(map[string][]models.Friend)
	}
	s.friends[email] = append(s.friends[email], friend)
	s.mu.Unlock()
	return nil
}

func (s *userRepoStub) PullFriend(_ context.Context, email string, edgeID primitive.ObjectID) (*models.User, error) {
	if err := s.record("PullFriend:" + email); err != nil {
		return nil, err
	}
	if s.pullFriendFn != nil {
		return s.pullFriendFn(email, edgeID)
	}
	return &models.User{Email: email}, nil
}

func (s *userRepoStub) AddFollowing(_ context.Context, email string, _ models.FollowEdge) error {
	return s.record("AddFollowing:" + email)
}

func (s *userRepoStub) AddFollower(_ context.Context, email string, _ models.FollowEdge) error {
	return s.record("AddFollower:" + email)
}

func (s *userRepoStub) RemoveFollowing(_ context.Context, email, _ string) error {
	return s.record("RemoveFollowing:" + email)
}

func (s *userRepoStub) RemoveFollower(_ context.Context, email, _ string) error {
	return s.record("RemoveFollower:" + email)
}

func (s *userRepoStub) IsFollowing(_ context.Context, follower, target string) (bool, error) {
	return s.isFollowingFn(follower, target)
}

type postRepoStub struct {
	repository.PostRepository

	mu     sync.Mutex
	calls  []string
	failOn map[string]error

	findByIDFn    func(id primitive.ObjectID) (*models.Post, error)
	findPageFn    func(page, limit int64) ([]models.Post, int64, error)
	findByOwnerFn func(email string) ([]models.Post, error)

	inserted []models.Post
	likes    []models.Like
	comments []models.Comment
}

func (s *postRepoStub) record(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, key)
	if s.failOn != nil {
		if err, ok := s.failOn[key]; ok {
			return err
		}
	}
	return nil
}

func (s *postRepoStub) called(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.calls {
		if c == key {
			return true
		}
	}
	return false
}

func (s *postRepoStub) Insert(_ context.Context, post *models.Post) error {
	if err := s.record("Insert"); err != nil {
		return err
	}
	s.mu.Lock()
	s.inserted = append(s.inserted, *post)
	s.mu.Unlock()
	return nil
}

func (s *postRepoStub) FindByID(_ context.Context, id primitive.ObjectID) (*models.Post, error) {
	return s.findByIDFn(id)
}

func (s *postRepoStub) FindPage(_ context.Context, page, limit int64) ([]models.Post, int64, error) {
	return s.findPageFn(page, limit)
}

func (s *postRepoStub) FindByOwner(_ context.Context, email string) ([]models.Post, error) {
	if err := s.record("FindByOwner"); err != nil {
		return nil, err
	}
	return s.findByOwnerFn(email)
}

func (s *postRepoStub) AddLike(_ context.Context, _ primitive.ObjectID, like models.Like) error {
	if err := s.record("AddLike"); err != nil {
		return err
	}
	s.mu.Lock()
	s.likes = append(s.likes, like)
	s.mu.Unlock()
	return nil
}

func (s *postRepoStub) RemoveLike(_ context.Context, _ primitive.ObjectID, _ string) error {
	return s.record("RemoveLike")
}

func (s *postRepoStub) AddComment(_ context.Context, _ primitive.ObjectID, comment models.Comment) error {
	if err := s.record("AddComment"); err != nil {
		return err
	}
	s.mu.Lock()
	s.comments = append(s.comments, comment)
	s.mu.Unlock()
	return nil
}

func (s *postRepoStub) UpdateProfileImageByOwner(_ context.Context, _, _ string) error {
	return s.record("UpdateProfileImageByOwner")
}

type chatRepoStub struct {
	repository.ChatRepository

	mu     sync.Mutex
	calls  []string
	failOn map[string]error

	findEdgeFn func(owner, counterpart string) (*models.Friend, error)

	appended map[string][]models.ChatMessage
}

func (s *chatRepoStub) FindEdge(_ context.Context, owner, counterpart string) (*models.Friend, error) {
	return s.findEdgeFn(owner, counterpart)
}

func (s *chatRepoStub) AppendMessage(_ context.Context, owner string, _ primitive.ObjectID, msg models.ChatMessage) error {
	s.mu.Lock()
	s.calls = append(s.calls, "AppendMessage:"+owner)
	var err error
	if s.failOn != nil {
		err = s.failOn["AppendMessage:"+owner]
	}
	if err == nil {
		if s.appended == nil {
			s.appended = make(map[string][]models.ChatMessage)
		}
		s.appended[owner] = append(s.appended[owner], msg)
	}
	s.mu.Unlock()
	return err
}

type mediaStub struct {
	uploadDataURLFn func(dataURL string) (string, string, error)
}

func (s *mediaStub) Upload(_ context.Context, key string, _ io.Reader, _ int64, _ string) (string, error) {
	return "https://cdn.test/" + key, nil
}

func (s *mediaStub) UploadDataURL(_ context.Context, dataURL string) (string, string, error) {
	if s.uploadDataURLFn != nil {
		return s.uploadDataURLFn(dataURL)
	}
	return "https://cdn.test/media", "image", nil
}

func (s *mediaStub) Delete(_ context.Context, _ string) error { return nil }

type mailerStub struct {
	mu   sync.Mutex
	sent []string
}

func (s *mailerStub) Send(to, _, _ string) error {
	s.mu.Lock()
	s.sent = append(s.sent, to)
	s.mu.Unlock()
	return nil
}
