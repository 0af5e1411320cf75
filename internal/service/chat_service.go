package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"chitchat/internal/cache"
	"chitchat/internal/models"
	"chitchat/internal/observability"
	"chitchat/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// ChatService routes messages through friend edges. A send is emitted on the
// realtime channel before the durable write so connected peers see the
// message immediately; a failed write after emission is surfaced as an
// internal error, and the brief inconsistency is accepted.
type ChatService struct {
	users repository.UserRepository
	chats repository.ChatRepository

	// emit publishes a serialized chat event to the edge's room channel.
	emit func(ctx context.Context, room, payload string)
}

// NewChatService creates a new ChatService. emit may be nil when no realtime
// transport is wired, e.g. in tests that only care about persistence.
func NewChatService(users repository.UserRepository, chats repository.ChatRepository, emit func(ctx context.Context, room, payload string)) *ChatService {
	return &ChatService{users: users, chats: chats, emit: emit}
}

// ChatEvent is the wire shape published to the room channel on send.
type ChatEvent struct {
	Type    string             `json:"type"`
	Room    string             `json:"room"`
	Message models.ChatMessage `json:"message"`
}

// GetChatUser returns the identity summary used by chat clients.
func (s *ChatService) GetChatUser(ctx context.Context, email string) (*models.UserSummary, error) {
	if email == "" {
		return nil, models.NewValidationError("Email must not be empty")
	}
	user, err := s.cachedUser(ctx, email)
	if err == repository.ErrNotFound {
		return nil, models.NewNotFoundError("User not found")
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	summary := user.Summary()
	return &summary, nil
}

// SendMessage appends a message to the shared edge on both users. Both sides
// must hold the edge; a one-sided edge means the friendship is mid-removal
// and the send is rejected.
func (s *ChatService) SendMessage(ctx context.Context, senderEmail, receiverEmail, text string) (*models.ChatMessage, error) {
	if senderEmail == "" || receiverEmail == "" {
		return nil, models.NewValidationError("Email must not be empty")
	}
	if text == "" {
		return nil, models.NewValidationError("Message must not be empty")
	}

	senderEdge, err := s.chats.FindEdge(ctx, senderEmail, receiverEmail)
	if err == repository.ErrNotFound {
		return nil, models.NewNotFoundError("You are not friends with this user")
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	receiverEdge, err := s.chats.FindEdge(ctx, receiverEmail, senderEmail)
	if err == repository.ErrNotFound {
		return nil, models.NewNotFoundError("You are not friends with this user")
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	msg := models.ChatMessage{
		ID:            primitive.NewObjectID(),
		SenderEmail:   senderEmail,
		ReceiverEmail: receiverEmail,
		Text:          text,
		CreatedAt:     time.Now(),
	}

	// Emit first. Receivers render optimistically; persistence follows.
	if s.emit != nil {
		room := senderEdge.ID.Hex()
		event := ChatEvent{Type: "chat_message", Room: room, Message: msg}
		if payload, err := json.Marshal(event); err == nil {
			s.emit(ctx, room, string(payload))
			observability.RecordWebSocketEvent("chat_message")
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.chats.AppendMessage(gctx, senderEmail, senderEdge.ID, msg); err != nil {
			observability.RecordDualWriteFailure("chat_send", "sender")
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := s.chats.AppendMessage(gctx, receiverEmail, receiverEdge.ID, msg); err != nil {
			observability.RecordDualWriteFailure("chat_send", "receiver")
			return err
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		observability.GlobalLogger.Error("chat message partial write",
			slog.String("sender", senderEmail), slog.String("receiver", receiverEmail),
			slog.String("error", err.Error()))
		return nil, models.NewInternalError(err)
	}

	cache.InvalidateUser(ctx, senderEmail)
	cache.InvalidateUser(ctx, receiverEmail)
	return &msg, nil
}

// Messages returns the chat history held on the caller's side of the edge,
// in insertion order.
func (s *ChatService) Messages(ctx context.Context, userEmail, counterpartEmail string) ([]models.ChatMessage, error) {
	if userEmail == "" || counterpartEmail == "" {
		return nil, models.NewValidationError("Email must not be empty")
	}

	edge, err := s.chats.FindEdge(ctx, userEmail, counterpartEmail)
	if err == repository.ErrNotFound {
		return nil, models.NewNotFoundError("You are not friends with this user")
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if edge.Chats == nil {
		return []models.ChatMessage{}, nil
	}
	return edge.Chats, nil
}

func (s *ChatService) cachedUser(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := cache.CacheAside(ctx, cache.UserKey(email), &user, cache.UserTTL, func() error {
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
