package server

import (
	"context"
	"encoding/json"
	"log"
)

// Event type constants prevent typos in event names.
const (
	EventPostLiked       = "postLiked"
	EventPostUnliked     = "postUnliked"
	EventNewComment      = "newComment"
	EventFriendRequest   = "friendRequest"
	EventFriendAccepted  = "friendAccepted"
	EventFriendRemoved   = "friendRemoved"
	EventNewProfileImage = "newProfileImage"
	EventChatMessage     = "chatMessage"
)

func (s *Server) publishUserEvent(userEmail, eventType string, payload map[string]interface{}) {
	event := map[string]interface{}{
		"type":    eventType,
		"payload": payload,
	}
	eventJSON, err := json.Marshal(event)
	if err != nil {
		log.Printf("failed to marshal %s event: %v", eventType, err)
		return
	}
	message := string(eventJSON)
	if s.hub != nil {
		s.hub.Broadcast(userEmail, message)
	}
	if s.notifier != nil {
		if err := s.notifier.PublishUser(context.Background(), userEmail, message); err != nil {
			log.Printf("failed to publish %s event to %s: %v", eventType, userEmail, err)
		}
	}
}

func (s *Server) publishBroadcastEvent(eventType string, payload map[string]interface{}) {
	event := map[string]interface{}{
		"type":    eventType,
		"payload": payload,
	}
	eventJSON, err := json.Marshal(event)
	if err != nil {
		log.Printf("failed to marshal %s event: %v", eventType, err)
		return
	}
	message := string(eventJSON)
	if s.hub != nil {
		s.hub.BroadcastAll(message)
	}
	if s.notifier != nil {
		if err := s.notifier.PublishBroadcast(context.Background(), message); err != nil {
			log.Printf("failed to publish %s broadcast event: %v", eventType, err)
		}
	}
}

// emitRoomEvent delivers a pre-serialized payload to a chat room, both to
// locally connected clients and across instances via Redis.
func (s *Server) emitRoomEvent(ctx context.Context, room, payload string) {
	if s.chatHub != nil {
		s.chatHub.BroadcastRoom(room, payload)
	}
	if s.notifier != nil {
		if err := s.notifier.PublishRoom(ctx, room, payload); err != nil {
			log.Printf("failed to publish room event to %s: %v", room, err)
		}
	}
}
