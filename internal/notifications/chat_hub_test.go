package notifications

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(c *Client) {
	for {
		select {
		case <-c.Send:
		default:
			return
		}
	}
}

func TestChatHub_RoomBookkeeping(t *testing.T) {
	hub := NewChatHub()

	alice, err := hub.Register("alice@example.com", nil)
	require.NoError(t, err)
	bob, err := hub.Register("bob@example.com", nil)
	require.NoError(t, err)
	drain(alice)
	drain(bob)

	hub.JoinRoom(alice, "edge-1")
	hub.JoinRoom(bob, "edge-1")
	assert.Equal(t, 2, hub.RoomCount("edge-1"))

	// Joining twice is a no-op.
	hub.JoinRoom(alice, "edge-1")
	assert.Equal(t, 2, hub.RoomCount("edge-1"))

	hub.LeaveRoom(bob, "edge-1")
	assert.Equal(t, 1, hub.RoomCount("edge-1"))

	// Unregistering cleans up remaining memberships.
	hub.UnregisterClient(alice)
	assert.Equal(t, 0, hub.RoomCount("edge-1"))
}

func TestChatHub_BroadcastRoomOnlyReachesMembers(t *testing.T) {
	hub := NewChatHub()

	alice, err := hub.Register("alice@example.com", nil)
	require.NoError(t, err)
	bob, err := hub.Register("bob@example.com", nil)
	require.NoError(t, err)
	carol, err := hub.Register("carol@example.com", nil)
	require.NoError(t, err)
	drain(alice)
	drain(bob)
	drain(carol)

	hub.JoinRoom(alice, "edge-1")
	hub.JoinRoom(bob, "edge-1")

	hub.BroadcastRoom("edge-1", `{"type":"message"}`)

	for _, member := range []*Client{alice, bob} {
		select {
		case msg := <-member.Send:
			assert.JSONEq(t, `{"type":"message"}`, string(msg))
		default:
			t.Fatalf("room member %s did not receive the broadcast", member.UserEmail)
		}
	}

	select {
	case msg := <-carol.Send:
		t.Fatalf("non-member received room broadcast: %s", msg)
	default:
	}
}

func TestChatHub_HandleFrame(t *testing.T) {
	hub := NewChatHub()

	alice, err := hub.Register("alice@example.com", nil)
	require.NoError(t, err)
	drain(alice)

	join, _ := json.Marshal(ChatFrame{Type: "join", Room: "edge-9"})
	hub.HandleFrame(alice, join)
	assert.Equal(t, 1, hub.RoomCount("edge-9"))

	leave, _ := json.Marshal(ChatFrame{Type: "leave", Room: "edge-9"})
	hub.HandleFrame(alice, leave)
	assert.Equal(t, 0, hub.RoomCount("edge-9"))

	// Garbage frames are ignored.
	hub.HandleFrame(alice, []byte("not json"))
	assert.Equal(t, 0, hub.RoomCount("edge-9"))
}

func TestChatHub_StatusBroadcastOnLastDisconnect(t *testing.T) {
	hub := NewChatHub()

	alice, err := hub.Register("alice@example.com", nil)
	require.NoError(t, err)
	drain(alice)

	// Two devices for bob; status goes offline only after the last one.
	bob1, err := hub.Register("bob@example.com", nil)
	require.NoError(t, err)
	bob2, err := hub.Register("bob@example.com", nil)
	require.NoError(t, err)
	drain(alice)
	drain(bob1)
	drain(bob2)

	hub.UnregisterClient(bob1)
	select {
	case msg := <-alice.Send:
		t.Fatalf("premature status frame: %s", msg)
	default:
	}

	hub.UnregisterClient(bob2)
	select {
	case raw := <-alice.Send:
		var frame ChatFrame
		require.NoError(t, json.Unmarshal(raw, &frame))
		assert.Equal(t, "user_status", frame.Type)
		assert.Equal(t, "bob@example.com", frame.Email)
	default:
		t.Fatal("expected offline status frame after last disconnect")
	}
}

func TestChatHub_ConnectionLimit(t *testing.T) {
	hub := NewChatHub()

	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register("multi@example.com", nil)
		require.NoError(t, err)
	}
	_, err := hub.Register("multi@example.com", nil)
	assert.ErrorIs(t, err, ErrConnectionLimit)
}
