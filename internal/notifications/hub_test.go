package notifications

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_RegisterAndBroadcast(t *testing.T) {
	hub := NewHub()

	a1, err := hub.Register("a@b.com", nil)
	require.NoError(t, err)
	a2, err := hub.Register("a@b.com", nil)
	require.NoError(t, err)
	other, err := hub.Register("other@b.com", nil)
	require.NoError(t, err)

	assert.True(t, hub.IsOnline("a@b.com"))

	hub.Broadcast("a@b.com", "hello")
	for _, c := range []*Client{a1, a2} {
		select {
		case msg := <-c.Send:
			assert.Equal(t, "hello", string(msg))
		default:
			t.Fatal("connection did not receive user broadcast")
		}
	}
	select {
	case msg := <-other.Send:
		t.Fatalf("unrelated user received message: %s", msg)
	default:
	}

	hub.UnregisterClient(a1)
	assert.True(t, hub.IsOnline("a@b.com"))
	hub.UnregisterClient(a2)
	assert.False(t, hub.IsOnline("a@b.com"))
}

func TestHub_ConnectionLimitPerUser(t *testing.T) {
	hub := NewHub()

	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register("busy@b.com", nil)
		require.NoError(t, err)
	}
	_, err := hub.Register("busy@b.com", nil)
	assert.ErrorIs(t, err, ErrConnectionLimit)

	_ = hub.Shutdown(context.Background())
}
