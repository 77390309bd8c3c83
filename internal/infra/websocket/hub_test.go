package websocket

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planforge/api/pkg/logger"
)

func TestParseChannel(t *testing.T) {
	tests := []struct {
		channel  string
		wantType ChannelType
		wantID   string
	}{
		{"plan:abc-123", ChannelTypePlan, "abc-123"},
		{"user:u-42", ChannelTypeUser, "u-42"},
		{"plan:", ChannelTypePlan, ""},
		{"no-colon", "", "no-colon"},
		{"a:b:c", ChannelType("a"), "b:c"},
	}
	for _, tt := range tests {
		typ, id := ParseChannel(tt.channel)
		assert.Equal(t, tt.wantType, typ, tt.channel)
		assert.Equal(t, tt.wantID, id, tt.channel)
	}
}

func TestMakeChannelRoundTrip(t *testing.T) {
	ch := MakeChannel(ChannelTypePlan, "proj-9")
	assert.Equal(t, "plan:proj-9", ch)

	typ, id := ParseChannel(ch)
	assert.Equal(t, ChannelTypePlan, typ)
	assert.Equal(t, "proj-9", id)
}

func TestMessageBuilders(t *testing.T) {
	msg := NewMessage(MessageTypeEvent).
		WithChannel("user:u-1").
		WithData(map[string]string{"step": "tasks"}).
		WithRequestID("req-7")

	assert.Equal(t, MessageTypeEvent, msg.Type)
	assert.Equal(t, "user:u-1", msg.Channel)
	assert.Equal(t, "req-7", msg.RequestID)
	assert.Positive(t, msg.Timestamp)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(msg.Data, &payload))
	assert.Equal(t, "tasks", payload["step"])
}

func TestMessageWithDataNil(t *testing.T) {
	msg := NewMessage(MessageTypePong).WithData(nil)
	assert.Nil(t, msg.Data)
}

func TestDefaultAuthorize(t *testing.T) {
	owner := &Client{UserID: "u-1"}
	other := &Client{UserID: "u-2"}
	anon := &Client{}

	assert.True(t, defaultAuthorize(owner, "user:u-1"))
	assert.False(t, defaultAuthorize(other, "user:u-1"))
	assert.False(t, defaultAuthorize(anon, "user:"))

	// Plan channels need the installed project access check
	assert.False(t, defaultAuthorize(owner, "plan:proj-1"))
	assert.False(t, defaultAuthorize(owner, "bogus:x"))
}

func TestHubAuthorizeSubscription(t *testing.T) {
	hub := NewHub(logger.NewNop())
	client := &Client{UserID: "u-1"}

	assert.True(t, hub.authorizeSubscription(client, "user:u-1"))
	assert.False(t, hub.authorizeSubscription(client, "plan:proj-1"))

	hub.SetAuthorizeFunc(func(c *Client, channel string) bool {
		return channel == "plan:proj-1"
	})
	assert.True(t, hub.authorizeSubscription(client, "plan:proj-1"))
	assert.False(t, hub.authorizeSubscription(client, "user:u-1"))
}

func TestHubChannelSubscriptions(t *testing.T) {
	hub := NewHub(logger.NewNop())
	a := &Client{ID: "a"}
	b := &Client{ID: "b"}

	hub.subscribeToChannel(a, "plan:p1")
	hub.subscribeToChannel(b, "plan:p1")
	assert.Len(t, hub.channels["plan:p1"], 2)

	hub.unsubscribeFromChannel(a, "plan:p1")
	assert.Len(t, hub.channels["plan:p1"], 1)

	// Last unsubscribe removes the channel entry entirely
	hub.unsubscribeFromChannel(b, "plan:p1")
	_, exists := hub.channels["plan:p1"]
	assert.False(t, exists)
}

func TestClientSubscribeLimits(t *testing.T) {
	c := &Client{
		logger:        logger.NewNop(),
		subscriptions: make(map[string]bool),
	}

	assert.True(t, c.Subscribe("plan:p1"))
	assert.False(t, c.Subscribe("plan:p1"), "duplicate subscribe")

	for i := 0; i < maxSubscriptionsPerClient; i++ {
		c.Subscribe(fmt.Sprintf("plan:p%d", i+2))
	}
	assert.False(t, c.Subscribe("plan:overflow"))

	assert.True(t, c.Unsubscribe("plan:p1"))
	assert.False(t, c.Unsubscribe("plan:p1"), "double unsubscribe")
}
