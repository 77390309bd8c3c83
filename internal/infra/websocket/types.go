// Package websocket carries real-time events to connected clients, mainly
// plan generation progress.
package websocket

import (
	"encoding/json"
	"strings"
	"time"
)

// MessageType discriminates the wire messages.
type MessageType string

// Client to server.
const (
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypePing        MessageType = "ping"
)

// Server to client.
const (
	MessageTypePong         MessageType = "pong"
	MessageTypeSubscribed   MessageType = "subscribed"
	MessageTypeUnsubscribed MessageType = "unsubscribed"
	MessageTypeEvent        MessageType = "event"
	MessageTypeError        MessageType = "error"
)

// Message is the wire format in both directions.
type Message struct {
	Type      MessageType     `json:"type"`
	Channel   string          `json:"channel,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage starts a message of the given type, stamped with the current
// time in milliseconds.
func NewMessage(msgType MessageType) *Message {
	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
	}
}

// WithChannel sets the channel.
func (m *Message) WithChannel(channel string) *Message {
	m.Channel = channel
	return m
}

// WithData marshals data into the payload. Unmarshalable values leave the
// payload empty rather than failing the send.
func (m *Message) WithData(data any) *Message {
	if data == nil {
		return m
	}
	if raw, err := json.Marshal(data); err == nil {
		m.Data = raw
	}
	return m
}

// WithRequestID sets the client correlation ID.
func (m *Message) WithRequestID(id string) *Message {
	m.RequestID = id
	return m
}

// SubscribeRequest is the payload of a subscribe message.
type SubscribeRequest struct {
	Channel   string `json:"channel"`
	RequestID string `json:"request_id,omitempty"`
}

// UnsubscribeRequest is the payload of an unsubscribe message.
type UnsubscribeRequest struct {
	Channel   string `json:"channel"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorData is the payload of an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ChannelType is the first segment of a channel name.
type ChannelType string

const (
	// ChannelTypePlan streams plan generation progress, keyed by project ID.
	ChannelTypePlan ChannelType = "plan"
	// ChannelTypeUser carries per-user events, keyed by user ID.
	ChannelTypeUser ChannelType = "user"
)

// ParseChannel splits a "{type}:{id}" channel name. Names without a colon
// come back with an empty type.
func ParseChannel(channel string) (ChannelType, string) {
	typ, id, ok := strings.Cut(channel, ":")
	if !ok {
		return "", channel
	}
	return ChannelType(typ), id
}

// MakeChannel builds a "{type}:{id}" channel name.
func MakeChannel(channelType ChannelType, id string) string {
	return string(channelType) + ":" + id
}
