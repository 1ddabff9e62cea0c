package model

import (
	"errors"
	"time"
)

// Domain errors shared by repositories and use cases
var (
	ErrMessageNotFound  = errors.New("message not found")
	ErrEmptyMessage     = errors.New("message must carry a body or an image")
	ErrRecipientMissing = errors.New("recipient is required")
)

// Message is one chat message between two users
type Message struct {
	ID          string    `json:"id" bson:"id"`
	SenderID    string    `json:"senderId" bson:"sender_id"`
	RecipientID string    `json:"recipientId" bson:"recipient_id"`
	Body        string    `json:"body,omitempty" bson:"body,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty" bson:"image_url,omitempty"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
}

// Push event types delivered over the realtime connection
const (
	PushTypeNewMessage  = "newMessage"
	PushTypeOnlineUsers = "onlineUsers"
)

// PushEvent is the envelope for server-to-client realtime events
type PushEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// NewMessageEvent wraps a message for push delivery
func NewMessageEvent(msg *Message) PushEvent {
	return PushEvent{Type: PushTypeNewMessage, Data: msg}
}

// OnlineUsersEvent wraps the currently connected user ids for push delivery
func OnlineUsersEvent(userIDs []string) PushEvent {
	return PushEvent{Type: PushTypeOnlineUsers, Data: userIDs}
}
