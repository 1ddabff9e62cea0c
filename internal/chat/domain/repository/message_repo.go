package repository

import (
	"context"

	"talkwire/internal/chat/domain/model"
)

// MessageRepository defines persistence operations for messages
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg *model.Message) error
	// GetConversation returns all messages between the two users ordered by
	// creation time, oldest first.
	GetConversation(ctx context.Context, userID, peerID string) ([]*model.Message, error)
}
