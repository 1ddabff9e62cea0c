package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	authmodel "talkwire/internal/auth/domain/model"
	authrepo "talkwire/internal/auth/domain/repository"
	"talkwire/internal/chat/domain/model"
	"talkwire/internal/chat/domain/repository"
	"talkwire/internal/chat/realtime"
	"talkwire/internal/shared/eventbus"
	"talkwire/internal/shared/logger"

	"github.com/google/uuid"
)

var (
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrEmptyMessage      = errors.New("message must carry a body or an image")
	ErrSelfMessage       = errors.New("cannot send a message to yourself")
)

const maxBodyLength = 4096

// MessageUsecaseInterface defines the contract for messaging use cases.
type MessageUsecaseInterface interface {
	SendMessage(ctx context.Context, senderID string, req SendMessageRequest) (*model.Message, error)
	GetConversation(ctx context.Context, userID, peerID string) ([]*model.Message, error)
	ListContacts(ctx context.Context, userID string) ([]*authmodel.User, error)
}

// SendMessageRequest represents the send-message request
type SendMessageRequest struct {
	RecipientID string `json:"recipientId"`
	Body        string `json:"body,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// MessageUsecase implements the messaging logic.
type MessageUsecase struct {
	messages repository.MessageRepository
	users    authrepo.UserRepository
	registry *realtime.Registry
	bus      eventbus.EventBusInterface
	log      logger.Logger
}

// NewMessageUsecase creates a new instance of MessageUsecase and hooks the push
// fan-out to the event bus.
func NewMessageUsecase(
	messages repository.MessageRepository,
	users authrepo.UserRepository,
	registry *realtime.Registry,
	bus eventbus.EventBusInterface,
	log logger.Logger,
) *MessageUsecase {
	uc := &MessageUsecase{
		messages: messages,
		users:    users,
		registry: registry,
		bus:      bus,
		log:      log.WithComponent("message_usecase"),
	}

	bus.Subscribe(eventbus.EventTypeMessageCreated, uc.handleMessageCreated)
	bus.Subscribe(eventbus.EventTypeUserLoggedOut, uc.handleUserLoggedOut)
	return uc
}

// SendMessage validates, persists and opportunistically pushes a new message.
// Push delivery is best-effort: an offline recipient finds the message via the
// history endpoint.
func (uc *MessageUsecase) SendMessage(ctx context.Context, senderID string, req SendMessageRequest) (*model.Message, error) {
	req.RecipientID = strings.TrimSpace(req.RecipientID)
	req.Body = strings.TrimSpace(req.Body)
	req.ImageURL = strings.TrimSpace(req.ImageURL)

	if req.RecipientID == "" {
		return nil, model.ErrRecipientMissing
	}
	if req.RecipientID == senderID {
		return nil, ErrSelfMessage
	}
	if req.Body == "" && req.ImageURL == "" {
		return nil, ErrEmptyMessage
	}
	if len(req.Body) > maxBodyLength {
		return nil, fmt.Errorf("message body must be at most %d characters", maxBodyLength)
	}

	if _, err := uc.users.GetUserByID(ctx, req.RecipientID); err != nil {
		if errors.Is(err, authmodel.ErrUserNotFound) {
			return nil, ErrRecipientNotFound
		}
		return nil, fmt.Errorf("failed to resolve recipient: %w", err)
	}

	msg := &model.Message{
		ID:          uuid.NewString(),
		SenderID:    senderID,
		RecipientID: req.RecipientID,
		Body:        req.Body,
		ImageURL:    req.ImageURL,
		CreatedAt:   time.Now(),
	}

	if err := uc.messages.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to persist message: %w", err)
	}

	// Fan-out happens after the durable write; a failed push never fails the send.
	uc.bus.PublishAndForget(ctx, eventbus.NewBasicEventWithSource(
		eventbus.EventTypeMessageCreated, msg, "message_usecase"))

	return msg, nil
}

// GetConversation returns the message history between the caller and a peer
func (uc *MessageUsecase) GetConversation(ctx context.Context, userID, peerID string) ([]*model.Message, error) {
	peerID = strings.TrimSpace(peerID)
	if peerID == "" {
		return nil, model.ErrRecipientMissing
	}

	if _, err := uc.users.GetUserByID(ctx, peerID); err != nil {
		if errors.Is(err, authmodel.ErrUserNotFound) {
			return nil, ErrRecipientNotFound
		}
		return nil, fmt.Errorf("failed to resolve peer: %w", err)
	}

	return uc.messages.GetConversation(ctx, userID, peerID)
}

// ListContacts returns every other user for the conversation sidebar
func (uc *MessageUsecase) ListContacts(ctx context.Context, userID string) ([]*authmodel.User, error) {
	users, err := uc.users.ListUsersExcept(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}

	contacts := make([]*authmodel.User, 0, len(users))
	for _, u := range users {
		contacts = append(contacts, u.Sanitized())
	}
	return contacts, nil
}

// handleMessageCreated pushes a freshly created message to the recipient's live
// connections, and to the sender's other devices so their views stay in sync.
func (uc *MessageUsecase) handleMessageCreated(ctx context.Context, event eventbus.Event) error {
	msg, ok := event.Data().(*model.Message)
	if !ok {
		return fmt.Errorf("unexpected payload type for %s event", event.Type())
	}

	pushEvent := model.NewMessageEvent(msg)

	delivered := uc.registry.Push(msg.RecipientID, pushEvent)
	if delivered == 0 {
		uc.log.WithFields(map[string]interface{}{
			"message_id":   msg.ID,
			"recipient_id": msg.RecipientID,
		}).Debug("Recipient offline, message delivered via history only")
	}

	uc.registry.Push(msg.SenderID, pushEvent)
	return nil
}

// handleUserLoggedOut force-closes the user's realtime connections once their
// session credential has been revoked.
func (uc *MessageUsecase) handleUserLoggedOut(ctx context.Context, event eventbus.Event) error {
	userID, ok := event.Data().(string)
	if !ok {
		return fmt.Errorf("unexpected payload type for %s event", event.Type())
	}

	if closed := uc.registry.DisconnectUser(userID); closed > 0 {
		uc.log.WithFields(map[string]interface{}{
			"user_id":     userID,
			"connections": closed,
		}).Info("Closed realtime connections after logout")
	}
	return nil
}

// Ensure MessageUsecase implements MessageUsecaseInterface
var _ MessageUsecaseInterface = (*MessageUsecase)(nil)
