package http

import (
	"errors"

	"talkwire/internal/chat/domain/model"
	"talkwire/internal/chat/usecase"
	apperrors "talkwire/internal/shared/errors"
	"talkwire/internal/shared/logger"
	"talkwire/internal/shared/utils"

	"github.com/gofiber/fiber/v2"
)

// MessageHTTPHandler handles HTTP requests for messaging
type MessageHTTPHandler struct {
	usecase usecase.MessageUsecaseInterface
	log     logger.Logger
}

// NewMessageHTTPHandler creates a new messaging HTTP handler
func NewMessageHTTPHandler(uc usecase.MessageUsecaseInterface, log logger.Logger) *MessageHTTPHandler {
	return &MessageHTTPHandler{
		usecase: uc,
		log:     log.WithComponent("message_handler"),
	}
}

// SetupMessageRoutes registers messaging routes. Every route requires a session.
// The /users route must be registered before the /:peerId wildcard.
func (h *MessageHTTPHandler) SetupMessageRoutes(router fiber.Router, protect fiber.Handler) {
	group := router.Group("/api/messages", protect)
	group.Get("/users", h.ListContacts)
	group.Get("/:peerId", h.GetConversation)
	group.Post("/", h.SendMessage)
}

// ListContacts returns every other user for the conversation sidebar
func (h *MessageHTTPHandler) ListContacts(c *fiber.Ctx) error {
	userID, err := utils.GetUserIDFromContext(c.UserContext())
	if err != nil {
		return respondError(c, apperrors.NewAuthenticationError("Authentication required"))
	}

	contacts, err := h.usecase.ListContacts(c.Context(), userID)
	if err != nil {
		h.log.WithContext(c.UserContext()).Errorf("Failed to list contacts: %v", err)
		return respondError(c, apperrors.NewInfrastructureError("Contact list temporarily unavailable"))
	}

	return c.JSON(contacts)
}

// GetConversation returns the message history between the caller and a peer
func (h *MessageHTTPHandler) GetConversation(c *fiber.Ctx) error {
	userID, err := utils.GetUserIDFromContext(c.UserContext())
	if err != nil {
		return respondError(c, apperrors.NewAuthenticationError("Authentication required"))
	}

	peerID := c.Params("peerId")

	messages, err := h.usecase.GetConversation(c.Context(), userID, peerID)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrRecipientNotFound):
			return respondError(c, apperrors.NewNotFoundError("Peer"))
		case errors.Is(err, model.ErrRecipientMissing):
			return respondError(c, apperrors.NewValidationError("Peer id is required"))
		default:
			h.log.WithContext(c.UserContext()).Errorf("Failed to fetch conversation: %v", err)
			return respondError(c, apperrors.NewInfrastructureError("Message history temporarily unavailable"))
		}
	}

	return c.JSON(messages)
}

// SendMessage persists a message and triggers best-effort push delivery
func (h *MessageHTTPHandler) SendMessage(c *fiber.Ctx) error {
	userID, err := utils.GetUserIDFromContext(c.UserContext())
	if err != nil {
		return respondError(c, apperrors.NewAuthenticationError("Authentication required"))
	}

	var req usecase.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperrors.NewValidationError("Invalid request body"))
	}

	msg, err := h.usecase.SendMessage(c.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrRecipientNotFound):
			return respondError(c, apperrors.NewNotFoundError("Recipient"))
		case errors.Is(err, usecase.ErrEmptyMessage),
			errors.Is(err, usecase.ErrSelfMessage),
			errors.Is(err, model.ErrRecipientMissing):
			return respondError(c, apperrors.NewValidationError(err.Error()))
		default:
			h.log.WithContext(c.UserContext()).Errorf("Failed to send message: %v", err)
			return respondError(c, apperrors.NewInfrastructureError("Message could not be stored"))
		}
	}

	return c.Status(fiber.StatusCreated).JSON(msg)
}

// respondError renders an AppError as the wire-format error envelope.
func respondError(c *fiber.Ctx, appErr *apperrors.AppError) error {
	return c.Status(appErr.HTTPCode).JSON(fiber.Map{
		"error": appErr.Message,
		"code":  appErr.WireCode(),
	})
}
