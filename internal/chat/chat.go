package chat

import (
	"fmt"

	authrepo "talkwire/internal/auth/domain/repository"
	authusecase "talkwire/internal/auth/usecase"
	chathttp "talkwire/internal/chat/adapter/http"
	"talkwire/internal/chat/adapter/persistence/mongodb"
	"talkwire/internal/chat/domain/repository"
	"talkwire/internal/chat/realtime"
	"talkwire/internal/chat/usecase"
	"talkwire/internal/shared/eventbus"
	"talkwire/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/mongo"
)

// ChatModule bundles message persistence, the connection registry and the
// realtime push layer.
type ChatModule struct {
	repository   repository.MessageRepository
	registry     *realtime.Registry
	usecase      usecase.MessageUsecaseInterface
	msgHandler   *chathttp.MessageHTTPHandler
	wsHandler    *chathttp.WebSocketHandler
	mediaHandler *chathttp.MediaHTTPHandler
	protect      fiber.Handler
}

// Config carries the chat module's wiring inputs from the composition root.
type Config struct {
	CookieName             string
	CloudinaryCloudName    string
	CloudinaryUploadPreset string
}

// NewChatModule creates a new chat module instance
func NewChatModule(
	db *mongo.Database,
	authUC authusecase.AuthUsecaseInterface,
	users authrepo.UserRepository,
	protect fiber.Handler,
	bus eventbus.EventBusInterface,
	log logger.Logger,
	cfg Config,
) (*ChatModule, error) {
	messageRepo, err := mongodb.NewMongoMessageRepository(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create message repository: %w", err)
	}

	registry := realtime.NewRegistry(log)

	messageUsecase := usecase.NewMessageUsecase(messageRepo, users, registry, bus, log)

	return &ChatModule{
		repository:   messageRepo,
		registry:     registry,
		usecase:      messageUsecase,
		msgHandler:   chathttp.NewMessageHTTPHandler(messageUsecase, log),
		wsHandler:    chathttp.NewWebSocketHandler(authUC, registry, cfg.CookieName, log),
		mediaHandler: chathttp.NewMediaHTTPHandler(cfg.CloudinaryCloudName, cfg.CloudinaryUploadPreset),
		protect:      protect,
	}, nil
}

// RegisterRoutes registers messaging, media and realtime routes
func (cm *ChatModule) RegisterRoutes(router fiber.Router) {
	cm.msgHandler.SetupMessageRoutes(router, cm.protect)
	cm.mediaHandler.SetupMediaRoutes(router, cm.protect)
	cm.wsHandler.RegisterRoutes(router)
}

// GetUsecase returns the message usecase for external access
func (cm *ChatModule) GetUsecase() usecase.MessageUsecaseInterface {
	return cm.usecase
}

// GetRegistry returns the connection registry
func (cm *ChatModule) GetRegistry() *realtime.Registry {
	return cm.registry
}

// Stop performs cleanup when the module is shut down
func (cm *ChatModule) Stop() error {
	return nil
}
