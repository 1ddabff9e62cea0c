package di

import (
	"context"
	"fmt"
	"sync"

	"talkwire/internal/auth"
	"talkwire/internal/auth/config"
	"talkwire/internal/chat"
	"talkwire/internal/shared/eventbus"
	"talkwire/internal/shared/logger"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// Container wires the application's modules together with proper lifecycle
// management. Everything here is explicitly constructed; there are no ambient
// singletons, so tests can assemble isolated instances.
type Container struct {
	mu sync.RWMutex

	// Module instances
	AuthModule *auth.AuthModule
	ChatModule *chat.ChatModule

	// Infrastructure
	MongoDB     *mongo.Database
	RedisClient *redis.Client
	EventBus    *eventbus.EventBus

	// Configuration
	AuthConfig *config.Config

	// Logger
	Logger logger.Logger
}

// NewContainer creates a new DI container
func NewContainer() *Container {
	return &Container{}
}

// InitializeAuth initializes the authentication module
func (c *Container) InitializeAuth(mongoDB *mongo.Database, redisClient *redis.Client, authConfig *config.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.MongoDB = mongoDB
	c.RedisClient = redisClient
	c.AuthConfig = authConfig

	if c.Logger == nil {
		c.Logger = logger.NewLogger()
	}
	if c.EventBus == nil {
		c.EventBus = eventbus.NewEventBus(c.Logger)
	}

	authModule, err := auth.NewAuthModule(mongoDB, redisClient, c.EventBus, authConfig)
	if err != nil {
		return fmt.Errorf("failed to create auth module: %w", err)
	}

	c.AuthModule = authModule
	return nil
}

// InitializeChat initializes the chat module. The auth module must exist first
// because the chat module authenticates socket upgrades and resolves recipients
// through it.
func (c *Container) InitializeChat() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.AuthModule == nil {
		return fmt.Errorf("auth module must be initialized before chat module")
	}
	if c.MongoDB == nil {
		return fmt.Errorf("MongoDB must be initialized before chat module")
	}

	if c.Logger == nil {
		c.Logger = logger.NewLogger()
	}
	if c.EventBus == nil {
		c.EventBus = eventbus.NewEventBus(c.Logger)
	}

	chatModule, err := chat.NewChatModule(
		c.MongoDB,
		c.AuthModule.GetUsecase(),
		c.AuthModule.GetUserRepository(),
		c.AuthModule.GetMiddleware().Protect(),
		c.EventBus,
		c.Logger,
		chat.Config{
			CookieName:             c.AuthConfig.CookieName,
			CloudinaryCloudName:    c.AuthConfig.CloudinaryCloudName,
			CloudinaryUploadPreset: c.AuthConfig.CloudinaryUploadPreset,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create chat module: %w", err)
	}

	c.ChatModule = chatModule
	return nil
}

// GetAuthModule returns the auth module
func (c *Container) GetAuthModule() *auth.AuthModule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.AuthModule
}

// GetChatModule returns the chat module
func (c *Container) GetChatModule() *chat.ChatModule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ChatModule
}

// HealthCheck verifies the container's backing services are reachable
func (c *Container) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.MongoDB != nil {
		if err := c.MongoDB.Client().Ping(ctx, nil); err != nil {
			return fmt.Errorf("mongodb unhealthy: %w", err)
		}
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis unhealthy: %w", err)
		}
	}
	return nil
}

// Close releases the container's resources
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error

	if c.AuthModule != nil {
		if err := c.AuthModule.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.ChatModule != nil {
		if err := c.ChatModule.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
