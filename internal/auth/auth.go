package auth

import (
	"fmt"

	authhttp "talkwire/internal/auth/adapter/http"
	"talkwire/internal/auth/adapter/persistence/mongodb"
	"talkwire/internal/auth/adapter/persistence/redisrepo"
	"talkwire/internal/auth/adapter/security"
	"talkwire/internal/auth/config"
	"talkwire/internal/auth/domain/repository"
	"talkwire/internal/auth/usecase"
	"talkwire/internal/shared/eventbus"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// AuthModule represents the complete authentication module
type AuthModule struct {
	repository repository.UserRepository
	tokenSvc   repository.TokenService
	revoker    repository.TokenRevoker
	usecase    usecase.AuthUsecaseInterface
	handler    *authhttp.AuthHTTPHandler
	config     *config.Config
}

// NewAuthModule creates a new authentication module instance. Logout events are
// published on the given bus so the realtime layer can drop revoked sessions.
func NewAuthModule(db *mongo.Database, redisClient *redis.Client, bus eventbus.EventBusInterface, cfg *config.Config) (*AuthModule, error) {
	userRepo, err := mongodb.NewMongoUserRepository(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create user repository: %w", err)
	}

	tokenSvc, err := security.NewJWTokenService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	revoker := redisrepo.NewRedisTokenRevoker(redisClient)

	authUsecase := usecase.NewAuthUsecase(userRepo, tokenSvc, revoker, bus, cfg)

	handler := authhttp.NewAuthHTTPHandler(
		authUsecase,
		cfg.CookieName,
		cfg.CookiePath,
		cfg.CookieDomain,
		int(cfg.AccessTokenTTL.Seconds()),
		cfg.CookieSecure,
		cfg.CookieHTTPOnly,
		cfg.CookieSameSite,
	)

	return &AuthModule{
		repository: userRepo,
		tokenSvc:   tokenSvc,
		revoker:    revoker,
		usecase:    authUsecase,
		handler:    handler,
		config:     cfg,
	}, nil
}

// RegisterRoutes registers authentication routes under the given router
func (am *AuthModule) RegisterRoutes(router fiber.Router) {
	middleware := am.GetMiddleware()
	group := router.Group("/api/auth", middleware.RateLimiter())
	am.handler.SetupAuthRoutesWithMiddleware(group, middleware)
}

// GetUsecase returns the auth usecase for external access
func (am *AuthModule) GetUsecase() usecase.AuthUsecaseInterface {
	return am.usecase
}

// GetUserRepository returns the user repository for collaborating modules
func (am *AuthModule) GetUserRepository() repository.UserRepository {
	return am.repository
}

// GetMiddleware returns the auth middleware
func (am *AuthModule) GetMiddleware() *authhttp.AuthMiddleware {
	return authhttp.NewAuthMiddleware(am.usecase, am.config.CookieName)
}

// Stop performs cleanup when the module is shut down
func (am *AuthModule) Stop() error {
	return nil
}
