package http

import (
	"strings"
	"time"

	"talkwire/internal/auth/usecase"
	"talkwire/internal/shared/contextkeys"
	apperrors "talkwire/internal/shared/errors"
	"talkwire/internal/shared/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// AuthMiddleware provides authentication middleware for Fiber
type AuthMiddleware struct {
	usecase    usecase.AuthUsecaseInterface
	cookieName string
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(uc usecase.AuthUsecaseInterface, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{
		usecase:    uc,
		cookieName: cookieName,
	}
}

// CORS middleware restricted to the configured browser origin. Credentials must be
// allowed because the session rides in a cookie.
func (m *AuthMiddleware) CORS(allowedOrigin string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     allowedOrigin,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Requested-With",
		AllowCredentials: true,
		MaxAge:           86400,
	})
}

// RateLimiter creates rate limiting middleware for auth endpoints
func (m *AuthMiddleware) RateLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               20,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.Get("X-Forwarded-For", c.IP())
		},
		LimitReached: func(c *fiber.Ctx) error {
			return respondError(c, apperrors.NewRateLimitError("Rate limit exceeded. Please try again later."))
		},
	})
}

// RequestID middleware
func (m *AuthMiddleware) RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     "X-Request-ID",
		ContextKey: string(contextkeys.RequestIDKey),
	})
}

// Protect returns middleware that requires a valid, unrevoked session credential
func (m *AuthMiddleware) Protect() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := extractToken(c, m.cookieName)
		if err != nil {
			return respondError(c, apperrors.NewAuthenticationError("Authentication required"))
		}

		claims, err := m.usecase.ValidateToken(c.Context(), token)
		if err != nil {
			return respondError(c, apperrors.NewAuthenticationError("Invalid or expired session"))
		}

		ctx := c.UserContext()
		ctx = utils.WithUserID(ctx, claims.UserID)
		ctx = utils.WithUserHandle(ctx, claims.Handle)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// extractToken extracts the session credential from the cookie or, for non-browser
// clients, the Authorization header.
func extractToken(c *fiber.Ctx, cookieName string) (string, error) {
	if token := c.Cookies(cookieName); token != "" {
		return token, nil
	}

	authHeader := c.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer "), nil
	}

	return "", fiber.NewError(fiber.StatusUnauthorized, "no authentication token found")
}
