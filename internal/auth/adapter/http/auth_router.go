package http

import (
	"errors"
	"time"

	"talkwire/internal/auth/usecase"
	apperrors "talkwire/internal/shared/errors"
	"talkwire/internal/shared/utils"

	"github.com/gofiber/fiber/v2"
)

// AuthHTTPHandler handles HTTP requests for authentication
type AuthHTTPHandler struct {
	usecase        usecase.AuthUsecaseInterface
	cookieName     string
	cookiePath     string
	cookieDomain   string
	cookieMaxAge   int
	cookieSecure   bool
	cookieHTTPOnly bool
	cookieSameSite string
}

// NewAuthHTTPHandler creates a new authentication HTTP handler
func NewAuthHTTPHandler(
	uc usecase.AuthUsecaseInterface,
	cookieName, cookiePath, cookieDomain string,
	cookieMaxAge int,
	cookieSecure, cookieHTTPOnly bool,
	cookieSameSite string,
) *AuthHTTPHandler {
	return &AuthHTTPHandler{
		usecase:        uc,
		cookieName:     cookieName,
		cookiePath:     cookiePath,
		cookieDomain:   cookieDomain,
		cookieMaxAge:   cookieMaxAge,
		cookieSecure:   cookieSecure,
		cookieHTTPOnly: cookieHTTPOnly,
		cookieSameSite: cookieSameSite,
	}
}

// SetupAuthRoutesWithMiddleware sets up authentication routes with middleware
func (h *AuthHTTPHandler) SetupAuthRoutesWithMiddleware(router fiber.Router, middleware *AuthMiddleware) {
	// Public routes (no authentication required)
	router.Post("/signup", h.Signup)
	router.Post("/login", h.Login)

	// Logout must succeed even without an active session, so it stays public and
	// revokes whatever credential is presented.
	router.Post("/logout", h.Logout)

	// Check is the startup probe of browser clients: it answers 401 with no cookie
	// instead of failing.
	router.Get("/check", h.Check)

	// Protected routes (authentication required)
	protected := router.Group("/", middleware.Protect())
	protected.Put("/profile", h.UpdateProfile)
}

// Signup handles user registration
func (h *AuthHTTPHandler) Signup(c *fiber.Ctx) error {
	var req usecase.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperrors.NewValidationError("Invalid request body"))
	}

	user, token, err := h.usecase.Signup(c.Context(), req)
	if err != nil {
		if errors.Is(err, usecase.ErrHandleTaken) {
			return respondError(c, apperrors.NewConflictError("Handle already registered").WithCode("DUPLICATE_HANDLE"))
		}
		return respondError(c, apperrors.NewValidationError(err.Error()))
	}

	h.setCookie(c, token)

	return c.Status(fiber.StatusCreated).JSON(user)
}

// Login handles user login
func (h *AuthHTTPHandler) Login(c *fiber.Ctx) error {
	var req usecase.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperrors.NewValidationError("Invalid request body"))
	}

	user, token, err := h.usecase.Login(c.Context(), req)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidCredentials) {
			return respondError(c, apperrors.NewAuthenticationError("Invalid handle or password").WithCode("INVALID_CREDENTIALS"))
		}
		return respondError(c, apperrors.NewInfrastructureError("Login temporarily unavailable"))
	}

	h.setCookie(c, token)

	return c.JSON(user)
}

// Logout revokes the presented credential and clears the cookie. Idempotent.
func (h *AuthHTTPHandler) Logout(c *fiber.Ctx) error {
	token := c.Cookies(h.cookieName)

	if err := h.usecase.Logout(c.Context(), token); err != nil {
		return respondError(c, apperrors.NewInfrastructureError("Logout temporarily unavailable"))
	}

	h.clearCookie(c)

	return c.JSON(fiber.Map{
		"message": "Logged out successfully",
	})
}

// Check verifies the current session cookie and returns the caller's profile
func (h *AuthHTTPHandler) Check(c *fiber.Ctx) error {
	token, err := extractToken(c, h.cookieName)
	if err != nil {
		return respondError(c, apperrors.NewAuthenticationError("No active session"))
	}

	user, err := h.usecase.GetUserFromToken(c.Context(), token)
	if err != nil {
		return respondError(c, apperrors.NewAuthenticationError("No active session"))
	}

	return c.JSON(user)
}

// UpdateProfile updates the caller's profile fields
func (h *AuthHTTPHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, err := utils.GetUserIDFromContext(c.UserContext())
	if err != nil {
		return respondError(c, apperrors.NewAuthenticationError("Authentication required"))
	}

	var req usecase.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperrors.NewValidationError("Invalid request body"))
	}

	user, err := h.usecase.UpdateProfile(c.Context(), userID, req)
	if err != nil {
		if errors.Is(err, usecase.ErrUserNotFound) {
			return respondError(c, apperrors.NewNotFoundError("User"))
		}
		return respondError(c, apperrors.NewValidationError(err.Error()))
	}

	return c.JSON(user)
}

// Helper methods

// respondError renders an AppError as the wire-format error envelope.
func respondError(c *fiber.Ctx, appErr *apperrors.AppError) error {
	return c.Status(appErr.HTTPCode).JSON(fiber.Map{
		"error": appErr.Message,
		"code":  appErr.WireCode(),
	})
}

func (h *AuthHTTPHandler) setCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     h.cookiePath,
		Domain:   h.cookieDomain,
		MaxAge:   h.cookieMaxAge,
		Secure:   h.cookieSecure,
		HTTPOnly: h.cookieHTTPOnly,
		SameSite: h.cookieSameSite,
		Expires:  time.Now().Add(time.Duration(h.cookieMaxAge) * time.Second),
	})
}

func (h *AuthHTTPHandler) clearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     h.cookiePath,
		Domain:   h.cookieDomain,
		MaxAge:   -1,
		Secure:   h.cookieSecure,
		HTTPOnly: h.cookieHTTPOnly,
		SameSite: h.cookieSameSite,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
}
