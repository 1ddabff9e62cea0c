package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	authhttp "talkwire/internal/auth/adapter/http"
	"talkwire/internal/auth/domain/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupMiddlewareApp(mockUC *MockAuthUsecase) (*fiber.App, *authhttp.AuthMiddleware) {
	app := fiber.New()
	middleware := authhttp.NewAuthMiddleware(mockUC, testCookieName)
	return app, middleware
}

func TestRequestID_SetsHeader(t *testing.T) {
	app, middleware := setupMiddlewareApp(new(MockAuthUsecase))
	app.Use(middleware.RequestID())
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestRequestID_PreservesIncomingID(t *testing.T) {
	app, middleware := setupMiddlewareApp(new(MockAuthUsecase))
	app.Use(middleware.RequestID())
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "req-123")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "req-123", resp.Header.Get("X-Request-ID"))
}

func TestCORS_AllowsConfiguredOrigin(t *testing.T) {
	app, middleware := setupMiddlewareApp(new(MockAuthUsecase))
	app.Use(middleware.CORS("http://localhost:3000"))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://localhost:3000")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestCORS_RejectsOtherOrigin(t *testing.T) {
	app, middleware := setupMiddlewareApp(new(MockAuthUsecase))
	app.Use(middleware.CORS("http://localhost:3000"))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://evil.example.com")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestProtect_MissingToken(t *testing.T) {
	mockUC := new(MockAuthUsecase)
	app, middleware := setupMiddlewareApp(mockUC)
	app.Get("/secure", middleware.Protect(), func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/secure", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	mockUC.AssertNotCalled(t, "ValidateToken")
}

func TestProtect_InvalidToken(t *testing.T) {
	mockUC := new(MockAuthUsecase)
	mockUC.On("ValidateToken", mock.Anything, "bad-token").Return(nil, assert.AnError)

	app, middleware := setupMiddlewareApp(mockUC)
	app.Get("/secure", middleware.Protect(), func(c *fiber.Ctx) error { return c.SendString("ok") })

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.AddCookie(&http.Cookie{Name: testCookieName, Value: "bad-token"})

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtect_BearerHeaderFallback(t *testing.T) {
	mockUC := new(MockAuthUsecase)
	mockUC.On("ValidateToken", mock.Anything, "good-token").
		Return(&repository.Claims{UserID: "u1", Handle: "alice"}, nil)

	app, middleware := setupMiddlewareApp(mockUC)
	app.Get("/secure", middleware.Protect(), func(c *fiber.Ctx) error { return c.SendString("ok") })

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer good-token")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
