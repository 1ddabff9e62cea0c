package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	authmodel "talkwire/internal/auth/domain/model"
	authrepo "talkwire/internal/auth/domain/repository"
	authusecase "talkwire/internal/auth/usecase"
	chathttp "talkwire/internal/chat/adapter/http"
	"talkwire/internal/chat/domain/model"
	"talkwire/internal/chat/realtime"
	"talkwire/internal/shared/logger"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAuthUsecase accepts exactly one token and maps it to a fixed user.
type stubAuthUsecase struct {
	token  string
	userID string
}

func (s *stubAuthUsecase) Signup(ctx context.Context, req authusecase.SignupRequest) (*authmodel.User, string, error) {
	return nil, "", errors.New("not implemented")
}

func (s *stubAuthUsecase) Login(ctx context.Context, req authusecase.LoginRequest) (*authmodel.User, string, error) {
	return nil, "", errors.New("not implemented")
}

func (s *stubAuthUsecase) Logout(ctx context.Context, tokenString string) error {
	return nil
}

func (s *stubAuthUsecase) ValidateToken(ctx context.Context, tokenString string) (*authrepo.Claims, error) {
	if tokenString != s.token {
		return nil, authusecase.ErrTokenInvalid
	}
	return &authrepo.Claims{UserID: s.userID}, nil
}

func (s *stubAuthUsecase) GetUserFromToken(ctx context.Context, tokenString string) (*authmodel.User, error) {
	return nil, errors.New("not implemented")
}

func (s *stubAuthUsecase) GetUserByID(ctx context.Context, userID string) (*authmodel.User, error) {
	return nil, errors.New("not implemented")
}

func (s *stubAuthUsecase) UpdateProfile(ctx context.Context, userID string, req authusecase.UpdateProfileRequest) (*authmodel.User, error) {
	return nil, errors.New("not implemented")
}

// wirePushEvent mirrors the JSON envelope clients decode from the socket.
type wirePushEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func startWSServer(t *testing.T) (*realtime.Registry, string) {
	t.Helper()

	log := logger.NewLoggerWithConfig("error", "text")
	registry := realtime.NewRegistry(log)

	app := fiber.New()
	handler := chathttp.NewWebSocketHandler(
		&stubAuthUsecase{token: "valid-token", userID: "alice"},
		registry, "tw_auth_token", log)
	handler.RegisterRoutes(app)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return registry, "ws://" + ln.Addr().String() + "/api/ws"
}

func dialWS(t *testing.T, rawURL string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	dialer := &websocket.Dialer{HandshakeTimeout: 5 * time.Second}

	var conn *websocket.Conn
	var resp *http.Response
	var err error
	// The listener may still be warming up on the first attempt.
	for attempt := 0; attempt < 20; attempt++ {
		conn, resp, err = dialer.Dial(rawURL, nil)
		if err == nil || resp != nil {
			return conn, resp, err
		}
		time.Sleep(50 * time.Millisecond)
	}
	return conn, resp, err
}

func TestWebSocket_RejectsUnauthenticatedUpgrade(t *testing.T) {
	registry, baseURL := startWSServer(t)

	conn, resp, err := dialWS(t, baseURL)
	require.Error(t, err)
	require.Nil(t, conn)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, registry.OnlineUsers())
}

func TestWebSocket_RejectsBadToken(t *testing.T) {
	registry, baseURL := startWSServer(t)

	conn, resp, err := dialWS(t, baseURL+"?token=wrong-token")
	require.Error(t, err)
	require.Nil(t, conn)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, registry.OnlineUsers())
}

func TestWebSocket_RegisterPushDisconnect(t *testing.T) {
	registry, baseURL := startWSServer(t)

	conn, _, err := dialWS(t, baseURL+"?token=valid-token")
	require.NoError(t, err)
	defer conn.Close()

	// Registered: the user shows up in the registry once the handshake lands.
	require.Eventually(t, func() bool {
		return registry.IsOnline("alice")
	}, 2*time.Second, 20*time.Millisecond)

	// The first frame is the presence snapshot queued at registration.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event wirePushEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, model.PushTypeOnlineUsers, event.Type)

	var online []string
	require.NoError(t, json.Unmarshal(event.Data, &online))
	assert.Equal(t, []string{"alice"}, online)

	// A pushed message reaches the client over the wire.
	registry.Push("alice", model.NewMessageEvent(&model.Message{ID: "m1", Body: "hello"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&event))
	require.Equal(t, model.PushTypeNewMessage, event.Type)

	var msg model.Message
	require.NoError(t, json.Unmarshal(event.Data, &msg))
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "hello", msg.Body)

	// Closed: dropping the transport releases the registry entry.
	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return !registry.IsOnline("alice")
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWebSocket_DisconnectUserClosesSocket(t *testing.T) {
	registry, baseURL := startWSServer(t)

	conn, _, err := dialWS(t, baseURL+"?token=valid-token")
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return registry.IsOnline("alice")
	}, 2*time.Second, 20*time.Millisecond)

	registry.DisconnectUser("alice")

	// The server sends a close frame and the read side terminates.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var event wirePushEvent
		if err := conn.ReadJSON(&event); err != nil {
			break
		}
	}
	assert.False(t, registry.IsOnline("alice"))
}
