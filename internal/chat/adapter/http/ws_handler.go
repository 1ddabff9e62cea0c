package http

import (
	"time"

	"talkwire/internal/auth/usecase"
	"talkwire/internal/chat/realtime"
	apperrors "talkwire/internal/shared/errors"
	"talkwire/internal/shared/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

const (
	// Time allowed to write an event to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong before the connection is considered dead.
	pongWait = 60 * time.Second
	// Ping interval. Must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	localUserIDKey = "ws_user_id"
)

// WebSocketHandler manages realtime connections. Each connection walks
// Connecting -> Authenticating -> Registered -> Closed; the registry entry is
// released on every exit path.
type WebSocketHandler struct {
	authUC     usecase.AuthUsecaseInterface
	registry   *realtime.Registry
	cookieName string
	log        logger.Logger
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(
	authUC usecase.AuthUsecaseInterface,
	registry *realtime.Registry,
	cookieName string,
	log logger.Logger,
) *WebSocketHandler {
	return &WebSocketHandler{
		authUC:     authUC,
		registry:   registry,
		cookieName: cookieName,
		log:        log.WithComponent("ws_handler"),
	}
}

// RegisterRoutes registers the WebSocket endpoint.
func (h *WebSocketHandler) RegisterRoutes(router fiber.Router) {
	wsGroup := router.Group("/api/ws")

	// Authentication happens before the upgrade, while the session cookie is still
	// in reach. Failures close the attempt with 401 instead of upgrading.
	wsGroup.Use("/", h.authenticateUpgrade)
	wsGroup.Get("/", websocket.New(h.handleConnection))
}

func (h *WebSocketHandler) authenticateUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := c.Cookies(h.cookieName)
	if token == "" {
		// Fallback for non-browser clients.
		token = c.Query("token")
	}

	claims, err := h.authUC.ValidateToken(c.Context(), token)
	if err != nil {
		return respondError(c, apperrors.NewAuthenticationError("Authentication required"))
	}

	c.Locals(localUserIDKey, claims.UserID)
	return c.Next()
}

// handleConnection runs for the lifetime of one upgraded connection.
func (h *WebSocketHandler) handleConnection(conn *websocket.Conn) {
	userID, ok := conn.Locals(localUserIDKey).(string)
	if !ok || userID == "" {
		conn.Close()
		return
	}

	registration := h.registry.Register(userID)
	defer h.registry.Unregister(registration)
	defer conn.Close()

	h.log.WithFields(map[string]interface{}{
		"user_id": userID,
		"conn_id": registration.ID(),
	}).Info("WebSocket connection registered")

	done := make(chan struct{})
	go h.writePump(conn, registration, done)

	// The read loop exists to detect disconnects and keep the deadline fresh; the
	// client sends no application messages over the socket.
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.log.WithFields(map[string]interface{}{
					"user_id": userID,
					"conn_id": registration.ID(),
				}).Warnf("WebSocket read error: %v", err)
			}
			break
		}
	}

	close(done)
}

// writePump serializes outbound events and keepalive pings onto the connection.
// Events for one connection leave in the order the server emitted them.
func (h *WebSocketHandler) writePump(conn *websocket.Conn, registration *realtime.Connection, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-registration.Events():
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				h.log.WithFields(map[string]interface{}{
					"user_id": registration.UserID(),
					"conn_id": registration.ID(),
				}).Warnf("WebSocket write error: %v", err)
				conn.Close()
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		case <-done:
			return
		}
	}
}
