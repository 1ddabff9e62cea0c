package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	chatmodel "talkwire/internal/chat/domain/model"

	"github.com/fasthttp/websocket"
)

// PushEvent is a realtime event received over the socket. Data stays raw so the
// caller decodes it according to Type.
type PushEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Message decodes the payload of a newMessage event.
func (e *PushEvent) Message() (*chatmodel.Message, error) {
	if e.Type != chatmodel.PushTypeNewMessage {
		return nil, fmt.Errorf("event is %q, not %q", e.Type, chatmodel.PushTypeNewMessage)
	}
	var msg chatmodel.Message
	if err := json.Unmarshal(e.Data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode message payload: %w", err)
	}
	return &msg, nil
}

// OnlineUsers decodes the payload of an onlineUsers event.
func (e *PushEvent) OnlineUsers() ([]string, error) {
	if e.Type != chatmodel.PushTypeOnlineUsers {
		return nil, fmt.Errorf("event is %q, not %q", e.Type, chatmodel.PushTypeOnlineUsers)
	}
	var ids []string
	if err := json.Unmarshal(e.Data, &ids); err != nil {
		return nil, fmt.Errorf("failed to decode online users payload: %w", err)
	}
	return ids, nil
}

// Socket is one live realtime connection.
type Socket struct {
	conn   *websocket.Conn
	events chan PushEvent

	closeOnce sync.Once
}

// Connect opens a realtime connection authenticated by the session cookie held in
// the client's jar. Call after a successful Login, Signup or CheckAuth.
func (c *Client) Connect(ctx context.Context) (*Socket, error) {
	wsURL := *c.baseURL
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	wsURL.Path = "/api/ws"

	header := http.Header{}
	for _, cookie := range c.http.Jar.Cookies(c.baseURL) {
		header.Add("Cookie", cookie.String())
	}

	dialer := &websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}

	conn, resp, err := dialer.DialContext(ctx, wsURL.String(), header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: "authentication required", Code: "UNAUTHENTICATED"}
		}
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	s := &Socket{
		conn:   conn,
		events: make(chan PushEvent, 64),
	}

	go s.readLoop()
	return s, nil
}

// Events returns the stream of server pushes. The channel closes when the
// connection does.
func (s *Socket) Events() <-chan PushEvent {
	return s.events
}

// Close shuts the connection down.
func (s *Socket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = s.conn.Close()
	})
	return err
}

// readLoop decodes inbound events until the connection dies. Pings from the
// server are answered by the library's default handler.
func (s *Socket) readLoop() {
	defer close(s.events)
	defer s.conn.Close()

	for {
		var event PushEvent
		if err := s.conn.ReadJSON(&event); err != nil {
			return
		}

		select {
		case s.events <- event:
		default:
			// Slow consumer: drop rather than stall the read loop, matching the
			// server's best-effort delivery.
		}
	}
}
