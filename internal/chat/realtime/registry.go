package realtime

import (
	"sort"
	"sync"

	"talkwire/internal/chat/domain/model"
	"talkwire/internal/shared/logger"

	"github.com/google/uuid"
)

const defaultSendBuffer = 64

// Connection is one registered realtime connection for a user. A user may hold
// several at once (multiple devices or tabs).
type Connection struct {
	id     string
	userID string
	send   chan model.PushEvent
	once   sync.Once
}

// ID returns the connection id.
func (c *Connection) ID() string { return c.id }

// UserID returns the owning user's id.
func (c *Connection) UserID() string { return c.userID }

// Events returns the channel of events queued for this connection.
func (c *Connection) Events() <-chan model.PushEvent { return c.send }

func (c *Connection) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Registry is the Connection Registration map: user id to live connections. It is an
// explicitly constructed dependency, never a package-level singleton, so tests can
// run isolated instances. All mutation happens under the mutex; entries must never
// outlive their transport connection.
type Registry struct {
	mu       sync.RWMutex
	conns    map[string]map[string]*Connection
	log      logger.Logger
	sendBuf  int
	onChange func(online []string)
}

// NewRegistry creates an empty registry
func NewRegistry(log logger.Logger) *Registry {
	return &Registry{
		conns:   make(map[string]map[string]*Connection),
		log:     log,
		sendBuf: defaultSendBuffer,
	}
}

// Register adds a new connection for the user and returns its handle. The caller
// must pair every Register with exactly one Unregister, normally via defer.
func (r *Registry) Register(userID string) *Connection {
	conn := &Connection{
		id:     uuid.NewString(),
		userID: userID,
		send:   make(chan model.PushEvent, r.sendBuf),
	}

	r.mu.Lock()
	if r.conns[userID] == nil {
		r.conns[userID] = make(map[string]*Connection)
	}
	r.conns[userID][conn.id] = conn
	r.mu.Unlock()

	r.log.WithFields(map[string]interface{}{
		"user_id": userID,
		"conn_id": conn.id,
	}).Info("Realtime connection registered")

	r.broadcastOnlineUsers()
	return conn
}

// Unregister removes the connection and releases its resources. Safe to call more
// than once for the same connection.
func (r *Registry) Unregister(conn *Connection) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	removed := false
	if userConns, ok := r.conns[conn.userID]; ok {
		if _, ok := userConns[conn.id]; ok {
			delete(userConns, conn.id)
			removed = true
		}
		if len(userConns) == 0 {
			delete(r.conns, conn.userID)
		}
	}
	// Closed under the lock so Push can never send on a closed channel.
	conn.close()
	r.mu.Unlock()

	if removed {
		r.log.WithFields(map[string]interface{}{
			"user_id": conn.userID,
			"conn_id": conn.id,
		}).Info("Realtime connection unregistered")
		r.broadcastOnlineUsers()
	}
}

// DisconnectUser closes and removes every live connection of the user, e.g. when
// their session credential is revoked. Returns the number of connections closed.
func (r *Registry) DisconnectUser(userID string) int {
	r.mu.Lock()
	userConns := r.conns[userID]
	delete(r.conns, userID)
	for _, conn := range userConns {
		conn.close()
	}
	r.mu.Unlock()

	if len(userConns) == 0 {
		return 0
	}

	r.log.WithFields(map[string]interface{}{
		"user_id":     userID,
		"connections": len(userConns),
	}).Info("Realtime connections force-closed")

	r.broadcastOnlineUsers()
	return len(userConns)
}

// Push queues an event for every live connection of the user. Delivery is
// best-effort: a connection whose buffer is full simply misses the event, and the
// recipient recovers it from message history. Returns the number of connections
// the event was queued for.
func (r *Registry) Push(userID string, event model.PushEvent) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	for _, conn := range r.conns[userID] {
		select {
		case conn.send <- event:
			delivered++
		default:
			r.log.WithFields(map[string]interface{}{
				"user_id": userID,
				"conn_id": conn.id,
				"type":    event.Type,
			}).Warn("Dropping realtime event: send buffer full")
		}
	}
	return delivered
}

// Broadcast queues an event for every registered connection
func (r *Registry) Broadcast(event model.PushEvent) {
	r.mu.RLock()
	userIDs := make([]string, 0, len(r.conns))
	for userID := range r.conns {
		userIDs = append(userIDs, userID)
	}
	r.mu.RUnlock()

	for _, userID := range userIDs {
		r.Push(userID, event)
	}
}

// OnlineUsers returns the ids of users with at least one registered connection
func (r *Registry) OnlineUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	online := make([]string, 0, len(r.conns))
	for userID := range r.conns {
		online = append(online, userID)
	}
	sort.Strings(online)
	return online
}

// IsOnline reports whether the user has at least one registered connection
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID]) > 0
}

// ConnectionCount returns the number of registered connections for the user
func (r *Registry) ConnectionCount(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID])
}

func (r *Registry) broadcastOnlineUsers() {
	r.Broadcast(model.OnlineUsersEvent(r.OnlineUsers()))
}
