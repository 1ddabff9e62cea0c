package realtime

import (
	"sync"
	"testing"

	"talkwire/internal/chat/domain/model"
	"talkwire/internal/shared/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	return NewRegistry(logger.NewLoggerWithConfig("error", "text"))
}

// drain empties whatever presence events Register queued, so message assertions
// start from a clean channel.
func drain(conn *Connection) {
	for {
		select {
		case <-conn.Events():
		default:
			return
		}
	}
}

func TestRegisterAndUnregister(t *testing.T) {
	r := newTestRegistry()

	conn := r.Register("user-1")
	require.NotNil(t, conn)
	assert.Equal(t, "user-1", conn.UserID())
	assert.True(t, r.IsOnline("user-1"))
	assert.Equal(t, 1, r.ConnectionCount("user-1"))

	r.Unregister(conn)
	assert.False(t, r.IsOnline("user-1"))
	assert.Equal(t, 0, r.ConnectionCount("user-1"))

	// The send channel is closed after unregister.
	_, open := <-conn.Events()
	for open {
		_, open = <-conn.Events()
	}
}

func TestUnregister_Twice(t *testing.T) {
	r := newTestRegistry()

	conn := r.Register("user-1")
	r.Unregister(conn)
	assert.NotPanics(t, func() { r.Unregister(conn) })
	assert.NotPanics(t, func() { r.Unregister(nil) })
}

func TestPush_MultipleConnectionsSameUser(t *testing.T) {
	r := newTestRegistry()

	first := r.Register("user-1")
	second := r.Register("user-1")
	assert.Equal(t, 2, r.ConnectionCount("user-1"))
	drain(first)
	drain(second)

	event := model.NewMessageEvent(&model.Message{ID: "m1", Body: "hello"})
	delivered := r.Push("user-1", event)
	assert.Equal(t, 2, delivered)

	got := <-first.Events()
	assert.Equal(t, model.PushTypeNewMessage, got.Type)
	got = <-second.Events()
	assert.Equal(t, model.PushTypeNewMessage, got.Type)
}

func TestPush_SurvivingConnectionStillReceives(t *testing.T) {
	r := newTestRegistry()

	first := r.Register("user-1")
	second := r.Register("user-1")
	r.Unregister(first)
	drain(second)

	assert.True(t, r.IsOnline("user-1"), "user stays online while one connection remains")

	delivered := r.Push("user-1", model.NewMessageEvent(&model.Message{ID: "m1"}))
	assert.Equal(t, 1, delivered)

	got := <-second.Events()
	assert.Equal(t, model.PushTypeNewMessage, got.Type)
}

func TestPush_OfflineUser(t *testing.T) {
	r := newTestRegistry()

	delivered := r.Push("nobody", model.NewMessageEvent(&model.Message{ID: "m1"}))
	assert.Zero(t, delivered)
}

func TestPush_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	r := newTestRegistry()
	r.sendBuf = 1

	conn := r.Register("user-1")
	drain(conn)

	event := model.NewMessageEvent(&model.Message{ID: "m1"})
	assert.Equal(t, 1, r.Push("user-1", event))
	// Buffer is now full; the next push must not block.
	assert.Equal(t, 0, r.Push("user-1", event))
}

func TestDisconnectUser_ClosesAllConnections(t *testing.T) {
	r := newTestRegistry()

	first := r.Register("user-1")
	second := r.Register("user-1")
	other := r.Register("user-2")
	drain(other)

	closed := r.DisconnectUser("user-1")
	assert.Equal(t, 2, closed)
	assert.False(t, r.IsOnline("user-1"))
	assert.True(t, r.IsOnline("user-2"))

	for _, conn := range []*Connection{first, second} {
		for {
			if _, open := <-conn.Events(); !open {
				break
			}
		}
	}

	// The survivor sees the updated presence set.
	event := <-other.Events()
	require.Equal(t, model.PushTypeOnlineUsers, event.Type)
	assert.ElementsMatch(t, []string{"user-2"}, event.Data)
}

func TestDisconnectUser_NoConnections(t *testing.T) {
	r := newTestRegistry()
	assert.Zero(t, r.DisconnectUser("nobody"))
}

func TestOnlineUsers_SortedAndDeduplicated(t *testing.T) {
	r := newTestRegistry()

	r.Register("carol")
	r.Register("alice")
	r.Register("alice")
	r.Register("bob")

	assert.Equal(t, []string{"alice", "bob", "carol"}, r.OnlineUsers())
}

func TestPresenceBroadcastOnRegisterAndUnregister(t *testing.T) {
	r := newTestRegistry()

	watcher := r.Register("watcher")
	drain(watcher)

	other := r.Register("other")

	event := <-watcher.Events()
	require.Equal(t, model.PushTypeOnlineUsers, event.Type)
	assert.ElementsMatch(t, []string{"watcher", "other"}, event.Data)

	drain(watcher)
	r.Unregister(other)

	event = <-watcher.Events()
	require.Equal(t, model.PushTypeOnlineUsers, event.Type)
	assert.ElementsMatch(t, []string{"watcher"}, event.Data)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := newTestRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := r.Register("user-1")
			r.Push("user-1", model.NewMessageEvent(&model.Message{ID: "m"}))
			r.OnlineUsers()
			r.Unregister(conn)
		}()
	}
	wg.Wait()

	assert.False(t, r.IsOnline("user-1"))
}
