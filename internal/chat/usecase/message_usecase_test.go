package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	authmodel "talkwire/internal/auth/domain/model"
	"talkwire/internal/chat/domain/model"
	"talkwire/internal/chat/realtime"
	"talkwire/internal/chat/usecase"
	"talkwire/internal/shared/eventbus"
	"talkwire/internal/shared/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMessageRepo stores messages in memory, preserving insertion order.
type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []*model.Message
}

func (r *fakeMessageRepo) CreateMessage(ctx context.Context, msg *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *msg
	r.messages = append(r.messages, &clone)
	return nil
}

func (r *fakeMessageRepo) GetConversation(ctx context.Context, userID, peerID string) ([]*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Message
	for _, m := range r.messages {
		if (m.SenderID == userID && m.RecipientID == peerID) ||
			(m.SenderID == peerID && m.RecipientID == userID) {
			clone := *m
			out = append(out, &clone)
		}
	}
	return out, nil
}

// fakeUserDirectory implements the user repository with a fixed set of users.
type fakeUserDirectory struct {
	users map[string]*authmodel.User
}

func newFakeUserDirectory(ids ...string) *fakeUserDirectory {
	d := &fakeUserDirectory{users: make(map[string]*authmodel.User)}
	for _, id := range ids {
		d.users[id] = &authmodel.User{ID: id, Handle: id, PasswordHash: "secret-hash"}
	}
	return d
}

func (d *fakeUserDirectory) CreateUser(ctx context.Context, user *authmodel.User) error { return nil }

func (d *fakeUserDirectory) GetUserByHandle(ctx context.Context, handle string) (*authmodel.User, error) {
	for _, u := range d.users {
		if u.Handle == handle {
			return u, nil
		}
	}
	return nil, authmodel.ErrUserNotFound
}

func (d *fakeUserDirectory) GetUserByID(ctx context.Context, id string) (*authmodel.User, error) {
	if u, ok := d.users[id]; ok {
		return u, nil
	}
	return nil, authmodel.ErrUserNotFound
}

func (d *fakeUserDirectory) UpdateUser(ctx context.Context, user *authmodel.User) error { return nil }

func (d *fakeUserDirectory) ListUsersExcept(ctx context.Context, userID string) ([]*authmodel.User, error) {
	var out []*authmodel.User
	for _, u := range d.users {
		if u.ID != userID {
			out = append(out, u)
		}
	}
	return out, nil
}

func newTestMessageUsecase(userIDs ...string) (*usecase.MessageUsecase, *fakeMessageRepo, *realtime.Registry) {
	log := logger.NewLoggerWithConfig("error", "text")
	repo := &fakeMessageRepo{}
	users := newFakeUserDirectory(userIDs...)
	registry := realtime.NewRegistry(log)
	bus := eventbus.NewEventBus(log)
	uc := usecase.NewMessageUsecase(repo, users, registry, bus, log)
	return uc, repo, registry
}

func waitForEvent(t *testing.T, conn *realtime.Connection) model.PushEvent {
	t.Helper()
	select {
	case event := <-conn.Events():
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for push event")
		return model.PushEvent{}
	}
}

// drainPresence discards queued presence events so message assertions see only
// what arrives afterwards.
func drainPresence(conn *realtime.Connection) {
	for {
		select {
		case <-conn.Events():
		default:
			return
		}
	}
}

func TestSendMessage_PersistsAndPushes(t *testing.T) {
	uc, repo, registry := newTestMessageUsecase("alice", "bob")
	ctx := context.Background()

	conn := registry.Register("bob")
	defer registry.Unregister(conn)
	drainPresence(conn)

	msg, err := uc.SendMessage(ctx, "alice", usecase.SendMessageRequest{
		RecipientID: "bob",
		Body:        "hello bob",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "alice", msg.SenderID)
	assert.Equal(t, "bob", msg.RecipientID)
	assert.False(t, msg.CreatedAt.IsZero())

	repo.mu.Lock()
	assert.Len(t, repo.messages, 1)
	repo.mu.Unlock()

	event := waitForEvent(t, conn)
	require.Equal(t, model.PushTypeNewMessage, event.Type)
	pushed, ok := event.Data.(*model.Message)
	require.True(t, ok)
	assert.Equal(t, msg.ID, pushed.ID)
	assert.Equal(t, "hello bob", pushed.Body)
}

func TestSendMessage_SenderDevicesAlsoReceive(t *testing.T) {
	uc, _, registry := newTestMessageUsecase("alice", "bob")
	ctx := context.Background()

	senderConn := registry.Register("alice")
	defer registry.Unregister(senderConn)
	drainPresence(senderConn)

	msg, err := uc.SendMessage(ctx, "alice", usecase.SendMessageRequest{
		RecipientID: "bob",
		Body:        "hi",
	})
	require.NoError(t, err)

	event := waitForEvent(t, senderConn)
	require.Equal(t, model.PushTypeNewMessage, event.Type)
	pushed := event.Data.(*model.Message)
	assert.Equal(t, msg.ID, pushed.ID)
}

func TestSendMessage_RecipientOffline(t *testing.T) {
	uc, repo, _ := newTestMessageUsecase("alice", "bob")

	msg, err := uc.SendMessage(context.Background(), "alice", usecase.SendMessageRequest{
		RecipientID: "bob",
		Body:        "you there?",
	})
	require.NoError(t, err)
	assert.NotNil(t, msg)

	// Persisted even though nobody was listening.
	history, err := repo.GetConversation(context.Background(), "bob", "alice")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSendMessage_Validation(t *testing.T) {
	uc, _, _ := newTestMessageUsecase("alice", "bob")
	ctx := context.Background()

	testCases := []struct {
		name    string
		sender  string
		req     usecase.SendMessageRequest
		wantErr error
	}{
		{"missing recipient", "alice", usecase.SendMessageRequest{Body: "hi"}, model.ErrRecipientMissing},
		{"self message", "alice", usecase.SendMessageRequest{RecipientID: "alice", Body: "hi"}, usecase.ErrSelfMessage},
		{"empty payload", "alice", usecase.SendMessageRequest{RecipientID: "bob"}, usecase.ErrEmptyMessage},
		{"whitespace body only", "alice", usecase.SendMessageRequest{RecipientID: "bob", Body: "   "}, usecase.ErrEmptyMessage},
		{"unknown recipient", "alice", usecase.SendMessageRequest{RecipientID: "ghost", Body: "hi"}, usecase.ErrRecipientNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.SendMessage(ctx, tc.sender, tc.req)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestSendMessage_ImageOnly(t *testing.T) {
	uc, _, _ := newTestMessageUsecase("alice", "bob")

	msg, err := uc.SendMessage(context.Background(), "alice", usecase.SendMessageRequest{
		RecipientID: "bob",
		ImageURL:    "https://cdn.example.com/pic.png",
	})
	require.NoError(t, err)
	assert.Empty(t, msg.Body)
	assert.Equal(t, "https://cdn.example.com/pic.png", msg.ImageURL)
}

func TestUserLoggedOutEvent_ClosesConnections(t *testing.T) {
	log := logger.NewLoggerWithConfig("error", "text")
	registry := realtime.NewRegistry(log)
	bus := eventbus.NewEventBus(log)
	_ = usecase.NewMessageUsecase(&fakeMessageRepo{}, newFakeUserDirectory("alice", "bob"), registry, bus, log)

	conn := registry.Register("alice")
	require.True(t, registry.IsOnline("alice"))

	err := bus.Publish(context.Background(), eventbus.NewBasicEvent(eventbus.EventTypeUserLoggedOut, "alice"))
	require.NoError(t, err)

	assert.False(t, registry.IsOnline("alice"))

	// The connection's channel closes so its write pump shuts the socket down.
	for {
		select {
		case _, open := <-conn.Events():
			if !open {
				return
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for connection channel to close")
		}
	}
}

func TestGetConversation_BothDirections(t *testing.T) {
	uc, _, _ := newTestMessageUsecase("alice", "bob", "carol")
	ctx := context.Background()

	_, err := uc.SendMessage(ctx, "alice", usecase.SendMessageRequest{RecipientID: "bob", Body: "one"})
	require.NoError(t, err)
	_, err = uc.SendMessage(ctx, "bob", usecase.SendMessageRequest{RecipientID: "alice", Body: "two"})
	require.NoError(t, err)
	_, err = uc.SendMessage(ctx, "alice", usecase.SendMessageRequest{RecipientID: "carol", Body: "other thread"})
	require.NoError(t, err)

	history, err := uc.GetConversation(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "one", history[0].Body)
	assert.Equal(t, "two", history[1].Body)
}

func TestGetConversation_UnknownPeer(t *testing.T) {
	uc, _, _ := newTestMessageUsecase("alice")

	_, err := uc.GetConversation(context.Background(), "alice", "ghost")
	assert.ErrorIs(t, err, usecase.ErrRecipientNotFound)
}

func TestListContacts_ExcludesCallerAndSanitizes(t *testing.T) {
	uc, _, _ := newTestMessageUsecase("alice", "bob", "carol")

	contacts, err := uc.ListContacts(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	for _, c := range contacts {
		assert.NotEqual(t, "alice", c.ID)
		assert.Empty(t, c.PasswordHash)
	}
}
