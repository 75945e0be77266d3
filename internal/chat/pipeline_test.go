package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dm-service/internal/apperr"
	"dm-service/internal/mocks"
	"dm-service/internal/models"
	"dm-service/internal/repositories"
	"dm-service/internal/ws"
)

type pipelineFixture struct {
	store    *repositories.MemoryStore
	hub      *ws.Hub
	pipeline *Pipeline
	alice    models.User
	bob      models.User
}

func newPipelineFixture() *pipelineFixture {
	store := repositories.NewMemoryStore()
	hub := ws.NewHub()
	alice := store.AddUser(models.User{ID: "user-b-alice", Name: "Alice", Email: "alice@example.com"})
	bob := store.AddUser(models.User{ID: "user-a-bob", Name: "Bob", Email: "bob@example.com"})
	return &pipelineFixture{
		store:    store,
		hub:      hub,
		pipeline: NewPipeline(hub, store.Users(), store.ChatGroups(), store.Messages()),
		alice:    alice,
		bob:      bob,
	}
}

func (f *pipelineFixture) connect(user models.User) *mocks.ClientRecorder {
	client := mocks.NewClientRecorder(user.ID)
	f.hub.Register(user.ID, client)
	return client
}

func TestSendMessageFirstContact(t *testing.T) {
	f := newPipelineFixture()
	ctx := context.Background()
	alice := mocks.NewClientRecorder(f.alice.ID)

	err := f.pipeline.SendMessage(ctx, alice, models.SendMessagePayload{RecipientID: f.bob.ID, Content: "  hello  "})
	require.NoError(t, err)

	userA, userB := models.CanonicalPair(f.alice.ID, f.bob.ID)
	group, err := f.store.ChatGroups().FindByPair(ctx, userA, userB)
	require.NoError(t, err)
	assert.Equal(t, f.bob.ID, group.UserA)
	assert.Equal(t, f.alice.ID, group.UserB)

	msg, err := f.store.Messages().Latest(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Content)
	assert.False(t, msg.IsRead)
	assert.Equal(t, f.alice.ID, msg.SenderID)

	unread, err := NewUnreadCounter(f.store.Messages()).Count(ctx, group.ID, f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)
	assert.Equal(t, 1, f.store.GroupCount())
	assert.Equal(t, 1, f.store.MessageCount())
}

func TestSendMessageUnreadCountsReachOnlineRecipient(t *testing.T) {
	f := newPipelineFixture()
	alice := f.connect(f.alice)
	bob := f.connect(f.bob)

	for i := 0; i < 3; i++ {
		err := f.pipeline.SendMessage(context.Background(), alice, models.SendMessagePayload{
			RecipientID: f.bob.ID,
			Content:     "msg",
			TempID:      "tmp-1",
		})
		require.NoError(t, err)
	}

	messages := bob.OfType(models.EventMessage)
	updates := bob.OfType(models.EventChatUpdated)
	require.Len(t, messages, 3)
	require.Len(t, updates, 3)

	for i, event := range updates {
		payload := event.Data.(models.ChatUpdatedPayload)
		assert.Equal(t, i+1, payload.UnreadCount)
		assert.Equal(t, f.alice.ID, payload.PartnerID)
		assert.Equal(t, "Alice", payload.PartnerName)
		assert.False(t, payload.LastMessage.IsSentByUser)
		assert.Empty(t, payload.LastMessage.TempID)
	}
	for _, event := range messages {
		assert.Empty(t, event.Data.(models.MessagePayload).TempID)
	}

	senderUpdates := alice.OfType(models.EventChatUpdated)
	require.Len(t, senderUpdates, 3)
	own := senderUpdates[2].Data.(models.ChatUpdatedPayload)
	assert.Equal(t, 0, own.UnreadCount)
	assert.Equal(t, f.bob.ID, own.PartnerID)
	assert.True(t, own.LastMessage.IsSentByUser)
	assert.Equal(t, "tmp-1", own.LastMessage.TempID)
	assert.Equal(t, "tmp-1", alice.OfType(models.EventMessage)[0].Data.(models.MessagePayload).TempID)
}

func TestSendMessageOfflineRecipient(t *testing.T) {
	f := newPipelineFixture()
	alice := f.connect(f.alice)

	err := f.pipeline.SendMessage(context.Background(), alice, models.SendMessagePayload{RecipientID: f.bob.ID, Content: "are you there"})
	require.NoError(t, err)

	assert.Equal(t, 1, f.store.MessageCount())
	assert.Len(t, alice.OfType(models.EventMessage), 1)
	assert.Len(t, alice.OfType(models.EventChatUpdated), 1)
	_, online := f.hub.Lookup(f.bob.ID)
	assert.False(t, online)
}

func TestSendMessageByEmail(t *testing.T) {
	f := newPipelineFixture()
	alice := f.connect(f.alice)
	bob := f.connect(f.bob)

	err := f.pipeline.SendMessage(context.Background(), alice, models.SendMessagePayload{ReceiverEmail: " bob@example.com ", Content: "hi"})
	require.NoError(t, err)

	require.Len(t, bob.OfType(models.EventMessage), 1)
	assert.Equal(t, f.alice.ID, bob.OfType(models.EventMessage)[0].Data.(models.MessagePayload).SenderID)
}

func TestSendMessageToSelfHasNoSideEffects(t *testing.T) {
	f := newPipelineFixture()
	alice := f.connect(f.alice)

	err := f.pipeline.SendMessage(context.Background(), alice, models.SendMessagePayload{RecipientID: f.alice.ID, Content: "me"})

	require.Error(t, err)
	assert.Equal(t, apperr.SelfTarget, apperr.KindOf(err))
	assert.Equal(t, "Cannot send message to yourself", apperr.PublicMessage(err))
	assert.Equal(t, 0, f.store.GroupCount())
	assert.Equal(t, 0, f.store.MessageCount())
	assert.Empty(t, alice.Events())
}

func TestSendMessageRejectsBadInput(t *testing.T) {
	f := newPipelineFixture()
	alice := f.connect(f.alice)

	cases := []struct {
		name    string
		payload models.SendMessagePayload
		kind    apperr.Kind
		message string
	}{
		{"no recipient", models.SendMessagePayload{Content: "x"}, apperr.Validation, "Recipient ID or email is required"},
		{"blank recipient", models.SendMessagePayload{RecipientID: "   ", Content: "x"}, apperr.Validation, "Recipient ID or email is required"},
		{"blank content", models.SendMessagePayload{RecipientID: f.bob.ID, Content: " \n\t "}, apperr.Validation, "Message content cannot be empty"},
		{"bad email", models.SendMessagePayload{ReceiverEmail: "not-an-email", Content: "x"}, apperr.Validation, "Recipient email is invalid"},
		{"unknown recipient", models.SendMessagePayload{RecipientID: "ghost", Content: "x"}, apperr.NotFound, "Recipient does not exist"},
		{"unknown email", models.SendMessagePayload{ReceiverEmail: "ghost@example.com", Content: "x"}, apperr.NotFound, "Recipient does not exist"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := f.pipeline.SendMessage(context.Background(), alice, tc.payload)
			require.Error(t, err)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
			assert.Equal(t, tc.message, apperr.PublicMessage(err))
		})
	}

	assert.Equal(t, 0, f.store.MessageCount())
	assert.Empty(t, alice.Events())
}

func TestSendMessageConcurrentFirstContact(t *testing.T) {
	f := newPipelineFixture()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := f.alice, f.bob
			if i%2 == 1 {
				from, to = to, from
			}
			err := f.pipeline.SendMessage(context.Background(), mocks.NewClientRecorder(from.ID), models.SendMessagePayload{RecipientID: to.ID, Content: "race"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, f.store.GroupCount())
	assert.Equal(t, n, f.store.MessageCount())
}

func TestSendMessageCanceledContextIsPersistenceError(t *testing.T) {
	f := newPipelineFixture()
	alice := f.connect(f.alice)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.pipeline.SendMessage(ctx, alice, models.SendMessagePayload{RecipientID: f.bob.ID, Content: "late"})

	require.Error(t, err)
	assert.Equal(t, apperr.Persistence, apperr.KindOf(err))
	assert.Equal(t, apperr.InternalMessage, apperr.PublicMessage(err))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, alice.Events())
}

func TestSendMessageRollsBackWhenCountFails(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	groups := new(mocks.ChatGroupRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	hub := ws.NewHub()
	pipeline := NewPipeline(hub, users, groups, messages)

	bob := models.User{ID: "b", Name: "Bob"}
	group := models.ChatGroup{ID: "g", UserA: "a", UserB: "b"}
	msg := models.Message{ID: "m", ChatGroupID: "g", SenderID: "a", Content: "hi"}

	users.On("GetByID", mock.Anything, "b").Return(bob, nil)
	groups.On("FindByPair", mock.Anything, "a", "b").Return(group, nil)
	messages.On("Create", mock.Anything, "g", "a", "hi", "").Return(msg, nil)
	messages.On("CountUnread", mock.Anything, "g", "b").Return(0, errors.New("timeout"))
	messages.On("DeleteOwned", mock.Anything, "m", "a").Return(nil)

	sender := mocks.NewClientRecorder("a")
	err := pipeline.SendMessage(context.Background(), sender, models.SendMessagePayload{RecipientID: "b", Content: "hi"})

	require.Error(t, err)
	assert.Equal(t, apperr.Persistence, apperr.KindOf(err))
	assert.Empty(t, sender.Events())
	messages.AssertCalled(t, "DeleteOwned", mock.Anything, "m", "a")
	groups.AssertNotCalled(t, "DeleteIfEmpty", mock.Anything, mock.Anything)
}

func TestSendMessageRollbackRemovesNewGroup(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	groups := new(mocks.ChatGroupRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	pipeline := NewPipeline(ws.NewHub(), users, groups, messages)

	group := models.ChatGroup{ID: "g", UserA: "a", UserB: "b"}
	msg := models.Message{ID: "m", ChatGroupID: "g", SenderID: "a", Content: "hi"}

	users.On("GetByID", mock.Anything, "b").Return(models.User{ID: "b"}, nil)
	groups.On("FindByPair", mock.Anything, "a", "b").Return(nil, repositories.ErrChatGroupNotFound).Once()
	groups.On("Create", mock.Anything, "a", "b").Return(group, nil).Once()
	messages.On("Create", mock.Anything, "g", "a", "hi", "").Return(msg, nil)
	messages.On("CountUnread", mock.Anything, "g", "b").Return(0, errors.New("timeout"))
	messages.On("DeleteOwned", mock.Anything, "m", "a").Return(nil).Once()
	groups.On("DeleteIfEmpty", mock.Anything, "g").Return(nil).Once()

	err := pipeline.SendMessage(context.Background(), mocks.NewClientRecorder("a"), models.SendMessagePayload{RecipientID: "b", Content: "hi"})

	require.Error(t, err)
	messages.AssertExpectations(t)
	groups.AssertExpectations(t)
}

// failingMessages rejects every insert and delegates everything else.
type failingMessages struct {
	repositories.MessageRepository
}

func (failingMessages) Create(context.Context, string, string, string, string) (models.Message, error) {
	return models.Message{}, errors.New("db down")
}

func TestSendMessagePersistFailureLeavesNoGroup(t *testing.T) {
	f := newPipelineFixture()
	pipeline := NewPipeline(f.hub, f.store.Users(), f.store.ChatGroups(), failingMessages{f.store.Messages()})
	alice := f.connect(f.alice)

	err := pipeline.SendMessage(context.Background(), alice, models.SendMessagePayload{RecipientID: f.bob.ID, Content: "hi"})

	require.Error(t, err)
	assert.Equal(t, apperr.Persistence, apperr.KindOf(err))
	assert.Equal(t, 0, f.store.GroupCount())
	assert.Equal(t, 0, f.store.MessageCount())
	assert.Empty(t, alice.Events())
}

func TestSendMessagePersistFailureKeepsExistingGroup(t *testing.T) {
	f := newPipelineFixture()
	_, _, err := f.pipeline.resolver.Resolve(context.Background(), f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	pipeline := NewPipeline(f.hub, f.store.Users(), f.store.ChatGroups(), failingMessages{f.store.Messages()})

	err = pipeline.SendMessage(context.Background(), f.connect(f.alice), models.SendMessagePayload{RecipientID: f.bob.ID, Content: "hi"})

	require.Error(t, err)
	assert.Equal(t, 1, f.store.GroupCount())
}

func TestStartChat(t *testing.T) {
	f := newPipelineFixture()
	alice := f.connect(f.alice)

	err := f.pipeline.StartChat(context.Background(), alice, models.StartChatPayload{RecipientID: f.bob.ID})
	require.NoError(t, err)

	started := alice.OfType(models.EventChatStarted)
	require.Len(t, started, 1)
	payload := started[0].Data.(models.ChatStartedPayload)
	assert.Equal(t, f.bob.ID, payload.With)
	assert.NotEmpty(t, payload.ChatGroupID)
	assert.Equal(t, 1, f.store.GroupCount())
	assert.Equal(t, 0, f.store.MessageCount())

	require.NoError(t, f.pipeline.StartChat(context.Background(), alice, models.StartChatPayload{RecipientID: f.bob.ID}))
	assert.Equal(t, payload.ChatGroupID, alice.OfType(models.EventChatStarted)[1].Data.(models.ChatStartedPayload).ChatGroupID)
}

func TestStartChatRejections(t *testing.T) {
	f := newPipelineFixture()
	alice := f.connect(f.alice)

	err := f.pipeline.StartChat(context.Background(), alice, models.StartChatPayload{})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	err = f.pipeline.StartChat(context.Background(), alice, models.StartChatPayload{RecipientID: f.alice.ID})
	assert.Equal(t, apperr.SelfTarget, apperr.KindOf(err))

	err = f.pipeline.StartChat(context.Background(), alice, models.StartChatPayload{RecipientID: "ghost"})
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	assert.Equal(t, 0, f.store.GroupCount())
	assert.Empty(t, alice.Events())
}
