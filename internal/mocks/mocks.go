package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"dm-service/internal/models"
	"dm-service/internal/repositories"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) GetByID(ctx context.Context, id string) (models.User, error) {
	args := m.Called(ctx, id)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetByEmail(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	args := m.Called(ctx, ids)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

type ChatGroupRepositoryMock struct {
	mock.Mock
}

func (m *ChatGroupRepositoryMock) FindByPair(ctx context.Context, userA, userB string) (models.ChatGroup, error) {
	args := m.Called(ctx, userA, userB)
	var group models.ChatGroup
	if val := args.Get(0); val != nil {
		group = val.(models.ChatGroup)
	}
	return group, args.Error(1)
}

func (m *ChatGroupRepositoryMock) Create(ctx context.Context, userA, userB string) (models.ChatGroup, error) {
	args := m.Called(ctx, userA, userB)
	var group models.ChatGroup
	if val := args.Get(0); val != nil {
		group = val.(models.ChatGroup)
	}
	return group, args.Error(1)
}

func (m *ChatGroupRepositoryMock) GetForUser(ctx context.Context, chatGroupID, userID string) (models.ChatGroup, error) {
	args := m.Called(ctx, chatGroupID, userID)
	var group models.ChatGroup
	if val := args.Get(0); val != nil {
		group = val.(models.ChatGroup)
	}
	return group, args.Error(1)
}

func (m *ChatGroupRepositoryMock) ListForUser(ctx context.Context, userID string) ([]models.ChatGroup, error) {
	args := m.Called(ctx, userID)
	var groups []models.ChatGroup
	if val := args.Get(0); val != nil {
		groups = val.([]models.ChatGroup)
	}
	return groups, args.Error(1)
}

func (m *ChatGroupRepositoryMock) DeleteForUser(ctx context.Context, chatGroupID, userID string) error {
	args := m.Called(ctx, chatGroupID, userID)
	return args.Error(0)
}

func (m *ChatGroupRepositoryMock) DeleteIfEmpty(ctx context.Context, chatGroupID string) error {
	args := m.Called(ctx, chatGroupID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, chatGroupID, senderID, content, emoji string) (models.Message, error) {
	args := m.Called(ctx, chatGroupID, senderID, content, emoji)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) CountUnread(ctx context.Context, chatGroupID, excludeSenderID string) (int, error) {
	args := m.Called(ctx, chatGroupID, excludeSenderID)
	return args.Int(0), args.Error(1)
}

func (m *MessageRepositoryMock) Latest(ctx context.Context, chatGroupID string) (models.Message, error) {
	args := m.Called(ctx, chatGroupID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListPage(ctx context.Context, chatGroupID string, limit int, cursor string) ([]models.Message, error) {
	args := m.Called(ctx, chatGroupID, limit, cursor)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) DeleteOwned(ctx context.Context, messageID, senderID string) error {
	args := m.Called(ctx, messageID, senderID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, chatGroupID, readerID string) (int64, error) {
	args := m.Called(ctx, chatGroupID, readerID)
	var count int64
	if val := args.Get(0); val != nil {
		count = val.(int64)
	}
	return count, args.Error(1)
}

var (
	_ repositories.UserRepository      = (*UserRepositoryMock)(nil)
	_ repositories.ChatGroupRepository = (*ChatGroupRepositoryMock)(nil)
	_ repositories.MessageRepository   = (*MessageRepositoryMock)(nil)
)
