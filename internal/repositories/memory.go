package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"dm-service/internal/models"
)

// MemoryStore keeps users, chat groups and messages in process memory.
// It honours the same contracts as the Postgres repositories, including the
// (user_a, user_b) uniqueness of chat groups, and serves local runs and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]models.User
	groups   map[string]models.ChatGroup
	pairs    map[[2]string]string
	messages []models.Message
	lastTime time.Time
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[string]models.User),
		groups: make(map[string]models.ChatGroup),
		pairs:  make(map[[2]string]string),
	}
}

// Users exposes the store as a UserRepository.
func (s *MemoryStore) Users() UserRepository { return memoryUsers{s} }

// ChatGroups exposes the store as a ChatGroupRepository.
func (s *MemoryStore) ChatGroups() ChatGroupRepository { return memoryGroups{s} }

// Messages exposes the store as a MessageRepository.
func (s *MemoryStore) Messages() MessageRepository { return memoryMessages{s} }

// AddUser inserts or replaces a user record.
func (s *MemoryStore) AddUser(user models.User) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	s.users[user.ID] = user
	return user
}

// GroupCount reports how many chat groups exist.
func (s *MemoryStore) GroupCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.groups)
}

// MessageCount reports how many messages exist.
func (s *MemoryStore) MessageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// now returns a strictly increasing timestamp. Callers hold s.mu.
func (s *MemoryStore) now() time.Time {
	t := time.Now().UTC()
	if !t.After(s.lastTime) {
		t = s.lastTime.Add(time.Microsecond)
	}
	s.lastTime = t
	return t
}

type memoryUsers struct{ s *MemoryStore }

func (r memoryUsers) GetByID(ctx context.Context, id string) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	user, ok := r.s.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return user, nil
}

func (r memoryUsers) GetByEmail(ctx context.Context, email string) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	user, ok := lo.Find(lo.Values(r.s.users), func(u models.User) bool { return u.Email == email })
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return user, nil
}

func (r memoryUsers) GetByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	users := lo.FilterMap(lo.Uniq(ids), func(id string, _ int) (models.User, bool) {
		u, ok := r.s.users[id]
		return u, ok
	})
	return users, nil
}

type memoryGroups struct{ s *MemoryStore }

func (r memoryGroups) FindByPair(ctx context.Context, userA, userB string) (models.ChatGroup, error) {
	if err := ctx.Err(); err != nil {
		return models.ChatGroup{}, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.pairs[[2]string{userA, userB}]
	if !ok {
		return models.ChatGroup{}, ErrChatGroupNotFound
	}
	return r.s.groups[id], nil
}

func (r memoryGroups) Create(ctx context.Context, userA, userB string) (models.ChatGroup, error) {
	if err := ctx.Err(); err != nil {
		return models.ChatGroup{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := [2]string{userA, userB}
	if _, exists := r.s.pairs[key]; exists {
		return models.ChatGroup{}, ErrChatGroupExists
	}
	group := models.ChatGroup{ID: uuid.NewString(), UserA: userA, UserB: userB, CreatedAt: r.s.now()}
	r.s.groups[group.ID] = group
	r.s.pairs[key] = group.ID
	return group, nil
}

func (r memoryGroups) GetForUser(ctx context.Context, chatGroupID, userID string) (models.ChatGroup, error) {
	if err := ctx.Err(); err != nil {
		return models.ChatGroup{}, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	group, ok := r.s.groups[chatGroupID]
	if !ok || !group.HasParticipant(userID) {
		return models.ChatGroup{}, ErrChatGroupNotFound
	}
	return group, nil
}

func (r memoryGroups) ListForUser(ctx context.Context, userID string) ([]models.ChatGroup, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	groups := lo.Filter(lo.Values(r.s.groups), func(g models.ChatGroup, _ int) bool { return g.HasParticipant(userID) })
	sort.Slice(groups, func(i, j int) bool { return groups[i].CreatedAt.After(groups[j].CreatedAt) })
	return groups, nil
}

func (r memoryGroups) DeleteForUser(ctx context.Context, chatGroupID, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	group, ok := r.s.groups[chatGroupID]
	if !ok || !group.HasParticipant(userID) {
		return ErrChatGroupNotFound
	}
	delete(r.s.groups, chatGroupID)
	delete(r.s.pairs, [2]string{group.UserA, group.UserB})
	r.s.messages = lo.Reject(r.s.messages, func(m models.Message, _ int) bool { return m.ChatGroupID == chatGroupID })
	return nil
}

func (r memoryGroups) DeleteIfEmpty(ctx context.Context, chatGroupID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	group, ok := r.s.groups[chatGroupID]
	if !ok || lo.ContainsBy(r.s.messages, func(m models.Message) bool { return m.ChatGroupID == chatGroupID }) {
		return ErrChatGroupNotFound
	}
	delete(r.s.groups, chatGroupID)
	delete(r.s.pairs, [2]string{group.UserA, group.UserB})
	return nil
}

type memoryMessages struct{ s *MemoryStore }

func (r memoryMessages) Create(ctx context.Context, chatGroupID, senderID, content, emoji string) (models.Message, error) {
	if err := ctx.Err(); err != nil {
		return models.Message{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.groups[chatGroupID]; !ok {
		return models.Message{}, ErrChatGroupNotFound
	}
	msg := models.Message{
		ID:          uuid.NewString(),
		ChatGroupID: chatGroupID,
		SenderID:    senderID,
		Content:     content,
		Emoji:       emoji,
		CreatedAt:   r.s.now(),
	}
	r.s.messages = append(r.s.messages, msg)
	return msg, nil
}

func (r memoryMessages) CountUnread(ctx context.Context, chatGroupID, excludeSenderID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return lo.CountBy(r.s.messages, func(m models.Message) bool {
		return m.ChatGroupID == chatGroupID && m.SenderID != excludeSenderID && !m.IsRead
	}), nil
}

func (r memoryMessages) Latest(ctx context.Context, chatGroupID string) (models.Message, error) {
	if err := ctx.Err(); err != nil {
		return models.Message{}, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for i := len(r.s.messages) - 1; i >= 0; i-- {
		if r.s.messages[i].ChatGroupID == chatGroupID {
			return r.s.messages[i], nil
		}
	}
	return models.Message{}, ErrMessageNotFound
}

func (r memoryMessages) ListPage(ctx context.Context, chatGroupID string, limit int, cursor string) ([]models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	inGroup := lo.Filter(r.s.messages, func(m models.Message, _ int) bool { return m.ChatGroupID == chatGroupID })
	end := len(inGroup)
	if cursor != "" {
		_, idx, ok := lo.FindIndexOf(inGroup, func(m models.Message) bool { return m.ID == cursor })
		if !ok {
			return []models.Message{}, nil
		}
		end = idx
	}
	start := end - limit
	if start < 0 {
		start = 0
	}
	page := make([]models.Message, end-start)
	copy(page, inGroup[start:end])
	return page, nil
}

func (r memoryMessages) DeleteOwned(ctx context.Context, messageID, senderID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, idx, ok := lo.FindIndexOf(r.s.messages, func(m models.Message) bool { return m.ID == messageID && m.SenderID == senderID })
	if !ok {
		return ErrMessageNotFound
	}
	r.s.messages = append(r.s.messages[:idx], r.s.messages[idx+1:]...)
	return nil
}

func (r memoryMessages) MarkRead(ctx context.Context, chatGroupID, readerID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for i := range r.s.messages {
		m := &r.s.messages[i]
		if m.ChatGroupID == chatGroupID && m.SenderID != readerID && !m.IsRead {
			m.IsRead = true
			n++
		}
	}
	return n, nil
}

// Seed adds users given as "id:name:email" entries.
func (s *MemoryStore) Seed(entries []string) error {
	for _, entry := range entries {
		parts := strings.SplitN(strings.TrimSpace(entry), ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
			return fmt.Errorf("invalid seed user %q: want id:name:email", entry)
		}
		s.AddUser(models.User{ID: parts[0], Name: parts[1], Email: parts[2]})
	}
	return nil
}
