package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"dm-service/internal/models"
)

var (
	ErrChatGroupNotFound = errors.New("chat group not found")
	// ErrChatGroupExists is returned by Create when another writer inserted the pair first.
	ErrChatGroupExists = errors.New("chat group already exists")
)

const uniqueViolation = pq.ErrorCode("23505")

// ChatGroupRepository abstracts chat group persistence.
// userA and userB passed to FindByPair and Create must already be canonical.
type ChatGroupRepository interface {
	FindByPair(ctx context.Context, userA, userB string) (models.ChatGroup, error)
	Create(ctx context.Context, userA, userB string) (models.ChatGroup, error)
	GetForUser(ctx context.Context, chatGroupID, userID string) (models.ChatGroup, error)
	ListForUser(ctx context.Context, userID string) ([]models.ChatGroup, error)
	DeleteForUser(ctx context.Context, chatGroupID, userID string) error
	// DeleteIfEmpty removes a group that holds no messages; ErrChatGroupNotFound otherwise.
	DeleteIfEmpty(ctx context.Context, chatGroupID string) error
}

// ChatGroupRepo is a sqlx implementation of ChatGroupRepository.
type ChatGroupRepo struct {
	db *sqlx.DB
}

// NewChatGroupRepo constructs a ChatGroupRepo.
func NewChatGroupRepo(db *sqlx.DB) *ChatGroupRepo {
	return &ChatGroupRepo{db: db}
}

// FindByPair looks a group up by its canonical pair.
func (r *ChatGroupRepo) FindByPair(ctx context.Context, userA, userB string) (models.ChatGroup, error) {
	var group models.ChatGroup
	err := r.db.GetContext(ctx, &group, `SELECT id, user_a, user_b, created_at FROM chat_groups WHERE user_a=$1 AND user_b=$2`, userA, userB)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatGroup{}, ErrChatGroupNotFound
	}
	return group, err
}

// Create inserts the pair unless it already exists. A lost race yields ErrChatGroupExists.
func (r *ChatGroupRepo) Create(ctx context.Context, userA, userB string) (models.ChatGroup, error) {
	var group models.ChatGroup
	err := r.db.QueryRowxContext(ctx, `INSERT INTO chat_groups (user_a, user_b) VALUES ($1, $2)
        ON CONFLICT (user_a, user_b) DO NOTHING
        RETURNING id, user_a, user_b, created_at`, userA, userB).StructScan(&group)
	if err := insertConflict(err); err != nil {
		return models.ChatGroup{}, err
	}
	return group, nil
}

// insertConflict maps the outcome of the pair insert. DO NOTHING returns no
// row, and a concurrent insert racing past it surfaces as 23505; both mean
// another writer owns the pair.
func insertConflict(err error) error {
	if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
		return ErrChatGroupExists
	}
	return err
}

// GetForUser fetches a group the user participates in.
func (r *ChatGroupRepo) GetForUser(ctx context.Context, chatGroupID, userID string) (models.ChatGroup, error) {
	var group models.ChatGroup
	err := r.db.GetContext(ctx, &group, `SELECT id, user_a, user_b, created_at FROM chat_groups WHERE id=$1 AND (user_a=$2 OR user_b=$2)`, chatGroupID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatGroup{}, ErrChatGroupNotFound
	}
	return group, err
}

// ListForUser returns every group the user participates in.
func (r *ChatGroupRepo) ListForUser(ctx context.Context, userID string) ([]models.ChatGroup, error) {
	groups := []models.ChatGroup{}
	err := r.db.SelectContext(ctx, &groups, `SELECT id, user_a, user_b, created_at FROM chat_groups WHERE user_a=$1 OR user_b=$1 ORDER BY created_at DESC`, userID)
	return groups, err
}

// DeleteForUser removes a group and, by cascade, its messages.
func (r *ChatGroupRepo) DeleteForUser(ctx context.Context, chatGroupID, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chat_groups WHERE id=$1 AND (user_a=$2 OR user_b=$2)`, chatGroupID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrChatGroupNotFound
	}
	return nil
}

// DeleteIfEmpty removes the group only while no message references it.
func (r *ChatGroupRepo) DeleteIfEmpty(ctx context.Context, chatGroupID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chat_groups g WHERE g.id=$1
        AND NOT EXISTS (SELECT 1 FROM messages m WHERE m.chat_group_id = g.id)`, chatGroupID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrChatGroupNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
