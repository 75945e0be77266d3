package chat

import (
	"context"
	"errors"

	"dm-service/internal/apperr"
	"dm-service/internal/models"
	"dm-service/internal/repositories"
)

// Resolver finds or creates the single chat group of a user pair.
type Resolver struct {
	groups repositories.ChatGroupRepository
}

func NewResolver(groups repositories.ChatGroupRepository) *Resolver {
	return &Resolver{groups: groups}
}

// Resolve returns the group of a and b in either order and whether this call
// inserted it. Concurrent first contacts are settled by the store's uniqueness
// constraint: the loser of the insert re-reads the winner.
func (r *Resolver) Resolve(ctx context.Context, a, b string) (models.ChatGroup, bool, error) {
	userA, userB := models.CanonicalPair(a, b)

	group, err := r.groups.FindByPair(ctx, userA, userB)
	if err == nil {
		return group, false, nil
	}
	if !errors.Is(err, repositories.ErrChatGroupNotFound) {
		return models.ChatGroup{}, false, apperr.Store("find chat group", err)
	}

	group, err = r.groups.Create(ctx, userA, userB)
	if err == nil {
		return group, true, nil
	}
	if !errors.Is(err, repositories.ErrChatGroupExists) {
		return models.ChatGroup{}, false, apperr.Store("create chat group", err)
	}

	group, err = r.groups.FindByPair(ctx, userA, userB)
	if err != nil {
		return models.ChatGroup{}, false, apperr.Store("reload chat group", err)
	}
	return group, false, nil
}

// Discard removes a group created by an aborted send. A group that already
// holds messages, possibly from the partner, is left alone.
func (r *Resolver) Discard(ctx context.Context, group models.ChatGroup) error {
	err := r.groups.DeleteIfEmpty(ctx, group.ID)
	if err != nil && !errors.Is(err, repositories.ErrChatGroupNotFound) {
		return err
	}
	return nil
}
