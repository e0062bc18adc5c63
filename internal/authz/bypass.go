package authz

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const bypassKeyPrefix = "hierarchy:level0:"

// BypassChecker answers whether an actor holds a hierarchy level 0 role.
// The flag is cached under its own key because its invalidation triggers
// (role membership changes) differ from permission-grant triggers.
type BypassChecker struct {
	store  Store
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewBypassChecker constructs the checker.
func NewBypassChecker(store Store, client *redis.Client, ttl time.Duration, logger *slog.Logger) *BypassChecker {
	return &BypassChecker{store: store, client: client, ttl: ttl, logger: logger}
}

func bypassKey(actorID int64) string {
	return fmt.Sprintf("%s%d", bypassKeyPrefix, actorID)
}

// IsBypass reports whether the actor is a superadmin. Cache outages fall
// through to the store; store errors propagate so the evaluator fails closed.
func (b *BypassChecker) IsBypass(ctx context.Context, actorID int64) (bool, error) {
	key := bypassKey(actorID)
	if b.client != nil {
		value, err := b.client.Get(ctx, key).Result()
		if err == nil {
			return value == "1", nil
		}
		if err != redis.Nil && b.logger != nil {
			b.logger.Warn("bypass cache get", slog.Any("error", err))
		}
	}
	found, err := b.store.HasHierarchyLevelZeroRole(ctx, actorID)
	if err != nil {
		return false, err
	}
	if b.client != nil {
		value := "0"
		if found {
			value = "1"
		}
		if err := b.client.Set(ctx, key, value, b.ttl).Err(); err != nil && b.logger != nil {
			b.logger.Warn("bypass cache set", slog.Any("error", err))
		}
	}
	return found, nil
}

// Invalidate drops the cached flag after a role membership change.
func (b *BypassChecker) Invalidate(ctx context.Context, actorID int64) error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Del(ctx, bypassKey(actorID)).Err()
}

// InvalidateAll drops every cached flag. Role definition changes (a level 0
// role deactivated or moved to another level) affect every member of the
// role, so the whole prefix goes.
func (b *BypassChecker) InvalidateAll(ctx context.Context) error {
	if b == nil || b.client == nil {
		return nil
	}
	return deleteKeysWithPrefix(ctx, b.client, bypassKeyPrefix)
}
