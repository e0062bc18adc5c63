package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const decisionKeyPrefix = "check:"

// DecisionCache memoizes resolved decisions in Redis. It is read-through and
// fails open: a cache outage degrades to a miss, never to a stale answer and
// never to a blocked request.
type DecisionCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewDecisionCache constructs the cache helper.
func NewDecisionCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *DecisionCache {
	return &DecisionCache{client: client, ttl: ttl, logger: logger}
}

// DecisionKey composes the cache key for one requirement of one actor.
// An empty scope is keyed as "none" so it stays distinct from real scopes.
func DecisionKey(actorID int64, resource, action string, scope Scope) string {
	token := string(scope)
	if token == "" {
		token = "none"
	}
	return fmt.Sprintf("%s%d:%s:%s:%s", decisionKeyPrefix, actorID, resource, action, token)
}

// Get returns the cached decision for key, or false on miss or cache outage.
func (c *DecisionCache) Get(ctx context.Context, key string) (Decision, bool) {
	if c == nil || c.client == nil {
		return Decision{}, false
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return Decision{}, false
	}
	if err != nil {
		c.warn("decision cache get", err)
		return Decision{}, false
	}
	var decision Decision
	if err := json.Unmarshal(payload, &decision); err != nil {
		c.warn("decision cache decode", err)
		return Decision{}, false
	}
	return decision, true
}

// Set stores the decision under key for the configured TTL. Concurrent
// writers may race for the same key; last write wins and both values are
// equally fresh, so no coordination is needed.
func (c *DecisionCache) Set(ctx context.Context, key string, decision Decision) {
	if c == nil || c.client == nil {
		return
	}
	payload, err := json.Marshal(decision)
	if err != nil {
		c.warn("decision cache encode", err)
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.warn("decision cache set", err)
	}
}

// InvalidateActor removes every cached decision belonging to one actor.
// Grant writers call this synchronously before answering, so a stale
// decision is never served past a grant change.
func (c *DecisionCache) InvalidateActor(ctx context.Context, actorID int64) error {
	return c.deletePrefix(ctx, decisionKeyPrefix+strconv.FormatInt(actorID, 10)+":")
}

// InvalidateAll removes every cached decision. Used when a permission or
// role definition changes, since the blast radius is unbounded.
func (c *DecisionCache) InvalidateAll(ctx context.Context) error {
	return c.deletePrefix(ctx, decisionKeyPrefix)
}

func (c *DecisionCache) deletePrefix(ctx context.Context, prefix string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return deleteKeysWithPrefix(ctx, c.client, prefix)
}

func deleteKeysWithPrefix(ctx context.Context, client *redis.Client, prefix string) error {
	iter := client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 512 {
			if err := client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return client.Del(ctx, keys...).Err()
	}
	return nil
}

func (c *DecisionCache) warn(msg string, err error) {
	if c.logger != nil {
		c.logger.Warn(msg, slog.Any("error", err))
	}
}
