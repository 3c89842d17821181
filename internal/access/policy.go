package access

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stockhub-backend/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Policy decides whether a role may perform action on module.
// Implementations must fail closed: an error never means "allowed".
type Policy interface {
	Allowed(ctx context.Context, role models.UserRole, module string, action models.PermissionAction) (bool, error)
}

// Invalidator drops cached decisions after the matrix of a role changes.
type Invalidator interface {
	Invalidate(ctx context.Context, role models.UserRole) error
}

// StorePolicy reads the store on every check.
type StorePolicy struct {
	store Store
}

func NewStorePolicy(store Store) *StorePolicy {
	return &StorePolicy{store: store}
}

func (p *StorePolicy) Allowed(ctx context.Context, role models.UserRole, module string, action models.PermissionAction) (bool, error) {
	perm, err := p.store.Find(ctx, role, module)
	if err != nil {
		return false, fmt.Errorf("lookup permission %s/%s: %w", role, module, err)
	}
	if perm == nil {
		return false, nil
	}
	return perm.Allows(action), nil
}

const absentMarker = "-"

// CachedPolicy is a Redis read-through cache in front of the store.
// Redis failures fall back to the store; store failures are returned.
type CachedPolicy struct {
	store Store
	rdb   *redis.Client
	ttl   time.Duration
	log   *zap.Logger
}

func NewCachedPolicy(store Store, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *CachedPolicy {
	return &CachedPolicy{store: store, rdb: rdb, ttl: ttl, log: log}
}

var (
	_ Policy      = (*StorePolicy)(nil)
	_ Policy      = (*CachedPolicy)(nil)
	_ Invalidator = (*CachedPolicy)(nil)
)

func cacheKey(role models.UserRole, module string) string {
	return fmt.Sprintf("perm:%s:%s", role, module)
}

func (p *CachedPolicy) Allowed(ctx context.Context, role models.UserRole, module string, action models.PermissionAction) (bool, error) {
	key := cacheKey(role, module)

	raw, err := p.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		if raw == absentMarker {
			return false, nil
		}
		var perm models.RolePermission
		if jsonErr := json.Unmarshal([]byte(raw), &perm); jsonErr == nil {
			return perm.Allows(action), nil
		}
		p.log.Warn("corrupt permission cache entry", zap.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		p.log.Warn("permission cache unavailable", zap.String("key", key), zap.Error(err))
	}

	perm, err := p.store.Find(ctx, role, module)
	if err != nil {
		return false, fmt.Errorf("lookup permission %s/%s: %w", role, module, err)
	}

	value := absentMarker
	if perm != nil {
		if b, err := json.Marshal(perm); err == nil {
			value = string(b)
		}
	}
	if err := p.rdb.Set(ctx, key, value, p.ttl).Err(); err != nil {
		p.log.Debug("permission cache write failed", zap.String("key", key), zap.Error(err))
	}

	if perm == nil {
		return false, nil
	}
	return perm.Allows(action), nil
}

func (p *CachedPolicy) Invalidate(ctx context.Context, role models.UserRole) error {
	keys := make([]string, 0, len(models.AllModules))
	for _, m := range models.AllModules {
		keys = append(keys, cacheKey(role, m))
	}
	return p.rdb.Del(ctx, keys...).Err()
}
