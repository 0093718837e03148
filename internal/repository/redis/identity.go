package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ImMohammedAbdulla/Backend-app/internal/domain"
	apperrors "github.com/ImMohammedAbdulla/Backend-app/pkg/errors"
)

const keyPrefix = "identity:"

// IdentityCache implements repository.IdentityCache using Redis. Entries are
// the public user projection; secret fields are never marshalled.
type IdentityCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdentityCache creates a new Redis-backed identity cache.
func NewIdentityCache(client *redis.Client, ttl time.Duration) *IdentityCache {
	return &IdentityCache{
		client: client,
		ttl:    ttl,
	}
}

// Get returns the cached user, or a NotFound error on a cache miss.
func (c *IdentityCache) Get(ctx context.Context, id string) (*domain.User, error) {
	data, err := c.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("identity", id)
		}
		return nil, fmt.Errorf("redis get identity: %w", err)
	}

	var u domain.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("unmarshal identity: %w", err)
	}
	return &u, nil
}

// Set caches the public projection of user with the configured TTL.
func (c *IdentityCache) Set(ctx context.Context, user *domain.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}

	if err := c.client.Set(ctx, keyPrefix+user.ID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set identity: %w", err)
	}
	return nil
}

// Invalidate drops the cached entry for id.
func (c *IdentityCache) Invalidate(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("redis del identity: %w", err)
	}
	return nil
}
