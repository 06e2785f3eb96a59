package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/carwash-app/carwash/services/user/internal/domain"
	"github.com/redis/go-redis/v9"
)

// UserCache keeps serialized profiles in Redis under user:<id>.
type UserCache struct {
	R   *redis.Client
	TTL time.Duration
}

func key(id string) string { return "user:" + id }

// Get returns redis.Nil on a miss.
func (c *UserCache) Get(ctx context.Context, id string) (*domain.User, error) {
	b, err := c.R.Get(ctx, key(id)).Bytes()
	if err != nil {
		return nil, err
	}
	var u domain.User
	return &u, json.Unmarshal(b, &u)
}

func (c *UserCache) Set(ctx context.Context, u *domain.User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, key(u.ID), b, c.TTL).Err()
}

func (c *UserCache) Delete(ctx context.Context, id string) error {
	return c.R.Del(ctx, key(id)).Err()
}
