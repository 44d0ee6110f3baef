package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"echoeditor/internal/model"
)

// SessionCache keeps recently touched sessions in Redis so room lookups do
// not always hit MongoDB. All usage is best-effort; callers log and move on
// when Redis misbehaves.
type SessionCache interface {
	Set(ctx context.Context, session *model.Session) error
	Get(ctx context.Context, roomID string) (*model.Session, error)
	Delete(ctx context.Context, roomID string) error
}

type sessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionCache creates a Redis-backed session cache.
func NewSessionCache(client *redis.Client) SessionCache {
	return &sessionCache{
		client: client,
		ttl:    24 * time.Hour, // idle sessions expire after a day
	}
}

func (c *sessionCache) key(roomID string) string {
	return fmt.Sprintf("session:%s", roomID)
}

func (c *sessionCache) Set(ctx context.Context, session *model.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(session.RoomID), data, c.ttl).Err()
}

func (c *sessionCache) Get(ctx context.Context, roomID string) (*model.Session, error) {
	data, err := c.client.Get(ctx, c.key(roomID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session model.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *sessionCache) Delete(ctx context.Context, roomID string) error {
	return c.client.Del(ctx, c.key(roomID)).Err()
}
