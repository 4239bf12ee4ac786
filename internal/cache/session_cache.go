package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"vigilore/internal/model"
)

// sessionTTL keeps paused interviews resumable across instances for a while
// without pinning abandoned ones forever
const sessionTTL = 30 * time.Minute

type SessionCache interface {
	Put(ctx context.Context, session *model.InterviewSession) error
	Get(ctx context.Context, sessionID string) (*model.InterviewSession, error)
	Drop(ctx context.Context, sessionID string) error
}

type sessionCache struct {
	client *redis.Client
}

func NewSessionCache(client *redis.Client) SessionCache {
	return &sessionCache{
		client: client,
	}
}

func (c *sessionCache) Put(ctx context.Context, session *model.InterviewSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "interview:"+session.SessionID, data, sessionTTL).Err()
}

func (c *sessionCache) Get(ctx context.Context, sessionID string) (*model.InterviewSession, error) {
	data, err := c.client.Get(ctx, "interview:"+sessionID).Result()
	if err != nil {
		return nil, err
	}
	var session model.InterviewSession
	err = json.Unmarshal([]byte(data), &session)
	return &session, err
}

func (c *sessionCache) Drop(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, "interview:"+sessionID).Err()
}
