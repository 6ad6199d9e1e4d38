package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const fileTextTTL = 24 * time.Hour

// RedisCache keeps the extracted text of recently used files so incremental
// generation does not reread the row from Postgres. Keys are scoped by owner,
// matching the per-user row filters in the repository.
type RedisCache struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedisCache(addr string) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &RedisCache{
		client: client,
		ctx:    context.Background(),
	}
}

func fileTextKey(userID, fileID uint) string {
	return fmt.Sprintf("filetext:%d:%d", userID, fileID)
}

func (c *RedisCache) SetFileText(userID, fileID uint, text string) error {
	return c.client.Set(c.ctx, fileTextKey(userID, fileID), text, fileTextTTL).Err()
}

func (c *RedisCache) GetFileText(userID, fileID uint) (string, error) {
	return c.client.Get(c.ctx, fileTextKey(userID, fileID)).Result()
}

func (c *RedisCache) InvalidateFile(userID, fileID uint) error {
	return c.client.Del(c.ctx, fileTextKey(userID, fileID)).Err()
}
