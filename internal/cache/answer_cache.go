package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

const answerKeyPrefix = "rag:answer:"

// AnswerCache stores /ask responses in redis keyed by a hash of the
// normalized question. Entries are invalidated wholesale whenever the
// knowledge base changes, since any answer may be stale after that.
type AnswerCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewAnswerCache(client *redisv9.Client, ttl time.Duration) *AnswerCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AnswerCache{client: client, ttl: ttl}
}

// Get unmarshals a cached response into dest; the bool reports a hit.
func (c *AnswerCache) Get(ctx context.Context, question string, dest interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, answerKey(question)).Result()
	if err == redisv9.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get answer failed: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("unmarshal cached answer failed: %w", err)
	}
	return true, nil
}

func (c *AnswerCache) Set(ctx context.Context, question string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal answer cache failed: %w", err)
	}
	if err := c.client.Set(ctx, answerKey(question), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set answer failed: %w", err)
	}
	return nil
}

// InvalidateAll drops every cached answer.
func (c *AnswerCache) InvalidateAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, answerKeyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan answer keys failed: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete answer keys failed: %w", err)
	}
	return nil
}

func answerKey(question string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(question))))
	return answerKeyPrefix + hex.EncodeToString(sum[:])
}
