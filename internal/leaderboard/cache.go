package leaderboard

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache handles Redis ZSET operations for a board.
type Cache interface {
	SetScore(ctx context.Context, board string, userID uuid.UUID, score int64) error
	GetTop(ctx context.Context, board string, limit int) ([]ScoredMember, error)
	GetRank(ctx context.Context, board string, userID uuid.UUID) (int64, error)
	Exists(ctx context.Context, board string) (bool, error)
	Drop(ctx context.Context, board string) error
}

// ScoredMember is one ZSET member with its score.
type ScoredMember struct {
	UserID uuid.UUID
	Score  int64
}

type redisCache struct {
	client *redis.Client
}

// NewCache creates a Redis-backed leaderboard cache.
func NewCache(client *redis.Client) Cache {
	return &redisCache{client: client}
}

func (c *redisCache) key(board string) string {
	return fmt.Sprintf("lb:%s", board)
}

func (c *redisCache) SetScore(ctx context.Context, board string, userID uuid.UUID, score int64) error {
	return c.client.ZAdd(ctx, c.key(board), redis.Z{
		Score:  float64(score),
		Member: userID.String(),
	}).Err()
}

func (c *redisCache) GetTop(ctx context.Context, board string, limit int) ([]ScoredMember, error) {
	results, err := c.client.ZRevRangeWithScores(ctx, c.key(board), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	members := make([]ScoredMember, 0, len(results))
	for _, z := range results {
		id, err := uuid.Parse(z.Member.(string))
		if err != nil {
			continue
		}
		members = append(members, ScoredMember{UserID: id, Score: int64(z.Score)})
	}
	return members, nil
}

func (c *redisCache) GetRank(ctx context.Context, board string, userID uuid.UUID) (int64, error) {
	rank, err := c.client.ZRevRank(ctx, c.key(board), userID.String()).Result()
	if err == redis.Nil {
		return -1, nil
	}
	return rank + 1, err // 1-indexed
}

func (c *redisCache) Exists(ctx context.Context, board string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(board)).Result()
	return n > 0, err
}

func (c *redisCache) Drop(ctx context.Context, board string) error {
	return c.client.Del(ctx, c.key(board)).Err()
}
