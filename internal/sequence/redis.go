package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"dieworks-backend/internal/model"
)

const redisKeyPrefix = "dieworks:seq:"

// FloorFunc returns the highest value already used for key, so a fresh or
// flushed Redis never hands out a number that exists in the database.
type FloorFunc func(ctx context.Context, tx *gorm.DB, key Key) (int64, error)

// ProductionOrderFloor reads the highest production order sequence of a die.
// key.Name is the die ID.
func ProductionOrderFloor(ctx context.Context, tx *gorm.DB, key Key) (int64, error) {
	if key.Scope != ScopeProductionOrder {
		return 0, nil
	}
	var floor int64
	err := tx.WithContext(ctx).
		Model(&model.ProductionOrder{}).
		Where("die_id = ?", key.Name).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&floor).Error
	if err != nil {
		return 0, fmt.Errorf("read production order floor for die %s: %w", key.Name, err)
	}
	return floor, nil
}

// RedisSource hands out counters with INCR.
type RedisSource struct {
	client *redis.Client
	floor  FloorFunc
}

// NewRedisSource returns a Redis-backed source. floor may be nil.
func NewRedisSource(client *redis.Client, floor FloorFunc) *RedisSource {
	return &RedisSource{client: client, floor: floor}
}

// RedisKey is the Redis key backing a counter.
func RedisKey(key Key) string {
	return redisKeyPrefix + key.String()
}

// Next seeds the counter from the floor on first use and increments it.
func (s *RedisSource) Next(ctx context.Context, tx *gorm.DB, key Key) (int, error) {
	rk := RedisKey(key)

	if s.floor != nil {
		exists, err := s.client.Exists(ctx, rk).Result()
		if err != nil {
			return 0, fmt.Errorf("check sequence %s: %w", key, err)
		}
		if exists == 0 {
			floor, err := s.floor(ctx, tx, key)
			if err != nil {
				return 0, err
			}
			// SETNX: another instance may have seeded it meanwhile.
			if err := s.client.SetNX(ctx, rk, floor, 0).Err(); err != nil {
				return 0, fmt.Errorf("seed sequence %s: %w", key, err)
			}
		}
	}

	value, err := s.client.Incr(ctx, rk).Result()
	if err != nil {
		return 0, fmt.Errorf("increment sequence %s: %w", key, err)
	}
	return int(value), nil
}

// ConnectRedis parses a redis:// URL and checks the connection.
func ConnectRedis(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opt.MaxRetries = 3

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}
