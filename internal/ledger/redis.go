package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Key TTLs replace explicit pruning. The retention must outlive the
// longest-lived keys: trial warnings are anchored to the trial end date and
// stay relevant for up to three days after being recorded.
const redisRetention = 8 * 24 * time.Hour

// Redis keeps dedup entries in Redis, for deployments where several bot
// processes or restarts must share one ledger.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{client: client, prefix: "psybot:sent:"}, nil
}

func (r *Redis) redisKey(userID int64, day, slot string) string {
	return fmt.Sprintf("%s%d:%s:%s", r.prefix, userID, day, slot)
}

func (r *Redis) AlreadySent(ctx context.Context, userID int64, day, slot string) (bool, error) {
	n, err := r.client.Exists(ctx, r.redisKey(userID, day, slot)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Redis) RecordSent(ctx context.Context, userID int64, day, slot string) error {
	// SETNX keeps the first record's TTL; re-recording is a no-op.
	return r.client.SetNX(ctx, r.redisKey(userID, day, slot), 1, redisRetention).Err()
}

// Prune is a no-op: retention is handled by key TTLs.
func (r *Redis) Prune(context.Context, string) error { return nil }

func (r *Redis) Close() error { return r.client.Close() }
