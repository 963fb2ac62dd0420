// internal/journal/journal.go

// Package journal pushes room lifecycle records onto a Redis list for
// out-of-process consumers (dashboards, analytics). It is strictly
// fire-and-forget observability: room state itself lives only in memory,
// and the journal is disabled entirely when REDIS_ADDR is not set.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Rdb is the journal's Redis client, nil while the journal is disabled.
var Rdb *redis.Client

// DefaultQueueName is the Redis list the lifecycle records are pushed to.
var DefaultQueueName = "gameroom_events"

// Record is one room lifecycle entry.
type Record struct {
	Code      string `json:"code"`
	Event     string `json:"event"`
	UserID    string `json:"user_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Connect initializes the Redis client from environment variables:
//   - REDIS_ADDR (unset => journal disabled)
//   - REDIS_DB (optional, default 0)
func Connect() error {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil
	}
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		Rdb = nil
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// Enabled reports whether records are being published.
func Enabled() bool { return Rdb != nil }

// Publish serializes the record and pushes it onto the journal queue.
// No-op while the journal is disabled.
func Publish(ctx context.Context, rec Record) error {
	if Rdb == nil {
		return nil
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = time.Now().Unix()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal journal record: %w", err)
	}

	queueName := getEnv("JOURNAL_QUEUE_NAME", DefaultQueueName)
	if err := Rdb.RPush(ctx, queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queueName, err)
	}
	return nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
