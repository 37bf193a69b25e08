package returner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/reeveops/reeve/internal/history"
)

const defaultRedisPrefix = "reeve:"

// Redis posts job envelopes to Redis: the record JSON lands under
// "<prefix>job:<jid>" and the jid is indexed in the sorted set
// "<prefix>jids" scored by start time.
//
// Config namespace "returner.redis": addr, password, db, prefix,
// ttl_seconds (0 keeps records forever).
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

// RedisFromConfig connects from a secure-config namespace.
func RedisFromConfig(ns map[string]any) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     stringSetting(ns, "addr", "localhost:6379"),
		Password: stringSetting(ns, "password", ""),
		DB:       intSetting(ns, "db", 0),
	})
	ttl := time.Duration(intSetting(ns, "ttl_seconds", 0)) * time.Second
	return NewRedis(client, stringSetting(ns, "prefix", defaultRedisPrefix), ttl), nil
}

func (r *Redis) Name() string {
	return "redis"
}

func (r *Redis) Return(ctx context.Context, rec *history.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal job record: %w", err)
	}

	key := r.prefix + "job:" + rec.JID
	if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("post job %s to redis: %w", rec.JID, err)
	}

	index := redis.Z{Score: float64(rec.StartedAt.Unix()), Member: rec.JID}
	if err := r.client.ZAdd(ctx, r.prefix+"jids", index).Err(); err != nil {
		return fmt.Errorf("index job %s in redis: %w", rec.JID, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
