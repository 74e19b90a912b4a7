package treestat

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig captures connection settings for publishing the latest report.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Key      string `json:"key"`
}

const defaultRedisKey = "treestat:report"

type redisTarget struct {
	rdb *redis.Client
	key string
}

// NewRedisTarget connects to Redis. It returns a nil target when no address is configured.
func NewRedisTarget(ctx context.Context, cfg RedisConfig) (ReportTarget, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, nil
	}
	key := strings.TrimSpace(cfg.Key)
	if key == "" {
		key = defaultRedisKey
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &redisTarget{rdb: rdb, key: key}, nil
}

func (t *redisTarget) Name() string {
	return "redis"
}

// PublishReport stores the JSON report under the configured key, replacing the previous one.
func (t *redisTarget) PublishReport(ctx context.Context, report *Report) error {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, report, defaultTopFiles); err != nil {
		return err
	}
	return t.rdb.Set(ctx, t.key, buf.String(), 0).Err()
}

// Close releases the connection pool.
func (t *redisTarget) Close() error {
	return t.rdb.Close()
}
