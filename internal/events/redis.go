package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"degenecho/internal/config"
)

// RedisPublisher mirrors events onto a Redis pub/sub channel for consumers
// outside this process.
type RedisPublisher struct {
	Client  *redis.Client
	Channel string
}

func NewRedisPublisher(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*RedisPublisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	if logger != nil {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.String("channel", cfg.Channel))
	}
	return &RedisPublisher{Client: rdb, Channel: cfg.Channel}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	if p == nil || p.Client == nil {
		return nil
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.Client.Publish(ctx, p.Channel, raw).Err()
}

func (p *RedisPublisher) Close() error {
	if p == nil || p.Client == nil {
		return nil
	}
	return p.Client.Close()
}
