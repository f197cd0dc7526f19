package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"social-publisher/infrastructure/configuration"

	"github.com/redis/go-redis/v9"
)

// NewCache connects to Redis using the redisClient configuration section.
func NewCache(ctx context.Context) (*redis.Client, error) {
	cfg := configuration.C.RedisClient
	db, _ := strconv.Atoi(cfg.DatabaseName)
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Pinger adapts a Redis client to the health check.
type Pinger struct{ Client *redis.Client }

func (p Pinger) PingContext(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}
