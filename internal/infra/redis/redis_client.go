package redis

import (
	"context"

	"github.com/go-redis/redis/v8"

	"github.com/7HR4IZ3/checkaroundme-sub001/internal/config"
)

// Client wraps the go-redis client so infra consumers in this package can
// share one connection.
type Client struct {
	cli *redis.Client
}

func NewClient(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	opts := &redis.Options{
		Addr:     cfg.URL,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Client{cli: c}, nil
}

func (c *Client) Close() error { return c.cli.Close() }
