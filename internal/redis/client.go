package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Client wraps the shared go-redis client used by the feed cache and the
// activity stream.
type Client struct {
	*redis.Client
}

// NewClient creates a client from a URL such as redis://:password@localhost:6379/0.
func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	return &Client{Client: redis.NewClient(opts)}, nil
}

// Ping fails fast at startup when Redis is unreachable.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}
