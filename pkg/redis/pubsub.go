package redis

import (
	"context"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
)

// Publish returns how many subscribers received payload.
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) (int64, error) {
	if c.store == nil {
		return 0, errNotInitialized
	}
	return c.store.Publish(ctx, channel, payload).Result()
}

// SubscribePattern waits for the PSUBSCRIBE confirmation before returning.
// The message channel closes when the returned closer is closed.
func (c *Client) SubscribePattern(ctx context.Context, pattern string) (<-chan *redis.Message, io.Closer, error) {
	if c.raw == nil {
		return nil, nil, errNotInitialized
	}
	sub := c.raw.PSubscribe(ctx, pattern)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("psubscribe %s: %w", pattern, err)
	}
	return sub.Channel(), sub, nil
}
