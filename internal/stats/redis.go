package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// Connect opens the Redis client that backs route statistics. The database
// index comes from the URL path; the first ping is bounded so an unreachable
// server fails startup quickly.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing route stats redis URL: %w", err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = pingTimeout
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging route stats redis at %s: %w", opts.Addr, err)
	}

	return client, nil
}
