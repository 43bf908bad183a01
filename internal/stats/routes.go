package stats

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/neexbeast/airfare/internal/tools"
)

const (
	routesKey = "airfare:routes:popular"
	separator = "→"
)

// RouteCount is how many successful queries a directed route has served.
type RouteCount struct {
	StartCity string `json:"start_city"`
	EndCity   string `json:"end_city"`
	Count     int64  `json:"count"`
}

// Routes counts queried routes in a Redis sorted set. Fares themselves are
// never stored.
type Routes struct {
	client *redis.Client
}

// NewRoutes constructs a Routes counter.
func NewRoutes(client *redis.Client) *Routes {
	return &Routes{client: client}
}

func member(startCity, endCity string) string {
	return startCity + separator + endCity
}

// Increment bumps the score of startCity → endCity.
func (r *Routes) Increment(ctx context.Context, startCity, endCity string) error {
	if err := r.client.ZIncrBy(ctx, routesKey, 1, member(startCity, endCity)).Err(); err != nil {
		return fmt.Errorf("incrementing route %s-%s: %w", startCity, endCity, err)
	}
	return nil
}

// Top returns up to limit routes ordered by descending count.
func (r *Routes) Top(ctx context.Context, limit int) ([]RouteCount, error) {
	if limit <= 0 {
		return []RouteCount{}, nil
	}

	zs, err := r.client.ZRevRangeWithScores(ctx, routesKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading popular routes: %w", err)
	}

	out := make([]RouteCount, 0, len(zs))
	for _, z := range zs {
		m, ok := z.Member.(string)
		if !ok {
			continue
		}
		from, to, ok := strings.Cut(m, separator)
		if !ok {
			continue
		}
		out = append(out, RouteCount{StartCity: from, EndCity: to, Count: int64(z.Score)})
	}
	return out, nil
}

// ObserveCall counts successful calls that named both cities.
func (r *Routes) ObserveCall(ctx context.Context, call tools.Call) error {
	if !call.Success || call.StartCity == "" || call.EndCity == "" {
		return nil
	}
	return r.Increment(ctx, call.StartCity, call.EndCity)
}
