package api

import (
	"context"

	"github.com/neexbeast/airfare/internal/query"
	"github.com/neexbeast/airfare/internal/stats"
	"github.com/neexbeast/airfare/internal/storage"
	"github.com/neexbeast/airfare/internal/tools"
)

// ToolRunner lists and executes named tools.
type ToolRunner interface {
	Tools() []tools.Tool
	Execute(ctx context.Context, name string, args tools.Args) (query.Envelope, error)
}

// QueryLog reads recent tool invocations.
type QueryLog interface {
	RecentQueries(ctx context.Context, limit int) ([]storage.QueryRecord, error)
}

// RouteStats reads the most queried routes.
type RouteStats interface {
	Top(ctx context.Context, limit int) ([]stats.RouteCount, error)
}

// Pinger checks connectivity to a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}
