package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/neexbeast/airfare/internal/tools"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxBodyBytes     = 1 << 16
)

// Handlers holds the dependencies for all HTTP handlers. queries and routes
// may be nil when their backends are not configured.
type Handlers struct {
	runner  ToolRunner
	queries QueryLog
	routes  RouteStats
	log     *slog.Logger
}

// NewHandlers constructs Handlers.
func NewHandlers(runner ToolRunner, queries QueryLog, routes RouteStats, log *slog.Logger) *Handlers {
	return &Handlers{
		runner:  runner,
		queries: queries,
		routes:  routes,
		log:     log,
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GetPrompt handles GET /api/v1/prompt.
func (h *Handlers) GetPrompt(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"prompt": tools.Prompt})
}

// ListTools handles GET /api/v1/tools.
func (h *Handlers) ListTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"prompt": tools.Prompt,
		"tools":  h.runner.Tools(),
	})
}

// CallTool handles POST /api/v1/tools/{name}.
// The body is an optional JSON object of scalar arguments. Any tool that
// runs answers 200 with its envelope, including failed queries.
func (h *Handlers) CallTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	args, err := decodeArgs(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	env, err := h.runner.Execute(r.Context(), name, args)
	if err != nil {
		if errors.Is(err, tools.ErrToolNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
			return
		}
		h.log.Error("tool execution failed", "tool", name, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, env)
}

func decodeArgs(body io.Reader) (tools.Args, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return tools.Args{}, nil
		}
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}

	args := make(tools.Args, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
		case string:
			args[k] = val
		case json.Number:
			args[k] = val.String()
		case bool:
			args[k] = strconv.FormatBool(val)
		default:
			return nil, fmt.Errorf("argument %s must be a string", k)
		}
	}
	return args, nil
}

func listLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	return min(n, maxListLimit), nil
}

// RecentQueries handles GET /api/v1/queries/recent.
func (h *Handlers) RecentQueries(w http.ResponseWriter, r *http.Request) {
	if h.queries == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "query log is not enabled"})
		return
	}
	limit, err := listLimit(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	records, err := h.queries.RecentQueries(r.Context(), limit)
	if err != nil {
		h.log.Error("recent queries failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"queries": records})
}

// PopularRoutes handles GET /api/v1/stats/routes.
func (h *Handlers) PopularRoutes(w http.ResponseWriter, r *http.Request) {
	if h.routes == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "route statistics are not enabled"})
		return
	}
	limit, err := listLimit(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	routes, err := h.routes.Top(r.Context(), limit)
	if err != nil {
		h.log.Error("popular routes failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"routes": routes})
}

// Health reports connectivity of each configured backend. A nil pinger is
// reported as "disabled" and does not degrade the status.
type Health struct {
	db    Pinger
	redis Pinger
	log   *slog.Logger
}

// NewHealth constructs a Health handler.
func NewHealth(db, redis Pinger, log *slog.Logger) *Health {
	return &Health{db: db, redis: redis, log: log}
}

func (h *Health) check(ctx context.Context, name string, p Pinger) (string, bool) {
	if p == nil {
		return "disabled", true
	}
	if err := p.Ping(ctx); err != nil {
		h.log.Error("health check: ping failed", "backend", name, "err", err)
		return "error", false
	}
	return "ok", true
}

// ServeHTTP handles GET /api/v1/health.
func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	dbStatus, dbOK := h.check(ctx, "db", h.db)
	redisStatus, redisOK := h.check(ctx, "redis", h.redis)

	status, overall := http.StatusOK, "ok"
	if !dbOK || !redisOK {
		status, overall = http.StatusServiceUnavailable, "degraded"
	}

	writeJSON(w, status, map[string]string{
		"status": overall,
		"db":     dbStatus,
		"redis":  redisStatus,
	})
}
