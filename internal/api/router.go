package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	BearerToken        string
	RateLimitPerMinute int
}

// NewRouter builds the chi router. Health and metrics are unauthenticated;
// everything under /api/v1 except health requires bearer auth when a token
// is configured. Requests are rate limited per client IP.
func NewRouter(handlers *Handlers, cfg RouterConfig, health *Health, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLogger(log))
	if cfg.RateLimitPerMinute > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))
	}

	r.Get("/api/v1/health", health.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(cfg.BearerToken))
		r.Get("/api/v1/prompt", handlers.GetPrompt)
		r.Get("/api/v1/tools", handlers.ListTools)
		r.Post("/api/v1/tools/{name}", handlers.CallTool)
		r.Get("/api/v1/queries/recent", handlers.RecentQueries)
		r.Get("/api/v1/stats/routes", handlers.PopularRoutes)
	})

	return r
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
