package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authapi "postboard/cmd/internal/auth/api"
	"postboard/cmd/internal/posts"
	"postboard/cmd/internal/upload"
)

type routes struct {
	auth     *authapi.Handler
	posts    *posts.Handler
	upload   *upload.Handler
	backend  *backend
	registry *prometheus.Registry
	metrics  *httpMetrics
}

func newRouter(log Logger, cfg Config, rt routes) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(WithRequestLogging(log, rt.metrics))
	r.Use(middleware.Recoverer)
	r.Use(WithSecurityHeaders)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.ReadinessRequireDB && !rt.backend.persistent() {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}
		if err := rt.backend.Ping(r.Context(), 2*time.Second); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			log.Info("readyz.db.not_ready", "err", err)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		rt.auth.Routes(r)
		r.Route("/posts", func(r chi.Router) {
			r.Use(rt.auth.RequireAuth)
			rt.posts.Routes(r)
		})
	})

	r.Method(http.MethodPost, "/upload", rt.upload)

	return r
}
