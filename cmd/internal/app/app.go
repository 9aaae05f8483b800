// Package app wires the postboard server runtime: config, logging, storage and HTTP routes.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	authapi "postboard/cmd/internal/auth/api"
	"postboard/cmd/internal/auth/session"
	"postboard/cmd/internal/posts"
	"postboard/cmd/internal/upload"
	"postboard/cmd/security/password"
	"postboard/cmd/security/token"
)

// App is the postboard server runtime: it owns storage and HTTP wiring.
type App struct {
	cfg     Config
	log     Logger
	backend *backend
	handler http.Handler
}

// Option configures optional App dependencies.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the clock used for tokens, records and upload names.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger, opts ...Option) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(cfg.Password)
	if err != nil {
		return nil, err
	}
	tokens, err := token.NewManager(tokenConfig(cfg), o.now)
	if err != nil {
		return nil, err
	}

	be, err := newBackend(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	handler, err := buildHandler(log, cfg, be, hasher, tokens, o.now)
	if err != nil {
		_ = be.Close(ctx)
		return nil, err
	}

	return &App{cfg: cfg, log: log, backend: be, handler: handler}, nil
}

func buildHandler(log Logger, cfg Config, be *backend, hasher *password.Hasher, tokens *token.Manager, now func() time.Time) (http.Handler, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	sessions, err := session.NewService(be.users, hasher, tokens,
		session.WithLogger(log), session.WithClock(now))
	if err != nil {
		return nil, err
	}
	authHandler, err := authapi.NewHandler(log, cfg.Auth, sessions, tokens,
		authapi.WithMetrics(authapi.NewMetrics(reg)), authapi.WithClock(now))
	if err != nil {
		return nil, err
	}

	postSvc, err := posts.NewService(be.posts, posts.WithLogger(log), posts.WithClock(now))
	if err != nil {
		return nil, err
	}
	postHandler, err := posts.NewHandler(log, cfg.Posts, postSvc)
	if err != nil {
		return nil, err
	}

	uploads, err := upload.NewHandler(log, cfg.Upload, upload.WithClock(now))
	if err != nil {
		return nil, err
	}

	return newRouter(log, cfg, routes{
		auth:     authHandler,
		posts:    postHandler,
		upload:   uploads,
		backend:  be,
		registry: reg,
		metrics:  newHTTPMetrics(reg),
	}), nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Close releases storage resources. Run calls it on shutdown.
func (a *App) Close(ctx context.Context) error { return a.backend.Close(ctx) }

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_driver", a.backend.driver)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		_ = a.Close(context.Background())
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if err := a.Close(shutdownCtx); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
