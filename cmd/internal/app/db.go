package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"postboard/cmd/identity"
	"postboard/cmd/internal/posts"
)

// backend bundles the identity and posts stores of one storage driver.
// The app owns the underlying pool or handle; the stores do not close it.
type backend struct {
	driver string
	users  identity.Store
	posts  posts.Store
	pool   *pgxpool.Pool
	sqlite *sql.DB
}

// newBackend opens the storage selected by cfg.DBDriver.
func newBackend(ctx context.Context, cfg Config, log Logger) (*backend, error) {
	switch cfg.DBDriver {
	case "", DriverMemory:
		users := identity.NewMemoryStore()
		log.Info("db.enabled.memory_store")
		return &backend{driver: DriverMemory, users: users, posts: posts.NewMemoryStore(users)}, nil

	case DriverPostgres:
		return newPostgresBackend(ctx, cfg, log)

	case DriverSQLite:
		db, err := identity.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		users, err := identity.NewSQLiteStore(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		postStore, err := posts.NewSQLiteStore(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info("db.enabled.sqlite_store", "path", cfg.SQLitePath)
		return &backend{driver: DriverSQLite, users: users, posts: postStore, sqlite: db}, nil

	default:
		return nil, fmt.Errorf("config: unknown POSTBOARD_DB_DRIVER %q", cfg.DBDriver)
	}
}

func newPostgresBackend(ctx context.Context, cfg Config, log Logger) (*backend, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("config: POSTBOARD_DATABASE_URL is required for the postgres driver")
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.DBApplySchema {
		if err := identity.ApplyPostgresSchema(ctx, pool, cfg.DBSchema); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info("db.schema.applied", "schema", cfg.DBSchema)
	}

	users, err := identity.NewPostgresStore(pool, identity.WithSchema(cfg.DBSchema))
	if err != nil {
		pool.Close()
		return nil, err
	}
	postStore, err := posts.NewPostgresStore(pool, posts.WithSchema(cfg.DBSchema))
	if err != nil {
		pool.Close()
		return nil, err
	}

	log.Info("db.enabled.postgres_store", "schema", cfg.DBSchema)
	return &backend{driver: DriverPostgres, users: users, posts: postStore, pool: pool}, nil
}

// persistent reports whether data survives a restart.
func (b *backend) persistent() bool { return b.driver != DriverMemory }

// Ping checks the database within timeout. The memory driver is always ready.
func (b *backend) Ping(ctx context.Context, timeout time.Duration) error {
	switch {
	case b.pool != nil:
		return PingDB(ctx, b.pool, timeout)
	case b.sqlite != nil:
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return b.sqlite.PingContext(ctx)
	default:
		return nil
	}
}

// Close implements Store.
func (b *backend) Close(_ context.Context) error {
	if b.pool != nil {
		b.pool.Close()
	}
	if b.sqlite != nil {
		return b.sqlite.Close()
	}
	return nil
}

// NewDBPool builds a pgxpool with the configured limits and validates connectivity.
func NewDBPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if cfg.DBMaxConns > 0 {
		pcfg.MaxConns = cfg.DBMaxConns
	}
	if cfg.DBMinConns >= 0 {
		pcfg.MinConns = cfg.DBMinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	if err := PingDB(ctx, pool, 3*time.Second); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// PingDB checks if we can acquire a connection within timeout.
func PingDB(parent context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	conn.Release()
	return nil
}
