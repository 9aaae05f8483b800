package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"postboard/cmd/identity"
)

// PostgresStore implements Store over PostgreSQL. The pool is owned by the caller.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

// WithSchema sets the Postgres schema holding the posts table (default "public").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if !identity.ValidSchemaName(schema) {
			return fmt.Errorf("posts: invalid schema identifier %q", schema)
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: "public"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, errors.New("posts: nil pool")
	}
	return st, nil
}

func (s *PostgresStore) table() string {
	return pgx.Identifier{s.schema, "posts"}.Sanitize()
}

// CreatePost implements Store.
func (s *PostgresStore) CreatePost(ctx context.Context, in NewPost) (Post, error) {
	p := Post{
		UserID:    in.UserID,
		Title:     in.Title,
		Content:   in.Content,
		CreatedAt: in.Now,
		UpdatedAt: in.Now,
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO `+s.table()+` (user_id, title, content, created_at, updated_at)
		   VALUES ($1, $2, $3, $4, $4)
		   RETURNING id, likes_count`,
		in.UserID, in.Title, in.Content, in.Now,
	).Scan(&p.ID, &p.LikesCount)
	if err != nil {
		if isPgForeignKeyViolation(err) {
			return Post{}, ErrOwnerNotFound
		}
		return Post{}, err
	}
	return p, nil
}

// GetPost implements Store.
func (s *PostgresStore) GetPost(ctx context.Context, id int64) (Post, error) {
	var p Post
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, title, content, likes_count, created_at, updated_at
		   FROM `+s.table()+`
		  WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.UserID, &p.Title, &p.Content, &p.LikesCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, ErrNotFound
		}
		return Post{}, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func isPgForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503" // foreign_key_violation
}

var _ Store = (*PostgresStore)(nil)
