package posts

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteStore implements Store over a handle opened by identity.OpenSQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps db. The store does not own db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("posts: nil db")
	}
	return &SQLiteStore{db: db}, nil
}

// CreatePost implements Store.
func (s *SQLiteStore) CreatePost(ctx context.Context, in NewPost) (Post, error) {
	ts := in.Now.UTC().UnixMilli()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (user_id, title, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		in.UserID, in.Title, in.Content, ts, ts,
	)
	if err != nil {
		if isSQLiteForeignKeyViolation(err) {
			return Post{}, ErrOwnerNotFound
		}
		return Post{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Post{}, err
	}
	return Post{
		ID:        id,
		UserID:    in.UserID,
		Title:     in.Title,
		Content:   in.Content,
		CreatedAt: fromMillis(ts),
		UpdatedAt: fromMillis(ts),
	}, nil
}

// GetPost implements Store.
func (s *SQLiteStore) GetPost(ctx context.Context, id int64) (Post, error) {
	var (
		p         Post
		createdAt int64
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, content, likes_count, created_at, updated_at FROM posts WHERE id = ?`,
		id,
	).Scan(&p.ID, &p.UserID, &p.Title, &p.Content, &p.LikesCount, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Post{}, ErrNotFound
		}
		return Post{}, err
	}
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return p, nil
}

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

func isSQLiteForeignKeyViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(strings.ToLower(sqliteErr.Error()), "foreign key constraint failed")
	default:
		return false
	}
}

var _ Store = (*SQLiteStore)(nil)
