package posts

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// MaxTitleRunes bounds post titles, matching the users/posts schema.
const MaxTitleRunes = 255

// Post is a stored post.
type Post struct {
	ID         int64
	UserID     int64
	Title      string
	Content    string
	LikesCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CreateInput is the client-controlled part of a new post.
type CreateInput struct {
	Title   string
	Content string
}

// NewPost is a validated post ready to be stored.
type NewPost struct {
	UserID  int64
	Title   string
	Content string
	Now     time.Time
}

// Store persists posts.
type Store interface {
	CreatePost(ctx context.Context, in NewPost) (Post, error)
	GetPost(ctx context.Context, id int64) (Post, error)
}

var (
	// ErrValidation is the kind of every ValidationError.
	ErrValidation = errors.New("posts: validation failed")

	// ErrUnauthenticated is returned when no verified identity is supplied.
	ErrUnauthenticated = errors.New("posts: no verified identity")

	// ErrNotFound is returned by GetPost for an unknown id.
	ErrNotFound = errors.New("posts: not found")

	// ErrOwnerNotFound is returned by stores when the owning user does not exist.
	ErrOwnerNotFound = errors.New("posts: owner does not exist")
)

// ValidationError reports an unusable post field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s %s", ErrValidation, e.Field, e.Msg)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// PersistenceError wraps a storage failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: persistence: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
