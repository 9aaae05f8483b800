package posts

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"postboard/cmd/internal/auth/session"
)

// Service creates and reads posts.
type Service struct {
	log   *slog.Logger
	store Store
	now   func() time.Time
}

// Option configures optional Service dependencies.
type Option func(*Service)

// WithLogger sets the service logger (default slog.Default()).
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the clock used for post timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a Service over store.
func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("posts: nil store")
	}
	s := &Service{log: slog.Default(), store: store, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Create stores a post owned by owner.
//
// Missing title or content, or a title over MaxTitleRunes, returns a
// *ValidationError. Storage failures return a *PersistenceError.
func (s *Service) Create(ctx context.Context, owner session.Identity, in CreateInput) (Post, error) {
	const op = "posts.Create"

	if owner.UserID <= 0 {
		return Post{}, ErrUnauthenticated
	}

	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		return Post{}, &ValidationError{Field: "title", Msg: "is required"}
	case utf8.RuneCountInString(title) > MaxTitleRunes:
		return Post{}, &ValidationError{Field: "title", Msg: "is too long"}
	case strings.TrimSpace(in.Content) == "":
		return Post{}, &ValidationError{Field: "content", Msg: "is required"}
	}

	p, err := s.store.CreatePost(ctx, NewPost{
		UserID:  owner.UserID,
		Title:   title,
		Content: in.Content,
		Now:     s.now().UTC(),
	})
	if err != nil {
		return Post{}, &PersistenceError{Op: op, Err: err}
	}

	s.log.Info("posts.create.ok", "post_id", p.ID, "user_id", p.UserID)
	return p, nil
}

// Get returns the post with id, or ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (Post, error) {
	const op = "posts.Get"

	if id <= 0 {
		return Post{}, ErrNotFound
	}
	p, err := s.store.GetPost(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Post{}, ErrNotFound
		}
		return Post{}, &PersistenceError{Op: op, Err: err}
	}
	return p, nil
}
