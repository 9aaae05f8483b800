package posts

import (
	"context"
	"sync"

	"postboard/cmd/identity"
)

// OwnerLookup resolves post owners. identity.Store satisfies it.
type OwnerLookup interface {
	GetUserByID(ctx context.Context, id int64) (identity.User, error)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	lastID int64
	posts  map[int64]Post
	owners OwnerLookup
}

// NewMemoryStore returns an empty MemoryStore. When owners is non-nil, unknown
// owners are rejected with ErrOwnerNotFound like a foreign key would.
func NewMemoryStore(owners OwnerLookup) *MemoryStore {
	return &MemoryStore{
		posts:  make(map[int64]Post),
		owners: owners,
	}
}

// CreatePost implements Store.
func (s *MemoryStore) CreatePost(ctx context.Context, in NewPost) (Post, error) {
	if err := ctx.Err(); err != nil {
		return Post{}, err
	}
	if s.owners != nil {
		if _, err := s.owners.GetUserByID(ctx, in.UserID); err != nil {
			if identity.IsNotFound(err) {
				return Post{}, ErrOwnerNotFound
			}
			return Post{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	p := Post{
		ID:        s.lastID,
		UserID:    in.UserID,
		Title:     in.Title,
		Content:   in.Content,
		CreatedAt: in.Now,
		UpdatedAt: in.Now,
	}
	s.posts[p.ID] = p
	return p, nil
}

// GetPost implements Store.
func (s *MemoryStore) GetPost(ctx context.Context, id int64) (Post, error) {
	if err := ctx.Err(); err != nil {
		return Post{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return Post{}, ErrNotFound
	}
	return p, nil
}

var _ Store = (*MemoryStore)(nil)
