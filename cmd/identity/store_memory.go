package identity

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. A single mutex serializes writes, which
// gives the same uniqueness guarantee a database constraint would.
type MemoryStore struct {
	mu         sync.RWMutex
	lastID     int64
	users      map[int64]UserAuth
	byUsername map[string]int64
	byEmail    map[string]int64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[int64]UserAuth),
		byUsername: make(map[string]int64),
		byEmail:    make(map[string]int64),
	}
}

// CreateUser implements Store.
func (s *MemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (CreateUserResult, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return CreateUserResult{}, err
	}
	row, err := prepareCreateUser(op, in)
	if err != nil {
		return CreateUserResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byUsername[row.usernameNorm]; taken {
		return CreateUserResult{}, ConflictError{Op: op, Field: "username"}
	}
	if _, taken := s.byEmail[row.emailNorm]; taken {
		return CreateUserResult{}, ConflictError{Op: op, Field: "email"}
	}

	s.lastID++
	u := User{
		ID:           s.lastID,
		Username:     row.username,
		UsernameNorm: row.usernameNorm,
		Email:        row.email,
		EmailNorm:    row.emailNorm,
		CreatedAt:    row.now,
		UpdatedAt:    row.now,
	}
	s.users[u.ID] = UserAuth{User: u, PasswordHash: row.passwordHash}
	s.byUsername[row.usernameNorm] = u.ID
	s.byEmail[row.emailNorm] = u.ID

	return CreateUserResult{User: u}, nil
}

// GetUserAuthByLogin implements Store.
func (s *MemoryStore) GetUserAuthByLogin(ctx context.Context, login string) (UserAuth, error) {
	const op = "identity.GetUserAuthByLogin"

	if err := ctx.Err(); err != nil {
		return UserAuth{}, err
	}
	if strings.TrimSpace(login) == "" {
		return UserAuth{}, NotFoundError{Op: op, Resource: "user"}
	}
	un, en := loginKeys(login)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.byUsername[un]; ok && un != "" {
		return s.users[id], nil
	}
	if id, ok := s.byEmail[en]; ok && en != "" {
		return s.users[id], nil
	}
	return UserAuth{}, NotFoundError{Op: op, Resource: "user"}
}

// GetUserByID implements Store.
func (s *MemoryStore) GetUserByID(ctx context.Context, id int64) (User, error) {
	const op = "identity.GetUserByID"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ua, ok := s.users[id]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return ua.User, nil
}

// UpdatePasswordHash implements Store.
func (s *MemoryStore) UpdatePasswordHash(ctx context.Context, id int64, hash string, now time.Time) error {
	const op = "identity.UpdatePasswordHash"

	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(hash) == "" {
		return invalid(op, "password hash is required")
	}
	if now.IsZero() {
		now = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ua, ok := s.users[id]
	if !ok {
		return NotFoundError{Op: op, Resource: "user"}
	}
	ua.PasswordHash = hash
	ua.User.UpdatedAt = now.UTC()
	s.users[id] = ua
	return nil
}

var _ Store = (*MemoryStore)(nil)
