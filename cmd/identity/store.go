package identity

import (
	"context"
	"strings"
	"time"
)

// User is a registered account. The password hash is only exposed through UserAuth.
type User struct {
	ID           int64
	Username     string
	UsernameNorm string
	Email        string
	EmailNorm    string

	Bio             *string
	ProfileImageURL *string

	// IsAdmin is never set by self-registration.
	IsAdmin bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserAuth is a user together with its stored password hash, for login only.
type UserAuth struct {
	User         User
	PasswordHash string
}

// CreateUserInput describes a new account. PasswordHash must already be hashed.
type CreateUserInput struct {
	Username     string
	Email        string
	PasswordHash string
	Now          time.Time
}

// CreateUserResult returns the created user.
type CreateUserResult struct {
	User User
}

// Store is the credential persistence boundary.
type Store interface {
	// CreateUser inserts a user. A taken username or email returns ConflictError.
	CreateUser(ctx context.Context, in CreateUserInput) (CreateUserResult, error)

	// GetUserAuthByLogin resolves login against username and email, preferring a
	// username match. A miss returns NotFoundError.
	GetUserAuthByLogin(ctx context.Context, login string) (UserAuth, error)

	GetUserByID(ctx context.Context, id int64) (User, error)

	// UpdatePasswordHash replaces the stored hash, used to upgrade legacy hashes on login.
	UpdatePasswordHash(ctx context.Context, id int64, hash string, now time.Time) error
}

// newUserRow is a validated, normalized CreateUserInput shared by all backends.
type newUserRow struct {
	username     string
	usernameNorm string
	email        string
	emailNorm    string
	passwordHash string
	now          time.Time
}

func prepareCreateUser(op string, in CreateUserInput) (newUserRow, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	if username == "" {
		return newUserRow{}, invalid(op, "username is required")
	}
	if email == "" {
		return newUserRow{}, invalid(op, "email is required")
	}
	if runeLen(username) > MaxUsernameRunes {
		return newUserRow{}, invalid(op, "username too long")
	}
	if runeLen(email) > MaxEmailRunes {
		return newUserRow{}, invalid(op, "email too long")
	}
	if !plausibleEmail(email) {
		return newUserRow{}, invalid(op, "email is malformed")
	}
	if strings.TrimSpace(in.PasswordHash) == "" {
		return newUserRow{}, invalid(op, "password hash is required")
	}

	usernameNorm, err := NormalizeUsername(username)
	if err != nil {
		return newUserRow{}, invalid(op, "username contains disallowed characters")
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	return newUserRow{
		username:     username,
		usernameNorm: usernameNorm,
		email:        email,
		emailNorm:    NormalizeEmail(email),
		passwordHash: in.PasswordHash,
		now:          now.UTC(),
	}, nil
}
