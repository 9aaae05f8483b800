package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"postboard/cmd/identity"
	"postboard/cmd/security/password"
	"postboard/cmd/security/token"
)

// PasswordHasher is the subset of *password.Hasher the service needs.
type PasswordHasher interface {
	Hash(ctx context.Context, plain string) (string, error)
	Verify(ctx context.Context, encoded, plain string) bool
	DummyVerify(ctx context.Context, plain string)
	NeedsRehash(encoded string) bool
	Rehash(ctx context.Context, plain string) (string, error)
}

// TokenIssuer is the subset of *token.Manager the service needs.
type TokenIssuer interface {
	Issue(userID int64, username string) (token.Issued, error)
}

// Service implements register and login over a credential store.
type Service struct {
	log    *slog.Logger
	users  identity.Store
	hasher PasswordHasher
	tokens TokenIssuer
	now    func() time.Time
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

// WithClock overrides the clock used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a Service. All three dependencies are required.
func NewService(users identity.Store, hasher PasswordHasher, tokens TokenIssuer, opts ...Option) (*Service, error) {
	if users == nil || hasher == nil || tokens == nil {
		return nil, errors.New("session: store, hasher and token issuer are required")
	}
	s := &Service{
		log:    slog.Default(),
		users:  users,
		hasher: hasher,
		tokens: tokens,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// RegisterInput is a self-registration request. Password is plaintext and is
// hashed before it reaches the store.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register creates an unprivileged account and returns it.
//
// A taken username or email returns an identity.ConflictError. Unusable input
// returns a *ValidationError.
func (s *Service) Register(ctx context.Context, in RegisterInput) (identity.User, error) {
	const op = "session.Register"

	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	switch {
	case username == "":
		return identity.User{}, &ValidationError{Field: "username", Msg: "is required"}
	case email == "":
		return identity.User{}, &ValidationError{Field: "email", Msg: "is required"}
	case in.Password == "":
		return identity.User{}, &ValidationError{Field: "password", Msg: "is required"}
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		if password.IsPolicyError(err) {
			return identity.User{}, &ValidationError{Field: "password", Msg: policyMessage(err), Err: err}
		}
		return identity.User{}, fmt.Errorf("%s: hash: %w", op, err)
	}

	res, err := s.users.CreateUser(ctx, identity.CreateUserInput{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Now:          s.now().UTC(),
	})
	if err != nil {
		switch {
		case identity.IsConflict(err):
			return identity.User{}, err
		case identity.IsInvalidInput(err):
			var oe identity.OpError
			msg := "is invalid"
			if errors.As(err, &oe) && oe.Msg != "" {
				msg = oe.Msg
			}
			return identity.User{}, &ValidationError{Msg: msg, Err: err}
		default:
			return identity.User{}, fmt.Errorf("%s: %w", op, err)
		}
	}
	return res.User, nil
}

// LoginResult is a successful login.
type LoginResult struct {
	User      identity.User
	Token     string
	ExpiresAt time.Time
}

// Login resolves login against username and email and verifies password.
// Every credential mismatch returns ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, login, plain string) (LoginResult, error) {
	const op = "session.Login"

	if strings.TrimSpace(login) == "" || plain == "" {
		s.hasher.DummyVerify(ctx, plain)
		return LoginResult{}, ErrInvalidCredentials
	}

	ua, err := s.users.GetUserAuthByLogin(ctx, login)
	if err != nil {
		if identity.IsNotFound(err) {
			s.hasher.DummyVerify(ctx, plain)
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("%s: lookup: %w", op, err)
	}

	if !s.hasher.Verify(ctx, ua.PasswordHash, plain) {
		return LoginResult{}, ErrInvalidCredentials
	}

	s.upgradeHash(ctx, ua, plain)

	issued, err := s.tokens.Issue(ua.User.ID, ua.User.Username)
	if err != nil {
		return LoginResult{}, fmt.Errorf("%s: issue token: %w", op, err)
	}

	return LoginResult{
		User:      ua.User,
		Token:     issued.Token,
		ExpiresAt: issued.Claims.ExpiresAt,
	}, nil
}

// upgradeHash replaces legacy or outdated hashes after a successful verification.
// Failures are logged and never fail the login.
func (s *Service) upgradeHash(ctx context.Context, ua identity.UserAuth, plain string) {
	if !s.hasher.NeedsRehash(ua.PasswordHash) {
		return
	}
	hash, err := s.hasher.Rehash(ctx, plain)
	if err != nil {
		s.log.Warn("auth.rehash.fail", "user_id", ua.User.ID, "err", err)
		return
	}
	if err := s.users.UpdatePasswordHash(ctx, ua.User.ID, hash, s.now().UTC()); err != nil {
		s.log.Warn("auth.rehash.store.fail", "user_id", ua.User.ID, "err", err)
		return
	}
	s.log.Info("auth.rehash.ok", "user_id", ua.User.ID)
}

func policyMessage(err error) string {
	switch {
	case errors.Is(err, password.ErrPasswordTooShort):
		return "is too short"
	case errors.Is(err, password.ErrPasswordTooLong):
		return "is too long"
	default:
		return "is too weak"
	}
}
