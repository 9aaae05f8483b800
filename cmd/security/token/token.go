package token

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretBytes is the minimum HMAC-SHA256 secret size.
// Measured in bytes, not runes: the secret is used as raw bytes.
const MinSecretBytes = 32

// Oversized Authorization values are rejected before any decoding.
const maxTokenBytes = 4096

// Config is the explicit configuration of a Manager.
type Config struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
}

// Validate enforces the minimum security requirements of cfg.
func (c Config) Validate() error {
	secret := strings.TrimSpace(string(c.Secret))
	if secret == "" {
		return ErrSecretMissing
	}
	if len(secret) < MinSecretBytes {
		return ErrSecretTooShort
	}
	if c.TTL <= 0 {
		return ErrInvalidTTL
	}
	return nil
}

// Claims is the identity envelope carried by a token.
type Claims struct {
	UserID    int64
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
	TokenID   string
}

// Issued is a freshly signed token and the claims it carries.
type Issued struct {
	Token  string
	Claims Claims
}

// Manager signs and verifies tokens with a single HS256 secret.
type Manager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

type jwtClaims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
}

// NewManager validates cfg and returns a Manager. A nil now uses time.Now.
func NewManager(cfg Config, now func() time.Time) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &Manager{
		secret: []byte(strings.TrimSpace(string(cfg.Secret))),
		ttl:    cfg.TTL,
		issuer: strings.TrimSpace(cfg.Issuer),
		now:    now,
	}, nil
}

// TTL returns the lifetime applied to issued tokens.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue signs a token for the given user. JWT dates have whole-second precision, so
// exp is rounded up: the token is never rejected before TTL has elapsed.
func (m *Manager) Issue(userID int64, username string) (Issued, error) {
	if userID <= 0 || strings.TrimSpace(username) == "" {
		return Issued{}, errors.New("token: user id and username are required")
	}

	now := m.now().UTC()
	iat := jwt.NewNumericDate(now)
	exp := jwt.NewNumericDate(ceilSecond(now.Add(m.ttl)))

	c := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  iat,
			ExpiresAt: exp,
			ID:        uuid.NewString(),
		},
		UserID:   userID,
		Username: username,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
	if err != nil {
		return Issued{}, err
	}

	return Issued{
		Token: signed,
		Claims: Claims{
			UserID:    userID,
			Username:  username,
			IssuedAt:  iat.Time.UTC(),
			ExpiresAt: exp.Time.UTC(),
			TokenID:   c.ID,
		},
	}, nil
}

func ceilSecond(t time.Time) time.Time {
	if s := t.Truncate(time.Second); !s.Equal(t) {
		return s.Add(time.Second)
	}
	return t
}

// Verify checks the signature of raw, then its expiry, and returns its claims.
func (m *Manager) Verify(raw string) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, ErrMissingToken
	}
	if len(raw) > maxTokenBytes {
		return Claims{}, malformed("token too large")
	}

	var c jwtClaims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		// Expiry is enforced below against m.now.
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	if c.ExpiresAt == nil {
		return Claims{}, malformed("exp is required")
	}
	exp := c.ExpiresAt.Time.UTC()
	if !m.now().Before(exp) {
		return Claims{}, ErrExpired
	}

	if c.Issuer != m.issuer {
		return Claims{}, malformed("issuer mismatch")
	}
	if c.UserID <= 0 || strings.TrimSpace(c.Username) == "" {
		return Claims{}, malformed("identity claims are required")
	}
	if c.Subject != strconv.FormatInt(c.UserID, 10) {
		return Claims{}, malformed("subject mismatch")
	}

	out := Claims{
		UserID:    c.UserID,
		Username:  c.Username,
		ExpiresAt: exp,
		TokenID:   c.ID,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time.UTC()
	}
	return out, nil
}

// mapJWTError translates jwt library errors to verification categories.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return ErrBadSignature
	}
	return ErrMalformedToken
}
