package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// OpenSQLite opens (creating if needed) the SQLite database at path and applies
// the embedded schema. The returned handle is shared by the identity and posts
// stores; the caller closes it.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("identity: sqlite path is required")
	}

	dsn := filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return db, nil
}

// SQLiteStore implements identity persistence over SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps a handle returned by OpenSQLite. The store does not own db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("identity: nil db")
	}
	return &SQLiteStore{db: db}, nil
}

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

// CreateUser implements Store.
func (s *SQLiteStore) CreateUser(ctx context.Context, in CreateUserInput) (CreateUserResult, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return CreateUserResult{}, err
	}
	row, err := prepareCreateUser(op, in)
	if err != nil {
		return CreateUserResult{}, err
	}
	ts := toMillis(row.now)

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (
		     username, username_norm, email, email_norm, password_hash, is_admin, created_at, updated_at
		   ) VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		row.username, row.usernameNorm, row.email, row.emailNorm, row.passwordHash, ts, ts,
	)
	if err != nil {
		if field, ok := sqliteClassifyUniqueViolation(err); ok {
			return CreateUserResult{}, ConflictError{Op: op, Field: field}
		}
		return CreateUserResult{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return CreateUserResult{}, err
	}

	return CreateUserResult{User: User{
		ID:           id,
		Username:     row.username,
		UsernameNorm: row.usernameNorm,
		Email:        row.email,
		EmailNorm:    row.emailNorm,
		CreatedAt:    fromMillis(ts),
		UpdatedAt:    fromMillis(ts),
	}}, nil
}

const sqliteUserColumns = `id, username, username_norm, email, email_norm, password_hash,
		        bio, profile_image_url, is_admin, created_at, updated_at`

// GetUserAuthByLogin implements Store.
func (s *SQLiteStore) GetUserAuthByLogin(ctx context.Context, login string) (UserAuth, error) {
	const op = "identity.GetUserAuthByLogin"

	if err := ctx.Err(); err != nil {
		return UserAuth{}, err
	}
	un, en := loginKeys(login)
	if un == "" && en == "" {
		return UserAuth{}, NotFoundError{Op: op, Resource: "user"}
	}

	ua, err := sqliteScanUserAuth(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteUserColumns+`
		   FROM users
		  WHERE username_norm = ?1 OR email_norm = ?2
		  ORDER BY CASE WHEN username_norm = ?1 THEN 0 ELSE 1 END
		  LIMIT 1`,
		un, en,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UserAuth{}, NotFoundError{Op: op, Resource: "user"}
		}
		return UserAuth{}, err
	}
	return ua, nil
}

// GetUserByID implements Store.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (User, error) {
	const op = "identity.GetUserByID"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	ua, err := sqliteScanUserAuth(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteUserColumns+` FROM users WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, err
	}
	return ua.User, nil
}

// UpdatePasswordHash implements Store.
func (s *SQLiteStore) UpdatePasswordHash(ctx context.Context, id int64, hash string, now time.Time) error {
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

	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, toMillis(now), id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}

func sqliteScanUserAuth(row *sql.Row) (UserAuth, error) {
	var (
		ua         UserAuth
		bio        sql.NullString
		profileURL sql.NullString
		isAdmin    int64
		createdAt  int64
		updatedAt  int64
	)
	u := &ua.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.UsernameNorm,
		&u.Email,
		&u.EmailNorm,
		&ua.PasswordHash,
		&bio,
		&profileURL,
		&isAdmin,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return UserAuth{}, err
	}
	if bio.Valid {
		u.Bio = &bio.String
	}
	if profileURL.Valid {
		u.ProfileImageURL = &profileURL.String
	}
	u.IsAdmin = isAdmin != 0
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return ua, nil
}

func sqliteClassifyUniqueViolation(err error) (field string, ok bool) {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return "", false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT:
	default:
		return "", false
	}

	msg := strings.ToLower(sqliteErr.Error())
	if !strings.Contains(msg, "unique constraint failed") {
		return "", false
	}
	switch {
	case strings.Contains(msg, "users.username_norm"):
		return "username", true
	case strings.Contains(msg, "users.email_norm"):
		return "email", true
	default:
		return "unique", true
	}
}

var _ Store = (*SQLiteStore)(nil)
