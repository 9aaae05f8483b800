package token

import (
	"errors"
	"fmt"
)

// Configuration errors.
var (
	ErrSecretMissing  = errors.New("token secret missing")
	ErrSecretTooShort = errors.New("token secret too short")
	ErrInvalidTTL     = errors.New("token ttl must be positive")
)

// ErrInvalid is the common parent of every verification failure.
var ErrInvalid = errors.New("invalid token")

// Verification failure categories.
var (
	ErrMissingToken   = &categoryError{name: "missing token"}
	ErrMalformedToken = &categoryError{name: "malformed token"}
	ErrBadSignature   = &categoryError{name: "bad signature"}
	ErrExpired        = &categoryError{name: "token expired"}
)

type categoryError struct{ name string }

func (e *categoryError) Error() string { return e.name }

func (e *categoryError) Unwrap() error { return ErrInvalid }

// Reason returns a stable, low-cardinality label for err, suitable for metrics and logs.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissingToken):
		return "missing"
	case errors.Is(err, ErrMalformedToken):
		return "malformed"
	case errors.Is(err, ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, ErrExpired):
		return "expired"
	default:
		return "other"
	}
}

func malformed(msg string) error {
	return fmt.Errorf("%w: %s", ErrMalformedToken, msg)
}
