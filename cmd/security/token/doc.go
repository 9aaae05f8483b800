// Package token issues and verifies postboard bearer tokens.
//
// Tokens are HS256 JWTs carrying the user id, username, issue time, expiry,
// issuer and a random token id. They are stateless: nothing is stored server-side
// and a token stays valid until it expires.
//
// Verification checks the signature first, then enforces expiry against the
// manager's clock on its own, so a correctly signed token is still rejected once
// now >= exp. Every failure wraps ErrInvalid and one category:
// ErrMissingToken, ErrMalformedToken, ErrBadSignature or ErrExpired.
//
// Environment (read by the app config layer):
// - POSTBOARD_JWT_SECRET: signing secret, at least 32 bytes.
// - POSTBOARD_JWT_TTL: token lifetime (Go duration).
package token
