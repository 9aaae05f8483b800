package identity

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/secure/precis"
)

// Length limits, in runes, matching the varchar(255) columns of the schema.
const (
	MaxUsernameRunes = 255
	MaxEmailRunes    = 255
)

var errEmptyIdentifier = errors.New("empty identifier")

// NormalizeUsername canonicalizes a username with the PRECIS UsernameCaseMapped
// profile (width mapping, case folding, NFC). Usernames that the profile rejects,
// such as ones containing spaces, return an error.
func NormalizeUsername(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errEmptyIdentifier
	}
	return precis.UsernameCaseMapped.String(s)
}

// NormalizeEmail performs case-insensitive canonicalization.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// loginKeys derives both lookup keys for an identifier that may be a username or an email.
// A key that cannot be derived is returned empty and matches nothing.
func loginKeys(login string) (usernameNorm, emailNorm string) {
	if n, err := NormalizeUsername(login); err == nil {
		usernameNorm = n
	}
	emailNorm = NormalizeEmail(login)
	return usernameNorm, emailNorm
}

func plausibleEmail(s string) bool {
	at := strings.LastIndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return false
	}
	return strings.IndexFunc(s, unicode.IsSpace) < 0
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
