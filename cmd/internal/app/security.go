package app

import (
	"errors"
	"fmt"

	"postboard/cmd/security/token"
)

// ValidateSecurityConfig fails startup when the token configuration is unsafe.
// It runs the same checks token.NewManager applies so the error names the variable.
func ValidateSecurityConfig(cfg Config) error {
	err := tokenConfig(cfg).Validate()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, token.ErrSecretMissing):
		return errors.New("security policy: POSTBOARD_JWT_SECRET is required")
	case errors.Is(err, token.ErrSecretTooShort):
		return fmt.Errorf("security policy: POSTBOARD_JWT_SECRET is too short (min %d bytes)", token.MinSecretBytes)
	case errors.Is(err, token.ErrInvalidTTL):
		return errors.New("security policy: POSTBOARD_JWT_TTL must be positive")
	default:
		return err
	}
}

func tokenConfig(cfg Config) token.Config {
	return token.Config{
		Secret: []byte(cfg.JWTSecret),
		TTL:    cfg.JWTTTL,
		Issuer: cfg.JWTIssuer,
	}
}
