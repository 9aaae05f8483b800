package authapi

import "time"

// Config controls auth API behavior and security defaults. It is parsed from
// the environment as part of the application config.
type Config struct {
	TrustProxy   bool  `env:"POSTBOARD_AUTH_TRUST_PROXY" envDefault:"false"`
	MaxBodyBytes int64 `env:"POSTBOARD_AUTH_MAX_BODY_BYTES" envDefault:"1048576"`

	// StrictStatus maps conflicts to 409 and validation failures to 400.
	StrictStatus bool `env:"POSTBOARD_STRICT_STATUS" envDefault:"false"`

	// Failed logins allowed per client IP within LoginIPWindow. Zero disables the limit.
	LoginIPMax    int           `env:"POSTBOARD_AUTH_LOGIN_IP_MAX" envDefault:"20"`
	LoginIPWindow time.Duration `env:"POSTBOARD_AUTH_LOGIN_IP_WINDOW" envDefault:"5m"`
}

// DefaultConfig returns the configuration used when no environment is set.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:  1 << 20,
		LoginIPMax:    20,
		LoginIPWindow: 5 * time.Minute,
	}
}

// Normalize clamps out-of-range values back to defaults.
func (c Config) Normalize() Config {
	def := DefaultConfig()
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = def.MaxBodyBytes
	}
	if c.LoginIPMax < 0 {
		c.LoginIPMax = 0
	}
	if c.LoginIPWindow <= 0 {
		c.LoginIPWindow = def.LoginIPWindow
	}
	return c
}
