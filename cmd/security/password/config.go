package password

import (
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
)

// Argon2idParams controls Argon2id hashing cost. MemoryKiB is in KiB.
// Zero values are filled in by Normalize.
type Argon2idParams struct {
	MemoryKiB   uint32 `env:"POSTBOARD_ARGON2_MEMORY_KIB" envDefault:"65536"`
	Iterations  uint32 `env:"POSTBOARD_ARGON2_ITERATIONS" envDefault:"3"`
	Parallelism uint8  `env:"POSTBOARD_ARGON2_PARALLELISM"`
	SaltLength  uint32 `env:"POSTBOARD_ARGON2_SALT_LEN" envDefault:"16"`
	KeyLength   uint32 `env:"POSTBOARD_ARGON2_KEY_LEN" envDefault:"32"`
}

// Policy bounds the passwords accepted for new accounts.
type Policy struct {
	MinLength      int  `env:"POSTBOARD_PASSWORD_MIN_LEN" envDefault:"1"`
	MaxLength      int  `env:"POSTBOARD_PASSWORD_MAX_LEN" envDefault:"256"`
	RejectVeryWeak bool `env:"POSTBOARD_PASSWORD_REJECT_VERY_WEAK" envDefault:"false"`
}

// Config is the single configuration surface for this package.
type Config struct {
	Params Argon2idParams
	Policy Policy

	// MaxConcurrent bounds simultaneous Hash/Verify computations in a Hasher.
	MaxConcurrent int `env:"POSTBOARD_PASSWORD_MAX_CONCURRENT"`

	// LegacyBcryptCost is the cost of the bcrypt work every Hasher.Verify pads
	// to, so legacy, current and unknown accounts take the same time.
	LegacyBcryptCost int `env:"POSTBOARD_PASSWORD_LEGACY_BCRYPT_COST" envDefault:"10"`
}

// DefaultConfig returns a strong baseline for interactive logins.
func DefaultConfig() Config {
	threads := defaultThreads()
	return Config{
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024,
			Iterations:  3,
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4].
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{
			// Existing accounts were created without a length policy.
			MinLength: 1,
			MaxLength: 256,
		},
		MaxConcurrent:    threads * 2,
		LegacyBcryptCost: bcrypt.DefaultCost,
	}
}

// defaultThreads is the CPU count clamped to [1..4].
func defaultThreads() int {
	return min(max(runtime.NumCPU(), 1), 4)
}

// Normalize fills zero fields from DefaultConfig. Parallelism and MaxConcurrent
// are CPU-aware, so the environment leaves them unset by default.
func (c Config) Normalize() Config {
	def := DefaultConfig()
	if c.Params.MemoryKiB == 0 {
		c.Params.MemoryKiB = def.Params.MemoryKiB
	}
	if c.Params.Iterations == 0 {
		c.Params.Iterations = def.Params.Iterations
	}
	if c.Params.Parallelism == 0 {
		c.Params.Parallelism = def.Params.Parallelism
	}
	if c.Params.SaltLength == 0 {
		c.Params.SaltLength = def.Params.SaltLength
	}
	if c.Params.KeyLength == 0 {
		c.Params.KeyLength = def.Params.KeyLength
	}
	if c.Policy.MinLength == 0 {
		c.Policy.MinLength = def.Policy.MinLength
	}
	if c.Policy.MaxLength == 0 {
		c.Policy.MaxLength = def.Policy.MaxLength
	}
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = def.MaxConcurrent
	}
	if c.LegacyBcryptCost == 0 {
		c.LegacyBcryptCost = def.LegacyBcryptCost
	}
	return c
}

// ErrInvalidConfig is returned by CheckParams.
var ErrInvalidConfig = errors.New("invalid password config")

// CheckParams rejects out-of-range settings.
func (c Config) CheckParams() error {
	checks := []struct {
		name     string
		val      int64
		lo, hi   int64
	}{
		{"POSTBOARD_PASSWORD_MIN_LEN", int64(c.Policy.MinLength), 1, 1024},
		{"POSTBOARD_PASSWORD_MAX_LEN", int64(c.Policy.MaxLength), 1, 4096},
		{"POSTBOARD_PASSWORD_MAX_CONCURRENT", int64(c.MaxConcurrent), 1, 256},
		{"POSTBOARD_PASSWORD_LEGACY_BCRYPT_COST", int64(c.LegacyBcryptCost), int64(bcrypt.MinCost), maxLegacyBcryptCost},
		{"POSTBOARD_ARGON2_MEMORY_KIB", int64(c.Params.MemoryKiB), 8 * 1024, 1024 * 1024},
		{"POSTBOARD_ARGON2_ITERATIONS", int64(c.Params.Iterations), 1, 20},
		{"POSTBOARD_ARGON2_PARALLELISM", int64(c.Params.Parallelism), 1, 64},
		{"POSTBOARD_ARGON2_SALT_LEN", int64(c.Params.SaltLength), 8, 64},
		{"POSTBOARD_ARGON2_KEY_LEN", int64(c.Params.KeyLength), 16, 64},
	}
	for _, ch := range checks {
		if ch.val < ch.lo || ch.val > ch.hi {
			return fmt.Errorf("%w: %s=%d out of range [%d..%d]", ErrInvalidConfig, ch.name, ch.val, ch.lo, ch.hi)
		}
	}
	if c.Policy.MinLength > c.Policy.MaxLength {
		return fmt.Errorf("%w: min_len(%d) > max_len(%d)", ErrInvalidConfig, c.Policy.MinLength, c.Policy.MaxLength)
	}
	return nil
}
