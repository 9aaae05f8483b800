package password

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// Hasher is the concurrency-safe entry point used by request handlers.
//
// Argon2id is memory-hard, so the number of in-flight computations is bounded by
// a weighted semaphore; callers beyond the bound wait (or give up when ctx ends).
//
// Every Verify runs one Argon2id and one bcrypt comparison, the missing scheme against
// a fixed dummy hash, so the scheme of a stored hash does not show in login latency.
type Hasher struct {
	cfg         Config
	sem         *semaphore.Weighted
	dummy       string
	dummyBcrypt string
}

const dummyPassword = "dummy-password-for-timing-only"

// NewHasher normalizes and checks cfg, then precomputes the dummy hashes.
func NewHasher(cfg Config) (*Hasher, error) {
	cfg = cfg.Normalize()
	if err := cfg.CheckParams(); err != nil {
		return nil, err
	}
	h := &Hasher{cfg: cfg, sem: semaphore.NewWeighted(int64(cfg.MaxConcurrent))}

	dummyCfg := cfg
	dummyCfg.Policy = Policy{MinLength: 1, MaxLength: 256}
	dummy, err := dummyCfg.Hash(dummyPassword)
	if err != nil {
		return nil, err
	}
	legacy, err := bcrypt.GenerateFromPassword([]byte(dummyPassword), cfg.LegacyBcryptCost)
	if err != nil {
		return nil, err
	}
	h.dummy = dummy
	h.dummyBcrypt = string(legacy)
	return h, nil
}

// Config returns the hashing configuration.
func (h *Hasher) Config() Config { return h.cfg }

// Hash validates the password policy and returns an encoded Argon2id hash.
func (h *Hasher) Hash(ctx context.Context, plain string) (string, error) {
	if h == nil {
		return "", errors.New("password: nil hasher")
	}
	// Policy violations are cheap to detect; don't queue for them.
	if err := h.cfg.Validate(plain); err != nil {
		return "", err
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	return h.cfg.Hash(plain)
}

// Verify reports whether plain matches encoded.
// Malformed hashes, unsupported schemes and cancelled contexts all report false.
func (h *Hasher) Verify(ctx context.Context, encoded, plain string) bool {
	if h == nil {
		return false
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.sem.Release(1)

	ok, err := h.cfg.Verify(encoded, plain)
	if isBcryptHash(encoded) {
		_, _ = h.cfg.Verify(h.dummy, plain)
	} else {
		_, _ = h.cfg.Verify(h.dummyBcrypt, plain)
	}
	return err == nil && ok
}

// DummyVerify spends the same work as Verify against fixed hashes. Login uses it
// when no account matches so every failure path costs about the same.
func (h *Hasher) DummyVerify(ctx context.Context, plain string) {
	_ = h.Verify(ctx, h.dummy, plain)
}

// NeedsRehash reports whether encoded should be replaced by a hash under the current parameters.
func (h *Hasher) NeedsRehash(encoded string) bool {
	return h.cfg.NeedsRehash(encoded)
}

// Rehash hashes an already-verified password under the current parameters.
// The policy is not re-applied: the password was accepted when it was set.
func (h *Hasher) Rehash(ctx context.Context, plain string) (string, error) {
	if h == nil {
		return "", errors.New("password: nil hasher")
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	relaxed := h.cfg
	relaxed.Policy = Policy{MinLength: 1, MaxLength: 4096}
	return relaxed.Hash(plain)
}
