package password

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestNormalize_FillsZeroFields(t *testing.T) {
	cfg := Config{Policy: Policy{MaxLength: 64, RejectVeryWeak: true}}.Normalize()
	def := DefaultConfig()

	if cfg.Params != def.Params {
		t.Fatalf("params not defaulted: %+v", cfg.Params)
	}
	if cfg.Policy.MinLength != 1 || cfg.Policy.MaxLength != 64 || !cfg.Policy.RejectVeryWeak {
		t.Fatalf("policy overrides lost: %+v", cfg.Policy)
	}
	if cfg.MaxConcurrent != def.MaxConcurrent || cfg.LegacyBcryptCost != bcrypt.DefaultCost {
		t.Fatalf("limits not defaulted: %+v", cfg)
	}
	if err := cfg.CheckParams(); err != nil {
		t.Fatalf("normalized config should pass: %v", err)
	}
}

func TestCheckParams(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "min above max", mutate: func(c *Config) { c.Policy.MinLength, c.Policy.MaxLength = 20, 10 }},
		{name: "memory too small", mutate: func(c *Config) { c.Params.MemoryKiB = 1024 }},
		{name: "too many iterations", mutate: func(c *Config) { c.Params.Iterations = 21 }},
		{name: "salt too short", mutate: func(c *Config) { c.Params.SaltLength = 4 }},
		{name: "key too long", mutate: func(c *Config) { c.Params.KeyLength = 128 }},
		{name: "negative concurrency", mutate: func(c *Config) { c.MaxConcurrent = -1 }},
		{name: "bcrypt cost too high", mutate: func(c *Config) { c.LegacyBcryptCost = 15 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.CheckParams(); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
			if _, err := NewHasher(cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("NewHasher: expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestNewHasher_DummyHashes(t *testing.T) {
	cfg := testConfig()
	h, err := NewHasher(cfg)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	if h.cfg.NeedsRehash(h.dummy) {
		t.Fatalf("argon2 dummy must use the configured params")
	}
	cost, err := bcrypt.Cost([]byte(h.dummyBcrypt))
	if err != nil || cost != cfg.LegacyBcryptCost {
		t.Fatalf("bcrypt dummy cost=%d err=%v want %d", cost, err, cfg.LegacyBcryptCost)
	}
}

// Legacy bcrypt accounts, current accounts and unknown accounts must cost about the
// same to check, or login latency tells them apart.
func TestHasher_VerifyTimingAcrossSchemes(t *testing.T) {
	if testing.Short() {
		t.Skip("timing comparison")
	}
	cfg := testConfig()
	cfg.LegacyBcryptCost = bcrypt.DefaultCost
	h, err := NewHasher(cfg)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	ctx := context.Background()

	legacy, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	current, err := h.Hash(ctx, "password123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	median := func(fn func()) time.Duration {
		var runs []time.Duration
		for i := 0; i < 5; i++ {
			start := time.Now()
			fn()
			runs = append(runs, time.Since(start))
		}
		sort.Slice(runs, func(i, j int) bool { return runs[i] < runs[j] })
		return runs[len(runs)/2]
	}

	durations := map[string]time.Duration{
		"legacy":  median(func() { h.Verify(ctx, string(legacy), "wrong") }),
		"current": median(func() { h.Verify(ctx, current, "wrong") }),
		"unknown": median(func() { h.DummyVerify(ctx, "wrong") }),
	}
	lo, hi := time.Duration(1<<62), time.Duration(0)
	for _, d := range durations {
		lo, hi = min(lo, d), max(hi, d)
	}
	if hi > 3*lo {
		t.Fatalf("verification cost differs by scheme: %v", durations)
	}
}
