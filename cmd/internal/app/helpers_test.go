package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	authapi "postboard/cmd/internal/auth/api"
	"postboard/cmd/internal/posts"
	"postboard/cmd/internal/upload"
	"postboard/cmd/security/password"
)

const testSecret = "0123456789abcdef0123456789abcdef-test"

var testNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		HTTPAddr:   "127.0.0.1:0",
		LogLevel:   "error",
		DBDriver:   DriverMemory,
		DBSchema:   "public",
		SQLitePath: filepath.Join(t.TempDir(), "postboard.db"),
		JWTSecret:  testSecret,
		JWTTTL:     time.Hour,
		JWTIssuer:  "postboard",
		Auth:       authapi.DefaultConfig(),
		Posts:      posts.Config{MaxBodyBytes: 1 << 20},
		Upload:     upload.Config{Dir: filepath.Join(t.TempDir(), "images"), MaxBytes: 1 << 20},
		Password:   fastPasswords(),
	}
}

// fastPasswords keeps Argon2id and the bcrypt padding cheap enough for tests.
func fastPasswords() password.Config {
	cfg := password.DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	cfg.Params.Parallelism = 1
	cfg.LegacyBcryptCost = 4
	return cfg
}

func newTestApp(t *testing.T, cfg Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, discardLogger(),
		WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func doJSON(t *testing.T, h http.Handler, method, path, bearer string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.RemoteAddr = "203.0.113.7:41000"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	out := map[string]any{}
	if ct := rr.Header().Get("Content-Type"); len(ct) >= 16 && ct[:16] == "application/json" {
		if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %q: %v", rr.Body.String(), err)
		}
	}
	return rr, out
}
