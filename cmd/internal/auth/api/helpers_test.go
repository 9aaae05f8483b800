package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"postboard/cmd/identity"
	"postboard/cmd/internal/auth/session"
	"postboard/cmd/security/password"
	"postboard/cmd/security/token"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testServer struct {
	handler *Handler
	router  http.Handler
	tokens  *token.Manager
	clock   *testClock
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustNewTokenManager(t *testing.T, now func() time.Time) *token.Manager {
	t.Helper()
	m, err := token.NewManager(token.Config{
		Secret: []byte(strings.Repeat("k", token.MinSecretBytes)),
		TTL:    time.Hour,
		Issuer: "postboard",
	}, now)
	if err != nil {
		t.Fatalf("token.NewManager: %v", err)
	}
	return m
}

func mustNewSessionService(t *testing.T, tokens *token.Manager) *session.Service {
	t.Helper()
	pcfg := password.DefaultConfig()
	pcfg.Params.MemoryKiB = 8 * 1024
	pcfg.Params.Iterations = 1
	pcfg.Params.Parallelism = 1
	pcfg.LegacyBcryptCost = 4 // bcrypt.MinCost
	hasher, err := password.NewHasher(pcfg)
	if err != nil {
		t.Fatalf("password.NewHasher: %v", err)
	}
	svc, err := session.NewService(identity.NewMemoryStore(), hasher, tokens, session.WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("session.NewService: %v", err)
	}
	return svc
}

// newTestServer builds the auth routes under /api plus a protected /api/whoami
// that echoes the attached identity.
func newTestServer(t *testing.T, cfg Config, auth AuthService, opts ...HandlerOption) testServer {
	t.Helper()

	clock := newTestClock()
	tokens := mustNewTokenManager(t, clock.Now)
	if auth == nil {
		auth = mustNewSessionService(t, tokens)
	}

	opts = append([]HandlerOption{WithClock(clock.Now)}, opts...)
	h, err := NewHandler(testLogger(), cfg, auth, tokens, opts...)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		h.Routes(r)
		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)
			r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
				id, ok := session.IdentityFrom(r.Context())
				if !ok {
					t.Errorf("protected handler ran without identity")
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				_ = json.NewEncoder(w).Encode(map[string]any{"userId": id.UserID, "username": id.Username})
			})
		})
	})

	return testServer{handler: h, router: r, tokens: tokens, clock: clock}
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) (int, map[string]any, http.Header) {
	t.Helper()

	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	out := map[string]any{}
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: decode response %q: %v", method, path, rr.Body.String(), err)
		}
	}
	return rr.Code, out, rr.Header()
}

func mustRegister(t *testing.T, h http.Handler, username, email, pw string) int64 {
	t.Helper()
	status, body, _ := doJSON(t, h, http.MethodPost, "/api/users/register", map[string]string{
		"username": username,
		"email":    email,
		"password": pw,
	}, nil)
	if status != http.StatusCreated {
		t.Fatalf("register %s: status=%d body=%v", username, status, body)
	}
	id, _ := body["userId"].(float64)
	return int64(id)
}

func mustLogin(t *testing.T, h http.Handler, login, pw string) string {
	t.Helper()
	status, body, _ := doJSON(t, h, http.MethodPost, "/api/users/login", map[string]string{
		"usernameOrEmail": login,
		"password":        pw,
	}, nil)
	if status != http.StatusOK {
		t.Fatalf("login %s: status=%d body=%v", login, status, body)
	}
	tok, _ := body["token"].(string)
	if tok == "" {
		t.Fatalf("login %s: empty token", login)
	}
	return tok
}

// stubAuth returns fixed errors for every call.
type stubAuth struct {
	registerErr error
	loginErr    error
}

func (s stubAuth) Register(context.Context, session.RegisterInput) (identity.User, error) {
	return identity.User{}, s.registerErr
}

func (s stubAuth) Login(context.Context, string, string) (session.LoginResult, error) {
	return session.LoginResult{}, s.loginErr
}
