package posts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"postboard/cmd/internal/auth/session"
)

// newTestRouter mounts the posts routes under /api/posts behind a stand-in for the
// auth middleware that attaches id when it is set.
func newTestRouter(t *testing.T, cfg Config, svc PostService, id *session.Identity) http.Handler {
	t.Helper()
	h, err := NewHandler(testLogger(), cfg, svc)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	r := chi.NewRouter()
	r.Route("/api/posts", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				if id != nil {
					req = req.WithContext(session.WithIdentity(req.Context(), *id))
				}
				next.ServeHTTP(w, req)
			})
		})
		h.Routes(r)
	})
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	out := map[string]any{}
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %q: %v", rr.Body.String(), err)
		}
	}
	return rr.Code, out
}

func TestHandleCreate_IgnoresClientOwner(t *testing.T) {
	svc, owner, store := newTestService(t)
	router := newTestRouter(t, Config{}, svc, &owner)

	status, body := do(t, router, http.MethodPost, "/api/posts",
		`{"title":"hi","content":"world","user_id":999,"userId":999}`)
	if status != http.StatusCreated {
		t.Fatalf("status=%d body=%v", status, body)
	}
	if body["message"] != "Post created successfully" {
		t.Fatalf("unexpected body: %v", body)
	}
	postID, _ := body["postId"].(float64)

	stored, err := store.GetPost(context.Background(), int64(postID))
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if stored.UserID != owner.UserID {
		t.Fatalf("owner=%d want %d", stored.UserID, owner.UserID)
	}
}

func TestHandleCreate_Validation(t *testing.T) {
	cases := []struct {
		name   string
		strict bool
		want   int
	}{
		{name: "compat", want: http.StatusInternalServerError},
		{name: "strict", strict: true, want: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, owner, _ := newTestService(t)
			router := newTestRouter(t, Config{StrictStatus: tc.strict}, svc, &owner)

			status, body := do(t, router, http.MethodPost, "/api/posts", `{"title":"hi"}`)
			if status != tc.want {
				t.Fatalf("status=%d want %d body=%v", status, tc.want, body)
			}
			if !tc.strict && body["error"] != "Post creation failed" {
				t.Fatalf("unexpected compat body: %v", body)
			}
		})
	}
}

func TestHandleCreate_PersistenceFailure(t *testing.T) {
	svc, err := NewService(failingStore{err: context.DeadlineExceeded}, WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	owner := session.Identity{UserID: 1, Username: "a"}
	router := newTestRouter(t, Config{StrictStatus: true}, svc, &owner)

	status, body := do(t, router, http.MethodPost, "/api/posts", `{"title":"t","content":"c"}`)
	if status != http.StatusInternalServerError || body["error"] != "Post creation failed" {
		t.Fatalf("status=%d body=%v", status, body)
	}
}

func TestHandleCreate_NoIdentity(t *testing.T) {
	svc, _, _ := newTestService(t)
	router := newTestRouter(t, Config{}, svc, nil)

	status, _ := do(t, router, http.MethodPost, "/api/posts", `{"title":"t","content":"c"}`)
	if status != http.StatusUnauthorized {
		t.Fatalf("status=%d want 401", status)
	}
}

func TestHandleCreate_BadBody(t *testing.T) {
	svc, owner, _ := newTestService(t)
	router := newTestRouter(t, Config{MaxBodyBytes: 32}, svc, &owner)

	if status, _ := do(t, router, http.MethodPost, "/api/posts", `{"title":`); status != http.StatusBadRequest {
		t.Fatalf("malformed: status=%d", status)
	}
	big := `{"title":"t","content":"` + strings.Repeat("x", 64) + `"}`
	if status, _ := do(t, router, http.MethodPost, "/api/posts", big); status != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized: status=%d", status)
	}
}

func TestHandleGet(t *testing.T) {
	svc, owner, _ := newTestService(t)
	router := newTestRouter(t, Config{}, svc, &owner)

	_, created := do(t, router, http.MethodPost, "/api/posts", `{"title":"hi","content":"world"}`)
	id, _ := created["postId"].(float64)

	status, body := do(t, router, http.MethodGet, "/api/posts/"+jsonNumber(id), "")
	if status != http.StatusOK {
		t.Fatalf("status=%d body=%v", status, body)
	}
	if body["title"] != "hi" || body["userId"] != float64(owner.UserID) {
		t.Fatalf("unexpected post: %v", body)
	}

	if status, _ := do(t, router, http.MethodGet, "/api/posts/9999", ""); status != http.StatusNotFound {
		t.Fatalf("missing post: status=%d", status)
	}
	if status, _ := do(t, router, http.MethodGet, "/api/posts/abc", ""); status != http.StatusBadRequest {
		t.Fatalf("bad id: status=%d", status)
	}
}

func jsonNumber(f float64) string {
	b, _ := json.Marshal(int64(f))
	return string(b)
}
