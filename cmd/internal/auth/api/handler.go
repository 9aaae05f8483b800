package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"postboard/cmd/identity"
	"postboard/cmd/internal/auth/session"
	"postboard/cmd/internal/httpjson"
	"postboard/cmd/security/token"
)

// AuthService is the subset of *session.Service the handlers need.
type AuthService interface {
	Register(ctx context.Context, in session.RegisterInput) (identity.User, error)
	Login(ctx context.Context, login, plain string) (session.LoginResult, error)
}

// TokenVerifier is the subset of *token.Manager the middleware needs.
type TokenVerifier interface {
	Verify(raw string) (token.Claims, error)
}

// Handler wires HTTP auth endpoints to the session service.
type Handler struct {
	log     *slog.Logger
	cfg     Config
	auth    AuthService
	tokens  TokenVerifier
	metrics *Metrics
	limiter *loginLimiter
	now     func() time.Time
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithMetrics records auth outcomes in m.
func WithMetrics(m *Metrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithClock overrides the clock used by the login rate limiter.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, auth AuthService, tokens TokenVerifier, opts ...HandlerOption) (*Handler, error) {
	if auth == nil || tokens == nil {
		return nil, errors.New("authapi: auth service and token verifier are required")
	}
	if log == nil {
		log = slog.Default()
	}
	cfg = cfg.Normalize()

	h := &Handler{
		log:     log,
		cfg:     cfg,
		auth:    auth,
		tokens:  tokens,
		limiter: newLoginLimiter(cfg.LoginIPMax, cfg.LoginIPWindow),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Routes mounts the user endpoints on r, relative to the router's prefix.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/users/register", h.handleRegister)
	r.Post("/users/login", h.handleLogin)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpjson.Decode(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.metrics.registration("bad_request")
		writeDecodeError(w, err)
		return
	}

	u, err := h.auth.Register(r.Context(), session.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeRegisterError(w, err)
		return
	}

	h.metrics.registration("success")
	h.log.Info("auth.register.ok", "user_id", u.ID)
	httpjson.WriteJSON(w, http.StatusCreated, registerResponse{
		Message: "User registered successfully",
		UserID:  u.ID,
	})
}

func (h *Handler) writeRegisterError(w http.ResponseWriter, err error) {
	const failed = "Registration failed"

	switch {
	case identity.IsConflict(err):
		field := identity.ConflictField(err)
		h.metrics.registration("conflict")
		h.log.Info("auth.register.conflict", "field", field)
		if h.cfg.StrictStatus {
			httpjson.WriteError(w, http.StatusConflict, "conflict", field+" already taken")
			return
		}
		httpjson.WriteError(w, http.StatusInternalServerError, "conflict", failed)

	case errors.Is(err, session.ErrValidation):
		h.metrics.registration("invalid")
		h.log.Info("auth.register.invalid", "err", err)
		if h.cfg.StrictStatus {
			httpjson.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		httpjson.WriteError(w, http.StatusInternalServerError, "invalid_request", failed)

	default:
		h.metrics.registration("error")
		h.log.Error("auth.register.fail", "err", err)
		httpjson.WriteError(w, http.StatusInternalServerError, "server_error", failed)
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	key := limiterKey(clientIP(r, h.cfg.TrustProxy))

	if blocked, retryAfter := h.limiter.check(key, now); blocked {
		h.metrics.login("rate_limited")
		h.log.Warn("auth.login.rate_limited", "ip", key, "retry_after", retryAfter)
		writeRateLimited(w, retryAfter)
		return
	}

	var req loginRequest
	if err := httpjson.Decode(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.metrics.login("bad_request")
		writeDecodeError(w, err)
		return
	}

	res, err := h.auth.Login(r.Context(), req.UsernameOrEmail, req.Password)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			h.limiter.recordFailure(key, now)
			h.metrics.login("invalid_credentials")
			h.log.Info("auth.login.fail", "ip", key)
			httpjson.WriteMessage(w, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials")
			return
		}
		h.metrics.login("error")
		h.log.Error("auth.login.error", "err", err)
		httpjson.WriteError(w, http.StatusInternalServerError, "server_error", "Login failed")
		return
	}

	h.metrics.login("success")
	h.log.Info("auth.login.ok", "user_id", res.User.ID, "ip", key)
	httpjson.WriteJSON(w, http.StatusOK, loginResponse{
		Token:     res.Token,
		UserID:    res.User.ID,
		Username:  res.User.Username,
		ExpiresAt: res.ExpiresAt,
	})
}

// writeDecodeError answers an unreadable request body.
func writeDecodeError(w http.ResponseWriter, err error) {
	if httpjson.IsTooLarge(err) {
		httpjson.WriteError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
		return
	}
	httpjson.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
}
