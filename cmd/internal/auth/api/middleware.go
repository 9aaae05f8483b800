package authapi

import (
	"net/http"
	"strings"

	"postboard/cmd/internal/auth/session"
	"postboard/cmd/internal/httpjson"
	"postboard/cmd/security/token"
)

const (
	msgNoToken    = "No token provided"
	msgBadToken   = "Failed to authenticate token"
	reasonScheme  = "scheme"
	reasonMissing = "missing"
)

// RequireAuth verifies the bearer token of every request before next runs.
//
// A request without a token gets 401. A request whose Authorization header is not
// a Bearer token, or whose token fails verification, gets 403. On success the
// verified identity is attached with session.WithIdentity.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, reason := bearerToken(r)
		switch reason {
		case reasonMissing:
			h.rejectToken(w, r, http.StatusUnauthorized, msgNoToken, reason)
			return
		case reasonScheme:
			h.rejectToken(w, r, http.StatusForbidden, msgBadToken, reason)
			return
		}

		claims, err := h.tokens.Verify(raw)
		if err != nil {
			status := http.StatusForbidden
			msg := msgBadToken
			if token.Reason(err) == reasonMissing {
				status, msg = http.StatusUnauthorized, msgNoToken
			}
			h.rejectToken(w, r, status, msg, token.Reason(err))
			return
		}

		ctx := session.WithIdentity(r.Context(), session.Identity{
			UserID:   claims.UserID,
			Username: claims.Username,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) rejectToken(w http.ResponseWriter, r *http.Request, status int, msg, reason string) {
	h.metrics.tokenRejected(reason)
	h.log.Info("auth.token.reject",
		"reason", reason,
		"status", status,
		"method", r.Method,
		"path", r.URL.Path,
		"ip", limiterKey(clientIP(r, h.cfg.TrustProxy)),
	)
	httpjson.WriteMessage(w, status, "", msg)
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
//
// An absent header, or one with nothing after the scheme, counts as no token. A
// second word under any scheme other than Bearer, or extra words, is a bad scheme.
func bearerToken(r *http.Request) (string, string) {
	fields := strings.Fields(r.Header.Get("Authorization"))
	switch {
	case len(fields) < 2:
		return "", reasonMissing
	case len(fields) > 2 || !strings.EqualFold(fields[0], "Bearer"):
		return "", reasonScheme
	default:
		return fields[1], ""
	}
}
