package authapi

import (
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"postboard/cmd/internal/httpjson"
)

// loginLimiter is a per-key sliding window over failed login attempts.
type loginLimiter struct {
	mu        sync.Mutex
	failures  map[string][]time.Time
	limit     int
	window    time.Duration
	lastSweep time.Time
}

// newLoginLimiter returns nil when limit is not positive; a nil limiter never blocks.
func newLoginLimiter(limit int, window time.Duration) *loginLimiter {
	if limit <= 0 {
		return nil
	}
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &loginLimiter{
		failures: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// check reports whether key is currently blocked and for how long.
func (l *loginLimiter) check(key string, now time.Time) (bool, time.Duration) {
	if l == nil {
		return false, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return evaluateWindowThrottle(now, l.failures[key], l.limit, l.window)
}

func (l *loginLimiter) recordFailure(key string, now time.Time) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.failures[key] = append(pruneBefore(l.failures[key], now.Add(-l.window)), now)

	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(now)
		l.lastSweep = now
	}
}

// sweep drops keys with no failures left inside the window. Callers hold l.mu.
func (l *loginLimiter) sweep(now time.Time) {
	cut := now.Add(-l.window)
	for k, events := range l.failures {
		events = pruneBefore(events, cut)
		if len(events) == 0 {
			delete(l.failures, k)
			continue
		}
		l.failures[k] = events
	}
}

func pruneBefore(events []time.Time, cut time.Time) []time.Time {
	dst := events[:0]
	for _, t := range events {
		if t.After(cut) {
			dst = append(dst, t)
		}
	}
	return dst
}

// evaluateWindowThrottle blocks once limit failures fall inside window. retry is the
// time until enough of them age out for the next attempt to be allowed.
func evaluateWindowThrottle(now time.Time, failures []time.Time, limit int, window time.Duration) (bool, time.Duration) {
	if limit <= 0 || window <= 0 {
		return false, 0
	}
	cut := now.Add(-window)
	inWindow := make([]time.Time, 0, len(failures))
	for _, t := range failures {
		if t.After(cut) && !t.After(now) {
			inWindow = append(inWindow, t)
		}
	}
	if len(inWindow) < limit {
		return false, 0
	}
	slices.SortFunc(inWindow, func(a, b time.Time) int { return a.Compare(b) })
	retry := inWindow[len(inWindow)-limit].Add(window).Sub(now)
	if retry <= 0 {
		return false, 0
	}
	return true, retry
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		secs := int64((retryAfter + time.Second - 1) / time.Second)
		w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	}
	httpjson.WriteMessage(w, http.StatusTooManyRequests, "rate_limited", "Too many login attempts, please try again later")
}
