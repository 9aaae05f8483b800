package authapi

import (
	"net"
	"net/http"
	"strings"
)

// clientIP returns the caller address. Forwarding headers are honored only when
// trustProxy is set; the client controls every X-Forwarded-For entry except the
// one appended by the proxy, so only the right-most entry is used.
func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := lastForwardedIP(r.Header.Values("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	return net.ParseIP(addr)
}

// lastForwardedIP parses the right-most non-empty X-Forwarded-For entry.
// A malformed right-most entry yields nil rather than an earlier entry.
func lastForwardedIP(values []string) net.IP {
	for i := len(values) - 1; i >= 0; i-- {
		parts := strings.Split(values[i], ",")
		for j := len(parts) - 1; j >= 0; j-- {
			if p := strings.TrimSpace(parts[j]); p != "" {
				return net.ParseIP(p)
			}
		}
	}
	return nil
}

func limiterKey(ip net.IP) string {
	if ip == nil {
		return "unknown"
	}
	return ip.String()
}
