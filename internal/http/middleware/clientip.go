package middleware

import (
	"net"
	"net/http"
	"strings"
)

// UnknownClient is the identity used when no network origin can be derived.
const UnknownClient = "unknown"

// ClientIP derives the caller identity used for rate limiting: the first
// X-Forwarded-For entry, then X-Real-Ip, then the RemoteAddr host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-Ip")); xri != "" {
		return xri
	}
	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
			return host
		}
		return r.RemoteAddr
	}
	return UnknownClient
}
