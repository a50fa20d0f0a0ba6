package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"
)

// WriteHeaders writes the X-RateLimit-* headers, plus Retry-After when the
// request was refused.
func WriteHeaders(w http.ResponseWriter, res Result) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
	if !res.Allowed {
		h.Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
	}
}

// ClientIP returns the address of the client that sent r, honoring the
// X-Forwarded-For and X-Real-IP proxy headers.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// isMutating returns true for HTTP methods that modify state.
func isMutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch || method == http.MethodDelete
}

// Middleware limits mutating requests per client IP. Refused requests are
// answered by limited, which must write the response.
func Middleware(l *Limiter, limited func(http.ResponseWriter, *http.Request, Result)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isMutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			res := l.Allow("ip:" + ClientIP(r))
			WriteHeaders(w, res)
			if !res.Allowed {
				limited(w, r, res)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
