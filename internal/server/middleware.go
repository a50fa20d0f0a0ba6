package server

import (
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/maruel/bibliodb/internal/errors"
	"github.com/maruel/bibliodb/internal/server/handlers"
	"github.com/maruel/bibliodb/internal/server/ratelimit"
)

// CORSMiddleware allows every origin and answers preflight requests.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		h.Set("Access-Control-Expose-Headers", "X-Affected-Records, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset, Retry-After")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusWriter records the status code written by a handler.
type statusWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (s *statusWriter) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusWriter) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.size += n
	return n, err
}

// LoggingMiddleware logs one line per request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		slog.InfoContext(r.Context(), "http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"size", sw.size,
			"dur", time.Since(start).Round(time.Microsecond),
			"ip", ratelimit.ClientIP(r))
	})
}

// rateLimited answers a refused mutating request.
func rateLimited(w http.ResponseWriter, r *http.Request, res ratelimit.Result) {
	slog.WarnContext(r.Context(), "Rate limited", "ip", ratelimit.ClientIP(r), "retryAfter", res.RetryAfter)
	e := apierrors.RateLimited()
	handlers.WriteErrorCode(w, e.StatusCode(), e.Code(), e.Error(), e.Details())
}
