// Package server assembles the HTTP router and its middleware.
package server

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"identity-registration/internal/audit"
	healthhandler "identity-registration/internal/health/handler"
	registrationhandler "identity-registration/internal/registration/handler"
)

// Deps holds the handlers mounted on the router.
type Deps struct {
	// Registration serves /register and /confirm. Required.
	Registration *registrationhandler.Handler
	// HealthPinger is used for readiness (e.g. *sql.DB). If nil, readiness skips the database.
	HealthPinger healthhandler.Pinger
	Logger       *zap.Logger
}

// NewRouter returns the service router.
//
// Route → handler mapping:
//   - POST /register, POST /confirm/{token} → internal/registration/handler
//   - GET /healthz, GET /readyz             → internal/health/handler
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(ClientIPContext)
	r.Use(RequestLog(logger, map[string]bool{"/healthz": true, "/readyz": true}))

	health := healthhandler.NewServer(deps.HealthPinger)
	r.Get("/healthz", health.Live)
	r.Get("/readyz", health.Ready)

	deps.Registration.Routes(r)
	return r
}

// RequestLog logs method, path, status, duration and client IP after each request.
// Paths in skip are not logged.
func RequestLog(logger *zap.Logger, skip map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			if skip[r.URL.Path] {
				return
			}
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.String("client_ip", ClientIP(r)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// ClientIPContext stores the client IP in the request context for audit entries.
func ClientIPContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(audit.WithClientIP(r.Context(), ClientIP(r))))
	})
}

// ClientIP returns the client IP from X-Forwarded-For, X-Real-IP or the remote address.
func ClientIP(r *http.Request) string {
	if s := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); s != "" {
		if i := strings.Index(s, ","); i > 0 {
			s = strings.TrimSpace(s[:i])
		}
		return s
	}
	if s := strings.TrimSpace(r.Header.Get("X-Real-IP")); s != "" {
		return s
	}
	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return host
		}
		return r.RemoteAddr
	}
	return "unknown"
}
