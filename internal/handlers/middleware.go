package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"weddingrsvp/internal/security"
	"weddingrsvp/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const AdminContextKey ContextKey = "admin"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	auth    *service.AdminAuthService
	limiter *security.RateLimiter
	logger  *zap.Logger
}

// NewMiddleware creates a new middleware instance. limiter may be nil to
// disable rate limiting.
func NewMiddleware(auth *service.AdminAuthService, limiter *security.RateLimiter, logger *zap.Logger) *Middleware {
	return &Middleware{
		auth:    auth,
		limiter: limiter,
		logger:  logger,
	}
}

// RequireAdmin rejects requests without a valid admin bearer token
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			WriteJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
			return
		}

		admin, err := m.auth.Authenticate(strings.TrimSpace(token))
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			writeServiceError(w, m.logger, err)
			return
		}

		ctx := context.WithValue(r.Context(), AdminContextKey, admin)
		next(w, r.WithContext(ctx))
	}
}

// RateLimit throttles requests per client IP
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.limiter != nil && !m.limiter.Allow(security.GetClientIP(r)) {
			m.logger.Warn("rate limit exceeded",
				zap.String("ip", security.GetClientIP(r)),
				zap.String("path", r.URL.Path),
			)
			WriteJSON(w, http.StatusTooManyRequests, errorResponse{Error: "Too many requests, please try again later"})
			return
		}
		next(w, r)
	}
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Logging logs every request with its status and duration
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// AdminFromContext returns the authenticated admin username, if any
func AdminFromContext(ctx context.Context) string {
	admin, _ := ctx.Value(AdminContextKey).(string)
	return admin
}
