package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/enquirydesk/enquirydesk/internal/api"
	"github.com/enquirydesk/enquirydesk/internal/identity"
	"github.com/enquirydesk/enquirydesk/internal/ratelimit"
	"github.com/enquirydesk/enquirydesk/internal/token"
)

type contextKey string

const (
	// EmployeeContextKey is the context key for the authenticated employee.
	EmployeeContextKey contextKey = "employee"
)

var errNoEmployee = errors.New("no authenticated employee in context")

// loggingMiddleware logs request information using slog.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// authMiddleware enforces bearer token authentication.
// Public endpoints (health, register, login, public submission) bypass it.
// Tokens are stateless; the employee is re-fetched on every request so a
// deleted account is locked out immediately.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAuthRequired(r.URL.Path, s.cfg.BasePath) {
			next.ServeHTTP(w, r)
			return
		}

		bearer := extractBearerToken(r)
		if bearer == "" {
			api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
			return
		}

		claims, err := s.deps.Tokens.Verify(bearer)
		if err != nil {
			if errors.Is(err, token.ErrExpired) {
				api.WriteUnauthorized(w, api.ReasonTokenExpired, "token has expired")
				return
			}
			api.WriteUnauthorized(w, api.ReasonUnauthenticated, "invalid token")
			return
		}

		employee, err := s.deps.Employees.Get(r.Context(), claims.EmployeeID)
		if err != nil {
			api.WriteUnauthorized(w, api.ReasonUnauthenticated, "token subject not found")
			return
		}

		projection := employee.Project()
		ctx := context.WithValue(r.Context(), EmployeeContextKey, &projection)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractBearerToken gets the bearer token from the Authorization header.
func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// rateLimitMiddleware applies per-client rate limiting to specific paths.
func (s *Server) rateLimitMiddleware(limiters map[string]*ratelimit.Limiter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var limiter *ratelimit.Limiter
			var matchedPath string
			for path, l := range limiters {
				fullPath := s.cfg.BasePath + path
				if r.URL.Path == fullPath || strings.HasPrefix(r.URL.Path, fullPath+"/") {
					limiter = l
					matchedPath = path
					break
				}
			}

			if limiter != nil {
				clientIP := s.trustedProxies.ClientIPString(r)

				result, err := limiter.Allow(r.Context(), clientIP)
				if err != nil {
					// On limiter failure, let the request through
					s.logger.Warn("rate limiter error", "path", matchedPath, "error", err)
					next.ServeHTTP(w, r)
					return
				}

				w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(limiter.Limit(), 10))
				w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

				if !result.Allowed {
					s.logger.Warn("rate limit exceeded",
						"path", matchedPath,
						"client_ip", clientIP,
					)
					retryAfter := int64(time.Until(result.ResetAt).Seconds())
					if retryAfter < 1 {
						retryAfter = 1
					}
					w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
					api.WriteTooManyRequests(w, "too many requests, please try again later")
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CurrentEmployee returns the authenticated employee from request context.
func CurrentEmployee(ctx context.Context) (*identity.Projection, error) {
	p, _ := ctx.Value(EmployeeContextKey).(*identity.Projection)
	if p == nil {
		return nil, errNoEmployee
	}
	return p, nil
}
