package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/enquirydesk/enquirydesk/internal/api"
	"github.com/enquirydesk/enquirydesk/internal/ratelimit"
)

// RouteGroup defines an endpoint group with its auth requirements.
type RouteGroup struct {
	Name         string
	PathPrefix   string
	RequiresAuth bool
}

// routeGroups defines all endpoint groups and their auth requirements.
// This table is the single source of truth for routing decisions.
var routeGroups = []RouteGroup{
	{Name: "api", PathPrefix: "/api", RequiresAuth: true},
}

// GetRouteGroups returns the route group definitions for testing.
func GetRouteGroups() []RouteGroup {
	return routeGroups
}

// publicExceptions are specific paths that don't require auth within
// otherwise protected groups. Public submission is the one write endpoint
// external parties can reach.
var publicExceptions = []string{
	"/api/healthz",
	"/api/auth/register",
	"/api/auth/login",
	"/api/enquiries/public",
}

// IsAuthRequired checks if a given path requires authentication.
// This is used by the auth middleware to make gating decisions.
func IsAuthRequired(path string, basePath string) bool {
	for _, exc := range publicExceptions {
		fullExc := basePath + exc
		if pathMatchesPrefix(path, fullExc) {
			return false
		}
	}

	for _, rg := range routeGroups {
		fullPrefix := basePath + rg.PathPrefix
		if pathMatchesPrefix(path, fullPrefix) {
			return rg.RequiresAuth
		}
	}

	// Default: require auth for unknown paths
	return true
}

// pathMatchesPrefix checks if path equals or is a subpath of prefix.
func pathMatchesPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	if len(path) > len(prefix) && path[:len(prefix)] == prefix {
		// Check for path separator
		if path[len(prefix)] == '/' {
			return true
		}
	}
	return false
}

// setupRoutes creates the chi router with all endpoints mounted.
func (s *Server) setupRoutes() chi.Router {
	r := chi.NewRouter()

	// Global middleware stack (order matters for correct logging)
	// RequestID must come first so GetReqID works in loggingMiddleware.
	// loggingMiddleware wraps the response, Recoverer writes through the
	// wrapper, so the access log captures correct status for panics.
	r.Use(middleware.RequestID)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// Rate limiting for high-risk public endpoints
	limiters := map[string]*ratelimit.Limiter{
		"/api/auth/login": ratelimit.New(s.deps.RateCounter, &ratelimit.Config{
			RequestsPerWindow: s.cfg.RateLimit.LoginPerMinute,
			Window:            ratelimit.DefaultConfig().Window,
			KeyPrefix:         "ratelimit:login:",
		}),
		"/api/enquiries/public": ratelimit.New(s.deps.RateCounter, &ratelimit.Config{
			RequestsPerWindow: s.cfg.RateLimit.SubmitPerMinute,
			Window:            ratelimit.DefaultConfig().Window,
			KeyPrefix:         "ratelimit:submit:",
		}),
	}
	r.Use(s.rateLimitMiddleware(limiters))

	// Auth middleware for all routes (checks IsAuthRequired)
	r.Use(s.authMiddleware)

	if s.cfg.BasePath != "" {
		r.Route(s.cfg.BasePath, func(r chi.Router) {
			s.mountAppEndpoints(r)
		})
	} else {
		s.mountAppEndpoints(r)
	}

	return r
}

// mountAppEndpoints mounts app endpoints (may be under base path).
func (s *Server) mountAppEndpoints(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		// Health endpoint (public)
		r.Get("/healthz", api.HealthHandler)

		// Auth endpoints (register and login are public, me is gated)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.authHandler.HandleRegister)
			r.Post("/login", s.authHandler.HandleLogin)
			r.Get("/me", s.authHandler.HandleMe)
		})

		// Enquiry endpoints
		r.Route("/enquiries", func(r chi.Router) {
			r.Post("/public", s.enquiryHandler.HandleSubmit)
			r.Get("/unclaimed", s.enquiryHandler.HandleListUnclaimed)
			r.Get("/mine", s.enquiryHandler.HandleListMine)
			r.Post("/{enquiryID}/claim", s.enquiryHandler.HandleClaim)
		})
	})
}
