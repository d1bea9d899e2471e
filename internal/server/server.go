// Package server provides HTTP server wiring and lifecycle management.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/enquirydesk/enquirydesk/internal/api"
	"github.com/enquirydesk/enquirydesk/internal/cache"
	cachememory "github.com/enquirydesk/enquirydesk/internal/cache/memory"
	"github.com/enquirydesk/enquirydesk/internal/config"
	"github.com/enquirydesk/enquirydesk/internal/enquiry"
	"github.com/enquirydesk/enquirydesk/internal/identity"
	"github.com/enquirydesk/enquirydesk/internal/token"
)

var (
	ErrMissingDep = errors.New("missing required dependency")
)

// Deps holds all server dependencies.
type Deps struct {
	// Required: repositories from the selected store driver
	Employees identity.Repo
	Enquiries enquiry.Repo

	// Required: password hashing and token issuance
	Hasher *identity.PasswordHasher
	Tokens *token.Service

	// Optional: counter backend for rate limiting (nil uses in-memory)
	RateCounter cache.Counter
}

// Server wraps the HTTP server and its dependencies.
type Server struct {
	cfg            *config.Config
	httpServer     *http.Server
	logger         *slog.Logger
	deps           *Deps
	trustedProxies *TrustedProxies
	authHandler    *api.AuthHandler
	enquiryHandler *api.EnquiryHandler
}

// New creates a new Server with the given configuration.
// Returns an error if required dependencies are missing.
func New(cfg *config.Config, logger *slog.Logger, deps *Deps) (*Server, error) {
	// Fail fast: validate required dependencies
	if err := validateDeps(deps); err != nil {
		return nil, err
	}

	initializeDefaults(deps)

	issuer := identity.NewIssuer(deps.Employees, deps.Hasher, deps.Tokens)

	authHandler := api.NewAuthHandler(issuer, CurrentEmployee, logger)

	enquirySvc := enquiry.NewService(deps.Enquiries, logger)
	enquiryHandler := api.NewEnquiryHandler(enquirySvc, CurrentEmployee, logger)

	trustedProxies := NewTrustedProxies(cfg.Server.TrustedProxies)

	s := &Server{
		cfg:            cfg,
		logger:         logger,
		deps:           deps,
		trustedProxies: trustedProxies,
		authHandler:    authHandler,
		enquiryHandler: enquiryHandler,
	}

	router := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the configured router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server. It blocks until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting server",
		"addr", s.cfg.ListenAddr,
		"base_path", s.cfg.BasePath,
		"tls_mode", s.cfg.TLS.Mode,
	)

	switch s.cfg.TLS.Mode {
	case "off":
		return s.httpServer.ListenAndServe()

	case "acme":
		// ACME is not implemented - fail fast with a clear error
		return ErrACMENotImplemented

	case "static", "selfsigned":
		tlsManager := NewTLSManager(&s.cfg.TLS, s.logger)
		tlsConfig, err := tlsManager.GetTLSConfig(s.cfg.Hostname)
		if err != nil {
			return fmt.Errorf("failed to configure TLS: %w", err)
		}
		if tlsConfig == nil {
			return fmt.Errorf("TLS config is nil for mode %s", s.cfg.TLS.Mode)
		}

		s.httpServer.TLSConfig = tlsConfig
		s.logger.Info("starting server with TLS", "mode", s.cfg.TLS.Mode)

		// Certs are in TLSConfig.Certificates, so ListenAndServeTLS
		// takes empty file paths.
		return s.httpServer.ListenAndServeTLS("", "")

	default:
		return fmt.Errorf("%w: %s", ErrInvalidTLSMode, s.cfg.TLS.Mode)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}

// validateDeps checks that all required dependencies are provided.
func validateDeps(deps *Deps) error {
	if deps == nil {
		return errors.New("deps is nil")
	}

	if deps.Employees == nil {
		return fmt.Errorf("%w: Employees", ErrMissingDep)
	}
	if deps.Enquiries == nil {
		return fmt.Errorf("%w: Enquiries", ErrMissingDep)
	}
	if deps.Hasher == nil {
		return fmt.Errorf("%w: Hasher", ErrMissingDep)
	}
	if deps.Tokens == nil {
		return fmt.Errorf("%w: Tokens", ErrMissingDep)
	}

	// Optional deps are allowed to be nil
	return nil
}

// initializeDefaults fills optional dependencies that are nil.
func initializeDefaults(deps *Deps) {
	if deps.RateCounter == nil {
		deps.RateCounter = cachememory.New(time.Minute, 5*time.Minute)
	}
}
