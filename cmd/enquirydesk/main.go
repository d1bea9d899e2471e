// Package main is the entrypoint for the enquirydesk server.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cachememory "github.com/enquirydesk/enquirydesk/internal/cache/memory"
	"github.com/enquirydesk/enquirydesk/internal/config"
	"github.com/enquirydesk/enquirydesk/internal/identity"
	"github.com/enquirydesk/enquirydesk/internal/server"
	"github.com/enquirydesk/enquirydesk/internal/store"
	"github.com/enquirydesk/enquirydesk/internal/token"

	// Register store drivers
	_ "github.com/enquirydesk/enquirydesk/internal/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML config file (optional)")
	listenAddr := flag.String("listen", "", "Listen address (overrides config)")
	basePath := flag.String("base-path", "", "Base path prefix (overrides config)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	tlsMode := flag.String("tls-mode", "", "TLS mode: off, static, selfsigned, or acme (overrides config)")
	storeDriver := flag.String("store-driver", "", "Store driver: memory or sqlite (overrides config)")
	dataDir := flag.String("data-dir", "", "Data directory (overrides config)")
	jwtSigningKey := flag.String("jwt-signing-key", "", "JWT signing key (overrides config)")
	flag.Parse()

	// Bootstrap logger for config loading errors (uses default level)
	bootstrapLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPath: *configPath,
		FlagOverrides: config.FlagOverrides{
			ListenAddr:    listenAddr,
			BasePath:      basePath,
			LogLevel:      logLevel,
			TLSMode:       tlsMode,
			StoreDriver:   storeDriver,
			DataDir:       dataDir,
			JWTSigningKey: jwtSigningKey,
		},
		Logger: bootstrapLogger,
	})
	if err != nil {
		bootstrapLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Log effective config with secrets redacted
	logger.Info("effective configuration", "config", cfg.Redacted())

	// Create store driver
	driver, err := store.New(&store.DriverConfig{
		Driver:  cfg.Store.Driver,
		DataDir: cfg.Store.DataDir,
		Options: driverOptions(cfg),
	})
	if err != nil {
		logger.Error("failed to create store driver", "error", err)
		os.Exit(1)
	}

	if cfg.Store.Driver == "sqlite" {
		if err := os.MkdirAll(cfg.Store.DataDir, 0700); err != nil {
			logger.Error("failed to create data directory", "path", cfg.Store.DataDir, "error", err)
			os.Exit(1)
		}
	}

	if err := driver.Init(context.Background()); err != nil {
		logger.Error("failed to initialize store", "driver", driver.Name(), "error", err)
		os.Exit(1)
	}
	defer driver.Close()
	logger.Info("store initialized", "driver", driver.Name())

	// Token service; generate an ephemeral key when none is configured.
	// Ephemeral keys invalidate all tokens on restart, fine for dev.
	signingKey := cfg.Auth.JWTSigningKey
	if signingKey == "" {
		signingKey = randomKey()
		logger.Warn("auth.jwt_signing_key is not set, using an ephemeral key; tokens will not survive restarts")
	}
	tokens := token.NewService(signingKey, "enquirydesk", time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)

	// Counter cache for rate limiting
	rateCounter := cachememory.New(time.Minute, 5*time.Minute)
	defer rateCounter.Close()

	deps := &server.Deps{
		Employees:   driver.Employees(),
		Enquiries:   driver.Enquiries(),
		Hasher:      identity.NewPasswordHasher(),
		Tokens:      tokens,
		RateCounter: rateCounter,
	}

	srv, err := server.New(cfg, logger, deps)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		// ErrServerClosed is the normal return during graceful shutdown
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("server started, press Ctrl+C to stop")

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// driverOptions extracts the [store.drivers.<name>] section for the
// selected driver.
func driverOptions(cfg *config.Config) map[string]any {
	raw, ok := cfg.Store.Drivers[cfg.Store.Driver]
	if !ok {
		return nil
	}
	opts, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	return opts
}

// randomKey generates a hex-encoded 32-byte key.
func randomKey() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
