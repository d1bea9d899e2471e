// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// LoaderOptions controls how configuration is loaded.
type LoaderOptions struct {
	// ConfigPath is the path to a TOML config file (optional).
	// If provided but file is missing or invalid, loading fails.
	ConfigPath string

	// FlagOverrides are CLI flag values that override config file values.
	FlagOverrides FlagOverrides

	// Logger is used for warning messages (e.g., undecoded keys).
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// FlagOverrides holds CLI flag values that override config file values.
type FlagOverrides struct {
	ListenAddr    *string
	BasePath      *string
	LogLevel      *string
	TLSMode       *string
	StoreDriver   *string
	DataDir       *string
	JWTSigningKey *string
}

// fileConfig mirrors Config but with pointer sections to detect presence.
type fileConfig struct {
	ListenAddr string `toml:"listen_addr"`
	BasePath   string `toml:"base_path"`
	Hostname   string `toml:"hostname"`

	Logging   *LoggingConfig   `toml:"logging"`
	TLS       *TLSConfig       `toml:"tls"`
	Auth      *authConfig      `toml:"auth"`
	Store     *storeConfig     `toml:"store"`
	Server    *serverConfig    `toml:"server"`
	RateLimit *rateLimitConfig `toml:"rate_limit"`
}

type authConfig struct {
	JWTSigningKey string `toml:"jwt_signing_key"`
	TokenTTLHours int    `toml:"token_ttl_hours"`
}

type storeConfig struct {
	Driver  string         `toml:"driver"`
	DataDir string         `toml:"data_dir"`
	Drivers map[string]any `toml:"drivers"`
}

type serverConfig struct {
	TrustedProxies []string `toml:"trusted_proxies"`
}

type rateLimitConfig struct {
	LoginPerMinute  int64 `toml:"login_per_minute"`
	SubmitPerMinute int64 `toml:"submit_per_minute"`
}

// Load loads configuration with the following precedence:
//  1. Start from defaults
//  2. Overlay TOML config file values
//  3. Overlay CLI flags
//  4. Validate enum fields
//
// If ConfigPath is provided but the file is missing, unreadable, or invalid
// TOML, Load returns an error (fail fast). Unknown TOML keys produce a
// warning but do not fail the load.
func Load(opts LoaderOptions) (*Config, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var fc fileConfig

	if opts.ConfigPath != "" {
		data, err := os.ReadFile(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.ConfigPath, err)
		}
		md, err := toml.Decode(string(data), &fc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", opts.ConfigPath, err)
		}

		// Warn about undecoded keys (do not fail)
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			logger.Warn("config file contains undecoded keys", "path", opts.ConfigPath, "keys", keys)
		}
	}

	cfg := DefaultConfig()

	if opts.ConfigPath != "" {
		overlayFileConfig(cfg, &fc)
	}

	overlayFlags(cfg, opts.FlagOverrides)

	if err := validateEnums(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// overlayFileConfig applies TOML file values onto cfg.
func overlayFileConfig(cfg *Config, fc *fileConfig) {
	if fc.ListenAddr != "" {
		cfg.ListenAddr = fc.ListenAddr
	}
	if fc.BasePath != "" {
		cfg.BasePath = fc.BasePath
	}
	if fc.Hostname != "" {
		cfg.Hostname = fc.Hostname
	}

	if fc.Logging != nil {
		if fc.Logging.Level != "" {
			cfg.Logging.Level = fc.Logging.Level
		}
	}

	if fc.TLS != nil {
		if fc.TLS.Mode != "" {
			cfg.TLS.Mode = fc.TLS.Mode
		}
		if fc.TLS.CertFile != "" {
			cfg.TLS.CertFile = fc.TLS.CertFile
		}
		if fc.TLS.KeyFile != "" {
			cfg.TLS.KeyFile = fc.TLS.KeyFile
		}
		if fc.TLS.SelfSignedDir != "" {
			cfg.TLS.SelfSignedDir = fc.TLS.SelfSignedDir
		}
	}

	if fc.Auth != nil {
		if fc.Auth.JWTSigningKey != "" {
			cfg.Auth.JWTSigningKey = fc.Auth.JWTSigningKey
		}
		if fc.Auth.TokenTTLHours != 0 {
			cfg.Auth.TokenTTLHours = fc.Auth.TokenTTLHours
		}
	}

	if fc.Store != nil {
		if fc.Store.Driver != "" {
			cfg.Store.Driver = fc.Store.Driver
		}
		if fc.Store.DataDir != "" {
			cfg.Store.DataDir = fc.Store.DataDir
		}
		if len(fc.Store.Drivers) > 0 {
			cfg.Store.Drivers = fc.Store.Drivers
		}
	}

	if fc.Server != nil {
		if len(fc.Server.TrustedProxies) > 0 {
			cfg.Server.TrustedProxies = fc.Server.TrustedProxies
		}
	}

	if fc.RateLimit != nil {
		if fc.RateLimit.LoginPerMinute != 0 {
			cfg.RateLimit.LoginPerMinute = fc.RateLimit.LoginPerMinute
		}
		if fc.RateLimit.SubmitPerMinute != 0 {
			cfg.RateLimit.SubmitPerMinute = fc.RateLimit.SubmitPerMinute
		}
	}
}

// overlayFlags applies CLI flag values onto cfg.
func overlayFlags(cfg *Config, f FlagOverrides) {
	if f.ListenAddr != nil && *f.ListenAddr != "" {
		cfg.ListenAddr = *f.ListenAddr
	}
	if f.BasePath != nil && *f.BasePath != "" {
		cfg.BasePath = *f.BasePath
	}
	if f.LogLevel != nil && *f.LogLevel != "" {
		cfg.Logging.Level = *f.LogLevel
	}
	if f.TLSMode != nil && *f.TLSMode != "" {
		cfg.TLS.Mode = *f.TLSMode
	}
	if f.StoreDriver != nil && *f.StoreDriver != "" {
		cfg.Store.Driver = *f.StoreDriver
	}
	if f.DataDir != nil && *f.DataDir != "" {
		cfg.Store.DataDir = *f.DataDir
	}
	if f.JWTSigningKey != nil && *f.JWTSigningKey != "" {
		cfg.Auth.JWTSigningKey = *f.JWTSigningKey
	}
}

// validateEnums validates enum-like config fields and returns an error for
// invalid values.
func validateEnums(cfg *Config) error {
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("invalid logging.level %q: must be one of debug, info, warn, error", cfg.Logging.Level)
	}

	switch cfg.TLS.Mode {
	case "off", "static", "selfsigned", "acme":
		// valid
	default:
		return fmt.Errorf("invalid tls.mode %q: must be one of off, static, selfsigned, acme", cfg.TLS.Mode)
	}

	switch cfg.Store.Driver {
	case "memory", "sqlite":
		// valid
	default:
		return fmt.Errorf("invalid store.driver %q: must be one of memory, sqlite", cfg.Store.Driver)
	}

	if cfg.Auth.TokenTTLHours < 0 {
		return fmt.Errorf("invalid auth.token_ttl_hours %d: must be positive", cfg.Auth.TokenTTLHours)
	}

	if cfg.RateLimit.LoginPerMinute < 0 || cfg.RateLimit.SubmitPerMinute < 0 {
		return fmt.Errorf("rate limit values must be positive")
	}

	return nil
}
