// Package config provides configuration loading and validation.
package config

// Config holds the server configuration.
type Config struct {
	// ListenAddr is the address to listen on.
	// Example: ":8080"
	ListenAddr string `json:"listen_addr"`

	// BasePath is the optional path prefix for all endpoints.
	// Example: "/enquirydesk" or empty string
	BasePath string `json:"base_path"`

	// Hostname is used for self-signed certificate generation.
	Hostname string `json:"hostname"`

	Logging   LoggingConfig   `json:"logging"`
	TLS       TLSConfig       `json:"tls"`
	Auth      AuthConfig      `json:"auth"`
	Store     StoreConfig     `json:"store"`
	Server    ServerConfig    `json:"server"`
	RateLimit RateLimitConfig `json:"rate_limit"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is one of: debug, info, warn, error
	Level string `json:"level"`
}

// TLSConfig holds TLS-related settings.
type TLSConfig struct {
	// Mode is one of: off, static, selfsigned, acme
	Mode string `json:"mode"`

	// CertFile and KeyFile for static mode
	CertFile string `json:"cert_file"`
	KeyFile  string `json:"key_file"`

	// SelfSignedDir is where generated certificates are stored
	SelfSignedDir string `json:"self_signed_dir"`
}

// AuthConfig holds token issuance settings.
type AuthConfig struct {
	// JWTSigningKey signs bearer tokens. Must be set in production;
	// a development key is substituted with a warning when empty.
	JWTSigningKey string `json:"jwt_signing_key"`

	// TokenTTLHours is the bearer token lifetime in hours.
	TokenTTLHours int `json:"token_ttl_hours"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	// Driver is the persistence driver name: memory, sqlite
	Driver string `json:"driver"`

	// DataDir is the directory for data files (sqlite db)
	DataDir string `json:"data_dir"`

	// Drivers holds driver-specific settings keyed by driver name.
	Drivers map[string]any `json:"drivers"`
}

// ServerConfig holds server-specific settings.
type ServerConfig struct {
	// TrustedProxies lists CIDRs whose X-Forwarded-For headers are honored.
	TrustedProxies []string `json:"trusted_proxies"`
}

// RateLimitConfig holds per-endpoint rate limit settings.
type RateLimitConfig struct {
	// LoginPerMinute bounds login attempts per client IP.
	LoginPerMinute int64 `json:"login_per_minute"`

	// SubmitPerMinute bounds public enquiry submissions per client IP.
	SubmitPerMinute int64 `json:"submit_per_minute"`
}

// DefaultConfig returns a Config with sensible defaults for local development.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr: ":8080",
		BasePath:   "",
		Hostname:   "localhost",
		Logging: LoggingConfig{
			Level: "info",
		},
		TLS: TLSConfig{
			Mode:          "off",
			SelfSignedDir: ".enquirydesk/certs",
		},
		Auth: AuthConfig{
			TokenTTLHours: 168, // 7 days
		},
		Store: StoreConfig{
			Driver:  "memory",
			DataDir: ".enquirydesk/data",
		},
		Server: ServerConfig{
			TrustedProxies: []string{"127.0.0.0/8", "::1/128"},
		},
		RateLimit: RateLimitConfig{
			LoginPerMinute:  5,
			SubmitPerMinute: 20,
		},
	}
}

// Redacted returns a copy safe for logging. Secrets are masked.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Auth.JWTSigningKey != "" {
		out.Auth.JWTSigningKey = "[REDACTED]"
	}
	return &out
}
