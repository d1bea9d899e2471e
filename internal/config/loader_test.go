package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/enquirydesk/enquirydesk/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(config.LoaderOptions{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ListenAddr != ":8080" {
		t.Errorf("expected default listen addr, got %q", cfg.ListenAddr)
	}
	if cfg.Store.Driver != "memory" {
		t.Errorf("expected default store driver memory, got %q", cfg.Store.Driver)
	}
	if cfg.Auth.TokenTTLHours != 168 {
		t.Errorf("expected default token TTL 168h, got %d", cfg.Auth.TokenTTLHours)
	}
	if cfg.TLS.Mode != "off" {
		t.Errorf("expected default TLS mode off, got %q", cfg.TLS.Mode)
	}
}

func TestLoad_FileOverlay(t *testing.T) {
	path := writeConfig(t, `
listen_addr = ":9999"

[logging]
level = "debug"

[auth]
jwt_signing_key = "file-secret"
token_ttl_hours = 24

[store]
driver = "sqlite"
data_dir = "/tmp/enq"

[store.drivers.sqlite]
file = "custom.db"

[rate_limit]
login_per_minute = 10
`)

	cfg, err := config.Load(config.LoaderOptions{ConfigPath: path})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ListenAddr != ":9999" {
		t.Errorf("listen_addr not overlaid: %q", cfg.ListenAddr)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level not overlaid: %q", cfg.Logging.Level)
	}
	if cfg.Auth.JWTSigningKey != "file-secret" {
		t.Errorf("auth.jwt_signing_key not overlaid")
	}
	if cfg.Auth.TokenTTLHours != 24 {
		t.Errorf("auth.token_ttl_hours not overlaid: %d", cfg.Auth.TokenTTLHours)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Store.DataDir != "/tmp/enq" {
		t.Errorf("store section not overlaid: %+v", cfg.Store)
	}
	if cfg.RateLimit.LoginPerMinute != 10 {
		t.Errorf("rate_limit not overlaid: %d", cfg.RateLimit.LoginPerMinute)
	}
	// Untouched values keep defaults
	if cfg.RateLimit.SubmitPerMinute != 20 {
		t.Errorf("expected default submit rate, got %d", cfg.RateLimit.SubmitPerMinute)
	}

	// Driver-specific options survive as a raw map
	sqliteOpts, ok := cfg.Store.Drivers["sqlite"].(map[string]any)
	if !ok {
		t.Fatalf("expected sqlite driver options map, got %T", cfg.Store.Drivers["sqlite"])
	}
	if sqliteOpts["file"] != "custom.db" {
		t.Errorf("expected custom.db, got %v", sqliteOpts["file"])
	}
}

func TestLoad_FlagsWinOverFile(t *testing.T) {
	path := writeConfig(t, `listen_addr = ":9999"`)

	listen := ":7777"
	driver := "sqlite"
	cfg, err := config.Load(config.LoaderOptions{
		ConfigPath: path,
		FlagOverrides: config.FlagOverrides{
			ListenAddr:  &listen,
			StoreDriver: &driver,
		},
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ListenAddr != ":7777" {
		t.Errorf("flag should win over file: %q", cfg.ListenAddr)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("flag should override default driver: %q", cfg.Store.Driver)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(config.LoaderOptions{ConfigPath: "/nonexistent/config.toml"})
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeConfig(t, `listen_addr = [broken`)
	if _, err := config.Load(config.LoaderOptions{ConfigPath: path}); err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestLoad_InvalidEnums(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad tls mode", "[tls]\nmode = \"mutual\"", "tls.mode"},
		{"bad store driver", "[store]\ndriver = \"postgres\"", "store.driver"},
		{"bad log level", "[logging]\nlevel = \"verbose\"", "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := config.Load(config.LoaderOptions{ConfigPath: path})
			if err == nil {
				t.Fatal("expected enum validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Auth.JWTSigningKey = "super-secret"

	red := cfg.Redacted()
	if red.Auth.JWTSigningKey != "[REDACTED]" {
		t.Errorf("expected redacted key, got %q", red.Auth.JWTSigningKey)
	}
	// Original is untouched
	if cfg.Auth.JWTSigningKey != "super-secret" {
		t.Error("Redacted must not mutate the original config")
	}
}
