package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_YAMLAndDefaults(t *testing.T) {
	path := writeConfig(t, `
storage:
  driver: sqlite
  sqlite:
    path: /tmp/poll.db
auth:
  hmacSecret: "0123456789abcdef"
  clockSkew: 15s
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Storage.Driver != DriverSQLite || cfg.Storage.SQLite.Path != "/tmp/poll.db" {
		t.Fatalf("storage: %+v", cfg.Storage)
	}
	if cfg.Auth.ClockSkew != 15*time.Second {
		t.Fatalf("clockSkew = %v", cfg.Auth.ClockSkew)
	}
	if cfg.HTTP.Addr != ":8080" || cfg.Logging.Service != "poll-service" || cfg.WS.PingInterval != 30*time.Second {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
http:
  addr: ":8080"
storage:
  driver: postgres
  postgres:
    dsn: "postgres://from-yaml"
auth:
  hmacSecret: "0123456789abcdef"
`)
	t.Setenv("POLL_HTTP_ADDR", ":9999")
	t.Setenv("POLL_STORAGE_PG_DSN", "postgres://from-env")
	t.Setenv("POLL_HTTP_CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HTTP.Addr != ":9999" {
		t.Fatalf("http.addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Storage.Postgres.DSN != "postgres://from-env" {
		t.Fatalf("dsn = %q", cfg.Storage.Postgres.DSN)
	}
	if len(cfg.HTTP.CORSOrigins) != 2 {
		t.Fatalf("cors = %v", cfg.HTTP.CORSOrigins)
	}
}

func TestLoadConfig_MissingFileUsesEnv(t *testing.T) {
	t.Setenv("POLL_AUTH_HMAC_SECRET", "0123456789abcdef")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Storage.Driver != DriverMemory {
		t.Fatalf("driver = %q", cfg.Storage.Driver)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"no auth", `storage: {driver: memory}`, "auth.hmacSecret"},
		{"both keys", "auth: {hmacSecret: x, publicKeyPath: /k.pem}", "mutually exclusive"},
		{"postgres without dsn", "storage: {driver: postgres}\nauth: {hmacSecret: x}", "storage.postgres.dsn"},
		{"unknown driver", "storage: {driver: mongo}\nauth: {hmacSecret: x}", "not supported"},
		{"bad backend", "logging: {backend: logrus}\nauth: {hmacSecret: x}", "logging.backend"},
		{"skew too large", "auth: {hmacSecret: x, clockSkew: 5m}", "clockSkew"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("got %v, want error containing %q", err, tc.want)
			}
		})
	}
}
