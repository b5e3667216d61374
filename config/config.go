package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/cwrk-planet/poll-service/internal/pg"
	"github.com/cwrk-planet/poll-service/internal/telemetry"
	"github.com/cwrk-planet/poll-service/pkg/logger"
)

// envPrefix - переменные окружения перекрывают YAML: POLL_HTTP_ADDR, POLL_STORAGE_DRIVER и т.д.
const envPrefix = "POLL_"

type HTTP struct {
	Addr              string        `yaml:"addr" env:"ADDR"`
	ReadHeaderTimeout time.Duration `yaml:"readHeaderTimeout" env:"READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout" env:"SHUTDOWN_TIMEOUT"`
	CORSOrigins       []string      `yaml:"corsOrigins" env:"CORS_ORIGINS"`
}

type GRPC struct {
	Addr string `yaml:"addr" env:"ADDR"` // пусто - gRPC не поднимаем
}

type Logging struct {
	Env       string `yaml:"env" env:"ENV"`             // dev|stage|prod
	Service   string `yaml:"service" env:"SERVICE"`     // poll-service
	Version   string `yaml:"version" env:"VERSION"`     // v0.1.0
	Backend   string `yaml:"backend" env:"BACKEND"`     // std|zap
	Level     string `yaml:"level" env:"LEVEL"`         // debug|info|warn|error
	AddSource bool   `yaml:"addSource" env:"ADD_SOURCE"`
	Debug     bool   `yaml:"debug" env:"DEBUG"`
}

func (l Logging) ToLogger() logger.Config {
	return logger.Config{
		Env:       logger.Env(l.Env),
		Service:   l.Service,
		Version:   l.Version,
		Backend:   logger.Backend(l.Backend),
		Level:     logger.ParseLevel(l.Level),
		AddSource: l.AddSource,
		Debug:     l.Debug,
	}
}

type Postgres struct {
	DSN               string        `yaml:"dsn" env:"DSN"`
	MaxConns          int32         `yaml:"maxConns" env:"MAX_CONNS"`
	MinConns          int32         `yaml:"minConns" env:"MIN_CONNS"`
	MaxConnLifetime   time.Duration `yaml:"maxConnLifetime" env:"MAX_CONN_LIFETIME"`
	MaxConnIdleTime   time.Duration `yaml:"maxConnIdleTime" env:"MAX_CONN_IDLE_TIME"`
	HealthCheckPeriod time.Duration `yaml:"healthCheckPeriod" env:"HEALTH_CHECK_PERIOD"`
	ApplicationName   string        `yaml:"applicationName" env:"APPLICATION_NAME"`
	Migrate           bool          `yaml:"migrate" env:"MIGRATE"` // применить миграции на старте
}

func (p Postgres) ToPGConfig() pg.Config {
	return pg.Config{
		DSN:               p.DSN,
		MaxConns:          p.MaxConns,
		MinConns:          p.MinConns,
		MaxConnLifetime:   p.MaxConnLifetime,
		MaxConnIdleTime:   p.MaxConnIdleTime,
		HealthCheckPeriod: p.HealthCheckPeriod,
		ApplicationName:   p.ApplicationName,
	}
}

type SQLite struct {
	Path string `yaml:"path" env:"PATH"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Storage struct {
	Driver   string   `yaml:"driver" env:"DRIVER"` // postgres|sqlite|memory
	Postgres Postgres `yaml:"postgres" envPrefix:"PG_"`
	SQLite   SQLite   `yaml:"sqlite" envPrefix:"SQLITE_"`
}

func (s Storage) Validate() error {
	switch s.Driver {
	case DriverPostgres:
		if s.Postgres.DSN == "" {
			return errors.New("storage.postgres.dsn is required")
		}
	case DriverSQLite:
		if strings.TrimSpace(s.SQLite.Path) == "" {
			return errors.New("storage.sqlite.path is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("storage.driver %q is not supported", s.Driver)
	}
	return nil
}

// Auth - проверка JWT ведущего. Нужен либо hmacSecret (HS256), либо publicKeyPath (RS256).
type Auth struct {
	Issuer        string        `yaml:"issuer" env:"ISSUER"`
	Audience      string        `yaml:"audience" env:"AUDIENCE"`
	HMACSecret    string        `yaml:"hmacSecret" env:"HMAC_SECRET"`
	PublicKeyPath string        `yaml:"publicKeyPath" env:"PUBLIC_KEY_PATH"`
	ClockSkew     time.Duration `yaml:"clockSkew" env:"CLOCK_SKEW"` // напр. 30s
}

func (a Auth) Validate() error {
	if a.HMACSecret == "" && a.PublicKeyPath == "" {
		return errors.New("auth.hmacSecret or auth.publicKeyPath is required")
	}
	if a.HMACSecret != "" && a.PublicKeyPath != "" {
		return errors.New("auth.hmacSecret and auth.publicKeyPath are mutually exclusive")
	}
	if a.ClockSkew < 0 || a.ClockSkew > time.Minute {
		return errors.New("auth.clockSkew must be in [0..1m]")
	}
	return nil
}

type Telemetry struct {
	Enabled     bool    `yaml:"enabled" env:"ENABLED"`
	Endpoint    string  `yaml:"endpoint" env:"ENDPOINT"`
	SampleRatio float64 `yaml:"sampleRatio" env:"SAMPLE_RATIO"`
}

func (c *Config) ToTelemetry() telemetry.Config {
	return telemetry.Config{
		Enabled:     c.Telemetry.Enabled,
		Endpoint:    c.Telemetry.Endpoint,
		SampleRatio: c.Telemetry.SampleRatio,
		Service:     c.Logging.Service,
		Version:     c.Logging.Version,
		Env:         c.Logging.Env,
	}
}

type WS struct {
	PingInterval time.Duration `yaml:"pingInterval" env:"PING_INTERVAL"`
	WriteTimeout time.Duration `yaml:"writeTimeout" env:"WRITE_TIMEOUT"`
	SendBuffer   int           `yaml:"sendBuffer" env:"SEND_BUFFER"`
}

type Config struct {
	HTTP      HTTP      `yaml:"http" envPrefix:"HTTP_"`
	GRPC      GRPC      `yaml:"grpc" envPrefix:"GRPC_"`
	Logging   Logging   `yaml:"logging" envPrefix:"LOG_"`
	Storage   Storage   `yaml:"storage" envPrefix:"STORAGE_"`
	Auth      Auth      `yaml:"auth" envPrefix:"AUTH_"`
	Telemetry Telemetry `yaml:"telemetry" envPrefix:"OTEL_"`
	WS        WS        `yaml:"ws" envPrefix:"WS_"`
}

// LoadConfig читает YAML (путь из аргумента, CONFIG_PATH или ./config/config.yaml),
// накладывает переменные POLL_* и проверяет результат. Отсутствие файла - не ошибка.
func LoadConfig(path ...string) (*Config, error) {
	filename := os.Getenv("CONFIG_PATH")
	if len(path) > 0 && strings.TrimSpace(path[0]) != "" {
		filename = path[0]
	}
	if filename == "" {
		filename = "./config/config.yaml"
	}

	var cfg Config
	data, err := os.ReadFile(filename)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filename, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	// установка дефолтов, если значения не указаны
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ReadHeaderTimeout <= 0 {
		c.HTTP.ReadHeaderTimeout = 5 * time.Second
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.Logging.Service == "" {
		c.Logging.Service = "poll-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverMemory
	}
	if c.WS.PingInterval <= 0 {
		c.WS.PingInterval = 30 * time.Second
	}
	if c.WS.WriteTimeout <= 0 {
		c.WS.WriteTimeout = 10 * time.Second
	}
	if c.WS.SendBuffer <= 0 {
		c.WS.SendBuffer = 64
	}

	if c.Logging.Backend != "std" && c.Logging.Backend != "zap" {
		return fmt.Errorf("logging.backend %q is not supported", c.Logging.Backend)
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return errors.New("telemetry.endpoint is required when telemetry is enabled")
	}
	return nil
}
