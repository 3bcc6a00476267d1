// Package config loads the server configuration from the environment.
//
// cmd/server loads an optional .env file first, so every key below can be
// set either way. Relative file names are resolved against DATA_DIR.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DriverCSV    = "csv"
	DriverSQLite = "sqlite"
)

type Config struct {
	Port      int    `envconfig:"PORT" default:"8080"`
	Env       string `envconfig:"ENV" default:"development"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	DataDir      string        `envconfig:"DATA_DIR" default:"data"`
	UsersFile    string        `envconfig:"USERS_FILE" default:"usuarios.csv"`
	ListingsFile string        `envconfig:"LISTINGS_FILE" default:"vendas.csv"`
	CatalogFile  string        `envconfig:"CATALOG_FILE" default:"veiculos.json"`
	UploadDir    string        `envconfig:"UPLOAD_DIR" default:"uploads"`
	StoreDriver  string        `envconfig:"STORE_DRIVER" default:"csv"`
	DBPath       string        `envconfig:"DB_PATH" default:"data/veiculos.db"`
	CacheTTL     time.Duration `envconfig:"CACHE_TTL" default:"60s"`

	JWTSecret  string        `envconfig:"JWT_SECRET" required:"true"`
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"12h"`
	BcryptCost int           `envconfig:"BCRYPT_COST" default:"12"`

	RedisURL      string `envconfig:"REDIS_URL"`
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	ImageSearchAPIKey   string        `envconfig:"IMAGE_SEARCH_API_KEY"`
	ImageSearchCX       string        `envconfig:"IMAGE_SEARCH_CX"`
	ImageSearchURL      string        `envconfig:"IMAGE_SEARCH_URL"`
	ImageSearchTimeout  time.Duration `envconfig:"IMAGE_SEARCH_TIMEOUT" default:"5s"`
	ImageSearchCacheTTL time.Duration `envconfig:"IMAGE_SEARCH_CACHE_TTL" default:"24h"`

	MaxUploadMB int    `envconfig:"MAX_UPLOAD_MB" default:"10"`
	TemplateDir string `envconfig:"TEMPLATE_DIR" default:"web/templates"`
	StaticDir   string `envconfig:"STATIC_DIR" default:"web/static"`
}

// Load reads and validates the configuration.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values envconfig cannot.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 characters"))
	}
	switch c.StoreDriver {
	case DriverCSV, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverCSV, DriverSQLite, c.StoreDriver))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_MB must be positive"))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, errors.New("CACHE_TTL must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, EnvProduction)
}

// Level is the slog level named by LOG_LEVEL.
func (c *Config) Level() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

// UseRedis reports whether a Redis server is configured. Without one the
// image-lookup cache lives in process memory.
func (c *Config) UseRedis() bool {
	return c.RedisURL != "" || c.RedisAddr != ""
}

func (c *Config) JSONLogs() bool {
	return strings.EqualFold(c.LogFormat, "json")
}

func (c *Config) UsersPath() string    { return c.dataPath(c.UsersFile) }
func (c *Config) ListingsPath() string { return c.dataPath(c.ListingsFile) }
func (c *Config) CatalogPath() string  { return c.dataPath(c.CatalogFile) }

// MaxUploadBytes is MAX_UPLOAD_MB in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func (c *Config) dataPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q: %w", s, err)
	}
	return l, nil
}
