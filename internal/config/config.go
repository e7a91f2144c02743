// Package config assembles the runtime configuration from, in increasing
// precedence: built-in defaults, a YAML file, a .env file and SA_* variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v3"

	"github.com/koustreak/sqlany/internal/database"
	"github.com/koustreak/sqlany/internal/errs"
	"github.com/koustreak/sqlany/internal/filestore"
	"github.com/koustreak/sqlany/internal/logger"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SA_"

// Config is the complete runtime configuration.
type Config struct {
	Database database.Config  `yaml:"database"`
	Logging  logger.Config    `yaml:"logging"`
	Server   ServerConfig     `yaml:"server"`
	Store    filestore.Config `yaml:"store"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Database: *database.DefaultConfig(""),
		Logging:  *logger.DefaultConfig(),
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Store: filestore.Config{Bucket: filestore.DefaultBucket},
	}
}

// Load reads path (skipped when empty), then envFile (".env" when empty; a
// missing file is not an error), then SA_* variables, and validates the result.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindConfiguration, fmt.Sprintf("failed to read config %s", path), err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errs.Wrap(errs.ErrKindConfiguration, fmt.Sprintf("failed to parse config %s", path), err)
		}
	}

	if envFile == "" {
		envFile = ".env"
	}
	// godotenv.Load never overrides variables already set in the process.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errs.Wrap(errs.ErrKindConfiguration, fmt.Sprintf("failed to load %s", envFile), err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return errs.New(errs.ErrKindConfiguration, "database.dsn is required (or set SA_DB_DSN)")
	}
	if c.Database.Placeholder == "" {
		c.Database.Placeholder = database.DefaultPlaceholder(c.Database.DriverName)
	}
	if !c.Database.Placeholder.Valid() {
		return errs.Newf(errs.ErrKindConfiguration, "database.placeholder %q must be question or ordinal", c.Database.Placeholder)
	}
	if c.Database.Placeholder == database.PlaceholderQuestion && usesSQLServerDriver(c.Database.DriverName) {
		return errs.Newf(errs.ErrKindConfiguration,
			"database.placeholder question is not accepted by the %q driver; use ordinal", database.DefaultDriverName)
	}
	if c.Database.PrologueResultSets < 0 {
		return errs.New(errs.ErrKindConfiguration, "database.prologue_result_sets must not be negative")
	}
	if c.Store.Provider != "" && c.Store.Provider != filestore.ProviderMinIO {
		return errs.Newf(errs.ErrKindConfiguration, "store.provider %q is not supported", c.Store.Provider)
	}
	return nil
}

func usesSQLServerDriver(name string) bool {
	return name == "" || name == database.DefaultDriverName
}

// applyEnv overlays SA_* variables onto cfg.
func applyEnv(cfg *Config) error {
	db := &cfg.Database
	str := map[string]*string{
		"DB_DRIVER":         &db.DriverName,
		"DB_DSN":            &db.DSN,
		"DB_DEFAULT_SCHEMA": &db.DefaultSchema,
		"LOG_LEVEL":         &cfg.Logging.Level,
		"LOG_FORMAT":        &cfg.Logging.Format,
		"SERVER_ADDR":       &cfg.Server.Addr,
		"STORE_ENDPOINT":    &cfg.Store.Endpoint,
		"STORE_ACCESS_KEY":  &cfg.Store.AccessKey,
		"STORE_SECRET_KEY":  &cfg.Store.SecretKey,
		"STORE_REGION":      &cfg.Store.Region,
		"STORE_BUCKET":      &cfg.Store.Bucket,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	if v, ok := lookup("DB_PLACEHOLDER"); ok {
		db.Placeholder = database.PlaceholderStyle(v)
	}
	if v, ok := lookup("STORE_PROVIDER"); ok {
		cfg.Store.Provider = filestore.Provider(v)
	}

	bools := map[string]*bool{
		"DB_OUTPUT_BINDING": &db.SupportsOutputBinding,
		"STORE_USE_SSL":     &cfg.Store.UseSSL,
	}
	for key, dst := range bools {
		if err := parseEnv(key, dst, strconv.ParseBool); err != nil {
			return err
		}
	}

	if err := parseEnv("DB_PROLOGUE_RESULT_SETS", &db.PrologueResultSets, strconv.Atoi); err != nil {
		return err
	}
	if err := parseEnv("DB_MAX_CONNS", &db.MaxConns, parseInt32); err != nil {
		return err
	}

	durations := map[string]*time.Duration{
		"DB_CONNECT_TIMEOUT":   &db.ConnectTimeout,
		"DB_QUERY_TIMEOUT":     &db.QueryTimeout,
		"SERVER_READ_TIMEOUT":  &cfg.Server.ReadTimeout,
		"SERVER_WRITE_TIMEOUT": &cfg.Server.WriteTimeout,
	}
	for key, dst := range durations {
		if err := parseEnv(key, dst, time.ParseDuration); err != nil {
			return err
		}
	}
	return nil
}

func lookup(key string) (string, bool) {
	return os.LookupEnv(EnvPrefix + key)
}

// parseEnv sets *dst from SA_<key> when present. Unparsable values are
// configuration errors rather than silently ignored.
func parseEnv[T any](key string, dst *T, parse func(string) (T, error)) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := parse(raw)
	if err != nil {
		return errs.Wrap(errs.ErrKindConfiguration, fmt.Sprintf("invalid %s%s=%q", EnvPrefix, key, raw), err)
	}
	*dst = v
	return nil
}

func parseInt32(s string) (int32, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	return int32(n), err
}
