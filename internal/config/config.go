// Package config loads the quarry CLI configuration from quarry.yaml, the
// environment and .env files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/lib/pq"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/syssam/quarry"
	"github.com/syssam/quarry/cache"
	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/dialect/sql"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "QUARRY"

// Config holds the CLI configuration.
type Config struct {
	Dialect  string      `mapstructure:"dialect"`
	Prefix   string      `mapstructure:"prefix"`
	TestMode bool        `mapstructure:"test_mode"`
	DSN      string      `mapstructure:"dsn"`
	Cache    CacheConfig `mapstructure:"cache"`
	Log      LogConfig   `mapstructure:"log"`
}

// CacheConfig configures the compiled statement cache.
type CacheConfig struct {
	// RedisURL selects a Redis cache. The in-memory cache is used when empty.
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// LogConfig configures the CLI logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

var defaults = map[string]any{
	"dialect":         dialect.ANSI,
	"prefix":          "",
	"test_mode":       false,
	"dsn":             "",
	"cache.redis_url": "",
	"cache.ttl":       "10m",
	"log.level":       "info",
}

// Loader reads configuration from a directory of an afero filesystem.
type Loader struct {
	Fs  afero.Fs
	Dir string
}

// Load reads the configuration of dir on the OS filesystem.
func Load(dir string) (*Config, error) {
	return (&Loader{Fs: afero.NewOsFs(), Dir: dir}).Load()
}

// Load merges, from lowest to highest priority: defaults, quarry.yaml,
// .env, .env.local and QUARRY_ environment variables.
func (l *Loader) Load() (*Config, error) {
	v := viper.New()
	v.SetFs(l.Fs)
	v.SetConfigName("quarry")
	v.SetConfigType("yaml")
	v.AddConfigPath(l.Dir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read quarry.yaml: %w", err)
		}
	}
	env, err := l.dotenv()
	if err != nil {
		return nil, err
	}
	for k := range defaults {
		name := envName(k)
		if _, ok := os.LookupEnv(name); ok {
			continue
		}
		if val, ok := env[name]; ok {
			v.Set(k, val)
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// dotenv reads .env and lets .env.local override it. Missing files are
// skipped.
func (l *Loader) dotenv() (map[string]string, error) {
	env := make(map[string]string)
	for _, name := range []string{".env", ".env.local"} {
		data, err := afero.ReadFile(l.Fs, filepath.Join(l.Dir, name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", name, err)
		}
		vars, err := godotenv.Parse(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", name, err)
		}
		for k, val := range vars {
			env[k] = val
		}
	}
	return env, nil
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Validate checks the dialect, the log level and the DSN format.
func (c *Config) Validate() error {
	if _, err := sql.GrammarFor(c.Dialect); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("config: negative cache ttl %s", c.Cache.TTL)
	}
	if c.DSN == "" {
		return nil
	}
	switch c.Dialect {
	case dialect.MySQL:
		if _, err := mysql.ParseDSN(c.DSN); err != nil {
			return fmt.Errorf("config: invalid mysql dsn: %w", err)
		}
	case dialect.Postgres:
		if strings.HasPrefix(c.DSN, "postgres://") || strings.HasPrefix(c.DSN, "postgresql://") {
			if _, err := pq.ParseURL(c.DSN); err != nil {
				return fmt.Errorf("config: invalid postgres dsn: %w", err)
			}
		}
	}
	return nil
}

// Grammar returns the grammar of the configured dialect.
func (c *Config) Grammar() sql.Grammar {
	g, err := sql.GrammarFor(c.Dialect)
	if err != nil {
		return sql.ANSI
	}
	return g
}

// BuilderOptions returns the builder options implied by the configuration.
func (c *Config) BuilderOptions(logger *slog.Logger) []sql.Option {
	var opts []sql.Option
	if c.Prefix != "" {
		opts = append(opts, sql.WithPrefix(c.Prefix))
	}
	if c.TestMode {
		opts = append(opts, sql.WithTestMode())
	}
	if logger != nil {
		opts = append(opts, sql.WithLogger(logger))
	}
	return opts
}

// LogLevel parses the configured log level.
func (c *Config) LogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("config: invalid log level %q", c.Log.Level)
	}
	return lvl, nil
}

// OpenCache returns a Redis cache when a URL is configured and an
// in-memory cache otherwise.
func (c *Config) OpenCache() (quarry.Cache, error) {
	if c.Cache.RedisURL == "" {
		return cache.NewMemory(), nil
	}
	r, err := cache.OpenRedis(c.Cache.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return r, nil
}
