// Package config loads the server configuration from inkwell.yaml and the
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"

	"github.com/inkwell-cms/inkwell/internal/store"
)

// EnvPrefix prefixes every environment override, e.g. INKWELL_STORE_DRIVER
const EnvPrefix = "INKWELL"

// Config represents the inkwell configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Log       LogConfig       `mapstructure:"log"`
	Resources ResourcesConfig `mapstructure:"resources"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	APIPrefix       string        `mapstructure:"api_prefix"`
	TrustProxy      bool          `mapstructure:"trust_proxy"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// Address returns the listen address
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StoreConfig represents document store configuration
type StoreConfig struct {
	Driver         string        `mapstructure:"driver"`
	Path           string        `mapstructure:"path"`
	DSN            string        `mapstructure:"dsn"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	Redis          RedisConfig   `mapstructure:"redis"`
	Mongo          MongoConfig   `mapstructure:"mongo"`
}

// RedisConfig represents the redis driver connection
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// MongoConfig represents the mongo driver connection
type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ResourcesConfig points at an optional resource definition file
type ResourcesConfig struct {
	File string `mapstructure:"file"`
}

// ToStoreConfig converts the store section into the driver configuration
func (s StoreConfig) ToStoreConfig() store.Config {
	return store.Config{
		Driver:         s.Driver,
		Path:           s.Path,
		DSN:            s.DSN,
		ConnectTimeout: s.ConnectTimeout,
		Redis: store.RedisConfig{
			Addr:     s.Redis.Addr,
			Password: s.Redis.Password,
			DB:       s.Redis.DB,
			Prefix:   s.Redis.Prefix,
		},
		Mongo: store.MongoConfig{
			URI:      s.Mongo.URI,
			Database: s.Mongo.Database,
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8888)
	v.SetDefault("server.api_prefix", "/api")
	v.SetDefault("server.trust_proxy", false)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.cors_origins", []string{})

	v.SetDefault("store.driver", store.DriverSQLite)
	v.SetDefault("store.path", "data/inkwell.db")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.connect_timeout", store.DefaultConnectTimeout)
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.prefix", "inkwell:")
	v.SetDefault("store.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("store.mongo.database", "inkwell")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("resources.file", "")
}

// Load reads the configuration. With an empty path inkwell.yaml (or .yml) in
// the working directory is used if present; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("inkwell")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// PORT is honoured for platforms that assign the listen port
	if err := v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT"); err != nil {
		return nil, fmt.Errorf("failed to bind PORT: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validateConfig reports every problem in the configuration at once
func validateConfig(cfg *Config) error {
	var result *multierror.Error

	if prefix := cfg.Server.APIPrefix; prefix != "" {
		if !strings.HasPrefix(prefix, "/") {
			result = multierror.Append(result, fmt.Errorf("server.api_prefix must start with '/', got: %s", prefix))
		}
		if strings.HasSuffix(prefix, "/") {
			result = multierror.Append(result, fmt.Errorf("server.api_prefix must not end with '/', got: %s", prefix))
		}
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("server.port must be between 0 and 65535, got: %d", cfg.Server.Port))
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		result = multierror.Append(result, fmt.Errorf("server.max_body_bytes must be positive, got: %d", cfg.Server.MaxBodyBytes))
	}

	if !validDriver(cfg.Store.Driver) {
		result = multierror.Append(result, &DriverError{Driver: cfg.Store.Driver})
	}
	switch cfg.Store.Driver {
	case store.DriverSQLite:
		if cfg.Store.Path == "" {
			result = multierror.Append(result, errors.New("store.path is required for the sqlite driver"))
		}
	case store.DriverPostgres:
		if cfg.Store.DSN == "" {
			result = multierror.Append(result, errors.New("store.dsn is required for the postgres driver"))
		}
	}

	switch cfg.Log.Format {
	case "json", "console":
	default:
		result = multierror.Append(result, fmt.Errorf("log.format must be json or console, got: %s", cfg.Log.Format))
	}

	return result.ErrorOrNil()
}

// DriverError reports an unsupported store.driver value
type DriverError struct {
	Driver string
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("store.driver must be one of %s, got: %q", strings.Join(store.Drivers, ", "), e.Driver)
}

func validDriver(name string) bool {
	for _, d := range store.Drivers {
		if d == name {
			return true
		}
	}
	return false
}
