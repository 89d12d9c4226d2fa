// Package config loads server settings from defaults, an optional config
// file and ORBIT_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "ORBIT"

const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type UpstreamConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	FanoutLimit int           `mapstructure:"fanout_limit"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"` // sqlite or memory
	Path   string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

type GraphQLConfig struct {
	MaxParallelism int `mapstructure:"max_parallelism"`
}

type OTelConfig struct {
	Endpoint    string `mapstructure:"endpoint"` // empty disables export
	ServiceName string `mapstructure:"service_name"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
	GraphQL  GraphQLConfig  `mapstructure:"graphql"`
	OTel     OTelConfig     `mapstructure:"otel"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8088)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("upstream.base_url", "https://api.spacexdata.com/v2/")
	v.SetDefault("upstream.timeout", 10*time.Second)
	v.SetDefault("upstream.fanout_limit", 8)
	v.SetDefault("storage.driver", StorageSQLite)
	v.SetDefault("storage.path", "orbit.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("graphql.max_parallelism", 10)
	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.service_name", "orbit")
}

// Load reads the configuration. path may be empty, in which case only
// defaults and the environment apply.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config to struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at startup
func (c Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if u, err := url.Parse(c.Upstream.BaseURL); err != nil || !u.IsAbs() {
		errs = append(errs, fmt.Errorf("upstream.base_url %q is not an absolute url", c.Upstream.BaseURL))
	}
	if c.Upstream.FanoutLimit < 1 {
		errs = append(errs, errors.New("upstream.fanout_limit must be >= 1"))
	}
	switch c.Storage.Driver {
	case StorageSQLite:
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("storage.path is required for sqlite"))
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
