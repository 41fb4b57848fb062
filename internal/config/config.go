package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cuprum-acid/o11y-kit/internal/loadtest"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override (O11YKIT_SERVER_ADDRESS, ...)
const EnvPrefix = "O11YKIT"

const (
	DefaultAddress           = ":8000"
	DefaultShutdownTimeout   = 5 * time.Second
	DefaultDSN               = "sqlite://o11y-kit.db"
	DefaultConnectRetries    = 5
	DefaultRetryInterval     = 2 * time.Second
	DefaultSlowEvery         = 100
	DefaultSlowDelay         = 100 * time.Millisecond
	DefaultHeartbeatInterval = time.Second
	DefaultWriteTimeout      = 5 * time.Second
)

// Config is the complete service configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Items    ItemsConfig    `mapstructure:"items"`
	LoadTest LoadTestConfig `mapstructure:"loadtest"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
	// Color is one of auto, always, never
	Color string `mapstructure:"color"`
}

type DatabaseConfig struct {
	DSN            string        `mapstructure:"dsn"`
	ConnectRetries int           `mapstructure:"connect_retries"`
	RetryInterval  time.Duration `mapstructure:"retry_interval"`
	MaxOpenConns   int           `mapstructure:"max_open_conns"`
}

// ItemsConfig controls the artificial latency of the item listing
type ItemsConfig struct {
	SlowEvery int           `mapstructure:"slow_every"`
	SlowDelay time.Duration `mapstructure:"slow_delay"`
}

type LoadTestConfig struct {
	TargetURL            string        `mapstructure:"target_url"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout"`
	MaxRPS               int           `mapstructure:"max_rps"`
	HeartbeatInterval    time.Duration `mapstructure:"heartbeat_interval"`
	BroadcastParallelism int           `mapstructure:"broadcast_parallelism"`
	WriteTimeout         time.Duration `mapstructure:"write_timeout"`
}

// SetDefaults registers every known key so that environment overrides apply
// even when no config file is present.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.address", DefaultAddress)
	v.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.color", "auto")

	v.SetDefault("database.dsn", DefaultDSN)
	v.SetDefault("database.connect_retries", DefaultConnectRetries)
	v.SetDefault("database.retry_interval", DefaultRetryInterval)
	v.SetDefault("database.max_open_conns", 0)

	v.SetDefault("items.slow_every", DefaultSlowEvery)
	v.SetDefault("items.slow_delay", DefaultSlowDelay)

	v.SetDefault("loadtest.target_url", loadtest.DefaultTargetURL)
	v.SetDefault("loadtest.request_timeout", loadtest.DefaultRequestTimeout)
	v.SetDefault("loadtest.max_rps", loadtest.DefaultMaxRPS)
	v.SetDefault("loadtest.heartbeat_interval", DefaultHeartbeatInterval)
	v.SetDefault("loadtest.broadcast_parallelism", loadtest.DefaultBroadcastParallelism)
	v.SetDefault("loadtest.write_timeout", DefaultWriteTimeout)
}

// flagKeys maps command line flags of "serve" to configuration keys
var flagKeys = map[string]string{
	"address":    "server.address",
	"log-level":  "log.level",
	"log-json":   "log.json",
	"log-color":  "log.color",
	"dsn":        "database.dsn",
	"target-url": "loadtest.target_url",
	"max-rps":    "loadtest.max_rps",
}

// Load builds the configuration from defaults, an optional YAML file, the
// environment and finally the given flags.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}

			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for values the service cannot run with
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return errors.New("server.address must not be empty")
	}

	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be positive")
	}

	if c.Database.DSN == "" {
		return errors.New("database.dsn must not be empty")
	}

	if c.Database.ConnectRetries < 1 {
		return errors.New("database.connect_retries must be at least 1")
	}

	if c.Database.RetryInterval < 0 || c.Database.MaxOpenConns < 0 {
		return errors.New("database.retry_interval and database.max_open_conns must not be negative")
	}

	if c.Items.SlowEvery < 0 || c.Items.SlowDelay < 0 {
		return errors.New("items.slow_every and items.slow_delay must not be negative")
	}

	if c.LoadTest.HeartbeatInterval <= 0 {
		return errors.New("loadtest.heartbeat_interval must be positive")
	}

	if c.LoadTest.WriteTimeout <= 0 {
		return errors.New("loadtest.write_timeout must be positive")
	}

	if _, err := url.Parse(c.LoadTest.TargetURL); err != nil {
		return fmt.Errorf("loadtest.target_url is invalid: %w", err)
	}

	return c.LoadTestConfig().Validate()
}

// LoadTestConfig converts the loadtest section into the controller config
func (c *Config) LoadTestConfig() *loadtest.Config {
	return &loadtest.Config{
		TargetURL:            c.LoadTest.TargetURL,
		RequestTimeout:       c.LoadTest.RequestTimeout,
		MaxRPS:               c.LoadTest.MaxRPS,
		BroadcastParallelism: c.LoadTest.BroadcastParallelism,
	}
}
