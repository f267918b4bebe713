package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ghdlab/mapflow/pkg/common/validation"
	"github.com/ghdlab/mapflow/pkg/logger"
	"github.com/ghdlab/mapflow/pkg/memo"
	"github.com/ghdlab/mapflow/pkg/metrics"
	"github.com/ghdlab/mapflow/pkg/scheduling/scheduler"
	"github.com/ghdlab/mapflow/pkg/scheduling/throttle"
	"github.com/ghdlab/mapflow/pkg/scheduling/workerpool"
)

// EnvPrefix prefixes every environment override, e.g. MAPFLOW_POOL_WORKER_COUNT.
const EnvPrefix = "MAPFLOW"

// Config is the configuration of the mapflow binary.
type Config struct {
	Logging  logger.Config     `yaml:"logging" mapstructure:"logging"`
	Pool     workerpool.Config `yaml:"pool" mapstructure:"pool"`
	Throttle throttle.Config   `yaml:"throttle" mapstructure:"throttle"`
	Cache    memo.Config       `yaml:"cache" mapstructure:"cache"`
	Metrics  metrics.Config    `yaml:"metrics" mapstructure:"metrics"`

	// Schedule, when set, reruns the processor on this cron schedule
	// instead of running once.
	Schedule string `yaml:"schedule" mapstructure:"schedule"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	cfg := Config{
		Cache: memo.DefaultConfig(),
	}
	cfg.Logging.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset logging fields and the throttle burst.
func (c *Config) ApplyDefaults() {
	c.Logging.ApplyDefaults()
	c.Throttle.ApplyDefaults()
}

// Validate validates the whole configuration.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := validation.Struct("config", c); err != nil {
		return err
	}
	if c.Throttle.Enabled() {
		if err := c.Throttle.Validate(); err != nil {
			return err
		}
	}
	if c.Schedule != "" {
		if err := scheduler.Validate(c.Schedule); err != nil {
			return err
		}
	}
	return nil
}

// LoaderConfig holds optional file and flag overrides.
type LoaderConfig struct {
	ConfigFile string // Direct config file path (optional)
	EnvFile    string // Direct env file path (optional)

	Flags    *pflag.FlagSet
	FlagKeys map[string]string // config key -> flag name
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithFlags binds command-line flags to config keys, e.g.
// {"pool.worker_count": "workers"}. A flag takes precedence over every
// other source, but only when it was set on the command line.
func WithFlags(fs *pflag.FlagSet, keys map[string]string) LoaderOption {
	return func(lc *LoaderConfig) {
		lc.Flags = fs
		lc.FlagKeys = keys
	}
}

// Load reads configuration in increasing order of precedence: defaults,
// the config file (YAML, JSON or TOML), the .env file, then MAPFLOW_*
// environment variables, then bound flags. The result is validated.
func Load(opts ...LoaderOption) (Config, error) {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.ConfigFile == "" && exists("./mapflow.yml") {
		lc.ConfigFile = "./mapflow.yml"
	}
	if lc.EnvFile == "" && exists("./.env") {
		lc.EnvFile = "./.env"
	}

	v := viper.New()
	setDefaults(v, Default())

	if lc.ConfigFile != "" {
		v.SetConfigFile(lc.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to load config file %s: %w", lc.ConfigFile, err)
		}
	}

	if lc.EnvFile != "" {
		// Variables already set in the environment win over the file.
		if err := godotenv.Load(lc.EnvFile); err != nil {
			return Config{}, fmt.Errorf("failed to load .env file %s: %w", lc.EnvFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if lc.Flags != nil {
		for key, name := range lc.FlagKeys {
			f := lc.Flags.Lookup(name)
			if f == nil {
				return Config{}, fmt.Errorf("no flag %q to bind to %s", name, key)
			}
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that
// the config file does not mention.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
	v.SetDefault("logging.no_color", d.Logging.NoColor)
	v.SetDefault("logging.timestamp", d.Logging.Timestamp)
	v.SetDefault("logging.caller", d.Logging.Caller)

	v.SetDefault("pool.name", d.Pool.Name)
	v.SetDefault("pool.worker_count", d.Pool.WorkerCount)

	v.SetDefault("throttle.rate", float64(d.Throttle.Rate))
	v.SetDefault("throttle.burst", d.Throttle.Burst)

	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.redis_addr", d.Cache.Addr)
	v.SetDefault("cache.redis_password", d.Cache.Password)
	v.SetDefault("cache.redis_db", d.Cache.DB)
	v.SetDefault("cache.prefix", d.Cache.Prefix)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.timeout", d.Cache.Timeout)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.addr", d.Metrics.Addr)

	v.SetDefault("schedule", d.Schedule)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
