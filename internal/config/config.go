// Package config loads slicer settings from flags, SLICER_ environment
// variables, an optional config file and defaults, in that order.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, so database.dsn
// is read from SLICER_DATABASE_DSN.
const EnvPrefix = "SLICER"

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Content  ContentConfig  `mapstructure:"content"`
	Slice    SliceConfig    `mapstructure:"slice"`
	Log      LogConfig      `mapstructure:"log"`
	Serve    ServeConfig    `mapstructure:"serve"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

type CacheConfig struct {
	Entities int `mapstructure:"entities"`
	Contents int `mapstructure:"contents"`
}

type ContentConfig struct {
	Provider string   `mapstructure:"provider"`
	URL      string   `mapstructure:"url"`
	Repo     string   `mapstructure:"repo"`
	S3       S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Secure    bool   `mapstructure:"secure"`
}

type SliceConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	Workers     int           `mapstructure:"workers"`
	CheckSyntax bool          `mapstructure:"check_syntax"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ServeConfig struct {
	Addr string `mapstructure:"addr"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "slicer.db",
		},
		Cache: CacheConfig{
			Entities: 4096,
			Contents: 256,
		},
		Content: ContentConfig{
			Provider: "none",
		},
		Slice: SliceConfig{
			Timeout: 5 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Serve: ServeConfig{
			Addr: ":8080",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.conn_max_idle_time", d.Database.ConnMaxIdleTime)
	v.SetDefault("cache.entities", d.Cache.Entities)
	v.SetDefault("cache.contents", d.Cache.Contents)
	v.SetDefault("content.provider", d.Content.Provider)
	v.SetDefault("content.url", "")
	v.SetDefault("content.repo", "")
	v.SetDefault("content.s3.endpoint", "")
	v.SetDefault("content.s3.region", "")
	v.SetDefault("content.s3.bucket", "")
	v.SetDefault("content.s3.prefix", "")
	v.SetDefault("content.s3.access_key", "")
	v.SetDefault("content.s3.secret_key", "")
	v.SetDefault("content.s3.secure", false)
	v.SetDefault("slice.timeout", d.Slice.Timeout)
	v.SetDefault("slice.workers", d.Slice.Workers)
	v.SetDefault("slice.check_syntax", d.Slice.CheckSyntax)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("serve.addr", d.Serve.Addr)
}

// Load reads the configuration. A .env file in the working directory is
// loaded into the environment first. When configFile is empty, slicer.yaml
// (or .toml/.json) is looked up in the working directory and its absence
// is not an error. flags maps config keys to command-line flags; a flag
// only overrides when it was set explicitly.
func Load(configFile string, flags map[string]*pflag.Flag) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("slicer")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	for key, f := range flags {
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the driver, the content provider and the keys that
// provider requires.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "sqlite3", "pgx":
	default:
		errs = append(errs, &Error{Field: "database.driver", Message: fmt.Sprintf("unsupported driver %q", c.Database.Driver)})
	}
	if c.Database.DSN == "" {
		errs = append(errs, &Error{Field: "database.dsn", Message: "required"})
	}

	switch c.Content.Provider {
	case "", "none":
	case "http":
		if c.Content.URL == "" {
			errs = append(errs, &Error{Field: "content.url", Message: "required by the http provider"})
		}
	case "repo":
		if c.Content.Repo == "" {
			errs = append(errs, &Error{Field: "content.repo", Message: "required by the repo provider"})
		}
	case "s3":
		s3 := c.Content.S3
		if s3.Endpoint == "" || s3.Bucket == "" {
			errs = append(errs, &Error{Field: "content.s3", Message: "endpoint and bucket are required by the s3 provider"})
		}
		if s3.AccessKey == "" || s3.SecretKey == "" {
			errs = append(errs, &Error{Field: "content.s3", Message: "access_key and secret_key are required by the s3 provider"})
		}
	default:
		errs = append(errs, &Error{Field: "content.provider", Message: fmt.Sprintf("unknown provider %q", c.Content.Provider)})
	}

	if c.Cache.Entities < 0 || c.Cache.Contents < 0 {
		errs = append(errs, &Error{Field: "cache", Message: "sizes must not be negative"})
	}
	if c.Slice.Workers < 0 {
		errs = append(errs, &Error{Field: "slice.workers", Message: "must not be negative"})
	}
	return errors.Join(errs...)
}

// Error is a validation failure of one config field.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
