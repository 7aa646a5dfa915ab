// Package config loads the settings of the nanorpc command from, in increasing precedence,
// defaults, a config file, a .env file, NANORPC_* environment variables and bound flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"nano-rpc/codec"
	"nano-rpc/loadbalance"
)

const EnvPrefix = "NANORPC"

type Config struct {
	// Listen is the framed TCP address; empty disables it.
	Listen string `mapstructure:"listen"`
	// HTTPAddr is the JSON-RPC over HTTP address; empty disables it.
	HTTPAddr string `mapstructure:"http_addr"`
	// Advertise is the address registered for discovery, defaults to Listen.
	Advertise string `mapstructure:"advertise"`
	Service   string `mapstructure:"service"`

	Codec    string `mapstructure:"codec"`
	Balancer string `mapstructure:"balancer"`

	EtcdEndpoints []string `mapstructure:"etcd_endpoints"`
	TTL           int64    `mapstructure:"ttl"`

	Rate    float64       `mapstructure:"rate"` // requests per second, 0 disables limiting
	Burst   int           `mapstructure:"burst"`
	Timeout time.Duration `mapstructure:"timeout"`

	LogLevel    string `mapstructure:"log_level"`
	Development bool   `mapstructure:"development"`
}

// SetDefaults registers every key, which also makes each one readable from the environment.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("listen", "127.0.0.1:11223")
	v.SetDefault("http_addr", "")
	v.SetDefault("advertise", "")
	v.SetDefault("service", "math")
	v.SetDefault("codec", "json")
	v.SetDefault("balancer", "round_robin")
	v.SetDefault("etcd_endpoints", []string{})
	v.SetDefault("ttl", 10)
	v.SetDefault("rate", 0)
	v.SetDefault("burst", 100)
	v.SetDefault("timeout", 10*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("development", false)
}

// Load reads the configuration into a Config. path may be empty; a missing .env is ignored.
func Load(v *viper.Viper, path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: .env: %w", err)
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Advertise == "" {
		cfg.Advertise = cfg.Listen
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, err := codec.Parse(c.Codec); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := loadbalance.New(c.Balancer); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Rate < 0 || c.Burst < 0 {
		return fmt.Errorf("config: rate and burst must not be negative")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("config: negative timeout")
	}
	return nil
}

// CodecType is the parsed Codec; Validate has already checked it.
func (c *Config) CodecType() codec.CodecType {
	t, _ := codec.Parse(c.Codec)
	return t
}
