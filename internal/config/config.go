package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration of the bridge. Every field can be
// set through the environment with the MAILBRIDGE_ prefix (nested keys use
// underscores, e.g. MAILBRIDGE_RELAY_API_KEY) or through an optional YAML
// file; environment values win.
type Config struct {
	Addr   string `mapstructure:"addr"`
	Domain string `mapstructure:"domain"`
	PGDSN  string `mapstructure:"pg_dsn"`

	Auth struct {
		Secret string `mapstructure:"secret"`
	} `mapstructure:"auth"`

	Relay struct {
		BaseURL string `mapstructure:"base_url"`
		APIKey  string `mapstructure:"api_key"`
	} `mapstructure:"relay"`

	Inbound struct {
		WebhookSecret string `mapstructure:"webhook_secret"`
	} `mapstructure:"inbound"`

	Retry struct {
		MaxRetries int           `mapstructure:"max_retries"`
		BaseDelay  time.Duration `mapstructure:"base_delay"`
		MaxDelay   time.Duration `mapstructure:"max_delay"`
		Multiplier float64       `mapstructure:"multiplier"`
	} `mapstructure:"retry"`

	Breaker struct {
		FailureThreshold int           `mapstructure:"failure_threshold"`
		RecoveryTimeout  time.Duration `mapstructure:"recovery_timeout"`
	} `mapstructure:"breaker"`

	RateLimit struct {
		RPS   float64 `mapstructure:"rps"`
		Burst int     `mapstructure:"burst"`
	} `mapstructure:"rate_limit"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("domain", "mailbridge.org")
	// Keys must carry a default for AutomaticEnv to surface them in Unmarshal.
	v.SetDefault("pg_dsn", "")
	v.SetDefault("auth.secret", "")
	v.SetDefault("relay.base_url", "")
	v.SetDefault("relay.api_key", "")
	v.SetDefault("inbound.webhook_secret", "")
	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.base_delay", time.Second)
	v.SetDefault("retry.max_delay", 30*time.Second)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.recovery_timeout", 60*time.Second)
	v.SetDefault("rate_limit.rps", 50.0)
	v.SetDefault("rate_limit.burst", 100)
}

// Load reads configuration from the optional file at path (skipped when
// empty or absent) and from MAILBRIDGE_* environment variables.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("MAILBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) && !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("config: read %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Auth.Secret == "" {
		return errors.New("config: auth secret is required (MAILBRIDGE_AUTH_SECRET)")
	}
	if c.Retry.MaxRetries < 0 {
		return errors.New("config: retry.max_retries must be >= 0")
	}
	if c.Breaker.FailureThreshold <= 0 {
		return errors.New("config: breaker.failure_threshold must be > 0")
	}
	return nil
}
