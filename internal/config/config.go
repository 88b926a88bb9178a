// Package config loads the application configuration from an optional
// config.yaml and MATCHADDRESS_* environment variables, and installs the
// global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Adresmatch AdresmatchConfig `yaml:"adresmatch" mapstructure:"adresmatch"`
	Gebouwen   GebouwenConfig   `yaml:"gebouwen" mapstructure:"gebouwen"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// AdresmatchConfig configures the address-match endpoint.
type AdresmatchConfig struct {
	URL         string  `yaml:"url" mapstructure:"url"`
	AuthToken   string  `yaml:"auth_token" mapstructure:"auth_token"`
	TimeoutSecs float64 `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// Timeout returns the per-call HTTP timeout.
func (c AdresmatchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs * float64(time.Second))
}

// GebouwenConfig configures the building-registry endpoints.
type GebouwenConfig struct {
	GebouwenURL       string  `yaml:"gebouwen_url" mapstructure:"gebouwen_url"`
	GebouweenhedenURL string  `yaml:"gebouweenheden_url" mapstructure:"gebouweenheden_url"`
	Auth              string  `yaml:"auth" mapstructure:"auth"`
	TimeoutSecs       float64 `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit         float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	Retries           int     `yaml:"retries" mapstructure:"retries"`
	RetryWaitSecs     float64 `yaml:"retry_wait_secs" mapstructure:"retry_wait_secs"`
}

// Timeout returns the per-call HTTP timeout.
func (c GebouwenConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs * float64(time.Second))
}

// RetryWait returns the fixed wait between retry attempts.
func (c GebouwenConfig) RetryWait() time.Duration {
	return time.Duration(c.RetryWaitSecs * float64(time.Second))
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MATCHADDRESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("adresmatch.url", "https://api.basisregisters.vlaanderen.be/v2/adresmatch")
	v.SetDefault("adresmatch.auth_token", "")
	v.SetDefault("adresmatch.timeout_secs", 20.0)
	v.SetDefault("adresmatch.rate_limit", 25.0)
	v.SetDefault("gebouwen.gebouwen_url", "https://api.basisregisters.vlaanderen.be/v2/gebouwen")
	v.SetDefault("gebouwen.gebouweenheden_url", "https://api.basisregisters.vlaanderen.be/v2/gebouweenheden")
	v.SetDefault("gebouwen.auth", "")
	v.SetDefault("gebouwen.timeout_secs", 20.0)
	v.SetDefault("gebouwen.rate_limit", 5.0)
	v.SetDefault("gebouwen.retries", 3)
	v.SetDefault("gebouwen.retry_wait_secs", 1.0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
