// Package config loads the relay configuration from an optional YAML file and RELAY_* environment variables.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const envPrefix = "RELAY"

// Config holds the configuration for the application.
type Config struct {
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	Model struct {
		Provider          string        `mapstructure:"provider"`
		BaseURL           string        `mapstructure:"base_url"`
		APIKey            string        `mapstructure:"api_key"`
		Name              string        `mapstructure:"name"`
		Temperature       float32       `mapstructure:"temperature"`
		MaxTokens         int           `mapstructure:"max_tokens"`
		Timeout           time.Duration `mapstructure:"timeout"`
		Retries           int           `mapstructure:"retries"`
		RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	} `mapstructure:"model"`
	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`
	Pipeline struct {
		DrawDir string `mapstructure:"draw_dir"`
	} `mapstructure:"pipeline"`
	Batch struct {
		Concurrency int `mapstructure:"concurrency"`
	} `mapstructure:"batch"`
	Restoration struct {
		Level string `mapstructure:"level"`
		Years int    `mapstructure:"years"`
	} `mapstructure:"restoration"`
}

// Model providers. ProviderOffline runs every model locally with deterministic answers.
const (
	ProviderOffline = "offline"
	ProviderOpenAI  = "openai"
	ProviderOllama  = "ollama"
	ProviderClaude  = "claude"
)

var ErrUnknownProvider = errors.New("unknown model provider")

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("model.provider", ProviderOffline)
	v.SetDefault("model.base_url", "")
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.name", "gpt-4o-mini")
	v.SetDefault("model.temperature", 0.2)
	v.SetDefault("model.max_tokens", 1024)
	v.SetDefault("model.timeout", 60*time.Second)
	v.SetDefault("model.retries", 2)
	v.SetDefault("model.requests_per_second", 2.0)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("pipeline.draw_dir", "")
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("restoration.level", "medium")
	v.SetDefault("restoration.years", 10)
}

// Load loads the configuration. path is optional: when empty, relay.yaml is looked up
// in the working directory and in ./config, and a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("relay")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "unable to read config")
		}
	}

	var cfg Config

	err = v.Unmarshal(&cfg)
	if err != nil {
		return nil, errors.Wrap(err, "unable to decode config")
	}

	err = cfg.validate()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	c.Model.Provider = strings.ToLower(strings.TrimSpace(c.Model.Provider))

	switch c.Model.Provider {
	case ProviderOffline, ProviderOpenAI, ProviderOllama, ProviderClaude:
	default:
		return errors.Wrapf(ErrUnknownProvider, "%q", c.Model.Provider)
	}

	if c.Batch.Concurrency <= 0 {
		c.Batch.Concurrency = 1
	}

	return nil
}
