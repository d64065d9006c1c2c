package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. VERITAS_SERVER_ADDR.
const EnvPrefix = "VERITAS"

type Config struct {
	Server  ServerConfig `yaml:"server" mapstructure:"server"`
	Agents  AgentsConfig `yaml:"agents" mapstructure:"agents"`
	Search  SearchConfig `yaml:"search" mapstructure:"search"`
	LLM     LLMConfig    `yaml:"llm" mapstructure:"llm"`
	Live    LiveConfig   `yaml:"live" mapstructure:"live"`
	Logging LogConfig    `yaml:"logging" mapstructure:"logging"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr" validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" validate:"gt=0"`
	RequestTimeout  time.Duration `yaml:"request_timeout" mapstructure:"request_timeout" validate:"gt=0"`
}

type AgentsConfig struct {
	// Timeout bounds each evidence agent's search and classification.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
}

type SearchConfig struct {
	APIKey     string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL    string  `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	MaxResults int     `yaml:"max_results" mapstructure:"max_results" validate:"gte=1,lte=20"`
	RateLimit  float64 `yaml:"rate_limit" mapstructure:"rate_limit" validate:"gte=0"`
	Burst      int     `yaml:"burst" mapstructure:"burst" validate:"gte=0"`
}

type LLMConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider" validate:"oneof=openai gemini openrouter"`
	Model    string `yaml:"model" mapstructure:"model"`
	APIKey   string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
}

type LiveConfig struct {
	Window   int           `yaml:"window" mapstructure:"window" validate:"gte=1"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=text json"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  60 * time.Second,
		},
		Agents: AgentsConfig{
			Timeout: 20 * time.Second,
		},
		Search: SearchConfig{
			BaseURL:    "https://api.tavily.com",
			MaxResults: 5,
			RateLimit:  5,
			Burst:      2,
		},
		LLM: LLMConfig{
			Provider: "openai",
		},
		Live: LiveConfig{
			Window:   15,
			Interval: 10 * time.Second,
		},
		Logging: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers every key with its default so env overrides apply
// to keys absent from the config file.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout)

	v.SetDefault("agents.timeout", d.Agents.Timeout)

	v.SetDefault("search.api_key", d.Search.APIKey)
	v.SetDefault("search.base_url", d.Search.BaseURL)
	v.SetDefault("search.max_results", d.Search.MaxResults)
	v.SetDefault("search.rate_limit", d.Search.RateLimit)
	v.SetDefault("search.burst", d.Search.Burst)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)

	v.SetDefault("live.window", d.Live.Window)
	v.SetDefault("live.interval", d.Live.Interval)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// LoadConfig reads the YAML file at path, if any, applies VERITAS_*
// environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.LLM.Provider = strings.ToLower(cfg.LLM.Provider)
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports every invalid field, one per line.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (got: %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config:\n  %s", strings.Join(msgs, "\n  "))
}
