package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultOpenAIBaseURL  = "https://api.openai.com/v1"
	DefaultPort           = 3001
	DefaultAllowedOrigins = "http://localhost:5173"
	DefaultModel          = "gpt-3.5-turbo"
	DefaultTemperature    = 0.7
	DefaultMaxTokens      = 2000
	DefaultLogLevel       = "info"
	DefaultChatAPIURL     = "http://localhost:3001/api"
)

// Config is the process configuration. Keys are the lower-cased environment
// variable names so that viper's AutomaticEnv resolves them directly.
type Config struct {
	OpenAIAPIKey   string  `mapstructure:"openai_api_key"`
	OpenAIBaseURL  string  `mapstructure:"openai_base_url"`
	ParamPrefix    string  `mapstructure:"param_prefix"`
	Port           int     `mapstructure:"port"`
	AllowedOrigins string  `mapstructure:"allowed_origins"`
	Model          string  `mapstructure:"openai_model"`
	Temperature    float64 `mapstructure:"openai_temperature"`
	MaxTokens      int     `mapstructure:"openai_max_tokens"`
	SystemPrompt   string  `mapstructure:"system_prompt"`
	LogLevel       string  `mapstructure:"log_level"`
	OTLPEndpoint   string  `mapstructure:"otel_exporter_otlp_endpoint"`
	ChatAPIURL     string  `mapstructure:"chat_api_url"`
}

// SetDefaults registers every key on v. Keys without a default are still
// registered so that Unmarshal picks them up from the environment.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_base_url", DefaultOpenAIBaseURL)
	v.SetDefault("param_prefix", "")
	v.SetDefault("port", DefaultPort)
	v.SetDefault("allowed_origins", DefaultAllowedOrigins)
	v.SetDefault("openai_model", DefaultModel)
	v.SetDefault("openai_temperature", DefaultTemperature)
	v.SetDefault("openai_max_tokens", DefaultMaxTokens)
	v.SetDefault("system_prompt", "")
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("otel_exporter_otlp_endpoint", "")
	v.SetDefault("chat_api_url", DefaultChatAPIURL)
}

// Load resolves the configuration from v (defaults, an optional config file
// already set on v, then the environment) and validates it.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		return Config{}, errors.New("config: viper instance must not be nil")
	}
	SetDefaults(v)
	v.AutomaticEnv()

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.OpenAIAPIKey = strings.TrimSpace(cfg.OpenAIAPIKey)
	cfg.ParamPrefix = strings.TrimRight(strings.TrimSpace(cfg.ParamPrefix), "/")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("config: openai_temperature %v must be within [0, 2]", c.Temperature)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("config: openai_max_tokens must be positive, got %d", c.MaxTokens)
	}
	if strings.TrimSpace(c.Model) == "" {
		return errors.New("config: openai_model must not be empty")
	}
	if len(c.Origins()) == 0 {
		return errors.New("config: allowed_origins must list at least one origin")
	}
	return nil
}

// Origins splits AllowedOrigins on commas, dropping blanks.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// HasCredential reports whether an OpenAI key can be obtained at all, either
// directly or from Parameter Store.
func (c Config) HasCredential() bool {
	return c.OpenAIAPIKey != "" || c.ParamPrefix != ""
}

// LoadDotEnv loads the given .env files (".env" when none are given) into the
// process environment without overriding variables that are already set.
// Missing files are not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load %s: %w", p, err)
		}
	}
	return nil
}
