// Package config resolves runtime settings from defaults, an optional config
// file, and environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	ErrMissingAPIKey  = errors.New("no API key configured")
	ErrUnknownVariant = errors.New("unknown assistant variant")
)

// Variant selects which assistant the process runs.
type Variant string

const (
	// VariantPhone is the appointment-booking phone assistant; its
	// instruction is fixed after seeding.
	VariantPhone Variant = "phone"

	// VariantFeedback is the QA-feedback assistant; its instruction is
	// rebuilt every turn around the running transcript.
	VariantFeedback Variant = "feedback"
)

// Config is the resolved runtime configuration.
type Config struct {
	// Provider selects the completion backend: openai, openrouter, gemini,
	// or echo (offline).
	Provider string `mapstructure:"provider"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
	// Azure switches the openai provider to Azure OpenAI semantics.
	Azure       bool    `mapstructure:"azure"`
	APIVersion  string  `mapstructure:"api_version"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	// Stream selects incremental delivery; disabling it switches the round
	// trip to buffered completion requests.
	Stream bool `mapstructure:"stream"`
	// Timeout bounds one completion round trip.
	Timeout time.Duration `mapstructure:"timeout"`

	Addr    string  `mapstructure:"addr"`
	Variant Variant `mapstructure:"variant"`

	// Audio enables the speech endpoints when SpeechURL is set.
	Audio     bool   `mapstructure:"audio"`
	SpeechURL string `mapstructure:"speech_url"`

	LogLevel string `mapstructure:"log_level"`
}

// Load reads configuration. Environment variables use the CALLASSIST_ prefix
// (CALLASSIST_API_KEY, CALLASSIST_PROVIDER, ...); a callassist.yaml in the
// working directory is read when present.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("provider", "openai")
	v.SetDefault("azure", false)
	v.SetDefault("api_version", "")
	v.SetDefault("model", "gpt-4o")
	v.SetDefault("temperature", 0.1)
	v.SetDefault("max_tokens", 3000)
	v.SetDefault("stream", true)
	v.SetDefault("timeout", 120*time.Second)
	v.SetDefault("addr", ":8080")
	v.SetDefault("variant", string(VariantPhone))
	v.SetDefault("audio", false)
	v.SetDefault("speech_url", "")
	v.SetDefault("log_level", "info")

	v.SetConfigName("callassist")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CALLASSIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Variant {
	case VariantPhone, VariantFeedback:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownVariant, c.Variant)
	}
	// The echo provider needs no credential; every hosted provider does.
	if c.Provider != "echo" && c.APIKey == "" {
		return fmt.Errorf("%w: set CALLASSIST_API_KEY or api_key in callassist.yaml", ErrMissingAPIKey)
	}
	return nil
}
