package config

import (
	"fmt"
	"strings"

	"github.com/pricelens/pricelens/internal/recognition"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server      ServerConfig
	Recognition RecognitionConfig
	Pricing     PricingConfig
	Condition   ConditionConfig
	Batch       BatchConfig
	Cache       CacheConfig
	Imaging     ImagingConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RecognitionConfig selects and configures the recognition backend.
type RecognitionConfig struct {
	Mode    string `mapstructure:"mode"` // "weblabel" or "visualmatch"
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// PricingConfig configures the product-search pricing backend.
type PricingConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// ConditionConfig configures the condition-assessment backend.
type ConditionConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"` // falls back to GEMINI_API_KEY
}

// BatchConfig holds batch orchestration settings.
type BatchConfig struct {
	Size int `mapstructure:"size"`
}

// CacheConfig configures the sqlite adapter-result cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ImagingConfig holds preprocessing settings.
type ImagingConfig struct {
	MaxEdge uint `mapstructure:"max_edge"` // longest edge in pixels; 0 disables downscaling
}

// Load loads configuration from environment variables and an optional
// config.yaml.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pricelens/")

	v.SetEnvPrefix("PRICELENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about, and
	// Unmarshal enumerates known keys. Keys without a default must be bound
	// explicitly or their env vars are never read.
	for _, key := range []string{
		"recognition.api_key",
		"recognition.base_url",
		"pricing.api_key",
		"pricing.base_url",
		"condition.api_key",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env key %s: %w", key, err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; env vars and defaults apply.
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("recognition.mode", recognition.ModeVisualMatch)

	v.SetDefault("condition.enabled", true)

	v.SetDefault("batch.size", 20)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", "pricelens.db")

	v.SetDefault("imaging.max_edge", 1600)
}

func validate(config *Config) error {
	switch config.Recognition.Mode {
	case recognition.ModeWebLabel, recognition.ModeVisualMatch:
	default:
		return fmt.Errorf("recognition mode must be %q or %q, got: %s",
			recognition.ModeWebLabel, recognition.ModeVisualMatch, config.Recognition.Mode)
	}

	if config.Recognition.Mode == recognition.ModeVisualMatch && config.Recognition.BaseURL == "" {
		return fmt.Errorf("recognition base URL is required for visual-match mode (set PRICELENS_RECOGNITION_BASE_URL)")
	}

	if config.Batch.Size < 1 {
		return fmt.Errorf("batch size must be at least 1, got: %d", config.Batch.Size)
	}

	if config.Cache.Enabled && config.Cache.Path == "" {
		return fmt.Errorf("cache path is required when the cache is enabled")
	}

	return nil
}
