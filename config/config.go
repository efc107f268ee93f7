package config

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application. Mapstructure tags map
// environment variables and config file keys.
type Config struct {
	// Server configuration
	ServerAddress string `mapstructure:"SERVER_ADDRESS"` // e.g., ":8080"

	// AI configuration
	OpenAIKey       string  `mapstructure:"OPENAI_API_KEY"`
	ModelID         string  `mapstructure:"MODEL_ID"`          // e.g., "gpt-4o"
	MaxOutputTokens int     `mapstructure:"MAX_OUTPUT_TOKENS"` // upper bound on generated tokens
	Temperature     float32 `mapstructure:"TEMPERATURE"`       // [0, 2]
	JSONMode        bool    `mapstructure:"JSON_MODE"`         // force structured output

	// Content configuration
	ContentDir string `mapstructure:"CONTENT_DIR"` // root of editable MDX pages
	SchemaPath string `mapstructure:"SCHEMA_PATH"` // block schema source file

	// Timeout for one end-to-end generation request, in seconds.
	RequestTimeoutSeconds int `mapstructure:"REQUEST_TIMEOUT_SECONDS"`
}

// LoadConfig reads configuration from config.yaml and environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("SERVER_ADDRESS", ":8080")
	viper.SetDefault("MODEL_ID", "gpt-4o")
	viper.SetDefault("MAX_OUTPUT_TOKENS", 4000)
	viper.SetDefault("TEMPERATURE", 0.7)
	viper.SetDefault("JSON_MODE", true)
	viper.SetDefault("CONTENT_DIR", "content/pages")
	viper.SetDefault("SCHEMA_PATH", "prompts/block-schemas.yaml")
	viper.SetDefault("REQUEST_TIMEOUT_SECONDS", 120)

	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		// Config file is optional; env vars and defaults may be enough.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Info().Msg("config.yaml not found, relying on environment variables and defaults")
		} else {
			return Config{}, errors.Wrap(err, "error reading config file")
		}
	} else {
		log.Info().Str("file", viper.ConfigFileUsed()).Msg("using configuration file")
	}

	if err = viper.Unmarshal(&config); err != nil {
		return Config{}, errors.Wrap(err, "unable to decode config into struct")
	}

	if config.OpenAIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY is not set; model calls will fail")
	}

	return config, nil
}
