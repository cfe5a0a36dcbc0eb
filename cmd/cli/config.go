package cli

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all CLI configuration.
type Config struct {
	PreferredBackend string
	CostOptimize     bool

	Anthropic BackendSettings
	OpenAI    BackendSettings
	Gemini    BackendSettings
}

// BackendSettings configures one generation backend.
type BackendSettings struct {
	APIKey string
	Model  string
}

// Configured reports whether the backend has a usable credential.
func (s BackendSettings) Configured() bool {
	return s.APIKey != ""
}

// LoadConfig loads configuration from files and environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("WEFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envMappings := map[string]string{
		"preferred_backend": "WEFT_PREFERRED_BACKEND",
		"anthropic.apikey":  "WEFT_ANTHROPIC_API_KEY",
		"anthropic.model":   "WEFT_ANTHROPIC_MODEL",
		"openai.apikey":     "WEFT_OPENAI_API_KEY",
		"openai.model":      "WEFT_OPENAI_MODEL",
		"gemini.apikey":     "WEFT_GEMINI_API_KEY",
		"gemini.model":      "WEFT_GEMINI_MODEL",
	}

	for configKey, envVar := range envMappings {
		if err := v.BindEnv(configKey, envVar); err != nil {
			log.Warn().Err(err).Msgf("Failed to bind environment variable %s for %s", envVar, configKey)
		}
	}

	v.SetConfigName("weft")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.weft")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug().Msg("Config file not found, using environment variables and defaults")
	} else {
		log.Info().Msgf("Using config file: %s", v.ConfigFileUsed())
	}

	config := &Config{
		PreferredBackend: v.GetString("preferred_backend"),
		CostOptimize:     v.GetBool("cost_optimize"),
		Anthropic: BackendSettings{
			APIKey: v.GetString("anthropic.apikey"),
			Model:  v.GetString("anthropic.model"),
		},
		OpenAI: BackendSettings{
			APIKey: v.GetString("openai.apikey"),
			Model:  v.GetString("openai.model"),
		},
		Gemini: BackendSettings{
			APIKey: v.GetString("gemini.apikey"),
			Model:  v.GetString("gemini.model"),
		},
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("preferred_backend", "anthropic")
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
}
