package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	API       APIConfig
	Parser    ParserConfig
	LLM       LLMConfig
	UI        UIConfig
	DevServer DevServerConfig
}

// APIConfig holds backend connection settings.
type APIConfig struct {
	BaseURL  string
	Token    string
	TokenEnv string
}

// ParserConfig selects how expense text is parsed: "remote" uses the
// backend parsing endpoints, "gemini" calls the model directly.
type ParserConfig struct {
	Provider string
}

// LLMConfig holds direct-provider settings, used when parser.provider is
// "gemini".
type LLMConfig struct {
	APIKeyEnv string
	APIKey    string
	Model     string
}

// UIConfig holds presentation settings.
type UIConfig struct {
	CurrencySymbol string
	Timezone       string
	MessageLimit   int
}

// DevServerConfig holds settings for the bundled development backend.
type DevServerConfig struct {
	Addr   string
	DBPath string
	Token  string
}

// Load reads configuration from file and env. Env var overrides use prefix MONEYCHAT_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.token", "")
	v.SetDefault("api.token_env", "MONEYCHAT_TOKEN")
	v.SetDefault("parser.provider", "remote")
	v.SetDefault("llm.api_key_env", "GEMINI_API_KEY")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gemini-2.0-flash")
	v.SetDefault("ui.currency_symbol", "€")
	v.SetDefault("ui.timezone", "Europe/Rome")
	v.SetDefault("ui.message_limit", 30)
	v.SetDefault("devserver.addr", "localhost:8000")
	v.SetDefault("devserver.db_path", filepath.Join(os.Getenv("HOME"), ".local", "share", "moneychat", "moneychat.db"))
	v.SetDefault("devserver.token", "dev-token")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("MONEYCHAT_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "moneychat"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("MONEYCHAT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// BearerToken resolves the API credential: explicit config value first,
// then the configured env var. Empty means unauthenticated.
func (c Config) BearerToken() string {
	if c.API.Token != "" {
		return c.API.Token
	}
	if c.API.TokenEnv != "" {
		return os.Getenv(c.API.TokenEnv)
	}
	return ""
}

// GeminiKey resolves the direct-provider API key the same way.
func (c Config) GeminiKey() string {
	if c.LLM.APIKey != "" {
		return c.LLM.APIKey
	}
	if c.LLM.APIKeyEnv != "" {
		return os.Getenv(c.LLM.APIKeyEnv)
	}
	return ""
}

// Save writes the provided config to disk, creating the config directory if needed.
// Tokens and API keys are stored in plain text; encourage users to prefer env vars.
func Save(cfg Config) error {
	path := os.Getenv("MONEYCHAT_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "moneychat", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("api.base_url", cfg.API.BaseURL)
	v.Set("api.token", cfg.API.Token)
	v.Set("api.token_env", cfg.API.TokenEnv)
	v.Set("parser.provider", cfg.Parser.Provider)
	v.Set("llm.api_key_env", cfg.LLM.APIKeyEnv)
	v.Set("llm.api_key", cfg.LLM.APIKey)
	v.Set("llm.model", cfg.LLM.Model)
	v.Set("ui.currency_symbol", cfg.UI.CurrencySymbol)
	v.Set("ui.timezone", cfg.UI.Timezone)
	v.Set("ui.message_limit", cfg.UI.MessageLimit)
	v.Set("devserver.addr", cfg.DevServer.Addr)
	v.Set("devserver.db_path", cfg.DevServer.DBPath)
	v.Set("devserver.token", cfg.DevServer.Token)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
