package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// AppConfig holds all configuration for the relay server. Tags use
// mapstructure for Viper unmarshalling; every key can be provided through
// the environment. The Kroger client id and secret are injected this way
// and never logged or returned to clients.
type AppConfig struct {
	HTTPPort        string `mapstructure:"HTTP_PORT"`
	MongoURI        string `mapstructure:"MONGO_URI"`
	MongoDBName     string `mapstructure:"MONGO_DB_NAME"`
	LogLevel        string `mapstructure:"LOG_LEVEL"`
	LogPretty       bool   `mapstructure:"LOG_PRETTY"`
	OtelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	KrogerClientID     string `mapstructure:"KROGER_CLIENT_ID"`
	KrogerClientSecret string `mapstructure:"KROGER_CLIENT_SECRET"`
	KrogerAuthorizeURL string `mapstructure:"KROGER_AUTHORIZE_URL"`
	KrogerTokenURL     string `mapstructure:"KROGER_TOKEN_URL"`
	CallbackURL        string `mapstructure:"CALLBACK_URL"`

	SessionTTLMin          int `mapstructure:"SESSION_TTL_MIN"`
	AuthorizeRateMax       int `mapstructure:"AUTHORIZE_RATE_MAX"`
	AuthorizeRateWindowMin int `mapstructure:"AUTHORIZE_RATE_WINDOW_MIN"`
	TokenRateMax           int `mapstructure:"TOKEN_RATE_MAX"`
	TokenRateWindowMin     int `mapstructure:"TOKEN_RATE_WINDOW_MIN"`
}

// LoadConfig reads configuration from file, environment variables, and
// defaults.
func LoadConfig() (*AppConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/kroger-relay/")
	v.AddConfigPath("$HOME/.kroger-relay")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/kroger_relay_dev")
	v.SetDefault("MONGO_DB_NAME", "kroger_relay_dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("OTEL_SERVICE_NAME", "kroger-relay")

	v.SetDefault("KROGER_CLIENT_ID", "")
	v.SetDefault("KROGER_CLIENT_SECRET", "")
	v.SetDefault("KROGER_AUTHORIZE_URL", "https://api.kroger.com/v1/connect/oauth2/authorize")
	v.SetDefault("KROGER_TOKEN_URL", "https://api.kroger.com/v1/connect/oauth2/token")
	v.SetDefault("CALLBACK_URL", "http://localhost:8080/callback")

	v.SetDefault("SESSION_TTL_MIN", 5)
	v.SetDefault("AUTHORIZE_RATE_MAX", 5)
	v.SetDefault("AUTHORIZE_RATE_WINDOW_MIN", 60)
	v.SetDefault("TOKEN_RATE_MAX", 30)
	v.SetDefault("TOKEN_RATE_WINDOW_MIN", 60)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, we run on defaults and env vars.
		// Anything else (malformed file, permissions) is a real error.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
