package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix           = "GUSHUB"
	defaultHTTPAddress  = "127.0.0.1:8642"
	defaultDatabasePath = "gushub-manager.db"
	defaultSettingsPath = "gushub-settings.yaml"
	defaultGushubURL    = "https://gushub.ru"
	defaultLogLevel     = "info"
	defaultLogMode      = "console"
)

// AppConfig captures runtime configuration for the manager backend.
type AppConfig struct {
	HTTPAddress   string
	DatabasePath  string
	SettingsPath  string
	GushubBaseURL string
	LogLevel      string
	LogMode       string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("settings.path", defaultSettingsPath)
	configViper.SetDefault("gushub.base_url", defaultGushubURL)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.mode", defaultLogMode)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:   configViper.GetString("http.address"),
		DatabasePath:  configViper.GetString("database.path"),
		SettingsPath:  configViper.GetString("settings.path"),
		GushubBaseURL: configViper.GetString("gushub.base_url"),
		LogLevel:      configViper.GetString("log.level"),
		LogMode:       configViper.GetString("log.mode"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.SettingsPath) == "" {
		return fmt.Errorf("settings.path is required")
	}
	if strings.TrimSpace(c.GushubBaseURL) == "" {
		return fmt.Errorf("gushub.base_url is required")
	}
	return nil
}
