package bookreview

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config is the client configuration, resolved from an optional config file
// (~/.bookreview/config.yml or ./config.yml) overlaid with BOOKREVIEW_*
// environment variables.
type Config struct {
	ServerURL      string `mapstructure:"SERVER_URL"`
	TimeoutSeconds int    `mapstructure:"TIMEOUT_SECONDS"`
	SessionFile    string `mapstructure:"SESSION_FILE"`
}

// LoadConfig reads configuration with viper. A missing config file is fine;
// defaults keep the client pointed at a local development server with the
// same short request timeout the service was tested against.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".bookreview"))
	}
	v.SetEnvPrefix("BOOKREVIEW")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetDefault("SERVER_URL", "http://localhost:8000")
	v.SetDefault("TIMEOUT_SECONDS", 5)
	v.SetDefault("SESSION_FILE", defaultSessionFile())

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %d", cfg.TimeoutSeconds)
	}
	return &cfg, nil
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".bookreview", "session.json")
	}
	return filepath.Join(home, ".bookreview", "session.json")
}
