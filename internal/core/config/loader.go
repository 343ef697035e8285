package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/swapmatch/internal/infra/remote"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns the configuration used when no config file is given.
func Default() *AppConfig {
	var cfg AppConfig
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.GRPCPort == 0 {
		cfg.Server.GRPCPort = 9090
	}

	if cfg.Remote.CatalogURL == "" {
		cfg.Remote.CatalogURL = "http://catalog_service:8000"
	}
	if cfg.Remote.NotificationURL == "" {
		cfg.Remote.NotificationURL = "http://notifications_service:8000"
	}
	if cfg.Remote.ChatURL == "" {
		cfg.Remote.ChatURL = "http://chat_service:8000"
	}
	if cfg.Remote.CallTimeout == 0 {
		cfg.Remote.CallTimeout = 5 * time.Second
	}
	if cfg.Remote.Breaker.FailureThreshold == 0 {
		cfg.Remote.Breaker.FailureThreshold = remote.DefaultBreakerConfig.FailureThreshold
	}
	if cfg.Remote.Breaker.ResetTimeout == 0 {
		cfg.Remote.Breaker.ResetTimeout = remote.DefaultBreakerConfig.ResetTimeout
	}
	if cfg.Remote.Retry.MaxAttempts == 0 {
		cfg.Remote.Retry = remote.DefaultRetryConfig
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}
