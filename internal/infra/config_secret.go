package infra

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SecretConfig is the optional secrets file kept outside configs/ (e.g. secrets/orb.yaml).
type SecretConfig struct {
	MarketData struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"market_data"`
	Notify struct {
		WebhookURL string `yaml:"webhook_url"`
	} `yaml:"notify"`
}

// LoadSecretConfig loads secrets from a separate yaml file.
// It returns error if the file is missing (Fail Fast).
func LoadSecretConfig(path string) (*SecretConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret config: %w", err)
	}

	var cfg SecretConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse secret config: %w", err)
	}

	return &cfg, nil
}

// Apply copies non-empty secrets into cfg. Environment variables still win,
// so callers apply secrets before overrideWithEnv runs again.
func (s *SecretConfig) Apply(cfg *Config) {
	if s.MarketData.APIKey != "" {
		cfg.MarketData.APIKey = s.MarketData.APIKey
	}
	if s.Notify.WebhookURL != "" {
		cfg.Notify.WebhookURL = s.Notify.WebhookURL
	}
	overrideWithEnv(cfg)
}
