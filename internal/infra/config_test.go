package infra

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_DefaultsAndOverrides(t *testing.T) {
	path := writeConfig(t, `
trading:
  symbol: /MES
  target_points: 12.5
filters:
  gap_threshold_pct: 1.5
calendar:
  event_days: ["2024-03-20"]
feed:
  ws_url: wss://quotes.example.com/stream
  symbols: ["MES"]
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Trading.Symbol != "/MES" || cfg.Trading.TargetPoints != 12.5 {
		t.Errorf("file values not applied: %+v", cfg.Trading)
	}
	if cfg.Trading.Open != "09:30" || cfg.Trading.EOD != "16:00" {
		t.Errorf("defaults lost: open=%s eod=%s", cfg.Trading.Open, cfg.Trading.EOD)
	}
	if cfg.Filters.GapThresholdPct != 1.5 {
		t.Errorf("gap threshold = %v", cfg.Filters.GapThresholdPct)
	}
	if got := cfg.HeartbeatInterval(); got != time.Second {
		t.Errorf("heartbeat = %v", got)
	}
}

func TestLoadConfig_EnvWins(t *testing.T) {
	t.Setenv("ORB_MARKET_DATA_KEY", "from-env")
	t.Setenv("ORB_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(writeConfig(t, "logging:\n  level: warn\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MarketData.APIKey != "from-env" {
		t.Errorf("api key = %q", cfg.MarketData.APIKey)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"live mode", func(c *Config) { c.Trading.Mode = "LIVE" }, "only PAPER"},
		{"bad zone", func(c *Config) { c.Trading.Timezone = "Mars/Olympus" }, "invalid timezone"},
		{"bad clock", func(c *Config) { c.Trading.RangeEnd = "9.45" }, "trading.range_end"},
		{"zero target", func(c *Config) { c.Trading.TargetPoints = 0 }, "target_points"},
		{"http feed", func(c *Config) { c.Feed.WSURL = "http://x"; c.Feed.Symbols = []string{"ES"} }, "invalid feed WS URL"},
		{"feed without symbols", func(c *Config) { c.Feed.WSURL = "wss://x" }, "feed symbol"},
		{"rest without ticker", func(c *Config) { c.MarketData.RestURL = "https://x" }, "ticker"},
		{"bad event day", func(c *Config) { c.Calendar.EventDays = []string{"03/20/2024"} }, "calendar date"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestSecretConfig_Apply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orb.yaml")
	if err := os.WriteFile(path, []byte("market_data:\n  api_key: from-file\nnotify:\n  webhook_url: https://chat.example.com/hook\n"), 0600); err != nil {
		t.Fatal(err)
	}

	s, err := LoadSecretConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	s.Apply(cfg)
	if cfg.MarketData.APIKey != "from-file" || cfg.Notify.WebhookURL != "https://chat.example.com/hook" {
		t.Errorf("secrets not applied: key=%q hook=%q", cfg.MarketData.APIKey, cfg.Notify.WebhookURL)
	}

	if _, err := LoadSecretConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing secrets file")
	}
}
