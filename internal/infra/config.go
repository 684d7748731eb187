package infra

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every setting of the process.
// After LoadConfig, secrets and the log level may be overridden from the environment.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Trading struct {
		Mode           string  `yaml:"mode"`
		Symbol         string  `yaml:"symbol"`
		Timezone       string  `yaml:"timezone"`
		Open           string  `yaml:"open"`
		RangeEnd       string  `yaml:"range_end"`
		Breakeven      string  `yaml:"breakeven"`
		EOD            string  `yaml:"eod"`
		TargetPoints   float64 `yaml:"target_points"`
		StopWidenAbove float64 `yaml:"stop_widen_above"`
		TickSize       float64 `yaml:"tick_size"`
		BarIntervalSec int     `yaml:"bar_interval_sec"`
		HeartbeatMS    int     `yaml:"heartbeat_ms"`
		InboxSize      int     `yaml:"inbox_size"`
	} `yaml:"trading"`

	Filters struct {
		GapThresholdPct   float64 `yaml:"gap_threshold_pct"`
		CheckRangeOverlap bool    `yaml:"check_range_overlap"`
		MaxRangePoints    float64 `yaml:"max_range_points"`
	} `yaml:"filters"`

	Calendar struct {
		EventDays []string `yaml:"event_days"`
		Holidays  []string `yaml:"holidays"`
	} `yaml:"calendar"`

	Feed struct {
		WSURL   string   `yaml:"ws_url"`
		Symbols []string `yaml:"symbols"`
	} `yaml:"feed"`

	MarketData struct {
		RestURL           string `yaml:"rest_url"`
		Ticker            string `yaml:"ticker"`
		APIKey            string `yaml:"api_key"`
		TimeoutSec        int    `yaml:"timeout_sec"`
		MaxRetries        int    `yaml:"max_retries"`
		RequestsPerMinute int    `yaml:"requests_per_minute"`
	} `yaml:"market_data"`

	Storage struct {
		DBFile        string `yaml:"db_file"`
		SnapshotDir   string `yaml:"snapshot_dir"`
		SnapshotKeep  int    `yaml:"snapshot_keep"`
		PanicDumpFile string `yaml:"panic_dump_file"`
	} `yaml:"storage"`

	Status struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"status"`

	Notify struct {
		WebhookURL string `yaml:"webhook_url"`
		QueueSize  int    `yaml:"queue_size"`
	} `yaml:"notify"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Environment wins over the file for secrets.
	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns the /ES defaults; file values are decoded on top of it.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.App.Name = AppName
	cfg.App.Version = "dev"
	cfg.Trading.Mode = "PAPER"
	cfg.Trading.Symbol = "/ES"
	cfg.Trading.Timezone = "America/New_York"
	cfg.Trading.Open = "09:30"
	cfg.Trading.RangeEnd = "09:45"
	cfg.Trading.Breakeven = "10:00"
	cfg.Trading.EOD = "16:00"
	cfg.Trading.TargetPoints = 20
	cfg.Trading.StopWidenAbove = 20
	cfg.Trading.BarIntervalSec = 60
	cfg.Trading.HeartbeatMS = 1000
	cfg.Trading.InboxSize = 4096
	cfg.Filters.GapThresholdPct = 2.0
	cfg.MarketData.TimeoutSec = 10
	cfg.MarketData.MaxRetries = 3
	cfg.MarketData.RequestsPerMinute = 5
	cfg.Storage.DBFile = "events.db"
	cfg.Storage.SnapshotDir = "status"
	cfg.Storage.SnapshotKeep = 20
	cfg.Storage.PanicDumpFile = "panic_dump.json"
	cfg.Status.Addr = "127.0.0.1:8089"
	cfg.Notify.QueueSize = 64
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	return cfg
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if mode := strings.ToUpper(c.Trading.Mode); mode != "PAPER" {
		return fmt.Errorf("unsupported trading mode %q: only PAPER is available", c.Trading.Mode)
	}
	if _, err := time.LoadLocation(c.Trading.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Trading.Timezone, err)
	}
	for name, v := range map[string]string{
		"open": c.Trading.Open, "range_end": c.Trading.RangeEnd,
		"breakeven": c.Trading.Breakeven, "eod": c.Trading.EOD,
	} {
		if _, err := time.Parse("15:04", v); err != nil {
			return fmt.Errorf("invalid trading.%s %q: want HH:MM", name, v)
		}
	}
	if c.Trading.TargetPoints <= 0 {
		return fmt.Errorf("target_points must be positive")
	}
	if c.Trading.StopWidenAbove < 0 || c.Trading.TickSize < 0 {
		return fmt.Errorf("stop_widen_above and tick_size must not be negative")
	}
	if c.Trading.HeartbeatMS <= 0 {
		return fmt.Errorf("heartbeat_ms must be positive")
	}
	if c.Filters.GapThresholdPct < 0 || c.Filters.MaxRangePoints < 0 {
		return fmt.Errorf("filter thresholds must not be negative")
	}
	for _, d := range append(append([]string{}, c.Calendar.EventDays...), c.Calendar.Holidays...) {
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			return fmt.Errorf("invalid calendar date %q: want YYYY-MM-DD", d)
		}
	}

	// Feed
	if c.Feed.WSURL != "" && !strings.HasPrefix(c.Feed.WSURL, "ws://") && !strings.HasPrefix(c.Feed.WSURL, "wss://") {
		return fmt.Errorf("invalid feed WS URL: %s", c.Feed.WSURL)
	}
	if c.Feed.WSURL != "" && len(c.Feed.Symbols) == 0 {
		return fmt.Errorf("at least one feed symbol is required")
	}

	// Market data
	if c.MarketData.RestURL != "" && !strings.HasPrefix(c.MarketData.RestURL, "http://") && !strings.HasPrefix(c.MarketData.RestURL, "https://") {
		return fmt.Errorf("invalid market data REST URL: %s", c.MarketData.RestURL)
	}
	if c.MarketData.RestURL != "" && c.MarketData.Ticker == "" {
		return fmt.Errorf("market_data.ticker is required when rest_url is set")
	}

	if c.Storage.DBFile == "" {
		return fmt.Errorf("storage.db_file is required")
	}
	if f := strings.ToLower(c.Logging.Format); f != "" && f != "text" && f != "json" {
		return fmt.Errorf("invalid logging format %q", c.Logging.Format)
	}

	return nil
}

// HeartbeatInterval is the orchestrator clock tick.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Trading.HeartbeatMS) * time.Millisecond
}

// overrideWithEnv lets environment variables take precedence over the file.
func overrideWithEnv(cfg *Config) {
	if cfg.MarketData.APIKey != "" {
		// fmt instead of slog: the logger is not configured yet.
		fmt.Println("⚠️  SECURITY WARNING: market data API key found in config file.")
		fmt.Println("   Recommendation: use ORB_MARKET_DATA_KEY instead.")
	}

	if key := os.Getenv("ORB_MARKET_DATA_KEY"); key != "" {
		cfg.MarketData.APIKey = key
	}
	if url := os.Getenv("ORB_NOTIFY_WEBHOOK"); url != "" {
		cfg.Notify.WebhookURL = url
	}
	if level := os.Getenv("ORB_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
