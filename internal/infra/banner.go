package infra

import (
	"fmt"
	"strings"
)

// ANSI Color Codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
)

// PrintBanner displays the startup banner with the session settings.
func PrintBanner(cfg *Config) {
	mode := strings.ToUpper(cfg.Trading.Mode)
	color := ColorCyan

	feed := cfg.Feed.WSURL
	if feed == "" {
		color = ColorYellow
		feed = "(none: heartbeats only)"
	}
	history := cfg.MarketData.RestURL
	if history == "" {
		history = "(none: ticks only)"
	}

	fmt.Println()
	fmt.Printf("%s###########################################################%s\n", color, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s#              📈 Opening Range Breakout                  #%s\n", color, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s#   MODE:    %-44s #%s\n", color, mode+" (no orders leave this process)", ColorReset)
	fmt.Printf("%s#   SYMBOL:  %-44s #%s\n", color, cfg.Trading.Symbol, ColorReset)
	fmt.Printf("%s#   WINDOW:  %-44s #%s\n", color, fmt.Sprintf("%s-%s %s", cfg.Trading.Open, cfg.Trading.RangeEnd, cfg.Trading.Timezone), ColorReset)
	fmt.Printf("%s#   VERSION: %-44s #%s\n", color, cfg.App.Version, ColorReset)
	fmt.Printf("%s#   FEED:    %-44s #%s\n", color, truncate(feed, 44), ColorReset)
	fmt.Printf("%s#   HISTORY: %-44s #%s\n", color, truncate(history, 44), ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s###########################################################%s\n", color, ColorReset)
	fmt.Println()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
