package execution

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Mode represents the trading execution mode
type Mode string

const (
	ModePaper Mode = "PAPER"
	ModeLive  Mode = "LIVE"
)

// ErrLiveUnsupported is returned for live mode until a broker adapter exists.
var ErrLiveUnsupported = errors.New("live order routing is not supported")

// New returns the Engine for mode. Empty mode means paper.
func New(mode string) (Engine, error) {
	m := Mode(strings.ToUpper(strings.TrimSpace(mode)))
	if m == "" {
		m = ModePaper
	}

	slog.Info("Initializing Execution System", "mode", m)

	switch m {
	case ModePaper:
		return NewPaperEngine(), nil
	case ModeLive:
		return nil, ErrLiveUnsupported
	default:
		return nil, fmt.Errorf("unknown trading mode: %s", mode)
	}
}
