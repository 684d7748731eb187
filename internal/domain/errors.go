package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/camera6912/orb-trader/pkg/quant"
)

// InsufficientDataError means no bars fell inside the opening window.
type InsufficientDataError struct {
	From time.Time
	To   time.Time
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("no bars in opening window [%s, %s)", e.From.Format(time.RFC3339), e.To.Format(time.RFC3339))
}

// DegenerateRangeError means the range has no width and no bracket can be built.
type DegenerateRangeError struct {
	High quant.Price
	Low  quant.Price
}

func (e *DegenerateRangeError) Error() string {
	return fmt.Sprintf("degenerate opening range: high=%s low=%s", e.High, e.Low)
}

// FeedGapError reports a tick that crossed both entry levels at once.
// It is resolved by the tie-break policy and never aborts the session.
type FeedGapError struct {
	Prev       quant.Price
	Price      quant.Price
	LongEntry  quant.Price
	ShortEntry quant.Price
	Chosen     Side
}

func (e *FeedGapError) Error() string {
	return fmt.Sprintf("tick %s -> %s crossed both entries (long=%s short=%s), chose %s",
		e.Prev, e.Price, e.LongEntry, e.ShortEntry, e.Chosen)
}

var (
	ErrEntriesAlreadyPlaced = errors.New("entry orders already placed for this session")
	ErrTradeAlreadyTaken    = errors.New("one trade per day already taken")
)
