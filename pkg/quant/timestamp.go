package quant

import (
	"strconv"
	"sync/atomic"
	"time"
)

// TimeStamp represents Unix Microseconds.
type TimeStamp int64

// FromTime converts a wall-clock time to TimeStamp.
func FromTime(t time.Time) TimeStamp {
	return TimeStamp(t.UnixMicro())
}

// FromMillis converts a Unix millisecond value (feed and REST payloads) to TimeStamp.
func FromMillis(ms int64) TimeStamp {
	return TimeStamp(ms * 1000)
}

// Time returns the UTC time for ts.
func (ts TimeStamp) Time() time.Time {
	return time.UnixMicro(int64(ts)).UTC()
}

// ParseTimeStamp converts a string (ms) to TimeStamp (micros).
func ParseTimeStamp(s string) (TimeStamp, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return FromMillis(ms), nil
}

// NextSeq generates the next sequence number atomically.
func NextSeq(ptr *uint64) uint64 {
	return atomic.AddUint64(ptr, 1)
}
