package event

import "sync"

var tickPool = sync.Pool{
	New: func() any { return new(TickEvent) },
}

// AcquireTickEvent takes a zeroed TickEvent from the pool.
func AcquireTickEvent() *TickEvent {
	return tickPool.Get().(*TickEvent)
}

// ReleaseTickEvent resets ev and returns it to the pool.
// The caller must not touch ev afterwards.
func ReleaseTickEvent(ev *TickEvent) {
	if ev == nil {
		return
	}
	*ev = TickEvent{}
	tickPool.Put(ev)
}

// Warmup pre-fills the pool so the first minutes of the session do not allocate.
func Warmup() {
	evs := make([]*TickEvent, 256)
	for i := range evs {
		evs[i] = AcquireTickEvent()
	}
	for _, ev := range evs {
		ReleaseTickEvent(ev)
	}
}
