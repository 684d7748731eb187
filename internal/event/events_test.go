package event

import (
	"encoding/json"
	"testing"

	"github.com/camera6912/orb-trader/pkg/quant"
)

func TestTickEventPool(t *testing.T) {
	ev := AcquireTickEvent()
	ev.Symbol = "/ES"
	ev.Price = quant.ToPrice(4520.25)

	if ev.Symbol != "/ES" {
		t.Error("Symbol not set")
	}

	ReleaseTickEvent(ev)

	ev2 := AcquireTickEvent()
	if ev2.Symbol != "" || ev2.Price != 0 {
		t.Error("Event should be reset after release")
	}
	ReleaseTickEvent(ev2)
}

func TestDecode(t *testing.T) {
	tick := &TickEvent{Symbol: "/ES", Price: quant.ToPrice(4510.5), Size: 3}
	tick.SetSeq(7)
	tick.Ts = quant.TimeStamp(1709303400000000)

	payload, err := json.Marshal(tick)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	ev, err := Decode(EvTick, payload)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	got, ok := ev.(*TickEvent)
	if !ok {
		t.Fatalf("expected *TickEvent, got %T", ev)
	}
	if got.GetSeq() != 7 || got.Price != tick.Price || got.GetTs() != tick.Ts || got.Size != 3 {
		t.Errorf("decoded event mismatch: %+v", got)
	}

	hb, err := Decode(EvHeartbeat, []byte(`{"seq":8,"ts":1}`))
	if err != nil {
		t.Fatalf("Decode heartbeat failed: %v", err)
	}
	if hb.GetType() != EvHeartbeat || hb.GetSeq() != 8 {
		t.Errorf("unexpected heartbeat: %+v", hb)
	}

	if _, err := Decode(Type(99), payload); err == nil {
		t.Error("unknown type should fail")
	}
}

// BenchmarkWithoutPool measures allocation without pool
func BenchmarkWithoutPool(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		ev := &TickEvent{Symbol: "/ES", Price: 4520250000}
		_ = ev
	}
}

// BenchmarkWithPool measures allocation with pool
func BenchmarkWithPool(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		ev := AcquireTickEvent()
		ev.Symbol = "/ES"
		ev.Price = 4520250000
		ReleaseTickEvent(ev)
	}
}
