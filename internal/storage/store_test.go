package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/camera6912/orb-trader/internal/domain"
	"github.com/camera6912/orb-trader/internal/event"
	"github.com/camera6912/orb-trader/pkg/quant"
)

func newTestStore(t *testing.T) *EventStore {
	t.Helper()
	store, err := NewEventStore(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEventStore_SaveAndLoadSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ev1 := &event.TickEvent{BaseEvent: event.BaseEvent{Seq: 1, Ts: quant.TimeStamp(1000)}, Symbol: "/ES", Price: quant.ToPrice(4520.25), Size: 2}
	ev2 := event.NewHeartbeat(quant.TimeStamp(2000))
	ev2.SetSeq(2)
	ev3 := &event.TickEvent{BaseEvent: event.BaseEvent{Seq: 3, Ts: quant.TimeStamp(3000)}, Symbol: "/ES", Price: quant.ToPrice(4521)}

	if err := store.SaveEvent(ctx, "2024-03-01", ev1); err != nil {
		t.Fatalf("Failed to save ev1: %v", err)
	}
	if err := store.SaveEvent(ctx, "2024-03-01", ev2); err != nil {
		t.Fatalf("Failed to save ev2: %v", err)
	}
	if err := store.SaveEvent(ctx, "2024-03-04", ev3); err != nil {
		t.Fatalf("Failed to save ev3: %v", err)
	}

	loaded, err := store.LoadSessionEvents(ctx, "2024-03-01")
	if err != nil {
		t.Fatalf("Failed to load events: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(loaded))
	}

	tick, ok := loaded[0].(*event.TickEvent)
	if !ok {
		t.Fatalf("expected *TickEvent, got %T", loaded[0])
	}
	if tick.GetSeq() != 1 || tick.Price != quant.ToPrice(4520.25) || tick.Size != 2 {
		t.Errorf("Event 1 mismatch: %+v", tick)
	}
	if loaded[1].GetType() != event.EvHeartbeat {
		t.Errorf("Event 2 type mismatch: got %s", loaded[1].GetType())
	}

	if err := store.SaveEvent(ctx, "2024-03-04", ev3); err == nil {
		t.Error("duplicate sequence must be rejected")
	}
}

func TestEventStore_GetLastSeq(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	lastSeq, err := store.GetLastSeq(ctx)
	if err != nil {
		t.Fatalf("GetLastSeq failed: %v", err)
	}
	if lastSeq != 0 {
		t.Errorf("expected 0 on empty store, got %d", lastSeq)
	}

	for i := uint64(1); i <= 3; i++ {
		hb := event.NewHeartbeat(quant.TimeStamp(i))
		hb.SetSeq(i)
		if err := store.SaveEvent(ctx, "2024-03-01", hb); err != nil {
			t.Fatalf("SaveEvent failed: %v", err)
		}
	}

	lastSeq, err = store.GetLastSeq(ctx)
	if err != nil {
		t.Fatalf("GetLastSeq failed: %v", err)
	}
	if lastSeq != 3 {
		t.Errorf("expected 3, got %d", lastSeq)
	}
}

func TestEventStore_ReportsAreWrittenOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := domain.SessionReport{
		Date:   "2024-03-01",
		Status: domain.StatusTraded,
		Outcome: &domain.TradeOutcome{
			Date: "2024-03-01", Side: domain.SideLong, Entry: quant.ToPrice(4520), Exit: quant.ToPrice(4540),
			ExitReason: domain.CloseTarget, PnLPoints: quant.Points(20),
		},
	}
	inserted, err := store.SaveReport(ctx, first)
	if err != nil || !inserted {
		t.Fatalf("first SaveReport: inserted=%v err=%v", inserted, err)
	}

	second := domain.SessionReport{Date: "2024-03-01", Status: domain.StatusNoTrade, Reason: "filtered"}
	inserted, err = store.SaveReport(ctx, second)
	if err != nil {
		t.Fatalf("second SaveReport failed: %v", err)
	}
	if inserted {
		t.Error("second report for the same session must be ignored")
	}

	got, err := store.GetReport(ctx, "2024-03-01")
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if got == nil || got.Status != domain.StatusTraded || got.Outcome.PnLPoints != quant.Points(20) {
		t.Errorf("unexpected stored report: %+v", got)
	}

	missing, err := store.GetReport(ctx, "2024-03-02")
	if err != nil || missing != nil {
		t.Errorf("missing report: got %+v err %v", missing, err)
	}

	if _, err := store.SaveReport(ctx, domain.SessionReport{Date: "2024-02-29", Status: domain.StatusNoFill}); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}
	list, err := store.ListReports(ctx)
	if err != nil {
		t.Fatalf("ListReports failed: %v", err)
	}
	if len(list) != 2 || list[0].Date != "2024-02-29" {
		t.Errorf("ListReports order mismatch: %+v", list)
	}
}

func TestEventStore_Metadata(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if v, err := store.GetMetadata(ctx, "last_session"); err != nil || v != "" {
		t.Fatalf("expected empty metadata, got %q err %v", v, err)
	}
	if err := store.UpsertMetadata(ctx, "last_session", "2024-03-01", 1); err != nil {
		t.Fatalf("UpsertMetadata failed: %v", err)
	}
	if err := store.UpsertMetadata(ctx, "last_session", "2024-03-04", 2); err != nil {
		t.Fatalf("UpsertMetadata failed: %v", err)
	}
	if v, _ := store.GetMetadata(ctx, "last_session"); v != "2024-03-04" {
		t.Errorf("expected overwrite, got %q", v)
	}
	if AuditKey("2024-03-01") != "audit/2024-03-01" {
		t.Errorf("unexpected audit key %q", AuditKey("2024-03-01"))
	}
}
