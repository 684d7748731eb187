package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/camera6912/orb-trader/internal/domain"
	"github.com/camera6912/orb-trader/pkg/quant"
)

func TestSnapshot_SaveAndLoad(t *testing.T) {
	sm := NewSnapshotManager(filepath.Join(t.TempDir(), "status"))

	st := domain.NewSessionState("2024-03-01")
	st.Phase = domain.PhaseLongOpen
	st.Position = &domain.Position{Side: domain.SideLong, EntryPrice: quant.ToPrice(4520), Status: domain.PositionOpen}
	snap := CreateSnapshot(100, st)

	// Mutating the live state after the copy must not leak into the snapshot.
	st.Position.EntryPrice = 0

	if err := sm.Save(snap); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := sm.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("Expected snapshot, got nil")
	}
	if loaded.Seq != 100 {
		t.Errorf("Expected seq 100, got %d", loaded.Seq)
	}
	if loaded.State.Phase != domain.PhaseLongOpen || loaded.State.Position.EntryPrice != quant.ToPrice(4520) {
		t.Errorf("State mismatch: %+v", loaded.State)
	}
}

func TestSnapshot_LoadLatest_MultipleSnapshots(t *testing.T) {
	sm := NewSnapshotManager(t.TempDir())

	for _, seq := range []uint64{10, 50, 30} {
		st := domain.NewSessionState("2024-03-01")
		if err := sm.Save(&Snapshot{Seq: seq, TsUnix: int64(seq), State: *st}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	loaded, err := sm.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if loaded.Seq != 50 {
		t.Errorf("Expected latest seq 50, got %d", loaded.Seq)
	}
}

func TestSnapshot_LoadLatest_NoSnapshots(t *testing.T) {
	sm := NewSnapshotManager(filepath.Join(t.TempDir(), "missing"))

	loaded, err := sm.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if loaded != nil {
		t.Error("Expected nil for missing directory")
	}
}

func TestSnapshot_Cleanup(t *testing.T) {
	dir := t.TempDir()
	sm := NewSnapshotManager(dir)

	for seq := uint64(1); seq <= 5; seq++ {
		if err := sm.Save(&Snapshot{Seq: seq, TsUnix: int64(seq), State: *domain.NewSessionState("2024-03-01")}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := sm.Cleanup(2); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 3 {
		t.Errorf("Expected 2 snapshots plus the unrelated file, got %d entries", len(entries))
	}

	loaded, _ := sm.LoadLatest()
	if loaded == nil || loaded.Seq != 5 {
		t.Errorf("newest snapshot must survive cleanup, got %+v", loaded)
	}
}
