package recorder

import (
	"path/filepath"
	"testing"
	"time"
)

func TestSQLiteRecorder_RunsAndChanges(t *testing.T) {
	rec, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "db", "sentinel.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rec.Close()

	fetchedAt := time.Date(2025, 5, 1, 12, 3, 0, 0, time.UTC)
	run := &RunEvent{Symbol: "BTCUSDT", Interval: "60", Mode: "cold", FetchedAt: fetchedAt, Candles: 200, Swings: 30, NewRecords: 30, Regime: "Up"}
	if err := rec.RecordRun(run); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if run.ID == "" {
		t.Fatal("expected run id to be assigned")
	}

	openTime := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := rec.RecordRegimeChange(&RegimeChangeEvent{
		RunID: run.ID, Symbol: "BTCUSDT", Interval: "60", OpenTime: openTime,
		From: "Undetermined", To: "Up", Price: 122, Conversion: 115, Target: 122,
	}); err != nil {
		t.Fatalf("record change: %v", err)
	}

	n, err := rec.CountRuns("BTCUSDT", "60")
	if err != nil || n != 1 {
		t.Fatalf("expected 1 run, got %d (%v)", n, err)
	}
	var storedFetch int64
	if err := rec.db.QueryRow(`SELECT fetched_at FROM analysis_runs WHERE id = ?`, run.ID).Scan(&storedFetch); err != nil {
		t.Fatalf("query fetched_at: %v", err)
	}
	if storedFetch != fetchedAt.Unix() {
		t.Errorf("expected fetched_at %d, got %d", fetchedAt.Unix(), storedFetch)
	}
	changes, err := rec.RegimeChanges("BTCUSDT", "60")
	if err != nil {
		t.Fatalf("query changes: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(changes))
	}
	c := changes[0]
	if c.RunID != run.ID || c.To != "Up" || c.Conversion != 115 || !c.OpenTime.Equal(openTime) {
		t.Errorf("unexpected change %+v", c)
	}
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	if err := r.RecordRun(&RunEvent{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
