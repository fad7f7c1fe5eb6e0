package table

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"DowSentinel/internal/model"
)

var t0 = time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

func sampleRecords(n int) []model.TrendRecord {
	out := make([]model.TrendRecord, n)
	for i := range out {
		at := t0.Add(time.Duration(i) * time.Hour)
		if i%2 == 0 {
			out[i] = model.NewSwingLow(at, 100+float64(i))
		} else {
			out[i] = model.NewSwingHigh(at, 110+float64(i))
		}
		if i >= 3 {
			out[i] = out[i].WithTrend(model.Up, 100.5, 120.25)
		}
	}
	return out
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "BTCUSDT-linear", "60.csv")
	want := sampleRecords(6)
	if err := Save(path, want, DefaultRetention); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, found, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !found {
		t.Fatal("expected table to be found")
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(got))
	}
	for i := range want {
		if !got[i].OpenTime.Equal(want[i].OpenTime) || got[i].Kind != want[i].Kind ||
			got[i].High != want[i].High || got[i].Low != want[i].Low ||
			got[i].Trend != want[i].Trend || got[i].Conversion != want[i].Conversion || got[i].Target != want[i].Target {
			t.Errorf("record %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSave_FileLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.csv")
	if err := Save(path, sampleRecords(4), DefaultRetention); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	want := []string{
		"open_time,kind,high,low,trend,conversion_value,target_value",
		"2025-05-01 09:30:00,Low,,100,,,",
		"2025-05-01 10:30:00,High,111,,,,",
		"2025-05-01 11:30:00,Low,,102,,,",
		"2025-05-01 12:30:00,High,113,,Up,100.5,120.25",
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d:\n%s", len(want), len(lines), data)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestSave_Retention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.csv")
	all := sampleRecords(DefaultRetention + 37)
	if err := Save(path, all, DefaultRetention); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != DefaultRetention {
		t.Fatalf("expected %d rows, got %d", DefaultRetention, len(got))
	}
	if !got[0].OpenTime.Equal(all[37].OpenTime) {
		t.Errorf("expected oldest rows to be dropped, first row at %s", got[0].OpenTime)
	}
}

func TestLoad_Missing(t *testing.T) {
	recs, found, err := Load(filepath.Join(t.TempDir(), "none.csv"))
	if err != nil || found || recs != nil {
		t.Fatalf("expected not found without error, got %v %v %v", recs, found, err)
	}
}

func TestDecode_Invalid(t *testing.T) {
	header := strings.Join(Header, ",") + "\n"
	tests := []struct {
		name string
		row  string
	}{
		{"unknown kind", "2025-05-01 09:30:00,Flat,1,,,,"},
		{"high with low", "2025-05-01 09:30:00,High,1,2,,,"},
		{"partial trend", "2025-05-01 09:30:00,High,1,,Up,,"},
		{"values without trend", "2025-05-01 09:30:00,Low,,1,,2,3"},
		{"bad time", "yesterday,Low,,1,,,"},
		{"unknown trend", "2025-05-01 09:30:00,Low,,1,Sideways,2,3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(header + tt.row + "\n")); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	_, err := Decode(strings.NewReader(header + "2025-05-01 09:30:00,Flat,1,,,,\n"))
	if !errors.Is(err, model.ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}

func TestMergeByTime_EarliestKept(t *testing.T) {
	existing := sampleRecords(3)
	dup := model.NewSwingLow(existing[2].OpenTime, 1)
	fresh := model.NewSwingHigh(t0.Add(10*time.Hour), 200)
	got := MergeByTime(existing, []model.TrendRecord{dup, fresh}, func(r model.TrendRecord) time.Time { return r.OpenTime })
	if len(got) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(got))
	}
	if got[2].Low != existing[2].Low {
		t.Errorf("expected existing row to win on collision, got %+v", got[2])
	}
	if got[3] != fresh {
		t.Errorf("expected fresh row appended, got %+v", got[3])
	}
}

func TestRetainTail(t *testing.T) {
	rows := []int{1, 2, 3, 4, 5}
	if got := RetainTail(rows, 3); len(got) != 3 || got[0] != 3 {
		t.Errorf("unexpected tail %v", got)
	}
	if got := RetainTail(rows, 0); len(got) != 5 {
		t.Errorf("expected no limit, got %v", got)
	}
	if got := RetainTail(rows, 10); len(got) != 5 {
		t.Errorf("expected all rows, got %v", got)
	}
}
