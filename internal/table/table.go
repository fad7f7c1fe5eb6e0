package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"DowSentinel/internal/model"
)

// TimeLayout is the layout of the open_time column.
const TimeLayout = time.DateTime

// Header is the column layout of a trend table file.
var Header = []string{"open_time", "kind", "high", "low", "trend", "conversion_value", "target_value"}

// Path returns the table file for a target: <dir>/<SYMBOL>-<category>/<interval>.csv.
func Path(dir, category string, target model.Target) string {
	return filepath.Join(dir, target.Symbol+"-"+category, target.Interval+".csv")
}

// Load reads a trend table. found is false when the file does not exist.
func Load(path string) (records []model.TrendRecord, found bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	records, err = Decode(f)
	if err != nil {
		return nil, true, fmt.Errorf("decode %s: %w", path, err)
	}
	return records, true, nil
}

// Save keeps the most recent retention rows and writes them to path, creating parent
// directories as needed. The file is replaced atomically.
func Save(path string, records []model.TrendRecord, retention int) error {
	records = RetainTail(records, retention)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create table dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := Encode(f, records); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Encode writes the header and one row per record.
func Encode(w io.Writer, records []model.TrendRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(encodeRow(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Decode parses a table written by Encode.
func Decode(r io.Reader) ([]model.TrendRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	records := make([]model.TrendRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := decodeRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func encodeRow(r model.TrendRecord) []string {
	row := make([]string, len(Header))
	row[0] = r.OpenTime.UTC().Format(TimeLayout)
	row[1] = r.Kind.String()
	switch r.Kind {
	case model.SwingHigh:
		row[2] = formatF(r.High)
	case model.SwingLow:
		row[3] = formatF(r.Low)
	}
	if r.Classified() {
		row[4] = r.Trend.String()
		row[5] = formatF(r.Conversion)
		row[6] = formatF(r.Target)
	}
	return row
}

func decodeRow(row []string) (model.TrendRecord, error) {
	var rec model.TrendRecord
	t, err := time.ParseInLocation(TimeLayout, row[0], time.UTC)
	if err != nil {
		return rec, fmt.Errorf("open_time: %w", err)
	}
	rec.OpenTime = t

	rec.Kind, err = model.ParseSwingKind(row[1])
	if err != nil {
		return rec, err
	}
	switch rec.Kind {
	case model.SwingHigh:
		if row[3] != "" {
			return rec, errors.New("High row carries a low")
		}
		if rec.High, err = parseF(row[2]); err != nil {
			return rec, fmt.Errorf("high: %w", err)
		}
	case model.SwingLow:
		if row[2] != "" {
			return rec, errors.New("Low row carries a high")
		}
		if rec.Low, err = parseF(row[3]); err != nil {
			return rec, fmt.Errorf("low: %w", err)
		}
	}

	if rec.Trend, err = model.ParseRegime(row[4]); err != nil {
		return rec, err
	}
	if !rec.Trend.Established() {
		if row[5] != "" || row[6] != "" {
			return rec, errors.New("trend values without a trend")
		}
		return rec, nil
	}
	if rec.Conversion, err = parseF(row[5]); err != nil {
		return rec, fmt.Errorf("conversion_value: %w", err)
	}
	if rec.Target, err = parseF(row[6]); err != nil {
		return rec, fmt.Errorf("target_value: %w", err)
	}
	return rec, nil
}

func formatF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func parseF(s string) (float64, error) { return strconv.ParseFloat(s, 64) }
