package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

// NewRunID returns an identifier tying a run to its regime changes.
func NewRunID() string { return uuid.NewString() }

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analysis_runs (
			id          TEXT PRIMARY KEY,
			timestamp   INTEGER NOT NULL,
			symbol      TEXT NOT NULL,
			interval    TEXT NOT NULL,
			mode        TEXT,
			fetched_at  INTEGER,
			candles     INTEGER,
			swings      INTEGER,
			new_records INTEGER,
			regime      TEXT,
			conversion  REAL,
			target      REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_target ON analysis_runs(symbol, interval, timestamp)`,

		`CREATE TABLE IF NOT EXISTS regime_changes (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			timestamp   INTEGER NOT NULL,
			symbol      TEXT NOT NULL,
			interval    TEXT NOT NULL,
			open_time   INTEGER NOT NULL,
			from_regime TEXT,
			to_regime   TEXT,
			price       REAL,
			conversion  REAL,
			target      REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_changes_target ON regime_changes(symbol, interval, open_time)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(evt *RunEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if evt.ID == "" {
		evt.ID = NewRunID()
	}
	_, err := r.db.Exec(`INSERT INTO analysis_runs
		(id, timestamp, symbol, interval, mode, fetched_at, candles, swings, new_records, regime, conversion, target)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		evt.ID, time.Now().Unix(), evt.Symbol, evt.Interval, evt.Mode, evt.FetchedAt.Unix(),
		evt.Candles, evt.Swings, evt.NewRecords, evt.Regime, evt.Conversion, evt.Target,
	)
	return err
}

func (r *SQLiteRecorder) RecordRegimeChange(evt *RegimeChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO regime_changes
		(run_id, timestamp, symbol, interval, open_time, from_regime, to_regime, price, conversion, target)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		evt.RunID, time.Now().Unix(), evt.Symbol, evt.Interval, evt.OpenTime.Unix(),
		evt.From, evt.To, evt.Price, evt.Conversion, evt.Target,
	)
	return err
}

// CountRuns returns the number of recorded runs of a target.
func (r *SQLiteRecorder) CountRuns(symbol, interval string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM analysis_runs WHERE symbol = ? AND interval = ?`, symbol, interval).Scan(&n)
	return n, err
}

// RegimeChanges returns the recorded transitions of a target, oldest first.
func (r *SQLiteRecorder) RegimeChanges(symbol, interval string) ([]RegimeChangeEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT run_id, open_time, from_regime, to_regime, price, conversion, target
		FROM regime_changes WHERE symbol = ? AND interval = ? ORDER BY open_time, id`, symbol, interval)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RegimeChangeEvent
	for rows.Next() {
		evt := RegimeChangeEvent{Symbol: symbol, Interval: interval}
		var openTime int64
		if err := rows.Scan(&evt.RunID, &openTime, &evt.From, &evt.To, &evt.Price, &evt.Conversion, &evt.Target); err != nil {
			return nil, err
		}
		evt.OpenTime = time.Unix(openTime, 0).UTC()
		out = append(out, evt)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
