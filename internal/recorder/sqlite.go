package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"WaveSentinel/internal/model"
	"WaveSentinel/internal/scheduler"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder journals events to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while the engine writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Infof("sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS signal_events (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id       INTEGER NOT NULL,
			timestamp      INTEGER NOT NULL,
			type           TEXT NOT NULL,
			symbol         TEXT NOT NULL,
			price          REAL,
			wave_value     REAL,
			strength       REAL,
			entry_price    REAL,
			profit_percent REAL,
			entry_time     TEXT,
			entry_date     TEXT,
			message        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signal_ts ON signal_events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_signal_symbol ON signal_events(symbol)`,

		`CREATE TABLE IF NOT EXISTS analysis_passes (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			pass_id     TEXT NOT NULL,
			mode        TEXT NOT NULL,
			started     INTEGER NOT NULL,
			duration_ms INTEGER,
			evaluated   INTEGER,
			failed      INTEGER,
			aborted     INTEGER,
			failures    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pass_started ON analysis_passes(started)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordSignal(ev *model.SignalEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO signal_events
		(event_id, timestamp, type, symbol, price, wave_value, strength,
		 entry_price, profit_percent, entry_time, entry_date, message)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		ev.ID, ev.Timestamp.Unix(), string(ev.Type), ev.Symbol, ev.Price,
		ev.WaveValue, ev.Strength, ev.EntryPrice, ev.ProfitPercent,
		ev.EntryTime, ev.EntryDate, ev.Message,
	)
	if err != nil {
		return fmt.Errorf("insert signal %d: %w", ev.ID, err)
	}
	return nil
}

func (r *SQLiteRecorder) RecordPass(rep *scheduler.PassReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	failures := make([]string, len(rep.Failures))
	for i, f := range rep.Failures {
		failures[i] = fmt.Sprintf("%s: %v", f.Symbol, f.Err)
	}

	_, err := r.db.Exec(`INSERT INTO analysis_passes
		(pass_id, mode, started, duration_ms, evaluated, failed, aborted, failures)
		VALUES (?,?,?,?,?,?,?,?)`,
		rep.ID, string(rep.Mode), rep.Started.Unix(), rep.Duration().Milliseconds(),
		rep.Evaluated, len(rep.Failures), rep.Aborted, strings.Join(failures, "\n"),
	)
	if err != nil {
		return fmt.Errorf("insert pass %s: %w", rep.ID, err)
	}
	return nil
}

func (r *SQLiteRecorder) Close() error {
	log.Info("closing sqlite recorder")
	return r.db.Close()
}
