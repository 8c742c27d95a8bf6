// Package persistence provides SQLite-based storage for arena runs: per-tick
// statistics, events and periodic snapshots to resume from.
package persistence

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"

	"github.com/talgya/arena/internal/engine"
)

// ErrNoSnapshot is returned when no snapshot has been saved yet.
var ErrNoSnapshot = errors.New("no saved snapshot")

// DB wraps a SQLite connection for run persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		map TEXT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		seed INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stats_history (
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		num_combatants INTEGER NOT NULL,
		min_fitness INTEGER NOT NULL,
		max_fitness INTEGER NOT NULL,
		average_fitness REAL NOT NULL,
		births INTEGER NOT NULL,
		deaths INTEGER NOT NULL,
		items INTEGER NOT NULL,
		PRIMARY KEY (run_id, tick)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		data BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_run_tick ON events(run_id, tick);
	CREATE INDEX IF NOT EXISTS idx_snapshots_run ON snapshots(run_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// StartRun records a new run described by its first snapshot and returns its ID.
func (db *DB) StartRun(snap engine.Snapshot) (string, error) {
	id := uuid.NewString()
	_, err := db.conn.Exec(
		"INSERT INTO runs (id, started_at, map, width, height, seed) VALUES (?, ?, ?, ?, ?, ?)",
		id, time.Now().Unix(), snap.Map, snap.Width, snap.Height, snap.Seed,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	if err := db.SaveMeta("current_run", id); err != nil {
		return "", fmt.Errorf("save meta: %w", err)
	}
	return id, nil
}

// SaveTick appends the statistics row and events of one tick.
func (db *DB) SaveTick(runID string, snap engine.Snapshot) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	st := snap.Stats
	_, err = tx.Exec(`INSERT OR REPLACE INTO stats_history
		(run_id, tick, num_combatants, min_fitness, max_fitness, average_fitness, births, deaths, items)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, snap.Tick, st.NumCombatants, st.MinFitness, st.MaxFitness,
		st.AverageFitness, st.Births, st.Deaths, len(snap.Items),
	)
	if err != nil {
		return fmt.Errorf("insert stats for tick %d: %w", snap.Tick, err)
	}

	for _, e := range snap.Events {
		_, err := tx.Exec(
			"INSERT INTO events (run_id, tick, description, category) VALUES (?, ?, ?, ?)",
			runID, e.Tick, e.Description, e.Category,
		)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	return tx.Commit()
}

// SaveSnapshot stores a full msgpack-encoded snapshot.
func (db *DB) SaveSnapshot(runID string, snap engine.Snapshot) error {
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(
		"INSERT INTO snapshots (run_id, tick, data) VALUES (?, ?, ?)",
		runID, snap.Tick, data,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	slog.Info("snapshot saved", "run", runID, "tick", snap.Tick, "bytes", len(data))
	return nil
}

// LoadLatestSnapshot returns the most recently saved snapshot and its run.
func (db *DB) LoadLatestSnapshot() (string, engine.Snapshot, error) {
	var row struct {
		RunID string `db:"run_id"`
		Data  []byte `db:"data"`
	}
	err := db.conn.Get(&row, "SELECT run_id, data FROM snapshots ORDER BY id DESC LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return "", engine.Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return "", engine.Snapshot{}, fmt.Errorf("select snapshot: %w", err)
	}
	snap, err := DecodeSnapshot(row.Data)
	if err != nil {
		return "", engine.Snapshot{}, err
	}
	return row.RunID, snap, nil
}

// EncodeSnapshot serializes a snapshot with msgpack, reusing the JSON field names.
func EncodeSnapshot(snap engine.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(&snap); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeSnapshot is the inverse of EncodeSnapshot.
func DecodeSnapshot(data []byte) (engine.Snapshot, error) {
	var snap engine.Snapshot
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&snap); err != nil {
		return engine.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// StatsRow is one tick of recorded statistics.
type StatsRow struct {
	Tick           uint64  `db:"tick" json:"tick"`
	NumCombatants  int     `db:"num_combatants" json:"num_combatants"`
	MinFitness     int     `db:"min_fitness" json:"min_fitness"`
	MaxFitness     int     `db:"max_fitness" json:"max_fitness"`
	AverageFitness float64 `db:"average_fitness" json:"average_fitness"`
	Births         int     `db:"births" json:"births"`
	Deaths         int     `db:"deaths" json:"deaths"`
	Items          int     `db:"items" json:"items"`
}

// StatsHistory returns up to limit of the latest stats rows of a run, oldest first.
func (db *DB) StatsHistory(runID string, limit int) ([]StatsRow, error) {
	var rows []StatsRow
	err := db.conn.Select(&rows, `SELECT tick, num_combatants, min_fitness, max_fitness,
		average_fitness, births, deaths, items
		FROM (SELECT * FROM stats_history WHERE run_id = ? ORDER BY tick DESC LIMIT ?)
		ORDER BY tick ASC`,
		runID, limit,
	)
	return rows, err
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// RecentEvents returns the most recent N events of a run, newest first.
func (db *DB) RecentEvents(runID string, limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT tick, description, category FROM events WHERE run_id = ? ORDER BY id DESC LIMIT ?",
		runID, limit,
	)
	return events, err
}

// Recorder persists every tick of an engine run and snapshots it periodically.
type Recorder struct {
	DB            *DB
	RunID         string
	SnapshotEvery uint64
}

// Record is an engine.OnTick callback. Write failures are logged and the
// tick goes on.
func (r *Recorder) Record(snap engine.Snapshot) {
	if err := r.DB.SaveTick(r.RunID, snap); err != nil {
		slog.Error("save tick failed", "tick", snap.Tick, "error", err)
	}
	if r.SnapshotEvery > 0 && snap.Tick%r.SnapshotEvery == 0 {
		if err := r.DB.SaveSnapshot(r.RunID, snap); err != nil {
			slog.Error("save snapshot failed", "tick", snap.Tick, "error", err)
		}
	}
}
