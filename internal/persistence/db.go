// Package persistence provides SQLite-based storage for generated tiles.
// Each room's records are stored in replay order; neighbor links and colour
// groups are never written and are rebuilt on load.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/hextile/internal/world"
)

// DB wraps a SQLite connection for tile persistence.
type DB struct {
	conn *sqlx.DB
}

type tileRow struct {
	Room       string  `db:"room"`
	Seq        int     `db:"seq"`
	X          float64 `db:"x"`
	Y          float64 `db:"y"`
	ColorIndex int     `db:"color_index"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
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
	CREATE TABLE IF NOT EXISTS tiles (
		room TEXT NOT NULL,
		seq INTEGER NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL,
		color_index INTEGER NOT NULL,
		PRIMARY KEY (room, seq)
	);

	CREATE TABLE IF NOT EXISTS save_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveTiles replaces all stored tiles with the given records.
func (db *DB) SaveTiles(records map[string][]world.Record) error {
	return db.SaveSnapshot(records, nil)
}

// SaveSnapshot replaces all stored tiles and writes the meta entries in one
// transaction. Either everything is stored or nothing is.
func (db *DB) SaveSnapshot(records map[string][]world.Record, meta map[string]string) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for key, value := range meta {
		if err := saveMeta(tx, key, value); err != nil {
			return fmt.Errorf("save meta %s: %w", key, err)
		}
	}
	if _, err := tx.Exec("DELETE FROM tiles"); err != nil {
		return err
	}
	for room, recs := range records {
		if err := insertRoom(tx, room, recs); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveRoom replaces the stored tiles of one room, leaving other rooms alone.
func (db *DB) SaveRoom(room string, recs []world.Record) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM tiles WHERE room = ?", room); err != nil {
		return err
	}
	if err := insertRoom(tx, room, recs); err != nil {
		return err
	}

	return tx.Commit()
}

func insertRoom(tx *sqlx.Tx, room string, recs []world.Record) error {
	stmt, err := tx.Preparex(`INSERT INTO tiles (room, seq, x, y, color_index) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range recs {
		if !finite(r.X) || !finite(r.Y) {
			return fmt.Errorf("tile %s/%d: non-finite position (%v, %v)", room, i, r.X, r.Y)
		}
		if _, err := stmt.Exec(room, i, r.X, r.Y, r.ColorIndex); err != nil {
			return fmt.Errorf("insert tile %s/%d: %w", room, i, err)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// LoadTiles returns every stored room's records in replay order.
func (db *DB) LoadTiles() (map[string][]world.Record, error) {
	var rows []tileRow
	if err := db.conn.Select(&rows, "SELECT room, seq, x, y, color_index FROM tiles ORDER BY room, seq"); err != nil {
		return nil, fmt.Errorf("select tiles: %w", err)
	}

	out := make(map[string][]world.Record)
	for _, r := range rows {
		out[r.Room] = append(out[r.Room], world.Record{X: r.X, Y: r.Y, ColorIndex: r.ColorIndex})
	}
	return out, nil
}

// HasSave reports whether any tiles are stored.
func (db *DB) HasSave() bool {
	var n int
	if err := db.conn.Get(&n, "SELECT COUNT(*) FROM tiles"); err != nil {
		slog.Warn("count tiles failed", "error", err)
		return false
	}
	return n > 0
}

// SaveMeta stores a key-value pair in save metadata.
func (db *DB) SaveMeta(key, value string) error {
	return saveMeta(db.conn, key, value)
}

func saveMeta(ex sqlx.Execer, key, value string) error {
	_, err := ex.Exec(
		"INSERT OR REPLACE INTO save_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value. A missing key returns "" and no error.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM save_meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}
