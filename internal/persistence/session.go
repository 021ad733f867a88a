package persistence

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/hextile/internal/engine"
)

// SaveSession performs a full save of the session's grid.
func (db *DB) SaveSession(sess *engine.Session) error {
	records, runID := sess.Snapshot()
	slog.Info("saving tiles", "rooms", len(records))

	meta := map[string]string{
		"run_id":   runID,
		"saved_at": time.Now().UTC().Format(time.RFC3339),
	}
	if err := db.SaveSnapshot(records, meta); err != nil {
		return fmt.Errorf("save tiles: %w", err)
	}

	slog.Info("tiles saved")
	return nil
}

// SaveSessionRoom writes one room of the session, e.g. after a recolour.
func (db *DB) SaveSessionRoom(sess *engine.Session, room string) error {
	if err := db.SaveRoom(room, sess.RoomRecords(room)); err != nil {
		return fmt.Errorf("save room %s: %w", room, err)
	}
	return nil
}

// RestoreSession loads the stored tiles into the session.
func (db *DB) RestoreSession(sess *engine.Session) (engine.Status, error) {
	records, err := db.LoadTiles()
	if err != nil {
		return engine.Status{}, err
	}
	runID, err := db.GetMeta("run_id")
	if err != nil {
		return engine.Status{}, fmt.Errorf("get run id: %w", err)
	}
	return sess.Restore(records, runID), nil
}
