// Package engine runs tiling sessions for the host programs. A Session owns
// the settings, the cell store and the grower, and serialises every
// operation on them so a regenerate can never overlap a recolour or a save.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/hextile/internal/config"
	"github.com/talgya/hextile/internal/world"
)

// Session is one tiling workspace.
type Session struct {
	mu sync.Mutex

	file    *config.File
	borders []*world.Border
	gen     world.GenConfig
	store   *world.Storage
	sink    world.Sink

	runID       string
	capped      bool
	generatedAt time.Time
}

// Status summarises the current grid.
type Status struct {
	RunID       string    `json:"run_id"`
	Cells       int       `json:"cells"`
	CellsHuman  string    `json:"cells_human"`
	Rooms       int       `json:"rooms"`
	MaxCells    int       `json:"max_cells"`
	Capped      bool      `json:"capped"`
	Colors      int       `json:"colors"`
	Radius      float64   `json:"radius"`
	GeneratedAt time.Time `json:"generated_at"`
}

// CellView is a copy of a cell that is safe to use outside the session lock.
type CellView struct {
	ID        world.CellID    `json:"id"`
	Room      string          `json:"room"`
	X         float64         `json:"x"`
	Y         float64         `json:"y"`
	Color     int             `json:"color"`
	Group     world.GroupID   `json:"group"`
	Neighbors [6]world.CellID `json:"neighbors"`
}

// RoomCells is a point-query or recolour result for one room.
type RoomCells struct {
	Room  string     `json:"room"`
	Cells []CellView `json:"cells"`
}

// RoomView describes a room border and how many cells it holds.
type RoomView struct {
	Name  string        `json:"name"`
	Path  []world.Point `json:"path"`
	Cells int           `json:"cells"`
}

// NewSession validates the settings and prepares an empty session.
// sink may be nil.
func NewSession(file *config.File, sink world.Sink) (*Session, error) {
	if err := file.Validate(); err != nil {
		return nil, err
	}
	borders, err := file.Borders()
	if err != nil {
		return nil, fmt.Errorf("build borders: %w", err)
	}
	return &Session{
		file:    file,
		borders: borders,
		gen:     file.GenConfig(),
		store:   world.NewStorage(),
		sink:    sink,
	}, nil
}

// Regenerate clears the grid and grows every room again.
func (s *Session) Regenerate() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	s.store.Clear()
	g := world.NewGrower(s.gen, s.store, nil, s.sink)
	g.Grow(s.borders)

	s.runID = uuid.NewString()
	s.capped = g.Capped()
	s.generatedAt = time.Now()

	slog.Info("grid generated",
		"run", s.runID,
		"cells", humanize.Comma(int64(s.store.Len())),
		"rooms", len(s.borders),
		"capped", s.capped,
		"elapsed", time.Since(start),
	)
	return s.statusLocked()
}

// Restore rebuilds the grid from saved records. Group merges are not
// replayed; only colours and neighbor links are restored.
func (s *Session) Restore(records map[string][]world.Record, runID string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restoreLocked(records, runID)
}

// RestoreGenerated replays the records stored in the settings file's
// generated section. It reports false, leaving the grid alone, when the
// file carries none.
func (s *Session) RestoreGenerated() (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.file.Generated) == 0 {
		return s.statusLocked(), false
	}
	return s.restoreLocked(s.file.Generated, ""), true
}

func (s *Session) restoreLocked(records map[string][]world.Record, runID string) Status {
	s.store.Load(records, s.borders, s.gen.Radius, s.gen.Colors)
	if runID == "" {
		runID = uuid.NewString()
	}
	s.runID = runID
	s.capped = false
	s.generatedAt = time.Now()

	slog.Info("grid restored", "run", s.runID, "cells", humanize.Comma(int64(s.store.Len())))
	s.redrawLocked()
	return s.statusLocked()
}

// Status returns a summary of the grid.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Session) statusLocked() Status {
	return Status{
		RunID:       s.runID,
		Cells:       s.store.Len(),
		CellsHuman:  humanize.Comma(int64(s.store.Len())),
		Rooms:       len(s.borders),
		MaxCells:    s.gen.MaxCells,
		Capped:      s.capped,
		Colors:      s.gen.Colors,
		Radius:      s.gen.Radius,
		GeneratedAt: s.generatedAt,
	}
}

// RunID returns the ID of the current grid, empty before the first run.
func (s *Session) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// Settings returns the session's settings. Callers must not modify them.
func (s *Session) Settings() *config.File {
	return s.file
}

// Find returns the cells under p, per room.
func (s *Session) Find(p world.Point) []RoomCells {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewMatches(s.store.Find(p))
}

// Recolor cycles the colour of the cells under p and syncs the records of
// the affected rooms.
func (s *Session) Recolor(p world.Point) []RoomCells {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches := s.store.Recolor(p, s.gen.Colors)
	if len(matches) > 0 {
		s.redrawLocked()
	}
	return s.viewMatches(matches)
}

func (s *Session) viewMatches(matches []world.Match) []RoomCells {
	out := make([]RoomCells, 0, len(matches))
	for _, m := range matches {
		rc := RoomCells{Room: m.Room}
		for _, c := range m.Cells {
			rc.Cells = append(rc.Cells, s.view(c))
		}
		out = append(out, rc)
	}
	return out
}

func (s *Session) view(c *world.Cell) CellView {
	return CellView{
		ID:        c.ID,
		Room:      c.Room,
		X:         c.Center.X,
		Y:         c.Center.Y,
		Color:     c.ColorIndex,
		Group:     s.store.GroupOf(c.ID),
		Neighbors: c.Neighbors,
	}
}

// Cells returns copies of the cells of one room, or of every room when
// room is empty.
func (s *Session) Cells(room string) []CellView {
	s.mu.Lock()
	defer s.mu.Unlock()

	cells := s.store.Cells()
	if room != "" {
		cells = s.store.Room(room)
	}
	out := make([]CellView, len(cells))
	for i, c := range cells {
		out[i] = s.view(c)
	}
	return out
}

// Rooms describes every configured room.
func (s *Session) Rooms() []RoomView {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]RoomView, len(s.borders))
	for i, b := range s.borders {
		out[i] = RoomView{Name: b.Name, Path: b.Path, Cells: len(s.store.Room(b.Name))}
	}
	return out
}

// Stats tallies cells per colour.
func (s *Session) Stats() []world.ColorStat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return world.Stats(s.store.Cells(), s.file.Settings.PerBoxCount)
}

// Records returns the save records of every room.
func (s *Session) Records() map[string][]world.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Records()
}

// Snapshot returns the save records of every room with the run they belong
// to, read under one lock.
func (s *Session) Snapshot() (map[string][]world.Record, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Records(), s.runID
}

// RoomRecords returns the save records of one room.
func (s *Session) RoomRecords(room string) []world.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.RoomRecords(room)
}

// DrawTo hands the current grid to sink while holding the session lock.
func (s *Session) DrawTo(sink world.Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sink.Draw(s.store.Cells(), s.borders)
}

// Redraw sends the current grid to the session's own sink.
func (s *Session) Redraw() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redrawLocked()
}

func (s *Session) redrawLocked() {
	if s.sink != nil {
		s.sink.Draw(s.store.Cells(), s.borders)
	}
}

// SaveFile writes the settings together with the current records as YAML.
func (s *Session) SaveFile(path string) error {
	s.mu.Lock()
	out := *s.file
	out.Generated = s.store.Records()
	s.mu.Unlock()

	if err := out.Save(path); err != nil {
		return err
	}
	slog.Info("settings saved", "path", path, "rooms", len(out.Generated))
	return nil
}
