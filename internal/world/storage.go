package world

import (
	"fmt"
	"log/slog"
	"sort"
)

// Storage owns every cell of a generation run, grouped by room, together
// with the colour group table and the persisted records of each room.
// Neighbor slots hold indices into Storage rather than pointers.
type Storage struct {
	cells   []*Cell
	rooms   map[string][]CellID
	order   []string
	records map[string][]Record
	groups  *Groups
}

// Match is the result of a point query for one room.
type Match struct {
	Room  string  `json:"room"`
	Cells []*Cell `json:"cells"`
}

// NewStorage creates an empty store.
func NewStorage() *Storage {
	s := &Storage{}
	s.Clear()
	return s
}

// Clear drops all cells, groups and records.
func (s *Storage) Clear() {
	s.cells = nil
	s.rooms = make(map[string][]CellID)
	s.order = nil
	s.records = make(map[string][]Record)
	s.groups = NewGroups()
}

// Len returns the number of cells across all rooms.
func (s *Storage) Len() int {
	return len(s.cells)
}

// NextID returns the ID the next pushed cell will get.
func (s *Storage) NextID() CellID {
	return CellID(len(s.cells))
}

// Cells returns all cells in insertion order. The slice is shared; callers
// must not modify it.
func (s *Storage) Cells() []*Cell {
	return s.cells
}

// Cell returns the cell with the given ID, or nil for sentinels and unknown IDs.
func (s *Storage) Cell(id CellID) *Cell {
	if id < 0 || int(id) >= len(s.cells) {
		return nil
	}
	return s.cells[id]
}

// Room returns the cells of one room in insertion order.
func (s *Storage) Room(name string) []*Cell {
	ids := s.rooms[name]
	out := make([]*Cell, len(ids))
	for i, id := range ids {
		out[i] = s.cells[id]
	}
	return out
}

// Rooms returns room names in the order their first cell was pushed.
func (s *Storage) Rooms() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Groups returns the colour group table.
func (s *Storage) Groups() *Groups {
	return s.groups
}

// GroupOf returns the current root group of a cell.
func (s *Storage) GroupOf(id CellID) GroupID {
	return s.groups.Find(s.cells[id].Group)
}

// Push appends the cell to the flat and room lists and records it for saving.
func (s *Storage) Push(c *Cell, room string) CellID {
	id := CellID(len(s.cells))
	c.ID = id
	c.Room = room
	s.cells = append(s.cells, c)
	if _, ok := s.rooms[room]; !ok {
		s.order = append(s.order, room)
	}
	s.rooms[room] = append(s.rooms[room], id)
	s.records[room] = append(s.records[room], c.Record())
	return id
}

// Records returns a copy of the persisted records of every room.
func (s *Storage) Records() map[string][]Record {
	out := make(map[string][]Record, len(s.records))
	for room := range s.records {
		out[room] = s.RoomRecords(room)
	}
	return out
}

// RoomRecords returns a copy of one room's persisted records.
func (s *Storage) RoomRecords(name string) []Record {
	recs := s.records[name]
	out := make([]Record, len(recs))
	copy(out, recs)
	return out
}

// UpdateRoom rewrites a room's persisted records from its live cells.
func (s *Storage) UpdateRoom(name string) {
	ids := s.rooms[name]
	recs := make([]Record, 0, len(ids))
	for _, id := range ids {
		recs = append(recs, s.cells[id].Record())
	}
	s.records[name] = recs
}

// Find returns, per room, the cells whose bounding rectangle contains p.
// Rooms without a hit are left out.
func (s *Storage) Find(p Point) []Match {
	var out []Match
	for _, room := range s.order {
		var hits []*Cell
		for _, id := range s.rooms[room] {
			if c := s.cells[id]; c.Contains(p) {
				hits = append(hits, c)
			}
		}
		if len(hits) > 0 {
			out = append(out, Match{Room: room, Cells: hits})
		}
	}
	return out
}

// cellAt returns the first cell of the room containing p.
func (s *Storage) cellAt(room string, p Point) (CellID, bool) {
	for _, id := range s.rooms[room] {
		if s.cells[id].Contains(p) {
			return id, true
		}
	}
	return Unresolved, false
}

// link sets c's slot to other and, when still open, other's opposite slot to c.
func (s *Storage) link(c *Cell, slot Slot, other *Cell) {
	c.Neighbors[slot] = other.ID
	back := slot.Opposite()
	if !other.Resolved(back) {
		other.Neighbors[back] = c.ID
	}
}

// resolveNeighbors resolves every open slot of c against the border and the
// cells already stored in room. It never creates cells; slots whose position
// is inside the border but unoccupied stay unresolved.
func (s *Storage) resolveNeighbors(c *Cell, room string, b *Border) {
	for _, slot := range Slots {
		if c.Resolved(slot) {
			continue
		}
		pos := c.Center.Add(Offset(slot, c.Radius))
		if !b.Contains(pos) {
			c.Neighbors[slot] = Outside
			continue
		}
		if id, ok := s.cellAt(room, pos); ok {
			s.link(c, slot, s.cells[id])
		}
	}
}

// Load rebuilds the store from persisted records. Rooms are replayed in
// border order and each room's records in their saved order, so neighbor
// links come out the same as when the records were written. Every cell gets
// its own group; same-colour neighbors are not merged.
func (s *Storage) Load(records map[string][]Record, borders []*Border, radius float64, colors int) {
	s.Clear()

	known := make(map[string]bool, len(borders))
	for _, b := range borders {
		known[b.Name] = true
		for _, rec := range records[b.Name] {
			color := rec.ColorIndex
			if color != Overflow && (color < 0 || color >= colors) {
				slog.Warn("saved color out of range, loading as overflow",
					"room", b.Name, "color", color, "colors", colors)
				color = Overflow
			}

			c := NewCell(Point{X: rec.X, Y: rec.Y}, radius)
			c.ID = s.NextID()
			c.ColorIndex = color
			c.Group = s.groups.Merge(c.ID, color, nil)
			s.resolveNeighbors(c, b.Name, b)
			s.Push(c, b.Name)
		}
	}

	var skipped []string
	for room := range records {
		if !known[room] {
			skipped = append(skipped, room)
		}
	}
	sort.Strings(skipped)
	for _, room := range skipped {
		slog.Warn("skipping saved room without border", "room", room, "records", len(records[room]))
	}
}

// SetColor gives a cell a new colour in a fresh singleton group.
func (s *Storage) SetColor(id CellID, color int) {
	c := s.cells[id]
	if c.Group != noGroup {
		s.groups.Remove(c.Group, id)
	}
	c.ColorIndex = color
	c.Group = s.groups.Merge(id, color, nil)
}

// Recolor cycles every cell under p to the next colour index (overflow
// becomes 0) and rewrites the affected rooms' records.
func (s *Storage) Recolor(p Point, colors int) []Match {
	if colors <= 0 {
		return nil
	}
	matches := s.Find(p)
	for _, m := range matches {
		for _, c := range m.Cells {
			s.SetColor(c.ID, (c.ColorIndex+1)%colors)
		}
		s.UpdateRoom(m.Room)
	}
	return matches
}

// String returns a summary of the store.
func (s *Storage) String() string {
	return fmt.Sprintf("Storage(rooms=%d, cells=%d)", len(s.order), len(s.cells))
}
