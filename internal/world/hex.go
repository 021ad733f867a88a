// Package world provides the hex cell geometry, room borders, colour groups,
// the cell storage arena and the grower that tiles rooms with hexagons.
// Cells are flat-top hexagons placed in plane coordinates.
package world

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnknownSlot is returned when a slot name is not one of the six directions.
var ErrUnknownSlot = errors.New("unknown neighbor slot")

// Point is a position in plane coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Slot is one of the six neighbor directions of a flat-top hexagon.
type Slot uint8

const (
	TopLeft Slot = iota
	Top
	TopRight
	BottomRight
	Bottom
	BottomLeft
)

// Slots lists the six directions in the fixed enumeration order used by growth.
var Slots = [6]Slot{TopLeft, Top, TopRight, BottomRight, Bottom, BottomLeft}

var slotNames = [6]string{"topLeft", "top", "topRight", "bottomRight", "bottom", "bottomLeft"}

func (s Slot) String() string {
	if int(s) >= len(slotNames) {
		return fmt.Sprintf("Slot(%d)", uint8(s))
	}
	return slotNames[s]
}

// ParseSlot returns the slot with the given name.
func ParseSlot(name string) (Slot, error) {
	for i, n := range slotNames {
		if n == name {
			return Slot(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSlot, name)
}

// Opposite returns the slot that points back from the neighbor in direction s.
// Slots are a closed set; any other value is a programming error.
func (s Slot) Opposite() Slot {
	switch s {
	case TopLeft:
		return BottomRight
	case Top:
		return Bottom
	case TopRight:
		return BottomLeft
	case BottomRight:
		return TopLeft
	case Bottom:
		return Top
	case BottomLeft:
		return TopRight
	}
	panic(fmt.Sprintf("world: opposite of unknown slot %d", uint8(s)))
}

// OppositeName is Opposite for slot names.
func OppositeName(name string) (string, error) {
	s, err := ParseSlot(name)
	if err != nil {
		return "", err
	}
	return s.Opposite().String(), nil
}

// Apothem returns the center-to-edge distance of a hexagon with the given radius.
func Apothem(radius float64) float64 {
	half := radius / 2
	return math.Sqrt(radius*radius - half*half)
}

// Offset returns the relative position of the neighbor center in direction s.
// Columns are 1.5 radii apart, rows two apothems apart.
func Offset(s Slot, radius float64) Point {
	h := Apothem(radius)
	switch s {
	case TopLeft:
		return Point{X: -1.5 * radius, Y: -h}
	case Top:
		return Point{X: 0, Y: -2 * h}
	case TopRight:
		return Point{X: 1.5 * radius, Y: -h}
	case BottomRight:
		return Point{X: 1.5 * radius, Y: h}
	case Bottom:
		return Point{X: 0, Y: 2 * h}
	case BottomLeft:
		return Point{X: -1.5 * radius, Y: h}
	}
	panic(fmt.Sprintf("world: offset of unknown slot %d", uint8(s)))
}

// CellID indexes a cell in Storage.
type CellID int32

// Neighbor slot values that are not cell references.
const (
	Unresolved CellID = -1 // not looked at yet
	Outside    CellID = -2 // outside the room border; no cell can exist there
)

// Cell is a single hexagonal tile.
type Cell struct {
	ID     CellID `json:"id"`
	Room   string `json:"room"`
	Center Point  `json:"center"`

	Radius     float64 `json:"radius"`
	HalfRadius float64 `json:"-"`
	Height     float64 `json:"-"` // apothem

	// Neighbors holds, per Slot, a CellID, Unresolved or Outside.
	// Once a slot is resolved it is never changed.
	Neighbors [6]CellID `json:"neighbors"`

	Group      GroupID `json:"-"`
	ColorIndex int     `json:"color"`
}

// NewCell creates an unlinked cell. It has no ID until pushed to Storage.
func NewCell(center Point, radius float64) *Cell {
	c := &Cell{
		ID:         Unresolved,
		Center:     center,
		Radius:     radius,
		HalfRadius: radius / 2,
		Height:     Apothem(radius),
		Group:      noGroup,
		ColorIndex: Overflow,
	}
	for i := range c.Neighbors {
		c.Neighbors[i] = Unresolved
	}
	return c
}

// Contains reports whether p falls in the cell's bounding rectangle
// (x within ±HalfRadius inclusive, y within ±Height exclusive). This is a
// rectangular approximation of the hexagon, not its exact boundary.
func (c *Cell) Contains(p Point) bool {
	return p.X >= c.Center.X-c.HalfRadius && p.X <= c.Center.X+c.HalfRadius &&
		p.Y > c.Center.Y-c.Height && p.Y < c.Center.Y+c.Height
}

// Neighbor returns the slot value for direction s.
func (c *Cell) Neighbor(s Slot) CellID {
	return c.Neighbors[s]
}

// Resolved reports whether slot s has been resolved.
func (c *Cell) Resolved(s Slot) bool {
	return c.Neighbors[s] != Unresolved
}

// Linked returns the IDs of all neighbor cells, skipping unresolved and outside slots.
func (c *Cell) Linked() []CellID {
	var ids []CellID
	for _, n := range c.Neighbors {
		if n >= 0 {
			ids = append(ids, n)
		}
	}
	return ids
}

// Corners returns the six hexagon vertices, starting at the right-hand corner.
func (c *Cell) Corners() [6]Point {
	x, y := c.Center.X, c.Center.Y
	return [6]Point{
		{X: x + c.Radius, Y: y},
		{X: x + c.HalfRadius, Y: y + c.Height},
		{X: x - c.HalfRadius, Y: y + c.Height},
		{X: x - c.Radius, Y: y},
		{X: x - c.HalfRadius, Y: y - c.Height},
		{X: x + c.HalfRadius, Y: y - c.Height},
	}
}

// Record returns the persisted form of the cell.
func (c *Cell) Record() Record {
	return Record{X: c.Center.X, Y: c.Center.Y, ColorIndex: c.ColorIndex}
}

// Record is the minimal persisted state of a cell. Neighbor links and group
// membership are rebuilt on load.
type Record struct {
	X          float64 `json:"x" yaml:"x" db:"x"`
	Y          float64 `json:"y" yaml:"y" db:"y"`
	ColorIndex int     `json:"colorIndex" yaml:"colorIndex" db:"color_index"`
}
