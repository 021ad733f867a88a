// Room tiling: grows a connected hexagon grid outward from a seed cell in each
// room, colouring every new cell so that no same-colour cluster grows past
// the configured size.
package world

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrInvalidConfig is returned by GenConfig.Validate.
var ErrInvalidConfig = errors.New("invalid generation config")

// GenConfig holds tiling parameters.
type GenConfig struct {
	Radius         float64 // Tile radius, center to corner
	MaxClusterSize int     // Largest allowed same-colour cluster
	Colors         int     // Number of colour slots (K)
	MaxCells       int     // Soft cap on cells across all rooms of a run
	Seed           int64   // Random seed (0 = random)
	Noise          bool    // Use simplex noise for the starting colour instead of uniform
}

// DefaultGenConfig returns the settings of the stock living-room example.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Radius:         10.5,
		MaxClusterSize: 3,
		Colors:         3,
		MaxCells:       1000,
	}
}

// Validate rejects configs that would make growth meaningless.
func (c GenConfig) Validate() error {
	switch {
	case c.Radius <= 0:
		return fmt.Errorf("%w: radius must be positive, got %v", ErrInvalidConfig, c.Radius)
	case c.Colors < 1:
		return fmt.Errorf("%w: need at least one color, got %d", ErrInvalidConfig, c.Colors)
	case c.MaxClusterSize < 1:
		return fmt.Errorf("%w: max cluster size must be at least 1, got %d", ErrInvalidConfig, c.MaxClusterSize)
	case c.MaxCells < 1:
		return fmt.Errorf("%w: max cells must be at least 1, got %d", ErrInvalidConfig, c.MaxCells)
	}
	return nil
}

// Sink receives the full cell and border lists whenever the grid changes.
// Drawing is fire-and-forget; the grower does not wait on it.
type Sink interface {
	Draw(cells []*Cell, borders []*Border)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(cells []*Cell, borders []*Border)

func (f SinkFunc) Draw(cells []*Cell, borders []*Border) {
	f(cells, borders)
}

// Grower fills rooms with cells. It is single-threaded and keeps no state
// between runs other than the Storage it writes to.
type Grower struct {
	cfg     GenConfig
	store   *Storage
	picker  ColorPicker
	sink    Sink
	borders []*Border
	capped  bool
}

// NewGrower creates a grower writing into store. A nil picker uses
// NewPicker(cfg); sink may be nil.
func NewGrower(cfg GenConfig, store *Storage, picker ColorPicker, sink Sink) *Grower {
	if picker == nil {
		picker = NewPicker(cfg)
	}
	return &Grower{cfg: cfg, store: store, picker: picker, sink: sink}
}

// Capped reports whether the last run hit MaxCells.
func (g *Grower) Capped() bool {
	return g.capped
}

// Grow tiles every room in order. Each room gets its seed cell even when
// the cap was already hit, so the cell count may exceed MaxCells by at most
// one per remaining room.
func (g *Grower) Grow(borders []*Border) {
	g.borders = borders
	g.capped = false
	for _, b := range borders {
		g.GrowRoom(b)
	}
}

// GrowRoom seeds one room and grows it until the border or the cap stops it.
// It returns the seed cell's ID.
func (g *Grower) GrowRoom(b *Border) CellID {
	if g.borders == nil {
		g.borders = []*Border{b}
	}
	root := g.seed(b)
	g.spawn(root, b)
	return root.ID
}

func (g *Grower) seed(b *Border) *Cell {
	c := NewCell(b.Seed(g.cfg.Radius), g.cfg.Radius)
	c.ID = g.store.NextID()
	c.ColorIndex = g.picker.Pick(c.Center, g.cfg.Colors)
	c.Group = g.store.groups.Merge(c.ID, c.ColorIndex, nil)
	g.insert(c, b)
	return c
}

// frame is one pending expansion: the cell and the next slot to look at.
type frame struct {
	cell *Cell
	next int
}

// spawn expands cells depth-first. A new cell is fully expanded before its
// parent moves on to its next slot.
func (g *Grower) spawn(root *Cell, b *Border) {
	if !g.enter() {
		return
	}
	stack := []frame{{cell: root}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if g.capped || top.next == len(Slots) {
			stack = stack[:len(stack)-1]
			continue
		}
		slot := Slots[top.next]
		top.next++

		child := g.expand(top.cell, slot, b)
		if child != nil && g.enter() {
			stack = append(stack, frame{cell: child})
		}
	}
}

// enter is the cap check made before a cell starts expanding.
func (g *Grower) enter() bool {
	if g.store.Len() < g.cfg.MaxCells {
		return true
	}
	if !g.capped {
		slog.Info("cap reached", "cells", g.store.Len(), "max", g.cfg.MaxCells)
	}
	g.capped = true
	return false
}

// expand resolves one slot of c, creating a cell there when the position is
// inside the border and free. It returns the new cell, or nil.
func (g *Grower) expand(c *Cell, slot Slot, b *Border) *Cell {
	if c.Resolved(slot) {
		return nil
	}
	pos := c.Center.Add(Offset(slot, c.Radius))
	if !b.Contains(pos) {
		c.Neighbors[slot] = Outside
		return nil
	}
	if id, ok := g.store.cellAt(b.Name, pos); ok {
		g.store.link(c, slot, g.store.cells[id])
		return nil
	}

	n := NewCell(pos, c.Radius)
	n.ID = g.store.NextID()
	c.Neighbors[slot] = n.ID
	n.Neighbors[slot.Opposite()] = c.ID

	// Colour choice needs the whole existing neighborhood.
	g.store.resolveNeighbors(n, b.Name, b)
	g.assignColor(n)
	g.insert(n, b)
	return n
}

// assignColor tries each colour once, starting from the picker's choice, and
// takes the first whose neighboring same-colour groups leave room for one
// more cell. If none does, the cell becomes an overflow singleton.
func (g *Grower) assignColor(n *Cell) {
	k := g.cfg.Colors
	start := g.picker.Pick(n.Center, k)
	for i := 0; i < k; i++ {
		color := (start + i) % k
		groups, size := g.sameColor(n, color)
		if size >= g.cfg.MaxClusterSize {
			continue
		}
		n.ColorIndex = color
		n.Group = g.store.groups.Merge(n.ID, color, groups)
		return
	}
	n.ColorIndex = Overflow
	n.Group = g.store.groups.Merge(n.ID, Overflow, nil)
}

// sameColor returns the distinct groups of n's neighbors coloured color and
// their combined size.
func (g *Grower) sameColor(n *Cell, color int) ([]GroupID, int) {
	var roots []GroupID
	size := 0
	for _, id := range n.Linked() {
		nb := g.store.cells[id]
		if nb.ColorIndex != color {
			continue
		}
		root := g.store.groups.Find(nb.Group)
		dup := false
		for _, r := range roots {
			if r == root {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		roots = append(roots, root)
		size += g.store.groups.Size(root)
	}
	return roots, size
}

func (g *Grower) insert(c *Cell, b *Border) {
	g.store.Push(c, b.Name)
	if g.sink != nil {
		g.sink.Draw(g.store.Cells(), g.borders)
	}
}
