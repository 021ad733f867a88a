package world

import "testing"

// fixedPicker always starts at the same colour and records its calls.
type fixedPicker struct {
	start int
	calls int
	lastN int
}

func (p *fixedPicker) Pick(_ Point, n int) int {
	p.calls++
	p.lastN = n
	return p.start
}

// place pushes a cell of the given colour, joining join's group when set.
func place(s *Storage, x float64, color int, join *Cell) *Cell {
	c := NewCell(Point{X: x}, 10)
	c.ID = s.NextID()
	c.ColorIndex = color
	var groups []GroupID
	if join != nil {
		groups = []GroupID{join.Group}
	}
	c.Group = s.groups.Merge(c.ID, color, groups)
	s.Push(c, "r")
	return c
}

func newcomer(s *Storage, neighbors ...*Cell) *Cell {
	n := NewCell(Point{X: 1000}, 10)
	n.ID = s.NextID()
	for i, nb := range neighbors {
		n.Neighbors[Slots[i]] = nb.ID
	}
	return n
}

func colorGrower(s *Storage, p ColorPicker) *Grower {
	return NewGrower(GenConfig{Radius: 10, MaxClusterSize: 2, Colors: 3, MaxCells: 100}, s, p, nil)
}

func TestAssignColorTakesPickerStart(t *testing.T) {
	s := NewStorage()
	a := place(s, 0, 2, nil)
	n := newcomer(s, a)

	p := &fixedPicker{start: 2}
	colorGrower(s, p).assignColor(n)

	if p.calls != 1 || p.lastN != 3 {
		t.Fatalf("picker calls = %d, n = %d", p.calls, p.lastN)
	}
	// One same-colour neighbor of size 1 is below the limit of 2.
	if n.ColorIndex != 2 {
		t.Fatalf("color = %d, want 2", n.ColorIndex)
	}
	if s.groups.Find(n.Group) != s.groups.Find(a.Group) || s.groups.Size(n.Group) != 2 {
		t.Fatalf("newcomer not merged with its neighbor's group")
	}
}

func TestAssignColorRejectsAtLimitAndWraps(t *testing.T) {
	s := NewStorage()
	// Two separate colour-2 singletons: their union is exactly the limit.
	a := place(s, 0, 2, nil)
	b := place(s, 40, 2, nil)
	n := newcomer(s, a, b)

	colorGrower(s, &fixedPicker{start: 2}).assignColor(n)

	// 2 is rejected, the next candidate wraps to 0 rather than going to 1.
	if n.ColorIndex != 0 {
		t.Fatalf("color = %d, want 0", n.ColorIndex)
	}
	if s.groups.Size(n.Group) != 1 {
		t.Fatalf("group size = %d, want 1", s.groups.Size(n.Group))
	}
}

func TestAssignColorSkipsToFirstFreeCandidate(t *testing.T) {
	s := NewStorage()
	c := place(s, 0, 0, nil)
	place(s, 80, 0, c) // c's group now has 2 members, one not adjacent
	a := place(s, 40, 2, nil)
	b := place(s, 120, 2, nil)
	n := newcomer(s, c, a, b)

	colorGrower(s, &fixedPicker{start: 2}).assignColor(n)

	// 2 rejected (union 2), 0 rejected (group of 2), 1 is free.
	if n.ColorIndex != 1 {
		t.Fatalf("color = %d, want 1", n.ColorIndex)
	}
}

func TestAssignColorOverflowWhenAllRejected(t *testing.T) {
	s := NewStorage()
	c0 := place(s, 0, 0, nil)
	place(s, 20, 0, c0)
	c1 := place(s, 40, 1, nil)
	place(s, 60, 1, c1)
	a := place(s, 80, 2, nil)
	b := place(s, 100, 2, nil)
	n := newcomer(s, c0, c1, a, b)

	colorGrower(s, &fixedPicker{start: 1}).assignColor(n)

	if n.ColorIndex != Overflow {
		t.Fatalf("color = %d, want overflow", n.ColorIndex)
	}
	if s.groups.Size(n.Group) != 1 || s.groups.Members(n.Group)[0] != n.ID {
		t.Fatalf("overflow cell is not a singleton")
	}
	if s.groups.Size(a.Group) != 1 || s.groups.Size(c0.Group) != 2 {
		t.Fatalf("neighbor groups changed by an overflow assignment")
	}
}
