package world

import (
	"errors"
	"fmt"
	"math"
)

// ErrShortBorder is returned for a room polygon with fewer than two points.
var ErrShortBorder = errors.New("border needs at least 2 points")

// Border is a named closed polygon bounding one room. The last point
// connects back to the first.
type Border struct {
	Name string  `json:"name"`
	Path []Point `json:"path"`
}

// NewBorder validates and creates a room border.
func NewBorder(name string, path []Point) (*Border, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("room %q: %w (got %d)", name, ErrShortBorder, len(path))
	}
	p := make([]Point, len(path))
	copy(p, path)
	return &Border{Name: name, Path: p}, nil
}

// Contains reports whether p lies inside the polygon using even-odd ray
// casting. An edge counts when it straddles p's horizontal line half-open
// (one end strictly above, the other at or below), so points on shared
// edges are assigned consistently.
func (b *Border) Contains(p Point) bool {
	inside := false
	n := len(b.Path)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := b.Path[i], b.Path[j]
		if (pi.Y > p.Y) != (pj.Y > p.Y) &&
			p.X < (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			inside = !inside
		}
	}
	return inside
}

// Bounds returns the min and max corners of the polygon.
func (b *Border) Bounds() (min, max Point) {
	min = Point{X: math.Inf(1), Y: math.Inf(1)}
	max = Point{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, p := range b.Path {
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
	}
	return min, max
}

// Seed returns the position of the first cell grown in this room: the first
// vertex nudged inboard by a third of the radius.
func (b *Border) Seed(radius float64) Point {
	start := b.Path[0]
	return Point{X: start.X + radius/3, Y: start.Y + radius/3}
}
