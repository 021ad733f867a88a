package world

import "sort"

// ColorStat counts the cells of one colour index and how many boxes of
// tiles they need.
type ColorStat struct {
	Index int `json:"index"`
	Count int `json:"count"`
	Boxes int `json:"boxes"`
}

// Stats tallies cells per colour index, overflow included, in index order.
// perBox is the number of tiles in a box; values below 1 leave Boxes at 0.
func Stats(cells []*Cell, perBox int) []ColorStat {
	counts := make(map[int]int)
	for _, c := range cells {
		counts[c.ColorIndex]++
	}

	out := make([]ColorStat, 0, len(counts))
	for idx, n := range counts {
		st := ColorStat{Index: idx, Count: n}
		if perBox > 0 {
			st.Boxes = (n + perBox - 1) / perBox
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// GroupSizes returns the member count of every live non-empty colour group
// with a real colour, keyed by root. Overflow groups are left out.
func GroupSizes(s *Storage) map[GroupID]int {
	out := make(map[GroupID]int)
	g := s.Groups()
	for _, root := range g.Roots() {
		if g.Color(root) == Overflow {
			continue
		}
		if n := g.Size(root); n > 0 {
			out[root] = n
		}
	}
	return out
}
