package world

import (
	"sort"

	"github.com/zyedidia/generic/mapset"
)

// Overflow is the colour index given to a cell when no colour satisfies the
// cluster-size limit. Overflow cells are unconstrained singletons.
const Overflow = -1

// GroupID identifies a colour group in Groups. Old IDs stay valid after a
// merge; Find resolves them to the surviving group.
type GroupID int32

const noGroup GroupID = -1

// Groups is a union-find table of colour groups. Only root entries carry a
// member set.
type Groups struct {
	parent  []GroupID
	color   []int
	members []mapset.Set[CellID]
}

// NewGroups creates an empty group table.
func NewGroups() *Groups {
	return &Groups{}
}

// New creates an empty group with the given colour index.
func (g *Groups) New(color int) GroupID {
	id := GroupID(len(g.parent))
	g.parent = append(g.parent, id)
	g.color = append(g.color, color)
	g.members = append(g.members, mapset.New[CellID]())
	return id
}

// Find returns the root group for id, compressing the path on the way.
func (g *Groups) Find(id GroupID) GroupID {
	root := id
	for g.parent[root] != root {
		root = g.parent[root]
	}
	for g.parent[id] != root {
		next := g.parent[id]
		g.parent[id] = root
		id = next
	}
	return root
}

// Color returns the colour index of the group containing id.
func (g *Groups) Color(id GroupID) int {
	return g.color[g.Find(id)]
}

// Size returns the number of cells in the group containing id.
func (g *Groups) Size(id GroupID) int {
	return g.members[g.Find(id)].Size()
}

// Members returns the cells of the group containing id in ascending order.
func (g *Groups) Members(id GroupID) []CellID {
	var out []CellID
	g.members[g.Find(id)].Each(func(c CellID) {
		out = append(out, c)
	})
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Add puts cell into the group containing id.
func (g *Groups) Add(id GroupID, cell CellID) {
	g.members[g.Find(id)].Put(cell)
}

// Remove takes cell out of the group containing id.
func (g *Groups) Remove(id GroupID, cell CellID) {
	g.members[g.Find(id)].Remove(cell)
}

// Merge joins the given groups and cell into one group of the given colour
// and returns its root. Every input group resolves to that root afterwards.
// With no input groups a new singleton is created.
func (g *Groups) Merge(cell CellID, color int, groups []GroupID) GroupID {
	roots := g.distinct(groups)
	if len(roots) == 0 {
		id := g.New(color)
		g.Add(id, cell)
		return id
	}

	survivor := roots[0]
	for _, r := range roots[1:] {
		if g.members[r].Size() > g.members[survivor].Size() {
			survivor = r
		}
	}
	for _, r := range roots {
		if r == survivor {
			continue
		}
		into := g.members[survivor]
		g.members[r].Each(func(c CellID) {
			into.Put(c)
		})
		g.members[r] = mapset.New[CellID]()
		g.parent[r] = survivor
	}
	g.color[survivor] = color
	g.members[survivor].Put(cell)
	return survivor
}

// Roots returns every live group root in ascending order.
func (g *Groups) Roots() []GroupID {
	var out []GroupID
	for i, p := range g.parent {
		if GroupID(i) == p {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of group entries, merged ones included.
func (g *Groups) Len() int {
	return len(g.parent)
}

func (g *Groups) distinct(groups []GroupID) []GroupID {
	seen := mapset.New[GroupID]()
	var roots []GroupID
	for _, id := range groups {
		r := g.Find(id)
		if seen.Has(r) {
			continue
		}
		seen.Put(r)
		roots = append(roots, r)
	}
	return roots
}
