package curriculum

import (
	"sort"
)

// Edge points from a discipline to one of its prerequisites.
type Edge struct {
	From int64 `json:"source"`
	To   int64 `json:"target"`
}

// Graph is the prerequisite relation of a discipline set. Adjacency lists are
// sorted ascending and never modified after construction.
type Graph struct {
	ids        []int64
	names      map[int64]string
	prereqs    map[int64][]int64
	dependents map[int64][]int64
}

// BuildGraph validates the discipline set and returns its dependency graph.
// Input order does not affect the result.
func BuildGraph(disciplines []Discipline) (*Graph, error) {
	g, err := newGraph(disciplines)
	if err != nil {
		return nil, err
	}
	if dangling := g.dangling(disciplines); len(dangling) > 0 {
		return nil, &DanglingReferenceError{Refs: dangling}
	}
	if cycle := findCycle(g.ids, g.Prerequisites); cycle != nil {
		return nil, &CyclicPrerequisiteError{Cycle: cycle}
	}
	return g, nil
}

// newGraph indexes disciplines without checking references or cycles.
// Edges to unknown disciplines are dropped.
func newGraph(disciplines []Discipline) (*Graph, error) {
	g := &Graph{
		ids:        make([]int64, 0, len(disciplines)),
		names:      make(map[int64]string, len(disciplines)),
		prereqs:    make(map[int64][]int64, len(disciplines)),
		dependents: make(map[int64][]int64, len(disciplines)),
	}
	for _, d := range disciplines {
		if _, dup := g.names[d.ID]; dup {
			return nil, &DuplicateIDError{Kind: KindDiscipline, ID: d.ID}
		}
		g.names[d.ID] = d.Name
		g.ids = append(g.ids, d.ID)
	}
	sortIDs(g.ids)

	for _, d := range disciplines {
		seen := make(map[int64]struct{}, len(d.PrerequisiteIDs))
		for _, p := range d.PrerequisiteIDs {
			if _, ok := g.names[p]; !ok {
				continue
			}
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			g.prereqs[d.ID] = append(g.prereqs[d.ID], p)
			g.dependents[p] = append(g.dependents[p], d.ID)
		}
	}
	for id := range g.prereqs {
		sortIDs(g.prereqs[id])
	}
	for id := range g.dependents {
		sortIDs(g.dependents[id])
	}
	return g, nil
}

func (g *Graph) dangling(disciplines []Discipline) []DanglingRef {
	var refs []DanglingRef
	seen := make(map[DanglingRef]struct{})
	for _, d := range disciplines {
		for _, p := range d.PrerequisiteIDs {
			if _, ok := g.names[p]; ok {
				continue
			}
			ref := DanglingRef{DisciplineID: d.ID, PrerequisiteID: p}
			if _, dup := seen[ref]; dup {
				continue
			}
			seen[ref] = struct{}{}
			refs = append(refs, ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].DisciplineID != refs[j].DisciplineID {
			return refs[i].DisciplineID < refs[j].DisciplineID
		}
		return refs[i].PrerequisiteID < refs[j].PrerequisiteID
	})
	return refs
}

const (
	white = iota
	gray
	black
)

// findCycle runs a three-color DFS over nodes in the given order and returns
// the first cycle found, starting at the node that was re-entered. It returns
// nil for an acyclic graph.
func findCycle(nodes []int64, next func(int64) []int64) []int64 {
	color := make(map[int64]int, len(nodes))
	var path []int64
	var cycle []int64

	var visit func(id int64) bool
	visit = func(id int64) bool {
		color[id] = gray
		path = append(path, id)
		for _, n := range next(id) {
			switch color[n] {
			case gray:
				for i := len(path) - 1; i >= 0; i-- {
					if path[i] == n {
						cycle = append([]int64(nil), path[i:]...)
						break
					}
				}
				return true
			case white:
				if visit(n) {
					return true
				}
			}
		}
		path = path[:len(path)-1]
		color[id] = black
		return false
	}

	for _, id := range nodes {
		if color[id] == white && visit(id) {
			return cycle
		}
	}
	return nil
}

// Has reports whether id is a discipline in the graph.
func (g *Graph) Has(id int64) bool {
	_, ok := g.names[id]
	return ok
}

// Name returns the discipline name, empty for unknown ids.
func (g *Graph) Name(id int64) string {
	return g.names[id]
}

// Len is the number of disciplines.
func (g *Graph) Len() int {
	return len(g.ids)
}

// IDs returns every discipline id ascending.
func (g *Graph) IDs() []int64 {
	return append([]int64(nil), g.ids...)
}

// Prerequisites returns the direct prerequisites of id ascending.
func (g *Graph) Prerequisites(id int64) []int64 {
	return g.prereqs[id]
}

// Dependents returns the disciplines that directly require id, ascending.
func (g *Graph) Dependents(id int64) []int64 {
	return g.dependents[id]
}

// Adjacency returns a copy of the forward adjacency. Every discipline has an
// entry, possibly empty.
func (g *Graph) Adjacency() map[int64][]int64 {
	return g.copyAdjacency(g.prereqs)
}

// Reverse returns a copy of the reverse adjacency, the transpose of Adjacency.
func (g *Graph) Reverse() map[int64][]int64 {
	return g.copyAdjacency(g.dependents)
}

func (g *Graph) copyAdjacency(src map[int64][]int64) map[int64][]int64 {
	out := make(map[int64][]int64, len(g.ids))
	for _, id := range g.ids {
		out[id] = append([]int64{}, src[id]...)
	}
	return out
}

// Edges lists every prerequisite edge ordered by From then To.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for _, id := range g.ids {
		for _, p := range g.prereqs[id] {
			edges = append(edges, Edge{From: id, To: p})
		}
	}
	return edges
}

// WouldCreateCycle reports whether adding the edge from -> to closes a cycle.
// The returned cycle starts at from and follows prerequisite edges back to it.
func (g *Graph) WouldCreateCycle(from, to int64) ([]int64, bool) {
	if from == to {
		return []int64{from}, true
	}
	// A cycle appears iff from is already reachable from to.
	parent := map[int64]int64{to: to}
	queue := []int64{to}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == from {
			path := []int64{from}
			for n := parent[from]; ; n = parent[n] {
				path = append(path, n)
				if n == to {
					break
				}
			}
			// path is from, parent(from), ..., to.
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return append([]int64{from}, path[:len(path)-1]...), true
		}
		for _, p := range g.prereqs[cur] {
			if _, seen := parent[p]; seen {
				continue
			}
			parent[p] = cur
			queue = append(queue, p)
		}
	}
	return nil, false
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
