package curriculum

// Layout spacing used for the progress view.
const (
	ColumnSpacing = 200.0
	RowSpacing    = 100.0
)

// Levels groups disciplines into waves: level 0 has no prerequisites, level n
// only requires disciplines from lower levels. Ids are ascending within a level.
func Levels(g *Graph) [][]int64 {
	inDegree := make(map[int64]int, len(g.ids))
	var queue []int64
	for _, id := range g.ids {
		inDegree[id] = len(g.prereqs[id])
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	var levels [][]int64
	for len(queue) > 0 {
		levels = append(levels, queue)
		var next []int64
		for _, id := range queue {
			for _, d := range g.dependents[id] {
				inDegree[d]--
				if inDegree[d] == 0 {
					next = append(next, d)
				}
			}
		}
		sortIDs(next)
		queue = next
	}
	return levels
}

// Position is an [x, y] coordinate.
type Position [2]float64

// Layout places every discipline on a grid by level.
func Layout(g *Graph) map[int64]Position {
	positions := make(map[int64]Position, len(g.ids))
	for x, level := range Levels(g) {
		for y, id := range level {
			positions[id] = Position{float64(x) * ColumnSpacing, float64(y) * RowSpacing}
		}
	}
	return positions
}

// Progress is a student's view of the whole curriculum.
type Progress struct {
	Positions map[int64]Position
	Statuses  map[int64]Status
	Labels    map[int64]string
}

// BuildProgress combines the layout with a student's statuses.
func BuildProgress(g *Graph, overlay Overlay) Progress {
	p := Progress{
		Positions: Layout(g),
		Statuses:  make(map[int64]Status, len(g.ids)),
		Labels:    make(map[int64]string, len(g.ids)),
	}
	for _, id := range g.ids {
		p.Statuses[id] = overlay.StatusOf(id)
		p.Labels[id] = g.names[id]
	}
	return p
}
