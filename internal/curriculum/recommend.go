package curriculum

// Recommend returns the disciplines a student may start now: pending, with
// every prerequisite completed. The result is ascending by id.
func Recommend(g *Graph, overlay Overlay) []int64 {
	eligible := []int64{}
	for _, id := range g.ids {
		if overlay.StatusOf(id) != StatusPending {
			continue
		}
		ready := true
		for _, p := range g.prereqs[id] {
			if !overlay.Completed(p) {
				ready = false
				break
			}
		}
		if ready {
			eligible = append(eligible, id)
		}
	}
	return eligible
}
