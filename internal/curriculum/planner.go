package curriculum

import (
	"container/heap"
)

// GraduationPath orders the disciplines a student still has to complete to
// reach every required discipline. The plan holds the targets plus their
// transitive prerequisites that are not completed, each once, prerequisites
// first. Ties are broken by ascending id.
func GraduationPath(g *Graph, overlay Overlay, requiredIDs []int64) ([]int64, error) {
	var unknown []int64
	seen := make(map[int64]struct{}, len(requiredIDs))
	for _, id := range requiredIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if !g.Has(id) {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		sortIDs(unknown)
		return nil, &UnknownDisciplineError{IDs: unknown}
	}

	closure := requiredClosure(g, overlay, requiredIDs)
	return kahnOrder(g, closure)
}

// requiredClosure walks prerequisite edges from the targets. Completed
// disciplines are neither included nor expanded.
func requiredClosure(g *Graph, overlay Overlay, targets []int64) map[int64]struct{} {
	closure := make(map[int64]struct{})
	stack := make([]int64, 0, len(targets))
	for _, id := range targets {
		if overlay.Completed(id) {
			continue
		}
		stack = append(stack, id)
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := closure[id]; ok {
			continue
		}
		closure[id] = struct{}{}
		for _, p := range g.prereqs[id] {
			if overlay.Completed(p) {
				continue
			}
			if _, ok := closure[p]; !ok {
				stack = append(stack, p)
			}
		}
	}
	return closure
}

// kahnOrder topologically sorts the subgraph induced by nodes. It fails with a
// CyclicPrerequisiteError when the subgraph is not acyclic.
func kahnOrder(g *Graph, nodes map[int64]struct{}) ([]int64, error) {
	inDegree := make(map[int64]int, len(nodes))
	frontier := &idHeap{}
	for id := range nodes {
		deg := 0
		for _, p := range g.prereqs[id] {
			if _, ok := nodes[p]; ok {
				deg++
			}
		}
		inDegree[id] = deg
		if deg == 0 {
			*frontier = append(*frontier, id)
		}
	}
	heap.Init(frontier)

	order := make([]int64, 0, len(nodes))
	for frontier.Len() > 0 {
		id := heap.Pop(frontier).(int64)
		order = append(order, id)
		for _, d := range g.dependents[id] {
			if _, ok := nodes[d]; !ok {
				continue
			}
			inDegree[d]--
			if inDegree[d] == 0 {
				heap.Push(frontier, d)
			}
		}
	}

	if len(order) < len(nodes) {
		var remaining []int64
		for id, deg := range inDegree {
			if deg > 0 {
				remaining = append(remaining, id)
			}
		}
		sortIDs(remaining)
		inRemaining := make(map[int64]struct{}, len(remaining))
		for _, id := range remaining {
			inRemaining[id] = struct{}{}
		}
		cycle := findCycle(remaining, func(id int64) []int64 {
			var next []int64
			for _, p := range g.prereqs[id] {
				if _, ok := inRemaining[p]; ok {
					next = append(next, p)
				}
			}
			return next
		})
		if cycle == nil {
			cycle = remaining
		}
		return nil, &CyclicPrerequisiteError{Cycle: cycle}
	}
	return order, nil
}

type idHeap []int64

func (h idHeap) Len() int           { return len(h) }
func (h idHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *idHeap) Push(x any)        { *h = append(*h, x.(int64)) }
func (h *idHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
