package core

import (
	"sort"

	"github.com/cogworksgames/machine-simulator/grid"
)

// Loop is a simple path in the power graph between two chassis power ports:
// an ordered sequence of port cells with no repeats, plus the edges
// traversed between consecutive cells.
type Loop struct {
	Cells []grid.Coord
	edges []int
}

// Len returns the number of port cells on the loop.
func (l Loop) Len() int { return len(l.Cells) }

type dfsFrame struct {
	node grid.Coord
	next int // index of the next half-edge to try
}

// LoopEnumerator finds all simple paths between every unordered pair of
// chassis power ports. It uses an explicit stack instead of recursion, and
// keeps its path/visited buffers across calls so repeated per-step
// enumeration doesn't churn allocations. Enumeration state is reset from
// empty on every call; nothing is memoized across pairs or steps.
//
// Worst-case cost is exponential in dense cyclic graphs; the expected input
// is small player-authored wiring.
type LoopEnumerator struct {
	stack  []dfsFrame
	path   []grid.Coord
	edges  []int
	onPath map[grid.Coord]bool
}

// NewLoopEnumerator constructs an enumerator with empty reusable buffers.
func NewLoopEnumerator() *LoopEnumerator {
	return &LoopEnumerator{onPath: make(map[grid.Coord]bool)}
}

// Enumerate returns every loop between every unordered pair of source
// cells present in the graph. Sources are visited in row-major order and
// paths in DFS insertion order, so output order is deterministic for the
// same topology.
func (le *LoopEnumerator) Enumerate(pg *PowerGraph, sources []grid.Coord) []Loop {
	if pg == nil || len(sources) < 2 {
		return nil
	}

	ordered := make([]grid.Coord, 0, len(sources))
	seen := make(map[grid.Coord]bool, len(sources))
	for _, s := range sources {
		if seen[s] || !pg.HasNode(s) {
			continue
		}
		seen[s] = true
		ordered = append(ordered, s)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Less(ordered[j]) })

	var loops []Loop
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			loops = le.enumeratePair(pg, ordered[i], ordered[j], loops)
		}
	}
	return loops
}

// enumeratePair appends all simple paths from s to t. Every simple path
// between s and t ends the first time t is reached, so frames at t are
// recorded and popped without expansion.
func (le *LoopEnumerator) enumeratePair(pg *PowerGraph, s, t grid.Coord, loops []Loop) []Loop {
	le.stack = le.stack[:0]
	le.path = le.path[:0]
	le.edges = le.edges[:0]
	clear(le.onPath)

	le.stack = append(le.stack, dfsFrame{node: s})
	le.path = append(le.path, s)
	le.onPath[s] = true

	for len(le.stack) > 0 {
		f := &le.stack[len(le.stack)-1]

		if f.node == t && len(le.path) > 1 {
			loop := Loop{
				Cells: append([]grid.Coord(nil), le.path...),
				edges: append([]int(nil), le.edges...),
			}
			loops = append(loops, loop)
			le.pop()
			continue
		}

		neighbors := pg.Neighbors(f.node)
		advanced := false
		for f.next < len(neighbors) {
			he := neighbors[f.next]
			f.next++
			if le.onPath[he.to] {
				continue
			}
			le.stack = append(le.stack, dfsFrame{node: he.to})
			le.path = append(le.path, he.to)
			le.edges = append(le.edges, he.edge)
			le.onPath[he.to] = true
			advanced = true
			break
		}
		if !advanced {
			le.pop()
		}
	}

	return loops
}

func (le *LoopEnumerator) pop() {
	top := le.stack[len(le.stack)-1]
	le.stack = le.stack[:len(le.stack)-1]
	delete(le.onPath, top.node)
	le.path = le.path[:len(le.path)-1]
	if len(le.edges) > 0 {
		le.edges = le.edges[:len(le.edges)-1]
	}
}
