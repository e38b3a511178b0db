package core

import (
	"github.com/cogworksgames/machine-simulator/grid"
	"github.com/cogworksgames/machine-simulator/model"
)

// ConnectionPredicate lets a component type veto an internal port-to-port
// connection for the current step (e.g. an open switch). i and j are port
// indices on the component's definition table.
type ConnectionPredicate func(c *grid.Component, i, j int) bool

// SwitchPredicate is the built-in predicate for switchable components: the
// internal connection conducts only while the switch is closed.
func SwitchPredicate(c *grid.Component, i, j int) bool {
	return c.SwitchClosed
}

// edgeKey is a direction-normalized cell pair, used to deduplicate internal
// component edges. Wire edges are never deduplicated: parallel wires between
// the same two port cells are distinct circuits.
type edgeKey struct {
	a, b grid.Coord
}

func newEdgeKey(a, b grid.Coord) edgeKey {
	if b.Less(a) {
		a, b = b, a
	}
	return edgeKey{a: a, b: b}
}

// halfEdge is one direction of an undirected edge: the far endpoint and the
// index of the backing edge record.
type halfEdge struct {
	to   grid.Coord
	edge int
}

type edgeRecord struct {
	a, b grid.Coord
	wire *grid.Wire // nil for internal component connections
}

// PowerGraph is the transient per-step adjacency over power port cells. It
// is a multigraph: every power-class wire contributes its own edge, so
// parallel wires form distinct loops. Rebuilt from placement state on every
// step and never persisted; its topology is a pure function of the current
// component and wire placement.
type PowerGraph struct {
	adj   map[grid.Coord][]halfEdge
	order []grid.Coord // node insertion order, for deterministic walks
	edges []edgeRecord

	internalSeen map[edgeKey]bool
}

func newPowerGraph() *PowerGraph {
	return &PowerGraph{
		adj:          make(map[grid.Coord][]halfEdge),
		internalSeen: make(map[edgeKey]bool),
	}
}

// Neighbors returns the half-edges leaving a node in insertion order.
func (pg *PowerGraph) Neighbors(c grid.Coord) []halfEdge {
	return pg.adj[c]
}

// Wire returns the wire backing edge id, or nil for an internal component
// connection.
func (pg *PowerGraph) Wire(edge int) *grid.Wire {
	if edge < 0 || edge >= len(pg.edges) {
		return nil
	}
	return pg.edges[edge].wire
}

// HasNode reports whether the cell is a node in the graph. Isolated port
// cells are nodes with empty adjacency.
func (pg *PowerGraph) HasNode(c grid.Coord) bool {
	_, ok := pg.adj[c]
	return ok
}

// NodeCount returns the number of port cells in the graph.
func (pg *PowerGraph) NodeCount() int { return len(pg.order) }

// EdgeCount returns the number of distinct edges.
func (pg *PowerGraph) EdgeCount() int { return len(pg.edges) }

func (pg *PowerGraph) addNode(c grid.Coord) {
	if _, ok := pg.adj[c]; ok {
		return
	}
	pg.adj[c] = nil
	pg.order = append(pg.order, c)
}

func (pg *PowerGraph) addEdge(a, b grid.Coord, w *grid.Wire) {
	if a == b {
		return
	}
	pg.addNode(a)
	pg.addNode(b)
	if w == nil {
		// The fully-connected fallback visits each internal pair from both
		// ends; collapse them to one edge.
		key := newEdgeKey(a, b)
		if pg.internalSeen[key] {
			return
		}
		pg.internalSeen[key] = true
	}
	id := len(pg.edges)
	pg.edges = append(pg.edges, edgeRecord{a: a, b: b, wire: w})
	pg.adj[a] = append(pg.adj[a], halfEdge{to: b, edge: id})
	pg.adj[b] = append(pg.adj[b], halfEdge{to: a, edge: id})
}

// BuildPowerGraph constructs the undirected power graph for this step from
// (a) power-class wire runs and (b) each component's internal power port
// connections, filtered by the per-type connection predicate when present.
// Every power port cell appears in the graph even with zero edges.
func BuildPowerGraph(g *grid.Grid, preds map[string]ConnectionPredicate) *PowerGraph {
	pg := newPowerGraph()

	comps := g.Components()

	// Every power port is a node, isolated or not.
	for _, comp := range comps {
		for _, rp := range ResolvePorts(comp) {
			if rp.Def.Capability == model.PortPower {
				pg.addNode(rp.Cell)
			}
		}
	}

	// Wire edges. Signal-class wires do not participate.
	for _, w := range g.Wires() {
		if !w.Class.IsPowerClass() {
			continue
		}
		pg.addEdge(w.A, w.B, w)
	}

	// Internal component edges.
	for _, comp := range comps {
		if comp.Def == nil {
			continue
		}
		pred := preds[comp.Def.Type]
		for _, i := range comp.Def.PowerPortIndices() {
			cellA, ok := GlobalPortCell(comp, i)
			if !ok {
				continue
			}
			for _, j := range comp.Def.InternalTargets(i) {
				if comp.Def.Ports[j].Capability != model.PortPower {
					continue
				}
				if pred != nil && !pred(comp, i, j) {
					continue
				}
				cellB, ok := GlobalPortCell(comp, j)
				if !ok {
					continue
				}
				pg.addEdge(cellA, cellB, nil)
			}
		}
	}

	return pg
}
