package core

import (
	"sort"

	"github.com/cogworksgames/machine-simulator/grid"
	"github.com/cogworksgames/machine-simulator/model"
)

// PortHydraulicState is the merged hydraulic state of one water port cell
// after flow propagation.
type PortHydraulicState struct {
	Cell     grid.Coord `json:"cell"`
	Flow     float64    `json:"flow"`
	Pressure float64    `json:"pressure"`
}

// Leak marks a water port or pipe dead-end that could not forward its
// available flow anywhere. World coordinates are carried for presentation
// placement only.
type Leak struct {
	Cell   grid.Coord `json:"cell"`
	WorldX float64    `json:"world_x"`
	WorldY float64    `json:"world_y"`
}

type cellFlow struct {
	flow     float64
	pressure float64
}

type hydraulicResult struct {
	ports map[grid.Coord]*PortHydraulicState
	cells map[grid.Coord]cellFlow
	leaks []Leak
}

// frontierEntry is one pending visit of a water port: the flow still
// available to push onward, the pressure at the port after attenuation, and
// the traversed distance from the source in cells.
type frontierEntry struct {
	port      ResolvedPort
	available float64
	pressure  float64
	distance  int
}

// propagateHydraulics performs the breadth-first fill propagation from
// every chassis water port. Components and pipe runs fill to 100% before
// flow advances past them; pressure attenuates linearly with traversed
// distance; per-cell flow and pressure are max-merged, never overwritten
// downward. Dead-ends that cannot accept the remaining flow become leaks,
// deduplicated by cell.
func propagateHydraulics(g *grid.Grid, ports *portIndex, spec model.PipeSpec, waterOn bool) *hydraulicResult {
	res := &hydraulicResult{
		ports: make(map[grid.Coord]*PortHydraulicState),
		cells: make(map[grid.Coord]cellFlow),
	}

	resetHydraulicState(g)
	if !waterOn {
		return res
	}

	drop := spec.PressureDropPerCell

	var frontier []frontierEntry
	// best tracks the strongest visit per port cell so re-queued entries
	// that cannot improve flow or pressure are dropped. Keeps cyclic pipe
	// networks terminating while preserving max-merge semantics.
	best := make(map[grid.Coord]cellFlow)
	leakSeen := make(map[grid.Coord]bool)

	for _, comp := range g.Components() {
		if comp.Def == nil || !comp.Def.WaterSource {
			continue
		}
		comp.FillLevel = 100
		for _, rp := range ResolvePorts(comp) {
			if rp.Def.Capability != model.PortWater {
				continue
			}
			avail := rp.Def.MaxFlowRate
			if avail <= 0 {
				avail = comp.Def.SupplyFlowRate
			}
			frontier = append(frontier, frontierEntry{
				port:      rp,
				available: avail,
				pressure:  comp.Def.SupplyPressure,
			})
		}
	}

	for len(frontier) > 0 {
		entry := frontier[0]
		frontier = frontier[1:]

		rp := entry.port
		avail := entry.available
		if rp.Def.MaxFlowRate > 0 && avail > rp.Def.MaxFlowRate {
			avail = rp.Def.MaxFlowRate
		}
		if avail <= 0 {
			continue
		}

		if prev, ok := best[rp.Cell]; ok && prev.flow >= avail && prev.pressure >= entry.pressure {
			continue
		}
		best[rp.Cell] = cellFlow{
			flow:     max(best[rp.Cell].flow, avail),
			pressure: max(best[rp.Cell].pressure, entry.pressure),
		}

		comp := rp.Component
		if comp.FillLevel < 100 {
			// Components saturate before forwarding; with per-step
			// recomputation any positive inflow saturates within the step.
			comp.FillLevel = 100
		}

		res.stampPort(rp.Cell, avail, entry.pressure)
		res.stampCell(rp.Cell, avail, entry.pressure)

		pipes := g.PipesAt(rp.Cell)
		pushed := false
		for _, pipe := range pipes {
			if pipe.FillPercent >= 100 {
				// No remaining fill headroom; the run was saturated by an
				// earlier frontier entry.
				continue
			}
			delivered := avail
			if pipe.MaxFlowRate > 0 && delivered > pipe.MaxFlowRate {
				delivered = pipe.MaxFlowRate
			}
			if delivered <= 0 {
				continue
			}

			far, _, ok := pipe.OppositeEnd(rp.Cell)
			if !ok {
				continue
			}
			hops := len(pipe.Cells) - 1

			pipe.FillPercent = 100
			pipe.Flow = max(pipe.Flow, delivered)
			pipe.Pressure = max(pipe.Pressure, entry.pressure)
			pushed = true

			// Stamp every cell on the run, ordered from the entry port to
			// the far end, attenuating pressure per traversed cell.
			run := pipe.Cells
			if rp.Cell == pipe.B {
				run = reversedCells(pipe.Cells)
			}
			for k, cell := range run {
				p := max(0, entry.pressure-drop*float64(k))
				res.stampCell(cell, delivered, p)
			}

			farPressure := max(0, entry.pressure-drop*float64(hops))
			if farPort, ok := ports.water[far]; ok {
				frontier = append(frontier, frontierEntry{
					port:      farPort,
					available: delivered,
					pressure:  farPressure,
					distance:  entry.distance + hops,
				})
			} else if !leakSeen[far] {
				// Pipe run ending on no port: unfillable dead-end.
				leakSeen[far] = true
				wx, wy := g.CellToWorld(far)
				res.leaks = append(res.leaks, Leak{Cell: far, WorldX: wx, WorldY: wy})
			}
		}

		// Internal water connections propagate the same way, with no added
		// traversal distance. An open valve (switchable, open) blocks them.
		if !comp.Def.Switchable || comp.SwitchClosed {
			for _, j := range comp.Def.InternalTargets(rp.Index) {
				if comp.Def.Ports[j].Capability != model.PortWater {
					continue
				}
				cell, ok := GlobalPortCell(comp, j)
				if !ok {
					continue
				}
				frontier = append(frontier, frontierEntry{
					port:      ResolvedPort{Component: comp, Index: j, Def: comp.Def.Ports[j], Cell: cell},
					available: avail,
					pressure:  entry.pressure,
					distance:  entry.distance,
				})
			}
		}

		if len(pipes) == 0 && !pushed && !comp.Def.WaterSink && !leakSeen[rp.Cell] {
			leakSeen[rp.Cell] = true
			wx, wy := g.CellToWorld(rp.Cell)
			res.leaks = append(res.leaks, Leak{Cell: rp.Cell, WorldX: wx, WorldY: wy})
		}
	}

	sort.Slice(res.leaks, func(i, j int) bool { return res.leaks[i].Cell.Less(res.leaks[j].Cell) })
	return res
}

func (r *hydraulicResult) stampPort(cell grid.Coord, flow, pressure float64) {
	st := r.ports[cell]
	if st == nil {
		st = &PortHydraulicState{Cell: cell}
		r.ports[cell] = st
	}
	st.Flow = max(st.Flow, flow)
	st.Pressure = max(st.Pressure, pressure)
}

func (r *hydraulicResult) stampCell(cell grid.Coord, flow, pressure float64) {
	cf := r.cells[cell]
	cf.flow = max(cf.flow, flow)
	cf.pressure = max(cf.pressure, pressure)
	r.cells[cell] = cf
}

func reversedCells(cells []grid.Coord) []grid.Coord {
	out := make([]grid.Coord, len(cells))
	for i, c := range cells {
		out[len(cells)-1-i] = c
	}
	return out
}

// resetHydraulicState drains every component and pipe so each step's flow
// is recomputed purely from the current topology.
func resetHydraulicState(g *grid.Grid) {
	for _, comp := range g.Components() {
		comp.FillLevel = 0
	}
	for _, p := range g.Pipes() {
		p.FillPercent = 0
		p.Flow = 0
		p.Pressure = 0
		p.Damaged = false
	}
}
