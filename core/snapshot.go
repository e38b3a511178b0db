package core

import (
	"github.com/cogworksgames/machine-simulator/grid"
)

// Snapshot is the immutable result of one simulation step: flat per-cell
// arrays sized to the grid's cell count, the fault list, powered loops, and
// per-port electrical/hydraulic detail. Consumers must treat it as a value;
// mutating a snapshot has no effect on future steps.
type Snapshot struct {
	// Step is the monotonically increasing step index, starting at 1.
	Step uint64 `json:"step"`

	PowerOn bool `json:"power_on"`
	WaterOn bool `json:"water_on"`

	// Per-cell arrays, indexed by Grid.ToIndex. When multiple sources
	// target the same cell (component anchor vs. wire run vs. pipe run),
	// the maximum contribution wins.
	Voltage  []float64 `json:"voltage"`
	Current  []float64 `json:"current"`
	Pressure []float64 `json:"pressure"`
	Flow     []float64 `json:"flow"`
	Signal   []bool    `json:"signal"`

	Faults []string       `json:"faults"`
	Loops  [][]grid.Coord `json:"loops"`
	Leaks  []Leak         `json:"leaks"`

	// ComponentsMissingReturn lists IDs of consumers that were touched by
	// current but had no complete inbound/outbound port pair.
	ComponentsMissingReturn []string `json:"components_missing_return"`

	ports      map[grid.Coord]PortElectricalState
	hydraulics map[grid.Coord]PortHydraulicState
}

// TryGetPortElectricalState returns the merged electrical state of the port
// at the cell, if any loop touched it this step.
func (s *Snapshot) TryGetPortElectricalState(cell grid.Coord) (PortElectricalState, bool) {
	if s == nil {
		return PortElectricalState{}, false
	}
	st, ok := s.ports[cell]
	return st, ok
}

// TryGetPortHydraulicState returns the hydraulic state of the water port at
// the cell, if flow reached it this step.
func (s *Snapshot) TryGetPortHydraulicState(cell grid.Coord) (PortHydraulicState, bool) {
	if s == nil {
		return PortHydraulicState{}, false
	}
	st, ok := s.hydraulics[cell]
	return st, ok
}

// emitSnapshot freezes the step's propagation results into flat arrays.
// Writes into the arrays keep the maximum contribution per cell.
func emitSnapshot(g *grid.Grid, step uint64, powerOn, waterOn bool,
	elec *electricalResult, hyd *hydraulicResult, loops []Loop, faults []string) *Snapshot {

	n := g.CellCount()
	snap := &Snapshot{
		Step:     step,
		PowerOn:  powerOn,
		WaterOn:  waterOn,
		Voltage:  make([]float64, n),
		Current:  make([]float64, n),
		Pressure: make([]float64, n),
		Flow:     make([]float64, n),
		Signal:   make([]bool, n),
		Faults:   faults,
	}

	stampMax := func(arr []float64, cell grid.Coord, v float64) {
		if i := g.ToIndex(cell); i >= 0 {
			arr[i] = max(arr[i], v)
		}
	}

	// Component anchor cells carry the component's merged electrical state.
	for _, comp := range g.Components() {
		stampMax(snap.Voltage, comp.Anchor, comp.Voltage)
		stampMax(snap.Current, comp.Anchor, comp.Current)
	}

	// Wire runs carry the wire's assigned state along every occupied cell.
	for _, w := range g.Wires() {
		if !w.Powered {
			continue
		}
		for _, cell := range w.Cells {
			stampMax(snap.Voltage, cell, w.Voltage)
			stampMax(snap.Current, cell, w.Current)
		}
	}

	if elec != nil {
		snap.ports = make(map[grid.Coord]PortElectricalState, len(elec.ports))
		for cell, st := range elec.ports {
			snap.ports[cell] = *st
			stampMax(snap.Voltage, cell, st.Voltage)
			stampMax(snap.Current, cell, st.Current)
		}
		snap.ComponentsMissingReturn = append([]string(nil), elec.missingReturn...)
	}

	if hyd != nil {
		snap.hydraulics = make(map[grid.Coord]PortHydraulicState, len(hyd.ports))
		for cell, st := range hyd.ports {
			snap.hydraulics[cell] = *st
		}
		for cell, cf := range hyd.cells {
			stampMax(snap.Flow, cell, cf.flow)
			stampMax(snap.Pressure, cell, cf.pressure)
		}
		snap.Leaks = append([]Leak(nil), hyd.leaks...)
	}

	for cell := range signalCells(g) {
		if i := g.ToIndex(cell); i >= 0 {
			snap.Signal[i] = true
		}
	}

	snap.Loops = make([][]grid.Coord, 0, len(loops))
	for _, l := range loops {
		snap.Loops = append(snap.Loops, append([]grid.Coord(nil), l.Cells...))
	}

	return snap
}
