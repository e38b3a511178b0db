package core

import (
	"sort"

	"github.com/cogworksgames/machine-simulator/grid"
	"github.com/cogworksgames/machine-simulator/model"
)

// PortElectricalState is the merged electrical state of one port cell after
// all loops have been walked.
type PortElectricalState struct {
	Cell    grid.Coord `json:"cell"`
	Voltage float64    `json:"voltage"`
	Current float64    `json:"current"`
	// Output mirrors the port definition's direction flag so the in/out
	// aggregation and consumers of the snapshot don't need the catalog.
	Output bool `json:"output"`
	// Visited marks that at least one loop touched the cell this step.
	Visited bool `json:"visited"`
}

type electricalResult struct {
	ports         map[grid.Coord]*PortElectricalState
	missingReturn []string // component IDs, sorted
}

// propagateElectrical walks every loop, ratcheting the running supply
// maximum upward as chassis power ports are encountered and stamping ports
// and wires along the way, then aggregates per-component inbound/outbound
// coverage. Absence of any loop is the normal "not powered" state, not an
// error.
func propagateElectrical(g *grid.Grid, pg *PowerGraph, loops []Loop, ports *portIndex, powerOn bool) *electricalResult {
	res := &electricalResult{ports: make(map[grid.Coord]*PortElectricalState)}

	resetElectricalState(g)
	if !powerOn {
		return res
	}

	type coverage struct {
		in, out bool
		touched bool
		voltage float64
		current float64
	}
	byComponent := make(map[*grid.Component]*coverage)

	for _, loop := range loops {
		voltage, current := 0.0, 0.0
		for k, cell := range loop.Cells {
			rp, isPort := ports.power[cell]
			if isPort && rp.Component.Def.PowerSource {
				// Unregulated supply dominates: ratings only ever raise the
				// running maximum while traversing.
				voltage = max(voltage, rp.Component.Def.SupplyVoltage)
				current = max(current, rp.Component.Def.SupplyCurrent)
			}

			if isPort {
				st := res.ports[cell]
				if st == nil {
					st = &PortElectricalState{Cell: cell, Output: rp.Def.Output}
					res.ports[cell] = st
				}
				st.Visited = true
				st.Voltage = max(st.Voltage, voltage)
				st.Current = max(st.Current, current)

				cov := byComponent[rp.Component]
				if cov == nil {
					cov = &coverage{}
					byComponent[rp.Component] = cov
				}
				cov.touched = true
				cov.voltage = max(cov.voltage, voltage)
				cov.current = max(cov.current, current)
				if rp.Def.Output {
					cov.out = true
				} else {
					cov.in = true
				}
			}

			// Edge from this cell to the next carries the running maximum as
			// of this side of the traversal.
			if k+1 < len(loop.Cells) && voltage > 0 {
				if w := pg.Wire(loop.edges[k]); w != nil {
					w.Powered = true
					w.Voltage = max(w.Voltage, voltage)
					w.Current = max(w.Current, current)
				}
			}
		}
	}

	for comp, cov := range byComponent {
		comp.Voltage = cov.voltage
		comp.Current = cov.current
		if comp.Def.ConsumesPower {
			if cov.in && cov.out {
				comp.Powered = true
			} else {
				// Current touched the component but no complete in/out pair
				// was found: missing return. The component stays unpowered.
				comp.MissingReturn = true
			}
		} else {
			comp.Powered = cov.touched
		}
	}

	for comp, cov := range byComponent {
		if comp.Def.ConsumesPower && cov.touched && comp.MissingReturn {
			res.missingReturn = append(res.missingReturn, comp.ID)
		}
	}
	sort.Strings(res.missingReturn)

	return res
}

// resetElectricalState depowers every component and wire. Components not
// touched by any loop this step keep exactly this state, which makes
// depowering idempotent.
func resetElectricalState(g *grid.Grid) {
	for _, comp := range g.Components() {
		comp.Powered = false
		comp.MissingReturn = false
		comp.Voltage = 0
		comp.Current = 0
	}
	for _, w := range g.Wires() {
		w.Powered = false
		w.Voltage = 0
		w.Current = 0
		w.Damaged = false
	}
}

// signalCells marks every cell occupied by a signal-class wire whose either
// endpoint component is powered this step. Signal wires never join the
// power graph; this is the only state they carry.
func signalCells(g *grid.Grid) map[grid.Coord]bool {
	out := make(map[grid.Coord]bool)
	for _, w := range g.Wires() {
		if w.Class != model.WireSignal {
			continue
		}
		a := g.ComponentAt(w.A)
		b := g.ComponentAt(w.B)
		if (a != nil && a.Powered) || (b != nil && b.Powered) {
			for _, cell := range w.Cells {
				out[cell] = true
			}
		}
	}
	return out
}
