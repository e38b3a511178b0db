package core

import (
	"fmt"

	"github.com/cogworksgames/machine-simulator/grid"
	"github.com/cogworksgames/machine-simulator/model"
)

// detectFaults runs the post-propagation rule scan over components and
// wires. Faults are advisory text for the player, never errors, and the
// returned list wholly replaces the previous step's list.
//
// While power is off, missing power on consumers is the expected state and
// is not reported.
func detectFaults(g *grid.Grid, spec model.WireSpec, powerOn bool) []string {
	var faults []string

	if powerOn {
		for _, comp := range g.Components() {
			if comp.Def == nil || !comp.Def.ConsumesPower {
				continue
			}
			switch {
			case comp.MissingReturn:
				faults = append(faults, fmt.Sprintf(
					"%s at (%d,%d): missing electrical return path",
					comp.Def.Name, comp.Anchor.X, comp.Anchor.Y))
			case !comp.Powered:
				faults = append(faults, fmt.Sprintf(
					"%s at (%d,%d): no power",
					comp.Def.Name, comp.Anchor.X, comp.Anchor.Y))
			}
		}
	}

	for _, w := range g.Wires() {
		if !w.Class.IsPowerClass() {
			continue
		}
		// Overload requires both thresholds exceeded.
		if w.Current > spec.CurrentThreshold && w.Resistance > spec.ResistanceThreshold {
			w.Damaged = true
			faults = append(faults, fmt.Sprintf(
				"wire %s: overloaded (%.1fA through %.1fΩ)",
				w.ID, w.Current, w.Resistance))
		}
	}

	return faults
}
