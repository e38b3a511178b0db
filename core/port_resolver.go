package core

import (
	"github.com/cogworksgames/machine-simulator/grid"
	"github.com/cogworksgames/machine-simulator/model"
)

// ResolvedPort is a component port located on the grid: the owning
// component, the port's index in its definition table, and the absolute
// cell the port occupies given the component's anchor and rotation.
type ResolvedPort struct {
	Component *grid.Component
	Index     int
	Def       model.PortDefinition
	Cell      grid.Coord
}

// GlobalPortCell computes the absolute grid cell of one port: the port's
// footprint-local offset rotated by the component's placement rotation,
// translated by the anchor cell. Pure function of placement state.
func GlobalPortCell(c *grid.Component, portIndex int) (grid.Coord, bool) {
	if c == nil || c.Def == nil || portIndex < 0 || portIndex >= len(c.Def.Ports) {
		return grid.Coord{}, false
	}
	off := c.Def.Ports[portIndex].Offset.Rotate(c.Rotation)
	return c.Anchor.Add(off), true
}

// ResolvePorts resolves every port of a component to its absolute cell.
// Malformed entries are skipped rather than aborting the caller's traversal.
func ResolvePorts(c *grid.Component) []ResolvedPort {
	if c == nil || c.Def == nil {
		return nil
	}
	out := make([]ResolvedPort, 0, len(c.Def.Ports))
	for i, def := range c.Def.Ports {
		cell, ok := GlobalPortCell(c, i)
		if !ok {
			continue
		}
		out = append(out, ResolvedPort{Component: c, Index: i, Def: def, Cell: cell})
	}
	return out
}

// portIndex is the per-step lookup from cells to resolved ports, split by
// capability. A cell holds at most one component, so at most one port per
// capability can occupy it.
type portIndex struct {
	power  map[grid.Coord]ResolvedPort
	water  map[grid.Coord]ResolvedPort
	signal map[grid.Coord]ResolvedPort
}

// resolveAllPorts builds the per-step port index over every placed
// component, iterating components in the grid's deterministic order.
func resolveAllPorts(g *grid.Grid) *portIndex {
	idx := &portIndex{
		power:  make(map[grid.Coord]ResolvedPort),
		water:  make(map[grid.Coord]ResolvedPort),
		signal: make(map[grid.Coord]ResolvedPort),
	}
	for _, comp := range g.Components() {
		for _, rp := range ResolvePorts(comp) {
			switch rp.Def.Capability {
			case model.PortPower:
				idx.power[rp.Cell] = rp
			case model.PortWater:
				idx.water[rp.Cell] = rp
			case model.PortSignal:
				idx.signal[rp.Cell] = rp
			}
		}
	}
	return idx
}
