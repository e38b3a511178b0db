package core

import (
	"testing"

	"github.com/cogworksgames/machine-simulator/grid"
	"github.com/cogworksgames/machine-simulator/model"
)

// Shared component definitions for circuit tests. These mirror the shipped
// catalog but are constructed in code so tests don't depend on config files.

func defChassisPower() *model.ComponentDefinition {
	return &model.ComponentDefinition{
		Type:      "chassis_power",
		Name:      "Chassis Power",
		Footprint: []model.CellOffset{{X: 0, Y: 0}, {X: 1, Y: 0}},
		Ports: []model.PortDefinition{
			{Offset: model.CellOffset{X: 0, Y: 0}, Capability: model.PortPower, Output: true, Isolated: true},
			{Offset: model.CellOffset{X: 1, Y: 0}, Capability: model.PortPower, Isolated: true},
		},
		PowerSource:   true,
		SupplyVoltage: 230,
		SupplyCurrent: 16,
	}
}

func defLamp() *model.ComponentDefinition {
	return &model.ComponentDefinition{
		Type:      "lamp",
		Name:      "Lamp",
		Footprint: []model.CellOffset{{X: 0, Y: 0}, {X: 1, Y: 0}},
		Ports: []model.PortDefinition{
			{Offset: model.CellOffset{X: 0, Y: 0}, Capability: model.PortPower},
			{Offset: model.CellOffset{X: 1, Y: 0}, Capability: model.PortPower, Output: true},
		},
		ConsumesPower: true,
	}
}

func defSwitch() *model.ComponentDefinition {
	return &model.ComponentDefinition{
		Type:      "switch",
		Name:      "Switch",
		Footprint: []model.CellOffset{{X: 0, Y: 0}, {X: 1, Y: 0}},
		Ports: []model.PortDefinition{
			{Offset: model.CellOffset{X: 0, Y: 0}, Capability: model.PortPower},
			{Offset: model.CellOffset{X: 1, Y: 0}, Capability: model.PortPower, Output: true},
		},
		Switchable: true,
	}
}

func defChassisWater() *model.ComponentDefinition {
	return &model.ComponentDefinition{
		Type:      "chassis_water",
		Name:      "Chassis Water",
		Footprint: []model.CellOffset{{X: 0, Y: 0}},
		Ports: []model.PortDefinition{
			{Offset: model.CellOffset{X: 0, Y: 0}, Capability: model.PortWater, Output: true, Isolated: true, MaxFlowRate: 10},
		},
		WaterSource:    true,
		SupplyPressure: 300,
		SupplyFlowRate: 10,
	}
}

func defPump() *model.ComponentDefinition {
	return &model.ComponentDefinition{
		Type:      "pump",
		Name:      "Pump",
		Footprint: []model.CellOffset{{X: 0, Y: 0}, {X: 1, Y: 0}},
		Ports: []model.PortDefinition{
			{Offset: model.CellOffset{X: 0, Y: 0}, Capability: model.PortWater, MaxFlowRate: 15},
			{Offset: model.CellOffset{X: 1, Y: 0}, Capability: model.PortWater, Output: true, MaxFlowRate: 15},
		},
	}
}

func defValve() *model.ComponentDefinition {
	return &model.ComponentDefinition{
		Type:      "valve",
		Name:      "Valve",
		Footprint: []model.CellOffset{{X: 0, Y: 0}, {X: 1, Y: 0}},
		Ports: []model.PortDefinition{
			{Offset: model.CellOffset{X: 0, Y: 0}, Capability: model.PortWater},
			{Offset: model.CellOffset{X: 1, Y: 0}, Capability: model.PortWater, Output: true},
		},
		Switchable: true,
	}
}

func defBoiler() *model.ComponentDefinition {
	return &model.ComponentDefinition{
		Type:      "boiler",
		Name:      "Boiler",
		Footprint: []model.CellOffset{{X: 0, Y: 0}},
		Ports: []model.PortDefinition{
			{Offset: model.CellOffset{X: 0, Y: 0}, Capability: model.PortWater, Isolated: true},
		},
		WaterSink: true,
	}
}

func testCatalog() *model.Catalog {
	defs := []*model.ComponentDefinition{
		defChassisPower(), defLamp(), defSwitch(),
		defChassisWater(), defPump(), defValve(), defBoiler(),
	}
	cat := &model.Catalog{
		Components: make(map[string]*model.ComponentDefinition, len(defs)),
		Wire: model.WireSpec{
			DefaultResistance:   1.0,
			CurrentThreshold:    10.0,
			ResistanceThreshold: 2.0,
		},
		Pipe: model.PipeSpec{
			MaxFlowRate:         10.0,
			PressureDropPerCell: 5.0,
		},
	}
	for _, d := range defs {
		cat.Components[d.Type] = d
	}
	return cat
}

func mustPlace(t *testing.T, g *grid.Grid, def *model.ComponentDefinition, anchor grid.Coord, rot model.Rotation, id string) *grid.Component {
	t.Helper()
	comp, err := g.PlaceComponent(def, anchor, rot, id)
	if err != nil {
		t.Fatalf("PlaceComponent(%s): %v", id, err)
	}
	return comp
}

func mustWire(t *testing.T, g *grid.Grid, id string, class model.WireClass, resistance float64, a, b grid.Coord) *grid.Wire {
	t.Helper()
	w := &grid.Wire{ID: id, Class: class, Resistance: resistance, A: a, B: b}
	if err := g.AddWire(w); err != nil {
		t.Fatalf("AddWire(%s): %v", id, err)
	}
	return w
}

func mustPipe(t *testing.T, g *grid.Grid, id string, a, b grid.Coord, cells []grid.Coord, maxFlow float64) *grid.Pipe {
	t.Helper()
	p := &grid.Pipe{ID: id, A: a, B: b, Cells: cells, MaxFlowRate: maxFlow}
	if err := g.AddPipe(p); err != nil {
		t.Fatalf("AddPipe(%s): %v", id, err)
	}
	return p
}

// lampCircuit builds the smallest complete electrical machine: a chassis
// power connection wired through a lamp and back.
//
//	(1,1)=psu out  (2,1)=psu in  (5,1)=lamp in  (6,1)=lamp out
func lampCircuit(t *testing.T) *grid.Grid {
	t.Helper()
	g := grid.New(10, 4, 1.0)
	mustPlace(t, g, defChassisPower(), grid.Coord{X: 1, Y: 1}, 0, "psu-1")
	mustPlace(t, g, defLamp(), grid.Coord{X: 5, Y: 1}, 0, "lamp-1")
	mustWire(t, g, "w-supply", model.WireACPower, 1.0, grid.Coord{X: 1, Y: 1}, grid.Coord{X: 5, Y: 1})
	mustWire(t, g, "w-return", model.WireACPower, 1.0, grid.Coord{X: 6, Y: 1}, grid.Coord{X: 2, Y: 1})
	return g
}

func newTestEngine(t *testing.T, g *grid.Grid) *SimulationEngine {
	t.Helper()
	return NewSimulationEngine(g, testCatalog())
}
