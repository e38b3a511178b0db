package core

import (
	"testing"

	"github.com/cogworksgames/machine-simulator/grid"
	"github.com/cogworksgames/machine-simulator/model"
)

func TestGlobalPortCellFollowsRotation(t *testing.T) {
	g := grid.New(12, 12, 1.0)

	cases := []struct {
		rot  model.Rotation
		want grid.Coord
	}{
		{0, grid.Coord{X: 6, Y: 5}},
		{1, grid.Coord{X: 5, Y: 6}},
		{2, grid.Coord{X: 4, Y: 5}},
		{3, grid.Coord{X: 5, Y: 4}},
	}
	for _, tc := range cases {
		def := defLamp()
		comp, err := g.PlaceComponent(def, grid.Coord{X: 5, Y: 5}, tc.rot, "")
		if err != nil {
			t.Fatalf("rot %d: %v", tc.rot, err)
		}
		cell, ok := GlobalPortCell(comp, 1)
		if !ok {
			t.Fatalf("rot %d: port 1 unresolvable", tc.rot)
		}
		if cell != tc.want {
			t.Fatalf("rot %d: port cell = %v, want %v", tc.rot, cell, tc.want)
		}
		if err := g.RemoveComponent(comp.ID); err != nil {
			t.Fatalf("rot %d: remove: %v", tc.rot, err)
		}
	}
}

func TestGlobalPortCellOutOfRange(t *testing.T) {
	g := grid.New(8, 8, 1.0)
	comp := mustPlace(t, g, defLamp(), grid.Coord{X: 2, Y: 2}, 0, "lamp-1")

	if _, ok := GlobalPortCell(comp, -1); ok {
		t.Fatal("negative port index must not resolve")
	}
	if _, ok := GlobalPortCell(comp, 99); ok {
		t.Fatal("out-of-range port index must not resolve")
	}
}

func TestResolvePortsReturnsAllPorts(t *testing.T) {
	g := grid.New(8, 8, 1.0)
	comp := mustPlace(t, g, defChassisPower(), grid.Coord{X: 2, Y: 2}, 0, "psu-1")

	ports := ResolvePorts(comp)
	if len(ports) != 2 {
		t.Fatalf("resolved %d ports, want 2", len(ports))
	}
	if ports[0].Cell != (grid.Coord{X: 2, Y: 2}) || ports[1].Cell != (grid.Coord{X: 3, Y: 2}) {
		t.Fatalf("port cells = %v %v", ports[0].Cell, ports[1].Cell)
	}
	if !ports[0].Def.Output || ports[1].Def.Output {
		t.Fatal("port directions lost in resolution")
	}
	if ports[0].Index != 0 || ports[1].Index != 1 {
		t.Fatal("port indices lost in resolution")
	}
}

func TestRotatedPlacementKeepsLoopIntact(t *testing.T) {
	// The lamp is rotated half a turn, swapping its port cells; the wires
	// attach to the rotated cells and the loop must still close.
	g := grid.New(12, 6, 1.0)
	mustPlace(t, g, defChassisPower(), grid.Coord{X: 1, Y: 1}, 0, "psu-1")
	mustPlace(t, g, defLamp(), grid.Coord{X: 6, Y: 1}, 2, "lamp-1")
	// rot 2 maps offset (1,0) to (-1,0): in-port at (6,1), out at (5,1).
	mustWire(t, g, "w-supply", model.WireACPower, 1.0, grid.Coord{X: 1, Y: 1}, grid.Coord{X: 6, Y: 1})
	mustWire(t, g, "w-return", model.WireACPower, 1.0, grid.Coord{X: 5, Y: 1}, grid.Coord{X: 2, Y: 1})

	engine := newTestEngine(t, g)
	engine.SetPower(true)
	engine.RunSimulationStep()

	if !g.Component("lamp-1").Powered {
		t.Fatal("rotated lamp should still power through its rotated ports")
	}
}
