package core

import (
	"testing"

	"github.com/cogworksgames/machine-simulator/grid"
)

func pipeCells(a, b grid.Coord) []grid.Coord {
	// Straight horizontal run, inclusive of both endpoints.
	cells := []grid.Coord{}
	step := 1
	if b.X < a.X {
		step = -1
	}
	for x := a.X; x != b.X; x += step {
		cells = append(cells, grid.Coord{X: x, Y: a.Y})
	}
	return append(cells, b)
}

func TestWaterFillsPipeAndComponentInOneStep(t *testing.T) {
	g := grid.New(10, 4, 1.0)
	mustPlace(t, g, defChassisWater(), grid.Coord{X: 1, Y: 1}, 0, "wsu-1")
	mustPlace(t, g, defBoiler(), grid.Coord{X: 5, Y: 1}, 0, "boiler-1")
	a, b := grid.Coord{X: 1, Y: 1}, grid.Coord{X: 5, Y: 1}
	pipe := mustPipe(t, g, "p-1", a, b, pipeCells(a, b), 10)

	engine := newTestEngine(t, g)
	engine.SetWater(true)
	engine.RunSimulationStep()

	if pipe.FillPercent != 100 {
		t.Fatalf("pipe fill = %v, want 100 within one step", pipe.FillPercent)
	}
	if pipe.Flow != 10 {
		t.Fatalf("pipe flow = %v, want 10", pipe.Flow)
	}
	if g.Component("boiler-1").FillLevel != 100 {
		t.Fatal("fed component should saturate within one step")
	}
	if len(engine.LastSnapshot().Leaks) != 0 {
		t.Fatalf("terminal sink must not leak: %v", engine.LastSnapshot().Leaks)
	}
}

func TestPipeFlowClampedToNarrowestLink(t *testing.T) {
	g := grid.New(10, 4, 1.0)
	mustPlace(t, g, defChassisWater(), grid.Coord{X: 1, Y: 1}, 0, "wsu-1")
	mustPlace(t, g, defBoiler(), grid.Coord{X: 5, Y: 1}, 0, "boiler-1")
	a, b := grid.Coord{X: 1, Y: 1}, grid.Coord{X: 5, Y: 1}
	pipe := mustPipe(t, g, "p-narrow", a, b, pipeCells(a, b), 4)

	engine := newTestEngine(t, g)
	engine.SetWater(true)
	engine.RunSimulationStep()

	if pipe.Flow != 4 {
		t.Fatalf("pipe flow = %v, want clamp to pipe cap 4", pipe.Flow)
	}
	st, ok := engine.TryGetPortHydraulicState(b)
	if !ok {
		t.Fatal("far port should carry hydraulic state")
	}
	if st.Flow != 4 {
		t.Fatalf("far port flow = %v, want 4", st.Flow)
	}
}

func TestWaterOffDrainsEverything(t *testing.T) {
	g := grid.New(10, 4, 1.0)
	mustPlace(t, g, defChassisWater(), grid.Coord{X: 1, Y: 1}, 0, "wsu-1")
	mustPlace(t, g, defBoiler(), grid.Coord{X: 5, Y: 1}, 0, "boiler-1")
	a, b := grid.Coord{X: 1, Y: 1}, grid.Coord{X: 5, Y: 1}
	pipe := mustPipe(t, g, "p-1", a, b, pipeCells(a, b), 10)

	engine := newTestEngine(t, g)
	engine.SetWater(true)
	engine.RunSimulationStep()
	if pipe.FillPercent != 100 {
		t.Fatal("precondition: pipe filled")
	}

	engine.SetWater(false)
	engine.RunSimulationStep()

	if pipe.FillPercent != 0 || pipe.Flow != 0 || pipe.Pressure != 0 {
		t.Fatalf("pipe retains water after toggle off: %+v", pipe)
	}
	if g.Component("boiler-1").FillLevel != 0 {
		t.Fatal("component retains fill after toggle off")
	}
	if g.Component("wsu-1").FillLevel != 0 {
		t.Fatal("source retains fill after toggle off")
	}
}

func TestClosedValveBlocksFlow(t *testing.T) {
	g := grid.New(14, 4, 1.0)
	mustPlace(t, g, defChassisWater(), grid.Coord{X: 1, Y: 1}, 0, "wsu-1")
	mustPlace(t, g, defValve(), grid.Coord{X: 4, Y: 1}, 0, "valve-1")
	mustPlace(t, g, defBoiler(), grid.Coord{X: 9, Y: 1}, 0, "boiler-1")
	mustPipe(t, g, "p-in", grid.Coord{X: 1, Y: 1}, grid.Coord{X: 4, Y: 1},
		pipeCells(grid.Coord{X: 1, Y: 1}, grid.Coord{X: 4, Y: 1}), 10)
	far := mustPipe(t, g, "p-out", grid.Coord{X: 5, Y: 1}, grid.Coord{X: 9, Y: 1},
		pipeCells(grid.Coord{X: 5, Y: 1}, grid.Coord{X: 9, Y: 1}), 10)

	engine := newTestEngine(t, g)
	engine.SetWater(true)
	engine.RunSimulationStep()
	if far.FillPercent != 100 {
		t.Fatal("open valve should pass water to the far pipe")
	}

	g.Component("valve-1").SwitchClosed = false
	engine.RunSimulationStep()

	if far.FillPercent != 0 || far.Flow != 0 {
		t.Fatalf("closed valve leaked flow into far pipe: %+v", far)
	}
	if g.Component("boiler-1").FillLevel != 0 {
		t.Fatal("boiler behind a closed valve must stay empty")
	}
	// The valve's inlet side still sees water.
	if g.Component("valve-1").FillLevel != 100 {
		t.Fatal("valve inlet side should still be wet")
	}
}
