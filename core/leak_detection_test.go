package core

import (
	"testing"

	"github.com/cogworksgames/machine-simulator/grid"
)

func TestDeadEndPipeLeaks(t *testing.T) {
	g := grid.New(10, 4, 1.0)
	mustPlace(t, g, defChassisWater(), grid.Coord{X: 1, Y: 1}, 0, "wsu-1")
	a, b := grid.Coord{X: 1, Y: 1}, grid.Coord{X: 4, Y: 1}
	mustPipe(t, g, "p-dangling", a, b, pipeCells(a, b), 10)

	engine := newTestEngine(t, g)
	engine.SetWater(true)
	engine.RunSimulationStep()

	leaks := engine.LastSnapshot().Leaks
	if len(leaks) != 1 {
		t.Fatalf("expected exactly 1 leak, got %v", leaks)
	}
	if leaks[0].Cell != b {
		t.Fatalf("leak at %v, want %v", leaks[0].Cell, b)
	}
	// World coordinates are the cell centre.
	if leaks[0].WorldX != 4.5 || leaks[0].WorldY != 1.5 {
		t.Fatalf("leak world position = (%v,%v), want (4.5,1.5)", leaks[0].WorldX, leaks[0].WorldY)
	}
}

func TestLeaksDeduplicatedPerCell(t *testing.T) {
	g := grid.New(10, 6, 1.0)
	mustPlace(t, g, defChassisWater(), grid.Coord{X: 1, Y: 1}, 0, "wsu-1")
	// Two pipes from the same source ending on the same empty cell.
	end := grid.Coord{X: 4, Y: 1}
	mustPipe(t, g, "p-a", grid.Coord{X: 1, Y: 1}, end, pipeCells(grid.Coord{X: 1, Y: 1}, end), 10)
	mustPipe(t, g, "p-b", grid.Coord{X: 1, Y: 1}, end,
		[]grid.Coord{{X: 1, Y: 1}, {X: 1, Y: 2}, {X: 2, Y: 2}, {X: 3, Y: 2}, {X: 4, Y: 2}, end}, 10)

	engine := newTestEngine(t, g)
	engine.SetWater(true)
	engine.RunSimulationStep()

	leaks := engine.LastSnapshot().Leaks
	if len(leaks) != 1 {
		t.Fatalf("leaks must deduplicate per cell, got %v", leaks)
	}
	if leaks[0].Cell != end {
		t.Fatalf("leak at %v, want %v", leaks[0].Cell, end)
	}
}

func TestUnpipedSupplyPortLeaks(t *testing.T) {
	g := grid.New(10, 4, 1.0)
	mustPlace(t, g, defChassisWater(), grid.Coord{X: 1, Y: 1}, 0, "wsu-1")

	engine := newTestEngine(t, g)
	engine.SetWater(true)
	engine.RunSimulationStep()

	leaks := engine.LastSnapshot().Leaks
	if len(leaks) != 1 || leaks[0].Cell != (grid.Coord{X: 1, Y: 1}) {
		t.Fatalf("open supply port should leak at itself, got %v", leaks)
	}
}

func TestLeaksSortedRowMajor(t *testing.T) {
	g := grid.New(12, 8, 1.0)
	mustPlace(t, g, defChassisWater(), grid.Coord{X: 1, Y: 5}, 0, "wsu-low")
	mustPlace(t, g, defChassisWater(), grid.Coord{X: 1, Y: 1}, 0, "wsu-high")
	mustPipe(t, g, "p-low", grid.Coord{X: 1, Y: 5}, grid.Coord{X: 4, Y: 5},
		pipeCells(grid.Coord{X: 1, Y: 5}, grid.Coord{X: 4, Y: 5}), 10)
	mustPipe(t, g, "p-high", grid.Coord{X: 1, Y: 1}, grid.Coord{X: 4, Y: 1},
		pipeCells(grid.Coord{X: 1, Y: 1}, grid.Coord{X: 4, Y: 1}), 10)

	engine := newTestEngine(t, g)
	engine.SetWater(true)
	engine.RunSimulationStep()

	leaks := engine.LastSnapshot().Leaks
	if len(leaks) != 2 {
		t.Fatalf("expected 2 leaks, got %v", leaks)
	}
	if !(leaks[0].Cell.Less(leaks[1].Cell)) {
		t.Fatalf("leaks not in row-major order: %v", leaks)
	}
}

func TestLeakListenerFiresOnChangeOnly(t *testing.T) {
	g := grid.New(10, 4, 1.0)
	mustPlace(t, g, defChassisWater(), grid.Coord{X: 1, Y: 1}, 0, "wsu-1")
	a, b := grid.Coord{X: 1, Y: 1}, grid.Coord{X: 4, Y: 1}
	mustPipe(t, g, "p-dangling", a, b, pipeCells(a, b), 10)

	engine := newTestEngine(t, g)
	var calls int
	engine.OnLeaksUpdated(func([]Leak) { calls++ })

	engine.SetWater(true)
	engine.RunSimulationStep()
	if calls != 1 {
		t.Fatalf("leak listener calls = %d after first leaky step, want 1", calls)
	}

	// Nothing changes; the same leak set must not re-fire the listener.
	engine.RunSimulationStep()
	engine.RunSimulationStep()
	if calls != 1 {
		t.Fatalf("leak listener re-fired on identical leak set: %d calls", calls)
	}

	engine.SetWater(false)
	engine.RunSimulationStep()
	if calls != 2 {
		t.Fatalf("leak listener calls = %d after leaks cleared, want 2", calls)
	}
}
