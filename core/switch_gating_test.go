package core

import (
	"testing"

	"github.com/cogworksgames/machine-simulator/grid"
	"github.com/cogworksgames/machine-simulator/model"
)

func switchedCircuit(t *testing.T) *grid.Grid {
	t.Helper()
	g := grid.New(12, 4, 1.0)
	mustPlace(t, g, defChassisPower(), grid.Coord{X: 1, Y: 1}, 0, "psu-1")
	mustPlace(t, g, defSwitch(), grid.Coord{X: 4, Y: 1}, 0, "sw-1")
	mustPlace(t, g, defLamp(), grid.Coord{X: 7, Y: 1}, 0, "lamp-1")
	mustWire(t, g, "w-1", model.WireACPower, 1.0, grid.Coord{X: 1, Y: 1}, grid.Coord{X: 4, Y: 1})
	mustWire(t, g, "w-2", model.WireACPower, 1.0, grid.Coord{X: 5, Y: 1}, grid.Coord{X: 7, Y: 1})
	mustWire(t, g, "w-3", model.WireACPower, 1.0, grid.Coord{X: 8, Y: 1}, grid.Coord{X: 2, Y: 1})
	return g
}

func TestClosedSwitchConducts(t *testing.T) {
	g := switchedCircuit(t)
	engine := newTestEngine(t, g)
	engine.SetPower(true)
	engine.RunSimulationStep()

	if !g.Component("lamp-1").Powered {
		t.Fatal("lamp should be powered through a closed switch")
	}
}

func TestOpenSwitchBreaksTheLoop(t *testing.T) {
	g := switchedCircuit(t)
	engine := newTestEngine(t, g)
	engine.SetPower(true)
	engine.RunSimulationStep()

	g.Component("sw-1").SwitchClosed = false
	engine.RunSimulationStep()

	lamp := g.Component("lamp-1")
	if lamp.Powered {
		t.Fatal("lamp must lose power when the switch opens")
	}
	if len(engine.LastSnapshot().Loops) != 0 {
		t.Fatal("no loops should survive an open switch")
	}

	// The lamp is untouched by any loop, so this is a plain no-power fault,
	// not a missing return.
	if lamp.MissingReturn {
		t.Fatal("open switch must not flag the lamp as missing return")
	}
	found := false
	for _, f := range engine.LastSnapshot().Faults {
		if f == "Lamp at (7,1): no power" {
			found = true
		}
	}
	if !found {
		t.Fatalf("faults %v missing the no-power entry", engine.LastSnapshot().Faults)
	}
}

func TestReclosingSwitchRestoresPower(t *testing.T) {
	g := switchedCircuit(t)
	engine := newTestEngine(t, g)
	engine.SetPower(true)

	sw := g.Component("sw-1")
	sw.SwitchClosed = false
	engine.RunSimulationStep()
	if g.Component("lamp-1").Powered {
		t.Fatal("precondition: lamp dark while switch open")
	}

	sw.SwitchClosed = true
	engine.RunSimulationStep()
	if !g.Component("lamp-1").Powered {
		t.Fatal("lamp should repower when the switch closes again")
	}
}

func TestConnectionPredicateVetoesInternalEdges(t *testing.T) {
	g := lampCircuit(t)

	// A predicate that always vetoes the lamp's internal connection has the
	// same effect as a permanently open switch.
	pg := BuildPowerGraph(g, map[string]ConnectionPredicate{
		"lamp": func(c *grid.Component, i, j int) bool { return false },
	})
	loops := NewLoopEnumerator().Enumerate(pg, chassisPowerCells(g))
	if len(loops) != 0 {
		t.Fatalf("expected no loops with vetoed internal edges, got %d", len(loops))
	}

	pg = BuildPowerGraph(g, nil)
	loops = NewLoopEnumerator().Enumerate(pg, chassisPowerCells(g))
	if len(loops) != 1 {
		t.Fatalf("expected 1 loop without a predicate, got %d", len(loops))
	}
}
