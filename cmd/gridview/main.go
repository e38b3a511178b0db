// gridview is a terminal viewer for the simulation: it renders the latest
// snapshot as a colored grid and drives the engine interactively. It is a
// presentation collaborator over the snapshot boundary, not part of the
// simulation core.
//
// Keys: space = step, p = toggle power, w = toggle water, s = toggle
// autorun, q / Esc = quit.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/cogworksgames/machine-simulator/core"
	"github.com/cogworksgames/machine-simulator/grid"
	"github.com/cogworksgames/machine-simulator/internal/logging"
	"github.com/cogworksgames/machine-simulator/model"
)

func main() {
	var catalogPath, scenarioPath string
	var tick time.Duration

	cmd := &cobra.Command{
		Use:           "gridview",
		Short:         "Terminal viewer for the machine simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(catalogPath, scenarioPath, tick)
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "configs/components.yaml", "component catalog YAML")
	cmd.Flags().StringVar(&scenarioPath, "scenario", "configs/scenario.json", "placement scenario JSON")
	cmd.Flags().DurationVar(&tick, "tick", 250*time.Millisecond, "autorun tick interval")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(catalogPath, scenarioPath string, tick time.Duration) error {
	catalogFile, err := os.Open(catalogPath)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer catalogFile.Close()
	catalog, err := model.LoadCatalog(catalogFile)
	if err != nil {
		return err
	}

	scenarioFile, err := os.Open(scenarioPath)
	if err != nil {
		return fmt.Errorf("open scenario: %w", err)
	}
	defer scenarioFile.Close()
	g, _, err := core.LoadScenario(catalog, scenarioFile)
	if err != nil {
		return err
	}

	engine := core.NewSimulationEngine(g, catalog,
		core.WithLogger(logging.Noop()),
		core.WithStepInterval(tick),
	)
	engine.SetPower(true)
	engine.SetWater(true)

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer screen.Fini()

	// Repaint on every published snapshot; tcell screens are safe to draw
	// from the scheduler goroutine.
	engine.OnStepCompleted(func(snap *core.Snapshot) {
		draw(screen, g, engine, snap)
	})

	engine.RunSimulationStep()
	draw(screen, g, engine, engine.LastSnapshot())

	for {
		switch ev := screen.PollEvent().(type) {
		case *tcell.EventResize:
			screen.Sync()
			draw(screen, g, engine, engine.LastSnapshot())
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyEscape, ev.Rune() == 'q':
				engine.StopSimulation()
				return nil
			case ev.Rune() == ' ':
				engine.RunSimulationStep()
			case ev.Rune() == 'p':
				engine.SetPower(!engine.PowerOn())
				engine.RunSimulationStep()
			case ev.Rune() == 'w':
				engine.SetWater(!engine.WaterOn())
				engine.RunSimulationStep()
			case ev.Rune() == 's':
				if engine.Running() {
					engine.StopSimulation()
				} else {
					engine.StartSimulation()
				}
			}
			draw(screen, g, engine, engine.LastSnapshot())
		}
	}
}

func draw(screen tcell.Screen, g *grid.Grid, engine *core.SimulationEngine, snap *core.Snapshot) {
	screen.Clear()
	if snap == nil {
		screen.Show()
		return
	}

	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			cell := grid.Coord{X: x, Y: y}
			idx := g.ToIndex(cell)
			ch, style := glyphFor(g, snap, cell, idx)
			screen.SetContent(x, y, ch, nil, style)
		}
	}

	status := fmt.Sprintf("step %d  power:%v water:%v autorun:%v  loops:%d faults:%d leaks:%d",
		snap.Step, snap.PowerOn, snap.WaterOn, engine.Running(),
		len(snap.Loops), len(snap.Faults), len(snap.Leaks))
	drawText(screen, 0, g.Height()+1, status, tcell.StyleDefault)
	for i, f := range snap.Faults {
		drawText(screen, 0, g.Height()+2+i, "fault: "+f, tcell.StyleDefault.Foreground(tcell.ColorRed))
	}

	screen.Show()
}

func glyphFor(g *grid.Grid, snap *core.Snapshot, cell grid.Coord, idx int) (rune, tcell.Style) {
	style := tcell.StyleDefault

	for _, l := range snap.Leaks {
		if l.Cell == cell {
			return '!', style.Foreground(tcell.ColorRed).Bold(true)
		}
	}

	view := g.CellAt(cell)
	switch {
	case view.Component != nil:
		ch := '#'
		if view.Component.Def != nil && len(view.Component.Def.Name) > 0 {
			ch = rune(view.Component.Def.Name[0])
		}
		if view.Component.Powered {
			style = style.Foreground(tcell.ColorYellow).Bold(true)
		} else if view.Component.FillLevel >= 100 {
			style = style.Foreground(tcell.ColorBlue).Bold(true)
		}
		return ch, style
	case len(view.Pipes) > 0:
		if idx >= 0 && snap.Flow[idx] > 0 {
			return '=', style.Foreground(tcell.ColorBlue)
		}
		return '=', style.Foreground(tcell.ColorGray)
	case len(view.Wires) > 0:
		if idx >= 0 && snap.Voltage[idx] > 0 {
			return '-', style.Foreground(tcell.ColorYellow)
		}
		if idx >= 0 && snap.Signal[idx] {
			return '-', style.Foreground(tcell.ColorGreen)
		}
		return '-', style.Foreground(tcell.ColorGray)
	default:
		return '.', style.Foreground(tcell.ColorDarkGray)
	}
}

func drawText(screen tcell.Screen, x, y int, text string, style tcell.Style) {
	for i, ch := range text {
		screen.SetContent(x+i, y, ch, nil, style)
	}
}
