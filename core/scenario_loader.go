package core

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cogworksgames/machine-simulator/grid"
	"github.com/cogworksgames/machine-simulator/model"
)

// Scenario is a small summary of what was loaded from JSON. It's mainly
// useful for logging or debugging from main().
type Scenario struct {
	ComponentIDs []string
	WireIDs      []string
	PipeIDs      []string
}

// internal JSON shapes - keep them unexported so we're free to evolve them.
type scenarioJSON struct {
	Grid       gridJSON        `json:"grid"`
	Components []componentJSON `json:"components"`
	Wires      []wireJSON      `json:"wires"`
	Pipes      []pipeJSON      `json:"pipes"`
}

type gridJSON struct {
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	CellSize float64 `json:"cell_size"` // optional; defaults to 1.0
}

type componentJSON struct {
	ID       string     `json:"id"` // optional; generated when empty
	Type     string     `json:"type"`
	Anchor   grid.Coord `json:"anchor"`
	Rotation int        `json:"rotation"` // 0..3, 90-degree steps
	// SwitchClosed applies to switchable definitions only; defaults to true.
	SwitchClosed *bool `json:"switch_closed,omitempty"`
}

type wireJSON struct {
	ID    string       `json:"id"`
	Class string       `json:"class"` // "ac_power" | "dc_power" | "signal"
	A     grid.Coord   `json:"a"`
	B     grid.Coord   `json:"b"`
	Cells []grid.Coord `json:"cells,omitempty"`
	// Resistance overrides the catalog default when positive.
	Resistance float64 `json:"resistance,omitempty"`
}

type pipeJSON struct {
	ID    string       `json:"id"`
	A     grid.Coord   `json:"a"`
	B     grid.Coord   `json:"b"`
	Cells []grid.Coord `json:"cells,omitempty"`
	// MaxFlowRate overrides the catalog default when positive.
	MaxFlowRate float64 `json:"max_flow_rate,omitempty"`
}

// LoadScenario reads a JSON placement scenario from r, constructs a grid
// sized to the scenario's dimensions, and populates it against the catalog.
// It fails on JSON/structural errors and on placements the grid rejects
// (unknown types, occupied cells, out-of-bounds endpoints); simulation
// inconsistencies are left for the engine's fault pass.
func LoadScenario(catalog *model.Catalog, r io.Reader) (*grid.Grid, *Scenario, error) {
	if catalog == nil {
		return nil, nil, fmt.Errorf("nil catalog")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read scenario: %w", err)
	}
	var raw scenarioJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("parse scenario: %w", err)
	}
	if raw.Grid.Width <= 0 || raw.Grid.Height <= 0 {
		return nil, nil, fmt.Errorf("scenario grid dimensions %dx%d invalid", raw.Grid.Width, raw.Grid.Height)
	}
	cellSize := raw.Grid.CellSize
	if cellSize <= 0 {
		cellSize = 1.0
	}

	g := grid.New(raw.Grid.Width, raw.Grid.Height, cellSize)
	summary := &Scenario{}

	for _, cj := range raw.Components {
		def, err := catalog.Component(cj.Type)
		if err != nil {
			return nil, nil, err
		}
		comp, err := g.PlaceComponent(def, cj.Anchor, model.Rotation(cj.Rotation), cj.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("place %q: %w", cj.Type, err)
		}
		if cj.SwitchClosed != nil {
			comp.SwitchClosed = *cj.SwitchClosed
		}
		summary.ComponentIDs = append(summary.ComponentIDs, comp.ID)
	}

	for _, wj := range raw.Wires {
		resistance := wj.Resistance
		if resistance <= 0 {
			resistance = catalog.Wire.DefaultResistance
		}
		w := &grid.Wire{
			ID:         wj.ID,
			Class:      model.WireClass(wj.Class),
			Resistance: resistance,
			A:          wj.A,
			B:          wj.B,
			Cells:      wj.Cells,
		}
		if err := g.AddWire(w); err != nil {
			return nil, nil, err
		}
		summary.WireIDs = append(summary.WireIDs, w.ID)
	}

	for _, pj := range raw.Pipes {
		maxFlow := pj.MaxFlowRate
		if maxFlow <= 0 {
			maxFlow = catalog.Pipe.MaxFlowRate
		}
		p := &grid.Pipe{
			ID:          pj.ID,
			A:           pj.A,
			B:           pj.B,
			Cells:       pj.Cells,
			MaxFlowRate: maxFlow,
		}
		if err := g.AddPipe(p); err != nil {
			return nil, nil, err
		}
		summary.PipeIDs = append(summary.PipeIDs, p.ID)
	}

	return g, summary, nil
}
