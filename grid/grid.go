package grid

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/cogworksgames/machine-simulator/model"
)

var (
	ErrOutOfBounds       = errors.New("coordinate out of bounds")
	ErrCellOccupied      = errors.New("cell already occupied by a component")
	ErrComponentExists   = errors.New("component already exists")
	ErrComponentNotFound = errors.New("component not found")
	ErrWireExists        = errors.New("wire already exists")
	ErrWireNotFound      = errors.New("wire not found")
	ErrWireBadInput      = errors.New("invalid wire")
	ErrPipeExists        = errors.New("pipe already exists")
	ErrPipeNotFound      = errors.New("pipe not found")
	ErrPipeBadInput      = errors.New("invalid pipe")
)

// Coord is an absolute grid coordinate. Identity on the grid is positional:
// cells are addressed by coordinate, not by object reference.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add translates the coordinate by a rotated footprint offset.
func (c Coord) Add(off model.CellOffset) Coord {
	return Coord{X: c.X + off.X, Y: c.Y + off.Y}
}

// Less orders coordinates row-major (Y first, then X). Used wherever a
// deterministic traversal order over cells is required.
func (c Coord) Less(o Coord) bool {
	if c.Y != o.Y {
		return c.Y < o.Y
	}
	return c.X < o.X
}

// Component is a placed machine part. It is owned by the grid and destroyed
// when removed. The runtime fields are written by the simulation core once
// per step; everything else is fixed at placement time.
type Component struct {
	ID       string
	Def      *model.ComponentDefinition
	Anchor   Coord
	Rotation model.Rotation

	// Runtime state, overwritten each simulation step.
	Powered       bool
	MissingReturn bool
	Voltage       float64
	Current       float64
	FillLevel     float64 // 0..100

	// SwitchClosed is meaningful only on switchable definitions; an open
	// switch vetoes the component's internal power connections.
	SwitchClosed bool
}

// FootprintCells returns every absolute cell the component occupies, applying
// the placement rotation to each footprint offset.
func (c *Component) FootprintCells() []Coord {
	out := make([]Coord, 0, len(c.Def.Footprint))
	for _, off := range c.Def.Footprint {
		out = append(out, c.Anchor.Add(off.Rotate(c.Rotation)))
	}
	return out
}

// Wire connects exactly two port cells. Power-class wires participate in the
// electrical graph; signal wires only carry signal-present state.
type Wire struct {
	ID         string
	Class      model.WireClass
	Resistance float64
	A, B       Coord   // endpoint port cells
	Cells      []Coord // ordered occupied cells, A-end first

	// Runtime state, overwritten each simulation step.
	Powered bool
	Voltage float64
	Current float64
	Damaged bool
}

// Pipe connects two water-port cells along an ordered run of cells.
type Pipe struct {
	ID          string
	A, B        Coord
	Cells       []Coord // ordered occupied cells, A-end first
	MaxFlowRate float64

	// Runtime state, overwritten each simulation step.
	FillPercent float64 // 0..100
	Flow        float64
	Pressure    float64
	Damaged     bool
}

// OppositeEnd returns the port cell at the other end of the pipe from the
// given entry cell, and the traversal length in cells. Returns false when
// the cell is not one of the pipe's endpoints.
func (p *Pipe) OppositeEnd(entry Coord) (Coord, int, bool) {
	switch entry {
	case p.A:
		return p.B, len(p.Cells), true
	case p.B:
		return p.A, len(p.Cells), true
	}
	return Coord{}, 0, false
}

// CellView is the read-only occupancy of one cell: at most one component,
// zero or more wires and pipes.
type CellView struct {
	Component *Component
	Wires     []*Wire
	Pipes     []*Pipe
}

// Grid is the topology provider: an arena of component, wire, and pipe
// records addressed by stable string handles, plus a coordinate index
// rebuilt once per step by the simulation engine. It is concurrency-safe
// via an internal RWMutex, but the engine relies on the single-writer
// discipline described in the simulation core: placement mutation happens
// between steps only.
type Grid struct {
	mu sync.RWMutex

	width, height int
	cellSize      float64

	components map[string]*Component
	wires      map[string]*Wire
	pipes      map[string]*Pipe

	// Coordinate index. Rebuilt via RebuildIndex; placement mutators keep it
	// coarse-grained fresh by rebuilding lazily on next access.
	byCell map[Coord]*CellView
	dirty  bool
}

// New constructs an empty grid of the given dimensions. cellSize is the
// world-space edge length of a cell, used only for presentation transforms.
func New(width, height int, cellSize float64) *Grid {
	return &Grid{
		width:      width,
		height:     height,
		cellSize:   cellSize,
		components: make(map[string]*Component),
		wires:      make(map[string]*Wire),
		pipes:      make(map[string]*Pipe),
		byCell:     make(map[Coord]*CellView),
	}
}

// InBounds reports whether the coordinate lies on the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

// CellCount returns the total number of cells on the grid.
func (g *Grid) CellCount() int { return g.width * g.height }

// Width returns the grid width in cells.
func (g *Grid) Width() int { return g.width }

// Height returns the grid height in cells.
func (g *Grid) Height() int { return g.height }

// ToIndex maps a coordinate to its flat array index, or -1 when out of
// bounds. Snapshot arrays are addressed with this index.
func (g *Grid) ToIndex(c Coord) int {
	if !g.InBounds(c.X, c.Y) {
		return -1
	}
	return c.Y*g.width + c.X
}

// CellToWorld returns the world-space centre of a cell. Presentation only;
// no simulation math depends on it.
func (g *Grid) CellToWorld(c Coord) (float64, float64) {
	return (float64(c.X) + 0.5) * g.cellSize, (float64(c.Y) + 0.5) * g.cellSize
}

//
// ---------- Placement ----------
//

// PlaceComponent instantiates a definition at the anchor cell with the given
// rotation. Every footprint cell must be in bounds and free of other
// components; wires and pipes may share cells with components.
func (g *Grid) PlaceComponent(def *model.ComponentDefinition, anchor Coord, rot model.Rotation, id string) (*Component, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: nil definition", model.ErrDefBadInput)
	}
	if id == "" {
		id = uuid.NewString()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.components[id]; exists {
		return nil, fmt.Errorf("%w: %q", ErrComponentExists, id)
	}

	comp := &Component{
		ID:       id,
		Def:      def,
		Anchor:   anchor,
		Rotation: rot & 3,
		// Switches start closed so a freshly placed circuit conducts.
		SwitchClosed: true,
	}

	cells := comp.FootprintCells()
	for _, cell := range cells {
		if !g.InBounds(cell.X, cell.Y) {
			return nil, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, cell.X, cell.Y)
		}
	}
	for _, cell := range cells {
		if other := g.componentAtLocked(cell); other != nil {
			return nil, fmt.Errorf("%w: (%d,%d) held by %q", ErrCellOccupied, cell.X, cell.Y, other.ID)
		}
	}

	g.components[id] = comp
	g.dirty = true
	return comp, nil
}

// RemoveComponent destroys a placed component. Attached wires and pipes are
// left in place; the next step will surface them as unterminated topology.
func (g *Grid) RemoveComponent(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.components[id]; !ok {
		return fmt.Errorf("%w: %q", ErrComponentNotFound, id)
	}
	delete(g.components, id)
	g.dirty = true
	return nil
}

// AddWire places a wire between two port cells. The cell path must start at
// A and end at B; a nil path is synthesised as the two endpoints.
func (g *Grid) AddWire(w *Wire) error {
	if w == nil {
		return fmt.Errorf("%w: nil", ErrWireBadInput)
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if !g.InBounds(w.A.X, w.A.Y) || !g.InBounds(w.B.X, w.B.Y) {
		return fmt.Errorf("%w: wire %q endpoint out of bounds", ErrWireBadInput, w.ID)
	}
	if len(w.Cells) == 0 {
		w.Cells = []Coord{w.A, w.B}
	}
	if w.Cells[0] != w.A || w.Cells[len(w.Cells)-1] != w.B {
		return fmt.Errorf("%w: wire %q path does not span its endpoints", ErrWireBadInput, w.ID)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.wires[w.ID]; exists {
		return fmt.Errorf("%w: %q", ErrWireExists, w.ID)
	}
	g.wires[w.ID] = w
	g.dirty = true
	return nil
}

// RemoveWire deletes a wire by ID.
func (g *Grid) RemoveWire(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.wires[id]; !ok {
		return fmt.Errorf("%w: %q", ErrWireNotFound, id)
	}
	delete(g.wires, id)
	g.dirty = true
	return nil
}

// AddPipe places a pipe between two water-port cells.
func (g *Grid) AddPipe(p *Pipe) error {
	if p == nil {
		return fmt.Errorf("%w: nil", ErrPipeBadInput)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if !g.InBounds(p.A.X, p.A.Y) || !g.InBounds(p.B.X, p.B.Y) {
		return fmt.Errorf("%w: pipe %q endpoint out of bounds", ErrPipeBadInput, p.ID)
	}
	if len(p.Cells) == 0 {
		p.Cells = []Coord{p.A, p.B}
	}
	if p.Cells[0] != p.A || p.Cells[len(p.Cells)-1] != p.B {
		return fmt.Errorf("%w: pipe %q path does not span its endpoints", ErrPipeBadInput, p.ID)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.pipes[p.ID]; exists {
		return fmt.Errorf("%w: %q", ErrPipeExists, p.ID)
	}
	g.pipes[p.ID] = p
	g.dirty = true
	return nil
}

// RemovePipe deletes a pipe by ID.
func (g *Grid) RemovePipe(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.pipes[id]; !ok {
		return fmt.Errorf("%w: %q", ErrPipeNotFound, id)
	}
	delete(g.pipes, id)
	g.dirty = true
	return nil
}

//
// ---------- Queries ----------
//

// Components returns all placed components sorted by ID, so callers iterate
// in a deterministic order regardless of map layout.
func (g *Grid) Components() []*Component {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*Component, 0, len(g.components))
	for _, c := range g.components {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Wires returns all wires sorted by ID.
func (g *Grid) Wires() []*Wire {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*Wire, 0, len(g.wires))
	for _, w := range g.wires {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Pipes returns all pipes sorted by ID.
func (g *Grid) Pipes() []*Pipe {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*Pipe, 0, len(g.pipes))
	for _, p := range g.pipes {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Component returns a component by ID, or nil when absent.
func (g *Grid) Component(id string) *Component {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.components[id]
}

// RebuildIndex recomputes the coordinate→occupancy index from the arena.
// The simulation engine calls this once at the start of every step so that
// per-cell queries during the step never reconstruct occupancy.
func (g *Grid) RebuildIndex() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rebuildIndexLocked()
}

// CellAt returns the occupancy of a cell. The returned view shares the
// index's slices and must not be mutated.
func (g *Grid) CellAt(c Coord) CellView {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.dirty {
		g.rebuildIndexLocked()
	}
	if v := g.byCell[c]; v != nil {
		return *v
	}
	return CellView{}
}

// ComponentAt returns the component occupying a cell, or nil.
func (g *Grid) ComponentAt(c Coord) *Component {
	return g.CellAt(c).Component
}

// PipesAt returns the pipes with an endpoint at the cell, sorted by ID.
func (g *Grid) PipesAt(c Coord) []*Pipe {
	view := g.CellAt(c)
	var out []*Pipe
	for _, p := range view.Pipes {
		if p.A == c || p.B == c {
			out = append(out, p)
		}
	}
	return out
}

func (g *Grid) rebuildIndexLocked() {
	g.byCell = make(map[Coord]*CellView)

	ids := make([]string, 0, len(g.components))
	for id := range g.components {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		comp := g.components[id]
		for _, cell := range comp.FootprintCells() {
			g.cellViewLocked(cell).Component = comp
		}
	}

	wireIDs := make([]string, 0, len(g.wires))
	for id := range g.wires {
		wireIDs = append(wireIDs, id)
	}
	sort.Strings(wireIDs)
	for _, id := range wireIDs {
		w := g.wires[id]
		for _, cell := range w.Cells {
			v := g.cellViewLocked(cell)
			v.Wires = append(v.Wires, w)
		}
	}

	pipeIDs := make([]string, 0, len(g.pipes))
	for id := range g.pipes {
		pipeIDs = append(pipeIDs, id)
	}
	sort.Strings(pipeIDs)
	for _, id := range pipeIDs {
		p := g.pipes[id]
		for _, cell := range p.Cells {
			v := g.cellViewLocked(cell)
			v.Pipes = append(v.Pipes, p)
		}
	}

	g.dirty = false
}

func (g *Grid) cellViewLocked(c Coord) *CellView {
	v, ok := g.byCell[c]
	if !ok {
		v = &CellView{}
		g.byCell[c] = v
	}
	return v
}

// componentAtLocked scans the arena directly; used by placement before the
// index is rebuilt. Caller must hold g.mu.
func (g *Grid) componentAtLocked(c Coord) *Component {
	for _, comp := range g.components {
		for _, cell := range comp.FootprintCells() {
			if cell == c {
				return comp
			}
		}
	}
	return nil
}
