package core

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cogworksgames/machine-simulator/grid"
	"github.com/cogworksgames/machine-simulator/internal/logging"
	"github.com/cogworksgames/machine-simulator/internal/observability"
	"github.com/cogworksgames/machine-simulator/model"
	"github.com/cogworksgames/machine-simulator/timectrl"
)

// SimulationEngine runs the step-wise machine simulation: once per step it
// rebuilds the power graph from current placement, enumerates powered
// loops, propagates electricity and water, detects faults, and publishes an
// immutable snapshot.
//
// A step is synchronous and not preemptible. Placement mutation and the
// SetPower/SetWater toggles take effect atomically at the start of the next
// step; the single writer during a step is the engine itself.
type SimulationEngine struct {
	grid    *grid.Grid
	catalog *model.Catalog

	log     logging.Logger
	metrics *observability.SimCollector
	tracer  trace.Tracer

	preds        map[string]ConnectionPredicate
	enum         *LoopEnumerator
	stepInterval time.Duration

	mu       sync.Mutex
	powerOn  bool
	waterOn  bool
	step     uint64
	last     *Snapshot
	runState bool

	scheduler *timectrl.StepScheduler

	stepListeners  []func(*Snapshot)
	powerListeners []func(bool)
	waterListeners []func(bool)
	leakListeners  []func([]Leak)
	runListeners   []func(bool)
}

// Option configures a SimulationEngine at construction.
type Option func(*SimulationEngine)

// WithLogger sets the structured logger; the default drops all logs.
func WithLogger(l logging.Logger) Option {
	return func(se *SimulationEngine) {
		if l != nil {
			se.log = l
		}
	}
}

// WithCollector attaches a Prometheus collector for step metrics.
func WithCollector(c *observability.SimCollector) Option {
	return func(se *SimulationEngine) { se.metrics = c }
}

// WithStepInterval sets the autorun tick interval.
func WithStepInterval(d time.Duration) Option {
	return func(se *SimulationEngine) {
		if d > 0 {
			se.stepInterval = d
		}
	}
}

// WithConnectionPredicate overrides or adds the internal-connection
// predicate for a component type.
func WithConnectionPredicate(typ string, p ConnectionPredicate) Option {
	return func(se *SimulationEngine) { se.preds[typ] = p }
}

// NewSimulationEngine constructs an engine over the given topology provider
// and catalog. Switchable catalog definitions get the built-in switch
// predicate automatically.
func NewSimulationEngine(g *grid.Grid, catalog *model.Catalog, opts ...Option) *SimulationEngine {
	se := &SimulationEngine{
		grid:         g,
		catalog:      catalog,
		log:          logging.Noop(),
		tracer:       otel.Tracer("machine-simulator/core"),
		preds:        make(map[string]ConnectionPredicate),
		enum:         NewLoopEnumerator(),
		stepInterval: 500 * time.Millisecond,
	}
	if catalog != nil {
		for typ, def := range catalog.Components {
			if def.Switchable {
				se.preds[typ] = SwitchPredicate
			}
		}
	}
	for _, opt := range opts {
		opt(se)
	}
	return se
}

//
// ---------- Listener registration ----------
//

// OnStepCompleted registers a callback fired after each snapshot is
// finalized and published.
func (se *SimulationEngine) OnStepCompleted(fn func(*Snapshot)) {
	if fn != nil {
		se.stepListeners = append(se.stepListeners, fn)
	}
}

// OnPowerToggled registers a callback for power toggle transitions.
func (se *SimulationEngine) OnPowerToggled(fn func(bool)) {
	if fn != nil {
		se.powerListeners = append(se.powerListeners, fn)
	}
}

// OnWaterToggled registers a callback for water toggle transitions.
func (se *SimulationEngine) OnWaterToggled(fn func(bool)) {
	if fn != nil {
		se.waterListeners = append(se.waterListeners, fn)
	}
}

// OnLeaksUpdated registers a callback fired when a step's leak set differs
// from the previous step's.
func (se *SimulationEngine) OnLeaksUpdated(fn func([]Leak)) {
	if fn != nil {
		se.leakListeners = append(se.leakListeners, fn)
	}
}

// OnRunStateChanged registers a callback for autorun start/stop
// transitions.
func (se *SimulationEngine) OnRunStateChanged(fn func(bool)) {
	if fn != nil {
		se.runListeners = append(se.runListeners, fn)
	}
}

//
// ---------- Toggles and autorun ----------
//

// SetPower toggles electrical phase participation. A no-op when the value
// is unchanged; the new value takes effect at the start of the next step.
func (se *SimulationEngine) SetPower(on bool) {
	se.mu.Lock()
	if se.powerOn == on {
		se.mu.Unlock()
		return
	}
	se.powerOn = on
	se.mu.Unlock()

	for _, fn := range se.powerListeners {
		fn(on)
	}
}

// SetWater toggles hydraulic phase participation. Same contract as
// SetPower.
func (se *SimulationEngine) SetWater(on bool) {
	se.mu.Lock()
	if se.waterOn == on {
		se.mu.Unlock()
		return
	}
	se.waterOn = on
	se.mu.Unlock()

	for _, fn := range se.waterListeners {
		fn(on)
	}
}

// PowerOn reports the current electrical toggle.
func (se *SimulationEngine) PowerOn() bool {
	se.mu.Lock()
	defer se.mu.Unlock()
	return se.powerOn
}

// WaterOn reports the current hydraulic toggle.
func (se *SimulationEngine) WaterOn() bool {
	se.mu.Lock()
	defer se.mu.Unlock()
	return se.waterOn
}

// StartSimulation begins autorun: one step per configured interval. No-op
// when already running.
func (se *SimulationEngine) StartSimulation() {
	se.mu.Lock()
	if se.runState {
		se.mu.Unlock()
		return
	}
	se.runState = true
	se.scheduler = timectrl.NewStepScheduler(se.stepInterval)
	se.scheduler.AddListener(func(time.Time) { se.RunSimulationStep() })
	sched := se.scheduler
	se.mu.Unlock()

	sched.Start()
	for _, fn := range se.runListeners {
		fn(true)
	}
}

// StopSimulation halts autorun scheduling. An in-progress step completes;
// steps are not preemptible.
func (se *SimulationEngine) StopSimulation() {
	se.mu.Lock()
	if !se.runState {
		se.mu.Unlock()
		return
	}
	se.runState = false
	sched := se.scheduler
	se.scheduler = nil
	se.mu.Unlock()

	if sched != nil {
		sched.Stop()
	}
	for _, fn := range se.runListeners {
		fn(false)
	}
}

// Running reports whether autorun is active.
func (se *SimulationEngine) Running() bool {
	se.mu.Lock()
	defer se.mu.Unlock()
	return se.runState
}

//
// ---------- Stepping and snapshot access ----------
//

// LastSnapshot returns the latest published snapshot, or nil before the
// first step.
func (se *SimulationEngine) LastSnapshot() *Snapshot {
	se.mu.Lock()
	defer se.mu.Unlock()
	return se.last
}

// TryGetPortElectricalState reads the latest snapshot's electrical state
// for the port at the cell.
func (se *SimulationEngine) TryGetPortElectricalState(cell grid.Coord) (PortElectricalState, bool) {
	return se.LastSnapshot().TryGetPortElectricalState(cell)
}

// TryGetPortHydraulicState reads the latest snapshot's hydraulic state for
// the water port at the cell.
func (se *SimulationEngine) TryGetPortHydraulicState(cell grid.Coord) (PortHydraulicState, bool) {
	return se.LastSnapshot().TryGetPortHydraulicState(cell)
}

// RunSimulationStep advances one deterministic tick: graph build, loop
// enumeration, electrical and hydraulic propagation, fault detection, and
// snapshot publication. Missing topology degrades to a logged no-op rather
// than an error; the step is recoverable once topology is provided.
func (se *SimulationEngine) RunSimulationStep() {
	ctx := context.Background()

	se.mu.Lock()
	if se.grid == nil || se.catalog == nil {
		se.mu.Unlock()
		se.log.Warn(ctx, "simulation step skipped: topology provider or catalog missing")
		return
	}

	start := time.Now()
	se.step++
	step := se.step
	powerOn, waterOn := se.powerOn, se.waterOn
	prev := se.last

	ctx, span := se.tracer.Start(ctx, "simulation.step",
		trace.WithAttributes(
			attribute.Int64("sim.step", int64(step)),
			attribute.Bool("sim.power_on", powerOn),
			attribute.Bool("sim.water_on", waterOn),
		))

	se.grid.RebuildIndex()
	ports := resolveAllPorts(se.grid)

	var (
		pg    *PowerGraph
		loops []Loop
	)
	if powerOn {
		_, gspan := se.tracer.Start(ctx, "simulation.power_graph")
		pg = BuildPowerGraph(se.grid, se.preds)
		gspan.SetAttributes(
			attribute.Int("graph.nodes", pg.NodeCount()),
			attribute.Int("graph.edges", pg.EdgeCount()),
		)
		gspan.End()

		_, lspan := se.tracer.Start(ctx, "simulation.loops")
		loops = se.enum.Enumerate(pg, chassisPowerCells(se.grid))
		lspan.SetAttributes(attribute.Int("loops.count", len(loops)))
		lspan.End()
	}

	_, espan := se.tracer.Start(ctx, "simulation.electrical")
	elec := propagateElectrical(se.grid, pg, loops, ports, powerOn)
	espan.End()

	_, hspan := se.tracer.Start(ctx, "simulation.hydraulic")
	hyd := propagateHydraulics(se.grid, ports, se.catalog.Pipe, waterOn)
	hspan.End()

	faults := detectFaults(se.grid, se.catalog.Wire, powerOn)
	snap := emitSnapshot(se.grid, step, powerOn, waterOn, elec, hyd, loops, faults)

	se.last = snap
	se.mu.Unlock()

	span.End()

	powered := 0
	for _, comp := range se.grid.Components() {
		if comp.Powered {
			powered++
		}
	}
	se.metrics.ObserveStep(time.Since(start), powered, len(loops), len(faults), len(snap.Leaks))

	se.log.Debug(ctx, "step completed",
		logging.Uint64("step", step),
		logging.Int("loops", len(loops)),
		logging.Int("faults", len(faults)),
		logging.Int("leaks", len(snap.Leaks)),
	)

	// Publish only after the snapshot is finalized and swapped in.
	for _, fn := range se.stepListeners {
		fn(snap)
	}
	if leaksChanged(prev, snap) {
		for _, fn := range se.leakListeners {
			fn(append([]Leak(nil), snap.Leaks...))
		}
	}
}

// chassisPowerCells resolves the absolute cells of every power port on a
// chassis power connection, in the grid's deterministic component order.
func chassisPowerCells(g *grid.Grid) []grid.Coord {
	var out []grid.Coord
	for _, comp := range g.Components() {
		if comp.Def == nil || !comp.Def.PowerSource {
			continue
		}
		for _, rp := range ResolvePorts(comp) {
			if rp.Def.Capability == model.PortPower {
				out = append(out, rp.Cell)
			}
		}
	}
	return out
}

func leaksChanged(prev, next *Snapshot) bool {
	if prev == nil {
		return len(next.Leaks) > 0
	}
	if len(prev.Leaks) != len(next.Leaks) {
		return true
	}
	for i := range next.Leaks {
		if prev.Leaks[i].Cell != next.Leaks[i].Cell {
			return true
		}
	}
	return false
}
