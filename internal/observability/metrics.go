package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SimCollector bundles Prometheus metrics for the simulation engine and
// provides a ready-made /metrics handler for hosts that expose one.
type SimCollector struct {
	gatherer prometheus.Gatherer

	StepsTotal   prometheus.Counter
	StepDuration prometheus.Histogram

	PoweredComponents prometheus.Gauge
	PoweredLoops      prometheus.Gauge
	Faults            prometheus.Gauge
	Leaks             prometheus.Gauge

	GridComponents prometheus.Gauge
	GridWires      prometheus.Gauge
	GridPipes      prometheus.Gauge
}

// NewSimCollector registers simulation Prometheus metrics against the
// provided registerer, defaulting to the global registry when nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	steps, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_steps_total",
		Help: "Total number of completed simulation steps.",
	}), "sim_steps_total")
	if err != nil {
		return nil, err
	}

	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_step_duration_seconds",
		Help:    "Wall-clock duration of one simulation step.",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	})
	duration, err = registerHistogram(reg, duration, "sim_step_duration_seconds")
	if err != nil {
		return nil, err
	}

	powered, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_powered_components",
		Help: "Components powered as of the last step.",
	}), "sim_powered_components")
	if err != nil {
		return nil, err
	}
	loops, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_powered_loops",
		Help: "Powered loops found by the last step.",
	}), "sim_powered_loops")
	if err != nil {
		return nil, err
	}
	faults, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_faults",
		Help: "Fault-list entries emitted by the last step.",
	}), "sim_faults")
	if err != nil {
		return nil, err
	}
	leaks, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_leaks",
		Help: "Leak records emitted by the last step.",
	}), "sim_leaks")
	if err != nil {
		return nil, err
	}

	comps, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "grid_components",
		Help: "Current number of placed components.",
	}), "grid_components")
	if err != nil {
		return nil, err
	}
	wires, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "grid_wires",
		Help: "Current number of placed wires.",
	}), "grid_wires")
	if err != nil {
		return nil, err
	}
	pipes, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "grid_pipes",
		Help: "Current number of placed pipes.",
	}), "grid_pipes")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:          gatherer,
		StepsTotal:        steps,
		StepDuration:      duration,
		PoweredComponents: powered,
		PoweredLoops:      loops,
		Faults:            faults,
		Leaks:             leaks,
		GridComponents:    comps,
		GridWires:         wires,
		GridPipes:         pipes,
	}, nil
}

// ObserveStep records one completed step: its duration and the headline
// results. Safe on a nil collector so the engine can run unmetered.
func (c *SimCollector) ObserveStep(d time.Duration, powered, loops, faults, leaks int) {
	if c == nil {
		return
	}
	if c.StepsTotal != nil {
		c.StepsTotal.Inc()
	}
	if c.StepDuration != nil {
		c.StepDuration.Observe(d.Seconds())
	}
	if c.PoweredComponents != nil {
		c.PoweredComponents.Set(float64(powered))
	}
	if c.PoweredLoops != nil {
		c.PoweredLoops.Set(float64(loops))
	}
	if c.Faults != nil {
		c.Faults.Set(float64(faults))
	}
	if c.Leaks != nil {
		c.Leaks.Set(float64(leaks))
	}
}

// SetGridCounts drives the placement gauges. Called by hosts after editing
// operations.
func (c *SimCollector) SetGridCounts(components, wires, pipes int) {
	if c == nil {
		return
	}
	if c.GridComponents != nil {
		c.GridComponents.Set(float64(components))
	}
	if c.GridWires != nil {
		c.GridWires.Set(float64(wires))
	}
	if c.GridPipes != nil {
		c.GridPipes.Set(float64(pipes))
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
