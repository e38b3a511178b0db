package model

// PortCapability indicates what a port carries.
type PortCapability string

const (
	PortPower  PortCapability = "power"
	PortWater  PortCapability = "water"
	PortSignal PortCapability = "signal"
)

// Rotation is a placement rotation in 90° steps (0..3, counter-clockwise).
type Rotation int

// CellOffset is a footprint-local grid offset, relative to the footprint
// origin of a component definition.
type CellOffset struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Rotate applies a table-driven 90°-step rotation about the footprint origin.
// The same table is used when resolving port cells and footprint occupancy,
// so placement and port resolution stay inverse-consistent.
func (o CellOffset) Rotate(r Rotation) CellOffset {
	switch r & 3 {
	case 1:
		return CellOffset{X: -o.Y, Y: o.X}
	case 2:
		return CellOffset{X: -o.X, Y: -o.Y}
	case 3:
		return CellOffset{X: o.Y, Y: -o.X}
	default:
		return o
	}
}

// PortDefinition describes one typed connection point on a component, at a
// footprint-local cell offset. Ports never exist independently of a
// component definition.
type PortDefinition struct {
	Offset     CellOffset     `json:"offset" yaml:"offset"`
	Capability PortCapability `json:"capability" yaml:"capability"`

	// Output marks the port as an outbound terminal. Electrical propagation
	// requires at least one visited inbound and one visited outbound port
	// before a consumer is considered powered.
	Output bool `json:"output" yaml:"output"`

	// MaxFlowRate caps hydraulic throughput on water ports, in litres per
	// step. Ignored for power and signal ports.
	MaxFlowRate float64 `json:"max_flow_rate,omitempty" yaml:"max_flow_rate,omitempty"`

	// Connected lists the indices of ports on the same component that this
	// port is internally wired to. An empty list falls back to "connected to
	// every other port of the same capability".
	Connected []int `json:"connected,omitempty" yaml:"connected,omitempty"`

	// Isolated suppresses the fully-connected fallback for this port. Used
	// on chassis supply terminals, whose ports must never short internally.
	Isolated bool `json:"isolated,omitempty" yaml:"isolated,omitempty"`
}

// ComponentDefinition is an immutable description of a placeable machine
// part: its footprint, port table, and supply/consumption behaviour. These
// are plain configuration records loaded once at startup from the catalog
// file.
type ComponentDefinition struct {
	Type string `json:"type" yaml:"type"`
	Name string `json:"name" yaml:"name"`

	// Footprint lists every cell the component occupies, as offsets from the
	// footprint origin. The origin cell itself must be included.
	Footprint []CellOffset `json:"footprint" yaml:"footprint"`

	Ports []PortDefinition `json:"ports" yaml:"ports"`

	// PowerSource marks a chassis power connection: the component injects
	// electrical supply at its power ports.
	PowerSource bool `json:"power_source,omitempty" yaml:"power_source,omitempty"`
	// WaterSource marks a chassis water connection.
	WaterSource bool `json:"water_source,omitempty" yaml:"water_source,omitempty"`
	// ConsumesPower marks a component that needs a complete electrical loop
	// (inbound and outbound port both energised) to operate.
	ConsumesPower bool `json:"consumes_power,omitempty" yaml:"consumes_power,omitempty"`
	// WaterSink marks a terminal water consumer; its unfed output ports are
	// not reported as leaks.
	WaterSink bool `json:"water_sink,omitempty" yaml:"water_sink,omitempty"`
	// Switchable marks a component whose internal port connections can be
	// opened and closed at runtime (e.g. a switch or valve).
	Switchable bool `json:"switchable,omitempty" yaml:"switchable,omitempty"`

	// Supply ratings, meaningful on sources only. Voltage in volts, current
	// in amps, pressure in kPa, flow in litres per step.
	SupplyVoltage  float64 `json:"supply_voltage,omitempty" yaml:"supply_voltage,omitempty"`
	SupplyCurrent  float64 `json:"supply_current,omitempty" yaml:"supply_current,omitempty"`
	SupplyPressure float64 `json:"supply_pressure,omitempty" yaml:"supply_pressure,omitempty"`
	SupplyFlowRate float64 `json:"supply_flow_rate,omitempty" yaml:"supply_flow_rate,omitempty"`
}

// PowerPortIndices returns the indices of all power-capability ports.
func (d *ComponentDefinition) PowerPortIndices() []int {
	return d.portIndices(PortPower)
}

// WaterPortIndices returns the indices of all water-capability ports.
func (d *ComponentDefinition) WaterPortIndices() []int {
	return d.portIndices(PortWater)
}

func (d *ComponentDefinition) portIndices(cap PortCapability) []int {
	var out []int
	for i, p := range d.Ports {
		if p.Capability == cap {
			out = append(out, i)
		}
	}
	return out
}

// InternalTargets resolves the internal connection targets of port i: the
// explicit Connected list when authored, otherwise every other port of the
// same capability. The fully-connected fallback is a deliberate
// simplification for definitions that don't author an internal wiring table.
func (d *ComponentDefinition) InternalTargets(i int) []int {
	if i < 0 || i >= len(d.Ports) {
		return nil
	}
	p := d.Ports[i]
	if p.Isolated {
		return nil
	}
	if len(p.Connected) > 0 {
		out := make([]int, 0, len(p.Connected))
		for _, j := range p.Connected {
			if j >= 0 && j < len(d.Ports) && j != i {
				out = append(out, j)
			}
		}
		return out
	}
	var out []int
	for j, q := range d.Ports {
		if j != i && q.Capability == p.Capability {
			out = append(out, j)
		}
	}
	return out
}
