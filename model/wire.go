package model

// WireClass distinguishes the electrical role of a wire. Power-class wires
// (AC and DC) participate in the electrical graph; signal wires do not.
type WireClass string

const (
	WireACPower WireClass = "ac_power"
	WireDCPower WireClass = "dc_power"
	WireSignal  WireClass = "signal"
)

// IsPowerClass reports whether the wire carries electrical supply rather
// than signal.
func (c WireClass) IsPowerClass() bool {
	return c == WireACPower || c == WireDCPower
}

// WireSpec holds catalog-level wire defaults and damage thresholds. A wire
// is marked damaged only when both thresholds are exceeded in the same step.
type WireSpec struct {
	// DefaultResistance is applied to wires placed without an explicit
	// resistance, in ohms.
	DefaultResistance float64 `json:"default_resistance" yaml:"default_resistance"`
	// CurrentThreshold in amps; overload requires current above this AND
	// resistance above ResistanceThreshold.
	CurrentThreshold    float64 `json:"current_threshold" yaml:"current_threshold"`
	ResistanceThreshold float64 `json:"resistance_threshold" yaml:"resistance_threshold"`
}
