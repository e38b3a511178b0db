package model

// PipeSpec holds catalog-level pipe defaults.
//
// The hydraulic fields below MaxFlowRate describe the physical pipe for a
// head-loss computation. The implemented propagation applies only the linear
// per-cell pressure drop; the richer fields are authoring metadata reserved
// for a future head-loss model and are not consumed anywhere.
type PipeSpec struct {
	// MaxFlowRate is the default throughput cap in litres per step.
	MaxFlowRate float64 `json:"max_flow_rate" yaml:"max_flow_rate"`
	// PressureDropPerCell is the linear attenuation applied per traversed
	// cell, in kPa.
	PressureDropPerCell float64 `json:"pressure_drop_per_cell" yaml:"pressure_drop_per_cell"`

	// Reserved head-loss authoring fields (SI units).
	InnerDiameterM   float64 `json:"inner_diameter_m,omitempty" yaml:"inner_diameter_m,omitempty"`
	RoughnessM       float64 `json:"roughness_m,omitempty" yaml:"roughness_m,omitempty"`
	FluidDensity     float64 `json:"fluid_density,omitempty" yaml:"fluid_density,omitempty"`
	FluidViscosityPa float64 `json:"fluid_viscosity_pa_s,omitempty" yaml:"fluid_viscosity_pa_s,omitempty"`
}
