package model

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

var (
	ErrDefNotFound  = errors.New("component definition not found")
	ErrDefBadInput  = errors.New("invalid component definition")
	ErrDefDuplicate = errors.New("duplicate component definition")
)

// Catalog is the full set of component definitions plus wire and pipe
// defaults, loaded once at startup. It is immutable after loading.
type Catalog struct {
	Components map[string]*ComponentDefinition
	Wire       WireSpec
	Pipe       PipeSpec
}

// catalogYAML is the on-disk shape. Kept unexported so the file format can
// evolve independently of the in-memory Catalog.
type catalogYAML struct {
	Components []*ComponentDefinition `yaml:"components"`
	Wire       *WireSpec              `yaml:"wire"`
	Pipe       *PipeSpec              `yaml:"pipe"`
}

// LoadCatalog reads a YAML catalog from r. It fails on structural errors and
// on definitions that violate basic invariants (empty type, ports outside
// the footprint, internal connection indices out of range); everything else
// is left to the simulation's defensive handling.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var raw catalogYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	cat := &Catalog{
		Components: make(map[string]*ComponentDefinition, len(raw.Components)),
		Wire: WireSpec{
			DefaultResistance:   1.0,
			CurrentThreshold:    10.0,
			ResistanceThreshold: 2.0,
		},
		Pipe: PipeSpec{
			MaxFlowRate:         10.0,
			PressureDropPerCell: 5.0,
		},
	}
	if raw.Wire != nil {
		cat.Wire = *raw.Wire
	}
	if raw.Pipe != nil {
		cat.Pipe = *raw.Pipe
	}

	for _, def := range raw.Components {
		if err := validateDefinition(def); err != nil {
			return nil, err
		}
		if _, exists := cat.Components[def.Type]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDefDuplicate, def.Type)
		}
		cat.Components[def.Type] = def
	}

	return cat, nil
}

// Component returns the definition for a component type, or an error when
// the type is not in the catalog.
func (c *Catalog) Component(typ string) (*ComponentDefinition, error) {
	def, ok := c.Components[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDefNotFound, typ)
	}
	return def, nil
}

func validateDefinition(def *ComponentDefinition) error {
	if def == nil || def.Type == "" {
		return fmt.Errorf("%w: nil or empty type", ErrDefBadInput)
	}
	if len(def.Footprint) == 0 {
		return fmt.Errorf("%w: %q has no footprint", ErrDefBadInput, def.Type)
	}
	occupied := make(map[CellOffset]bool, len(def.Footprint))
	for _, off := range def.Footprint {
		occupied[off] = true
	}
	for i, p := range def.Ports {
		if !occupied[p.Offset] {
			return fmt.Errorf("%w: %q port %d offset (%d,%d) outside footprint",
				ErrDefBadInput, def.Type, i, p.Offset.X, p.Offset.Y)
		}
		switch p.Capability {
		case PortPower, PortWater, PortSignal:
		default:
			return fmt.Errorf("%w: %q port %d has unknown capability %q",
				ErrDefBadInput, def.Type, i, p.Capability)
		}
		for _, j := range p.Connected {
			if j < 0 || j >= len(def.Ports) {
				return fmt.Errorf("%w: %q port %d references port index %d out of range",
					ErrDefBadInput, def.Type, i, j)
			}
		}
	}
	return nil
}
