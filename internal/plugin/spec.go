package plugin

import (
	"fmt"
	"image"
)

// ParamKind enumerates the supported parameter value types.
type ParamKind string

const (
	KindFloat  ParamKind = "float"
	KindInt    ParamKind = "int"
	KindBool   ParamKind = "bool"
	KindSelect ParamKind = "select"
	KindRange  ParamKind = "range"
)

// Option is one choice of a select parameter.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// ParamSpec describes a single configurable value of a capability:
// its kind, bounds, and default. Numeric kinds carry Min/Max/Step,
// select carries Options, range carries DefaultLow/DefaultHigh.
type ParamSpec struct {
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	Description string    `json:"description,omitempty"`
	Kind        ParamKind `json:"type"`

	Default any `json:"default,omitempty"`

	Min  float64 `json:"min,omitempty"`
	Max  float64 `json:"max,omitempty"`
	Step float64 `json:"step,omitempty"`

	Options []Option `json:"options,omitempty"`

	DefaultLow  float64 `json:"default_low,omitempty"`
	DefaultHigh float64 `json:"default_high,omitempty"`
}

// Validate checks the invariant that a spec's default lies within its
// declared bounds (or among its options for select kinds).
func (p ParamSpec) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("param has empty name")
	}
	switch p.Kind {
	case KindFloat:
		v, ok := toFloat(p.Default)
		if !ok {
			return fmt.Errorf("param %q: float default missing or not numeric", p.Name)
		}
		if v < p.Min || v > p.Max {
			return fmt.Errorf("param %q: default %v outside [%v, %v]", p.Name, v, p.Min, p.Max)
		}
	case KindInt:
		v, ok := toFloat(p.Default)
		if !ok {
			return fmt.Errorf("param %q: int default missing or not numeric", p.Name)
		}
		if v < p.Min || v > p.Max {
			return fmt.Errorf("param %q: default %v outside [%v, %v]", p.Name, v, p.Min, p.Max)
		}
	case KindBool:
		if _, ok := p.Default.(bool); !ok {
			return fmt.Errorf("param %q: bool default missing", p.Name)
		}
	case KindSelect:
		def, ok := p.Default.(string)
		if !ok {
			return fmt.Errorf("param %q: select default missing", p.Name)
		}
		if len(p.Options) == 0 {
			return fmt.Errorf("param %q: select has no options", p.Name)
		}
		for _, o := range p.Options {
			if o.Value == def {
				return nil
			}
		}
		return fmt.Errorf("param %q: default %q not among options", p.Name, def)
	case KindRange:
		if p.DefaultLow < p.Min || p.DefaultLow > p.Max {
			return fmt.Errorf("param %q: default_low %v outside [%v, %v]", p.Name, p.DefaultLow, p.Min, p.Max)
		}
		if p.DefaultHigh < p.Min || p.DefaultHigh > p.Max {
			return fmt.Errorf("param %q: default_high %v outside [%v, %v]", p.Name, p.DefaultHigh, p.Min, p.Max)
		}
		if p.DefaultLow > p.DefaultHigh {
			return fmt.Errorf("param %q: default_low %v above default_high %v", p.Name, p.DefaultLow, p.DefaultHigh)
		}
	default:
		return fmt.Errorf("param %q: unknown kind %q", p.Name, p.Kind)
	}
	return nil
}

// Descriptor declares a capability's identity, grouping category and
// parameter schemas. It drives discovery UIs and parameter
// normalization and is immutable once registered.
type Descriptor struct {
	Name        string      `json:"name"`
	DisplayName string      `json:"display_name"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Params      []ParamSpec `json:"params"`
}

// Validate checks that the descriptor is well-formed: non-empty unique
// name, and every param passing its own bounds invariant with no
// duplicate param names.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("descriptor has empty name")
	}
	seen := make(map[string]struct{}, len(d.Params))
	for _, p := range d.Params {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("descriptor %q: %w", d.Name, err)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("descriptor %q: duplicate param %q", d.Name, p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}

// Transformation is a capability implementation. Apply must be
// stateless across invocations and must not mutate its input image;
// the caller owns the input and receives a freshly allocated output.
type Transformation interface {
	Descriptor() Descriptor
	Apply(img image.Image, params map[string]any) (image.Image, error)
}

// NormalizeParams fills defaults for every declared param that is
// absent from given. Present values pass through verbatim, with no
// range clamping; out-of-range values are the transformation's
// problem. Range kinds synthesize "{name}_low" and "{name}_high" keys
// from their defaults when the base key is absent. Unknown extra keys
// in given pass through unexamined. The function is pure and total.
func NormalizeParams(desc Descriptor, given map[string]any) map[string]any {
	out := make(map[string]any, len(desc.Params)+len(given))
	for k, v := range given {
		out[k] = v
	}
	for _, p := range desc.Params {
		if _, ok := given[p.Name]; ok {
			continue
		}
		if p.Kind == KindRange {
			if _, ok := given[p.Name+"_low"]; !ok {
				out[p.Name+"_low"] = p.DefaultLow
			}
			if _, ok := given[p.Name+"_high"]; !ok {
				out[p.Name+"_high"] = p.DefaultHigh
			}
			continue
		}
		out[p.Name] = p.Default
	}
	return out
}

// toFloat widens the numeric types a default may arrive as, including
// JSON-decoded float64 values.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Param accessors used by transformations. Lookups tolerate both the
// native Go types used in tests and float64 values arriving from JSON.

// FloatParam reads a float parameter, falling back to def.
func FloatParam(params map[string]any, name string, def float64) float64 {
	if v, ok := params[name]; ok {
		if f, ok := toFloat(v); ok {
			return f
		}
	}
	return def
}

// IntParam reads an int parameter, falling back to def.
func IntParam(params map[string]any, name string, def int) int {
	if v, ok := params[name]; ok {
		if f, ok := toFloat(v); ok {
			return int(f)
		}
	}
	return def
}

// BoolParam reads a bool parameter, falling back to def.
func BoolParam(params map[string]any, name string, def bool) bool {
	if v, ok := params[name].(bool); ok {
		return v
	}
	return def
}

// StringParam reads a string parameter, falling back to def.
func StringParam(params map[string]any, name string, def string) string {
	if v, ok := params[name].(string); ok {
		return v
	}
	return def
}
