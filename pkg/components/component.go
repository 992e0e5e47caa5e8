// Package components models software components that provide and require
// interfaces and expose tunable parameters, together with the nested
// component instances that configure them.
package components

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrInvalidRepository = errors.New("invalid component repository")
	ErrInvalidInstance   = errors.New("invalid component instance")
)

type Kind int

const (
	Categorical Kind = iota
	Numeric
	Boolean
)

func (k Kind) String() string {
	switch k {
	case Categorical:
		return "categorical"
	case Numeric:
		return "numeric"
	case Boolean:
		return "boolean"
	}
	return "unknown"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "categorical", "":
		return Categorical, nil
	case "numeric":
		return Numeric, nil
	case "boolean":
		return Boolean, nil
	}
	return Categorical, fmt.Errorf("unknown parameter kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Parameter is a tunable setting of a component. Numeric parameters are
// discretized into Steps evenly spaced values between Min and Max.
type Parameter struct {
	Name    string   `yaml:"name" json:"name"`
	Kind    Kind     `yaml:"kind" json:"kind"`
	Values  []string `yaml:"values,omitempty" json:"values,omitempty"`
	Min     float64  `yaml:"min,omitempty" json:"min,omitempty"`
	Max     float64  `yaml:"max,omitempty" json:"max,omitempty"`
	Steps   int      `yaml:"steps,omitempty" json:"steps,omitempty"`
	Default string   `yaml:"default,omitempty" json:"default,omitempty"`
}

// Domain returns the serialized values the parameter may take.
func (p Parameter) Domain() []string {
	switch p.Kind {
	case Categorical:
		return append([]string(nil), p.Values...)
	case Numeric:
		if p.Steps <= 1 || p.Max == p.Min {
			return []string{formatFloat(p.Min)}
		}
		values := make([]string, p.Steps)
		step := (p.Max - p.Min) / float64(p.Steps-1)
		for i := range values {
			values[i] = formatFloat(p.Min + float64(i)*step)
		}
		values[len(values)-1] = formatFloat(p.Max)
		return values
	case Boolean:
		return []string{"true", "false"}
	}
	return nil
}

// Accepts reports whether value is a valid setting. Numeric parameters
// accept any number within bounds, not only the discretized domain.
func (p Parameter) Accepts(value string) bool {
	switch p.Kind {
	case Categorical:
		for _, v := range p.Values {
			if v == value {
				return true
			}
		}
		return false
	case Numeric:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(f) {
			return false
		}
		return f >= math.Min(p.Min, p.Max) && f <= math.Max(p.Min, p.Max)
	case Boolean:
		_, err := strconv.ParseBool(value)
		return err == nil
	}
	return false
}

func (p Parameter) validate(component string) error {
	if p.Name == "" {
		return fmt.Errorf("%w: component %q has a parameter without a name", ErrInvalidRepository, component)
	}
	if len(p.Domain()) == 0 {
		return fmt.Errorf("%w: parameter %s.%s has an empty domain", ErrInvalidRepository, component, p.Name)
	}
	if p.Default != "" && !p.Accepts(p.Default) {
		return fmt.Errorf("%w: default %q of parameter %s.%s is not in its domain", ErrInvalidRepository, p.Default, component, p.Name)
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Requirement is a named slot of a component that must be filled by a
// component providing Interface.
type Requirement struct {
	ID        string `yaml:"id" json:"id"`
	Interface string `yaml:"interface" json:"interface"`
}

// Component provides interfaces, requires others and has parameters.
// Conflicts names components that must not be used together with it,
// anywhere in the same instance.
type Component struct {
	Name       string        `yaml:"name" json:"name"`
	Provided   []string      `yaml:"provides" json:"provides"`
	Required   []Requirement `yaml:"requires,omitempty" json:"requires,omitempty"`
	Parameters []Parameter   `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Conflicts  []string      `yaml:"conflicts,omitempty" json:"conflicts,omitempty"`
}

func (c *Component) Provides(iface string) bool {
	for _, p := range c.Provided {
		if p == iface {
			return true
		}
	}
	return false
}

func (c *Component) Parameter(name string) (Parameter, bool) {
	for _, p := range c.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

func (c *Component) Requirement(id string) (Requirement, bool) {
	for _, r := range c.Required {
		if r.ID == id {
			return r, true
		}
	}
	return Requirement{}, false
}

func (c *Component) validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: component without a name", ErrInvalidRepository)
	}
	if len(c.Provided) == 0 {
		return fmt.Errorf("%w: component %q provides no interface", ErrInvalidRepository, c.Name)
	}
	ids := map[string]struct{}{}
	for _, r := range c.Required {
		if r.ID == "" || r.Interface == "" {
			return fmt.Errorf("%w: component %q has an incomplete requirement", ErrInvalidRepository, c.Name)
		}
		if _, ok := ids[r.ID]; ok {
			return fmt.Errorf("%w: component %q declares requirement %q twice", ErrInvalidRepository, c.Name, r.ID)
		}
		ids[r.ID] = struct{}{}
	}
	names := map[string]struct{}{}
	for _, p := range c.Parameters {
		if err := p.validate(c.Name); err != nil {
			return err
		}
		if _, ok := names[p.Name]; ok {
			return fmt.Errorf("%w: component %q declares parameter %q twice", ErrInvalidRepository, c.Name, p.Name)
		}
		names[p.Name] = struct{}{}
	}
	for _, other := range c.Conflicts {
		if other == "" || other == c.Name {
			return fmt.Errorf("%w: component %q has an invalid conflict %q", ErrInvalidRepository, c.Name, other)
		}
	}
	return nil
}
