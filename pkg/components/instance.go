package components

import (
	"fmt"
	"sort"
	"strings"
)

// Instance is a component together with a value for each of its
// parameters and a nested instance for each of its requirements.
type Instance struct {
	Component    string               `json:"component"`
	Parameters   map[string]string    `json:"parameters,omitempty"`
	Satisfaction map[string]*Instance `json:"satisfaction,omitempty"`
}

// Key identifies the instance by its whole structure. Equal keys mean
// equal configurations.
func (i *Instance) Key() string {
	var b strings.Builder
	i.write(&b)
	return b.String()
}

func (i *Instance) String() string {
	if i == nil {
		return "<nil>"
	}
	return i.Key()
}

func (i *Instance) write(b *strings.Builder) {
	if i == nil {
		b.WriteString("_")
		return
	}
	b.WriteString(i.Component)
	if len(i.Parameters) > 0 {
		b.WriteString("{")
		for n, name := range sortedKeys(i.Parameters) {
			if n > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%s=%s", name, i.Parameters[name])
		}
		b.WriteString("}")
	}
	if len(i.Satisfaction) > 0 {
		b.WriteString("(")
		for n, id := range sortedKeys(i.Satisfaction) {
			if n > 0 {
				b.WriteString(", ")
			}
			b.WriteString(id)
			b.WriteString(": ")
			i.Satisfaction[id].write(b)
		}
		b.WriteString(")")
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Components returns the component names of the instance tree in
// depth-first order, requirements visited by id.
func (i *Instance) Components() []string {
	if i == nil {
		return nil
	}
	out := []string{i.Component}
	for _, id := range sortedKeys(i.Satisfaction) {
		out = append(out, i.Satisfaction[id].Components()...)
	}
	return out
}

// Validate checks the instance tree against repo: every component exists,
// every parameter is set to an accepted value, every requirement is
// satisfied by a provider of the required interface and no two components
// of the tree conflict.
func (i *Instance) Validate(repo *Repository) error {
	if err := i.validate(repo, ""); err != nil {
		return err
	}
	used := i.Components()
	for x := range used {
		for y := x + 1; y < len(used); y++ {
			if repo.Conflicting(used[x], used[y]) {
				return fmt.Errorf("%w: %q conflicts with %q", ErrInvalidInstance, used[x], used[y])
			}
		}
	}
	return nil
}

func (i *Instance) validate(repo *Repository, path string) error {
	if i == nil {
		return fmt.Errorf("%w: missing instance at %q", ErrInvalidInstance, path)
	}
	c, ok := repo.Component(i.Component)
	if !ok {
		return fmt.Errorf("%w: unknown component %q at %q", ErrInvalidInstance, i.Component, path)
	}
	for _, p := range c.Parameters {
		v, ok := i.Parameters[p.Name]
		if !ok {
			return fmt.Errorf("%w: parameter %s.%s is not set", ErrInvalidInstance, c.Name, p.Name)
		}
		if !p.Accepts(v) {
			return fmt.Errorf("%w: value %q of parameter %s.%s is not in its domain", ErrInvalidInstance, v, c.Name, p.Name)
		}
	}
	for name := range i.Parameters {
		if _, ok := c.Parameter(name); !ok {
			return fmt.Errorf("%w: component %q has no parameter %q", ErrInvalidInstance, c.Name, name)
		}
	}
	for id := range i.Satisfaction {
		if _, ok := c.Requirement(id); !ok {
			return fmt.Errorf("%w: component %q has no requirement %q", ErrInvalidInstance, c.Name, id)
		}
	}
	for _, r := range c.Required {
		child := i.Satisfaction[r.ID]
		childPath := path + "/" + r.ID
		if err := child.validate(repo, childPath); err != nil {
			return err
		}
		provider, _ := repo.Component(child.Component)
		if !provider.Provides(r.Interface) {
			return fmt.Errorf("%w: %q at %q does not provide %q", ErrInvalidInstance, child.Component, childPath, r.Interface)
		}
	}
	return nil
}

// Defaults returns an instance of c with every parameter at its default,
// or the first value of its domain, and no requirements filled.
func Defaults(c *Component) *Instance {
	i := &Instance{Component: c.Name, Parameters: map[string]string{}}
	for _, p := range c.Parameters {
		v := p.Default
		if v == "" {
			v = p.Domain()[0]
		}
		i.Parameters[p.Name] = v
	}
	return i
}
