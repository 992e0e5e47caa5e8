package components

import (
	"fmt"
	"sort"
)

// Repository is an immutable, validated set of components.
type Repository struct {
	components []*Component
	byName     map[string]*Component
}

func NewRepository(components ...Component) (*Repository, error) {
	r := &Repository{byName: make(map[string]*Component, len(components))}
	for i := range components {
		c := components[i]
		if err := c.validate(); err != nil {
			return nil, err
		}
		if _, ok := r.byName[c.Name]; ok {
			return nil, fmt.Errorf("%w: component %q declared twice", ErrInvalidRepository, c.Name)
		}
		r.components = append(r.components, &c)
		r.byName[c.Name] = &c
	}
	for _, c := range r.components {
		for _, other := range c.Conflicts {
			if _, ok := r.byName[other]; !ok {
				return nil, fmt.Errorf("%w: component %q conflicts with unknown component %q", ErrInvalidRepository, c.Name, other)
			}
		}
	}
	return r, nil
}

// Conflicting reports whether a and b must not be used together. Conflicts
// are symmetric.
func (r *Repository) Conflicting(a, b string) bool {
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		if c, ok := r.byName[pair[0]]; ok {
			for _, other := range c.Conflicts {
				if other == pair[1] {
					return true
				}
			}
		}
	}
	return false
}

// Components returns the components in declaration order.
func (r *Repository) Components() []*Component {
	return append([]*Component(nil), r.components...)
}

func (r *Repository) Component(name string) (*Component, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// Providers returns the components providing iface in declaration order.
func (r *Repository) Providers(iface string) []*Component {
	var out []*Component
	for _, c := range r.components {
		if c.Provides(iface) {
			out = append(out, c)
		}
	}
	return out
}

// Interfaces returns every interface that is provided or required by
// some component, sorted.
func (r *Repository) Interfaces() []string {
	seen := map[string]struct{}{}
	for _, c := range r.components {
		for _, p := range c.Provided {
			seen[p] = struct{}{}
		}
		for _, req := range c.Required {
			seen[req.Interface] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	sort.Strings(out)
	return out
}

func (r *Repository) Len() int {
	return len(r.components)
}
