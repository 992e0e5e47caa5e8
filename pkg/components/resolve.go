package components

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/operator-framework/hasco/internal/solver"
)

type variable struct {
	id          solver.Identifier
	constraints []solver.Constraint
	component   *Component
}

func (v *variable) Identifier() solver.Identifier {
	return v.id
}

func (v *variable) Constraints() []solver.Constraint {
	return v.constraints
}

func interfaceID(iface string) solver.Identifier {
	return solver.Identifier("interface/" + iface)
}

func componentID(name string) solver.Identifier {
	return solver.Identifier("component/" + name)
}

type ResolveOption func(*resolveConfig)

type resolveConfig struct {
	logger   *zap.Logger
	trace    io.Writer
	excluded []string
}

func WithLogger(logger *zap.Logger) ResolveOption {
	return func(c *resolveConfig) {
		c.logger = logger
	}
}

// WithTraceWriter writes every backtracking step of the solver to w
// instead of logging it.
func WithTraceWriter(w io.Writer) ResolveOption {
	return func(c *resolveConfig) {
		c.trace = w
	}
}

// WithExcluded keeps the named components out of the resolution.
func WithExcluded(names ...string) ResolveOption {
	return func(c *resolveConfig) {
		c.excluded = append(c.excluded, names...)
	}
}

// Variables encodes the repository for the solver. The requested
// interface is mandatory, every interface needs one of its providers in
// declaration order of preference, every component needs each interface
// it requires and conflicting components exclude each other.
func Variables(repo *Repository, requested string) []solver.Variable {
	var out []solver.Variable
	for _, iface := range repo.Interfaces() {
		providers := repo.Providers(iface)
		ids := make([]solver.Identifier, len(providers))
		for i, c := range providers {
			ids[i] = componentID(c.Name)
		}
		v := &variable{id: interfaceID(iface)}
		if iface == requested {
			v.constraints = append(v.constraints, solver.Mandatory())
		}
		v.constraints = append(v.constraints, solver.Dependency(ids...))
		out = append(out, v)
	}
	if !hasInterface(repo, requested) {
		out = append(out, &variable{
			id:          interfaceID(requested),
			constraints: []solver.Constraint{solver.Mandatory(), solver.Dependency()},
		})
	}
	for _, c := range repo.Components() {
		v := &variable{id: componentID(c.Name), component: c}
		for _, r := range c.Required {
			v.constraints = append(v.constraints, solver.Dependency(interfaceID(r.Interface)))
		}
		for _, other := range c.Conflicts {
			v.constraints = append(v.constraints, solver.Conflict(componentID(other)))
		}
		out = append(out, v)
	}
	return out
}

func hasInterface(repo *Repository, iface string) bool {
	for _, i := range repo.Interfaces() {
		if i == iface {
			return true
		}
	}
	return false
}

// Resolve checks that a complete instance providing requested can be
// built from repo without the excluded components. It returns a smallest
// set of components that does, in declaration order, or a
// solver.NotSatisfiable error naming the constraints that prevent it.
func Resolve(ctx context.Context, repo *Repository, requested string, opts ...ResolveOption) ([]*Component, error) {
	cfg := resolveConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	variables := Variables(repo, requested)
	for _, name := range cfg.excluded {
		if _, ok := repo.Component(name); !ok {
			return nil, fmt.Errorf("%w: cannot exclude unknown component %q", ErrInvalidRepository, name)
		}
		for _, v := range variables {
			if cv, ok := v.(*variable); ok && cv.component != nil && cv.component.Name == name {
				cv.constraints = append(cv.constraints, solver.Prohibited())
			}
		}
	}
	var tracer solver.Tracer = solver.ZapTracer{Logger: cfg.logger}
	if cfg.trace != nil {
		tracer = solver.LoggingTracer{Writer: cfg.trace}
	}
	s, err := solver.New(solver.WithInput(variables), solver.WithTracer(tracer))
	if err != nil {
		return nil, err
	}
	selected, err := s.Solve(ctx)
	if err != nil {
		return nil, fmt.Errorf("interface %q cannot be resolved: %w", requested, err)
	}
	chosen := map[string]struct{}{}
	for _, v := range selected {
		if cv, ok := v.(*variable); ok && cv.component != nil {
			chosen[cv.component.Name] = struct{}{}
		}
	}
	var out []*Component
	for _, c := range repo.Components() {
		if _, ok := chosen[c.Name]; ok {
			out = append(out, c)
		}
	}
	cfg.logger.Debug("resolved interface", zap.String("interface", requested), zap.Int("components", len(out)))
	return out, nil
}
