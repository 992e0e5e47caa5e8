// Package hasco searches component configurations by reducing them to
// hierarchical planning problems: every plan of the reduced problem builds
// one complete component instance.
package hasco

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/operator-framework/hasco/pkg/components"
	"github.com/operator-framework/hasco/pkg/logic"
	"github.com/operator-framework/hasco/pkg/planning"
)

// Root is the object the requested interface is satisfied for.
const Root = "root"

const (
	componentPredicate = "component"
	bindingPredicate   = "binding"
	paramPredicate     = "param"
)

// ErrUnresolvable is returned by Reduce when no finite instance of the
// requested interface exists.
var ErrUnresolvable = errors.New("interface cannot be resolved")

// Reduction is the planning problem for one requested interface.
type Reduction struct {
	Problem   *planning.Problem
	Interface string
	// Components are the components that take part in at least one
	// complete instance, in repository order.
	Components []*components.Component
}

func satisfyTask(iface string) string {
	return "satisfy_" + iface
}

func setupOperator(c *components.Component) string {
	return "setup_" + c.Name
}

func refineTask(c *components.Component, p components.Parameter) string {
	return "refine_" + c.Name + "_" + p.Name
}

func setOperator(c *components.Component, p components.Parameter) string {
	return "set_" + c.Name + "_" + p.Name
}

func domainPredicate(c *components.Component, p components.Parameter) string {
	return "domain_" + c.Name + "_" + p.Name
}

// viable returns the components whose requirements can all be met
// without recursion, by name.
func viable(repo *components.Repository) map[string]bool {
	ok := map[string]bool{}
	for changed := true; changed; {
		changed = false
		for _, c := range repo.Components() {
			if ok[c.Name] || !satisfiable(repo, c, ok) {
				continue
			}
			ok[c.Name] = true
			changed = true
		}
	}
	return ok
}

func satisfiable(repo *components.Repository, c *components.Component, ok map[string]bool) bool {
	for _, r := range c.Required {
		found := false
		for _, p := range repo.Providers(r.Interface) {
			if ok[p.Name] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Reduce builds the planning problem whose plans are exactly the
// instances of requested that repo admits. Components that cannot be
// completed are left out.
func Reduce(repo *components.Repository, requested string) (*Reduction, error) {
	ok := viable(repo)
	r := &Reduction{Interface: requested}
	for _, c := range repo.Components() {
		if ok[c.Name] {
			r.Components = append(r.Components, c)
		}
	}
	provided := false
	for _, c := range r.Components {
		if c.Provides(requested) {
			provided = true
			break
		}
	}
	if !provided {
		if _, err := components.Resolve(context.Background(), repo, requested); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnresolvable, err)
		}
		return nil, fmt.Errorf("%w: every instance of %q would be infinite", ErrUnresolvable, requested)
	}

	obj, v := logic.Variable("obj"), logic.Variable("v")
	domain := &planning.Domain{Evaluables: map[string]planning.EvaluablePredicate{}}
	for _, c := range r.Components {
		children := make([]logic.Term, len(c.Required))
		for i := range c.Required {
			children[i] = logic.Variable("c" + strconv.Itoa(i))
		}

		setup := &planning.Operator{
			Name:   setupOperator(c),
			Params: append([]logic.Term{obj}, children...),
			Add:    []logic.Literal{logic.NewLiteral(componentPredicate, obj, logic.Constant(c.Name))},
		}
		for i, req := range c.Required {
			setup.Add = append(setup.Add, logic.NewLiteral(bindingPredicate, obj, logic.Constant(req.ID), children[i]))
		}
		domain.Operators = append(domain.Operators, setup)

		network := []logic.Literal{logic.NewLiteral(setupOperator(c), setup.Params...)}
		for _, p := range c.Parameters {
			network = append(network, logic.NewLiteral(refineTask(c, p), obj))

			values := p.Domain()
			tuples := make([][]logic.Term, len(values))
			for i, value := range values {
				tuples[i] = []logic.Term{logic.Constant(value)}
			}
			domain.Evaluables[domainPredicate(c, p)] = planning.Relation(tuples...)
			domain.Methods = append(domain.Methods, &planning.Method{
				Name:      "refine_" + c.Name + "_" + p.Name + "_value",
				Params:    []logic.Term{obj, v},
				Task:      logic.NewLiteral(refineTask(c, p), obj),
				Evaluable: []logic.Literal{logic.NewLiteral(domainPredicate(c, p), v)},
				Network:   []logic.Literal{logic.NewLiteral(setOperator(c, p), obj, v)},
			})
			domain.Operators = append(domain.Operators, &planning.Operator{
				Name:   setOperator(c, p),
				Params: []logic.Term{obj, v},
				Add:    []logic.Literal{logic.NewLiteral(paramPredicate, obj, logic.Constant(p.Name), v)},
			})
		}
		for i, req := range c.Required {
			network = append(network, logic.NewLiteral(satisfyTask(req.Interface), children[i]))
		}

		for _, iface := range c.Provided {
			domain.Methods = append(domain.Methods, &planning.Method{
				Name:    "use_" + c.Name + "_for_" + iface,
				Params:  setup.Params,
				Task:    logic.NewLiteral(satisfyTask(iface), obj),
				Network: network,
				Outputs: children,
			})
		}
	}

	r.Problem = &planning.Problem{
		Domain:  domain,
		Init:    logic.NewFactSet(),
		Tasks:   []logic.Literal{logic.NewLiteral(satisfyTask(requested), logic.Constant(Root))},
		Objects: []logic.Term{logic.Constant(Root)},
	}
	if err := r.Problem.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}
