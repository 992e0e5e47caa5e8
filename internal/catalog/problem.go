package catalog

import (
	"fmt"
	"io"

	"github.com/operator-framework/hasco/pkg/logic"
	"github.com/operator-framework/hasco/pkg/planning"
)

type effectDocument struct {
	When []string `yaml:"when"`
	Add  []string `yaml:"add"`
	Del  []string `yaml:"del"`
}

type operatorDocument struct {
	Name    string           `yaml:"name"`
	Params  []string         `yaml:"params"`
	Pre     []string         `yaml:"pre"`
	Add     []string         `yaml:"add"`
	Del     []string         `yaml:"del"`
	Effects []effectDocument `yaml:"effects"`
}

type methodDocument struct {
	Name      string   `yaml:"name"`
	Params    []string `yaml:"params"`
	Task      string   `yaml:"task"`
	Pre       []string `yaml:"pre"`
	Evaluable []string `yaml:"evaluable"`
	Network   []string `yaml:"network"`
	Outputs   []string `yaml:"outputs"`
	Lonely    bool     `yaml:"lonely"`
}

// ProblemDocument is the YAML form of a planning problem. Relations
// declare oracable evaluable predicates by their tuples.
type ProblemDocument struct {
	Operators []operatorDocument    `yaml:"operators"`
	Methods   []methodDocument      `yaml:"methods"`
	Relations map[string][][]string `yaml:"relations"`
	Init      []string              `yaml:"init"`
	Goal      []string              `yaml:"goal"`
	Tasks     []string              `yaml:"tasks"`
	Objects   []string              `yaml:"objects"`
}

func LoadProblem(r io.Reader) (*planning.Problem, error) {
	var doc ProblemDocument
	if err := decode(r, &doc); err != nil {
		return nil, err
	}
	return doc.Problem()
}

func LoadProblemFile(path string) (*planning.Problem, error) {
	var doc ProblemDocument
	if err := decodeFile(path, &doc); err != nil {
		return nil, err
	}
	return doc.Problem()
}

func literals(ss []string) ([]logic.Literal, error) {
	out := make([]logic.Literal, 0, len(ss))
	for _, s := range ss {
		l, err := logic.ParseLiteral(s)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func terms(ss []string) []logic.Term {
	out := make([]logic.Term, len(ss))
	for i, s := range ss {
		out[i] = logic.ParseTerm(s)
	}
	return out
}

// Problem converts the document. The result is not validated.
func (d ProblemDocument) Problem() (*planning.Problem, error) {
	domain := &planning.Domain{}
	for _, o := range d.Operators {
		op := &planning.Operator{Name: o.Name, Params: terms(o.Params)}
		var err error
		if op.Precondition, err = literals(o.Pre); err != nil {
			return nil, fmt.Errorf("operator %s: %w", o.Name, err)
		}
		if op.Add, err = literals(o.Add); err != nil {
			return nil, fmt.Errorf("operator %s: %w", o.Name, err)
		}
		if op.Delete, err = literals(o.Del); err != nil {
			return nil, fmt.Errorf("operator %s: %w", o.Name, err)
		}
		for _, e := range o.Effects {
			var effect planning.ConditionalEffect
			if effect.Condition, err = literals(e.When); err != nil {
				return nil, fmt.Errorf("operator %s: %w", o.Name, err)
			}
			if effect.Add, err = literals(e.Add); err != nil {
				return nil, fmt.Errorf("operator %s: %w", o.Name, err)
			}
			if effect.Delete, err = literals(e.Del); err != nil {
				return nil, fmt.Errorf("operator %s: %w", o.Name, err)
			}
			op.Effects = append(op.Effects, effect)
		}
		domain.Operators = append(domain.Operators, op)
	}

	for _, m := range d.Methods {
		method := &planning.Method{Name: m.Name, Params: terms(m.Params), Outputs: terms(m.Outputs), Lonely: m.Lonely}
		var err error
		if method.Task, err = logic.ParseLiteral(m.Task); err != nil {
			return nil, fmt.Errorf("method %s: %w", m.Name, err)
		}
		if method.Precondition, err = literals(m.Pre); err != nil {
			return nil, fmt.Errorf("method %s: %w", m.Name, err)
		}
		if method.Evaluable, err = literals(m.Evaluable); err != nil {
			return nil, fmt.Errorf("method %s: %w", m.Name, err)
		}
		if method.Network, err = literals(m.Network); err != nil {
			return nil, fmt.Errorf("method %s: %w", m.Name, err)
		}
		domain.Methods = append(domain.Methods, method)
	}

	if len(d.Relations) > 0 {
		domain.Evaluables = make(map[string]planning.EvaluablePredicate, len(d.Relations))
		for name, rows := range d.Relations {
			tuples := make([][]logic.Term, len(rows))
			for i, row := range rows {
				tuples[i] = logic.Constants(row...)
			}
			domain.Evaluables[name] = planning.Relation(tuples...)
		}
	}

	initial, err := literals(d.Init)
	if err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	tasks, err := literals(d.Tasks)
	if err != nil {
		return nil, fmt.Errorf("tasks: %w", err)
	}
	p := &planning.Problem{
		Domain:  domain,
		Init:    logic.NewFactSet(initial...),
		Tasks:   tasks,
		Objects: logic.Constants(d.Objects...),
	}
	if len(d.Goal) > 0 {
		goal, err := literals(d.Goal)
		if err != nil {
			return nil, fmt.Errorf("goal: %w", err)
		}
		p.Goal = planning.GoalState(goal)
	}
	return p, nil
}
