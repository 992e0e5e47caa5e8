package catalog

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/operator-framework/hasco/pkg/components"
)

// RepositoryDocument is the YAML form of a component repository together
// with an optional cost model.
type RepositoryDocument struct {
	Components []components.Component `yaml:"components"`
	Costs      *CostModel             `yaml:"costs,omitempty"`
}

func LoadRepository(r io.Reader) (*components.Repository, *CostModel, error) {
	var doc RepositoryDocument
	if err := decode(r, &doc); err != nil {
		return nil, nil, err
	}
	return doc.build()
}

func LoadRepositoryFile(path string) (*components.Repository, *CostModel, error) {
	var doc RepositoryDocument
	if err := decodeFile(path, &doc); err != nil {
		return nil, nil, err
	}
	return doc.build()
}

func (d RepositoryDocument) build() (*components.Repository, *CostModel, error) {
	repo, err := components.NewRepository(d.Components...)
	if err != nil {
		return nil, nil, err
	}
	return repo, d.Costs, nil
}

// CostModel scores an instance by adding up the cost of every component
// in it and of every parameter value it sets. Numeric parameters may
// instead carry a weight that is multiplied with their value.
type CostModel struct {
	Components map[string]float64            `yaml:"components,omitempty"`
	Values     map[string]map[string]float64 `yaml:"values,omitempty"`
	Weights    map[string]float64            `yaml:"weights,omitempty"`
}

func parameterKey(component, parameter string) string {
	return component + "." + parameter
}

// Evaluate implements twophase.Evaluator.
func (m *CostModel) Evaluate(ctx context.Context, instance *components.Instance) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if instance == nil {
		return 0, fmt.Errorf("cannot score a missing instance")
	}
	total := m.Components[instance.Component]
	for name, value := range instance.Parameters {
		key := parameterKey(instance.Component, name)
		total += m.Values[key][value]
		if w, ok := m.Weights[key]; ok {
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return 0, fmt.Errorf("parameter %s: %w", key, err)
			}
			total += w * f
		}
	}
	for _, child := range instance.Satisfaction {
		c, err := m.Evaluate(ctx, child)
		if err != nil {
			return 0, err
		}
		total += c
	}
	return total, nil
}
