package planner_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/operator-framework/hasco/pkg/event"
	"github.com/operator-framework/hasco/pkg/logic"
	"github.com/operator-framework/hasco/pkg/planner"
	"github.com/operator-framework/hasco/pkg/planning"
	"github.com/operator-framework/hasco/pkg/search"
)

var (
	x = logic.Variable("x")
	y = logic.Variable("y")
	z = logic.Variable("z")
)

// blocksProblem stacks blocks onto a table-top tower.
func blocksProblem(goal ...string) *planning.Problem {
	return &planning.Problem{
		Domain: &planning.Domain{Operators: []*planning.Operator{
			{
				Name:         "stack",
				Params:       []logic.Term{x, y},
				Precondition: logic.MustParseLiterals("clear(?x)", "clear(?y)", "table(?x)", "!same(?x, ?y)"),
				Add:          logic.MustParseLiterals("on(?x, ?y)"),
				Delete:       logic.MustParseLiterals("clear(?y)", "table(?x)"),
			},
			{
				Name:         "unstack",
				Params:       []logic.Term{x, y},
				Precondition: logic.MustParseLiterals("on(?x, ?y)", "clear(?x)"),
				Add:          logic.MustParseLiterals("clear(?y)", "table(?x)"),
				Delete:       logic.MustParseLiterals("on(?x, ?y)"),
			},
		}},
		Init: logic.MustParseFactSet(
			"clear(a)", "clear(b)", "clear(c)",
			"table(a)", "table(b)", "table(c)",
			"same(a, a)", "same(b, b)", "same(c, c)",
		),
		Goal: planning.GoalState(logic.MustParseLiterals(goal...)),
	}
}

func hierarchicalProblem(evaluable ...string) *planning.Problem {
	return &planning.Problem{
		Domain: &planning.Domain{
			Operators: []*planning.Operator{{
				Name: "go", Params: []logic.Term{x, y},
				Precondition: logic.MustParseLiterals("at(?x)"),
				Add:          logic.MustParseLiterals("at(?y)"),
				Delete:       logic.MustParseLiterals("at(?x)"),
			}},
			Methods: []*planning.Method{{
				Name: "travel", Params: []logic.Term{x, y, z},
				Task:         logic.MustParseLiteral("visit(?y)"),
				Precondition: logic.MustParseLiterals("at(?x)"),
				Evaluable:    logic.MustParseLiterals(evaluable...),
				Network:      logic.MustParseLiterals("go(?x, ?y)"),
				Outputs:      []logic.Term{z},
			}},
			Evaluables: map[string]planning.EvaluablePredicate{
				"road": planning.Relation(logic.Constants("home", "park"), logic.Constants("park", "lake")),
			},
		},
		Init:  logic.MustParseFactSet("at(home)"),
		Tasks: logic.MustParseLiterals("visit(park)"),
	}
}

var _ = Describe("Planner", func() {
	It("returns valid plans reaching the goal, shortest first", func() {
		problem := blocksProblem("on(a, b)", "on(b, c)")
		p, err := planner.New(problem)
		Expect(err).ToNot(HaveOccurred())
		Expect(p.State()).To(Equal(planner.Created))

		evt, err := p.NextPlan(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(p.State()).To(Equal(planner.Active))

		plan := evt.Data().Plan
		Expect(evt.Data().Steps).To(Equal([]string{"stack(b, c)", "stack(a, b)"}))
		final, ok := plan.Apply(problem.Init)
		Expect(ok).To(BeTrue())
		Expect(problem.Goal.IsGoal(final)).To(BeTrue())
	})

	It("terminates with ErrNoMorePlans once the space is exhausted", func() {
		p, err := planner.New(blocksProblem("on(a, a)"))
		Expect(err).ToNot(HaveOccurred())
		_, err = p.NextPlan(context.Background())
		Expect(err).To(MatchError(planner.ErrNoMorePlans))
		Expect(p.State()).To(Equal(planner.Terminated))
		_, err = p.NextPlan(context.Background())
		Expect(err).To(MatchError(planner.ErrNoMorePlans))
	})

	It("publishes every plan", func() {
		bus := event.NewBus()
		plans, stop := event.Collect[event.PlanFound](bus)
		defer stop()
		p, err := planner.New(blocksProblem("on(a, b)"), planner.WithEventBus(bus))
		Expect(err).ToNot(HaveOccurred())
		for i := 0; i < 3; i++ {
			_, err := p.NextPlan(context.Background())
			Expect(err).ToNot(HaveOccurred())
		}
		Expect(plans()).To(HaveLen(3))
	})

	It("keeps planning through states that already satisfy the goal", func() {
		problem := blocksProblem("on(a, b)")
		p, err := planner.New(problem)
		Expect(err).ToNot(HaveOccurred())

		var plans [][]string
		for {
			evt, err := p.NextPlan(context.Background())
			if err != nil {
				Expect(err).To(MatchError(planner.ErrNoMorePlans))
				break
			}
			final, ok := evt.Data().Plan.Apply(problem.Init)
			Expect(ok).To(BeTrue())
			Expect(problem.Goal.IsGoal(final)).To(BeTrue())
			plans = append(plans, evt.Data().Steps)
		}
		Expect(plans[0]).To(Equal([]string{"stack(a, b)"}))
		Expect(plans).To(ContainElement([]string{"stack(a, b)", "stack(c, a)"}))
		Expect(plans).To(ContainElement([]string{"stack(b, c)", "stack(a, b)"}))
	})

	It("stops after Cancel", func() {
		p, err := planner.New(blocksProblem("on(a, b)"))
		Expect(err).ToNot(HaveOccurred())
		_, err = p.NextPlan(context.Background())
		Expect(err).ToNot(HaveOccurred())
		p.Cancel()
		p.Cancel()
		Expect(p.State()).To(Equal(planner.Terminated))
		_, err = p.NextPlan(context.Background())
		Expect(err).To(MatchError(planner.ErrNoMorePlans))
	})

	It("can be canceled before it starts", func() {
		p, err := planner.New(blocksProblem("on(a, b)"))
		Expect(err).ToNot(HaveOccurred())
		p.Cancel()
		_, err = p.NextPlan(context.Background())
		Expect(err).To(MatchError(planner.ErrNoMorePlans))
	})

	It("treats a done context and an expired timeout as orderly termination", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p, err := planner.New(blocksProblem("on(a, b)"))
		Expect(err).ToNot(HaveOccurred())
		_, err = p.NextPlan(ctx)
		Expect(err).To(MatchError(planner.ErrNoMorePlans))

		p, err = planner.New(blocksProblem("on(a, b)"), planner.WithTimeout(time.Nanosecond))
		Expect(err).ToNot(HaveOccurred())
		_, err = p.NextPlan(context.Background())
		Expect(err).To(MatchError(planner.ErrNoMorePlans))
		Expect(p.State()).To(Equal(planner.Terminated))
	})

	It("rejects invalid problems with a modeling error", func() {
		problem := blocksProblem("on(a, b)")
		problem.Init.Add(logic.MustParseLiteral("on(?x, b)"))
		_, err := planner.New(problem)
		Expect(planning.IsModelingError(err)).To(BeTrue())
		Expect(errors.Is(err, planning.ErrNotGround)).To(BeTrue())

		problem = blocksProblem()
		problem.Goal = nil
		_, err = planner.New(problem)
		Expect(errors.Is(err, planning.ErrInvalidSchema)).To(BeTrue())

		_, err = planner.New(blocksProblem("on(a, b)"), planner.WithSampleLimit(0))
		Expect(err).To(HaveOccurred())
	})

	It("plans hierarchically without method instances in the plan", func() {
		problem := hierarchicalProblem("road(?x, ?y)")
		p, err := planner.New(problem, planner.WithAlgorithm(search.RandomizedDepthFirstFactory[planner.Node]), planner.WithSeed(4))
		Expect(err).ToNot(HaveOccurred())
		evt, err := p.NextPlan(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(evt.Data().Steps).To(Equal([]string{"go(home, park)"}))

		_, err = p.NextPlan(context.Background())
		Expect(err).To(MatchError(planner.ErrNoMorePlans))
	})

	It("surfaces modeling errors found while grounding", func() {
		p, err := planner.New(hierarchicalProblem("road(?y, ?x)", "road(?z, ?w)"))
		Expect(errors.Is(err, planning.ErrUndeclaredParameter)).To(BeTrue())
		Expect(p).To(BeNil())

		p, err = planner.New(hierarchicalProblem("!road(?x, ?z)"))
		Expect(err).ToNot(HaveOccurred())
		_, err = p.NextPlan(context.Background())
		Expect(err).ToNot(MatchError(planner.ErrNoMorePlans))
		Expect(errors.Is(err, planning.ErrNotOracable)).To(BeTrue())
		Expect(p.State()).To(Equal(planner.Terminated))
	})
})
