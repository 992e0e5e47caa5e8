package htn_test

import (
	"context"
	"math/rand"
	"sort"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/operator-framework/hasco/pkg/htn"
	"github.com/operator-framework/hasco/pkg/logic"
	"github.com/operator-framework/hasco/pkg/planning"
	"github.com/operator-framework/hasco/pkg/search"
)

var (
	p = logic.Variable("p")
	t = logic.Variable("t")
)

// deliveryProblem delivers a package either by truck or, when the package
// is marked as direct, in a single step.
func deliveryProblem() *planning.Problem {
	return &planning.Problem{
		Domain: &planning.Domain{
			Operators: []*planning.Operator{
				{
					Name: "load", Params: []logic.Term{p, t},
					Precondition: logic.MustParseLiterals("at(?p)"),
					Add:          logic.MustParseLiterals("in(?p, ?t)"),
					Delete:       logic.MustParseLiterals("at(?p)"),
				},
				{
					Name: "unload", Params: []logic.Term{p, t},
					Precondition: logic.MustParseLiterals("in(?p, ?t)"),
					Add:          logic.MustParseLiterals("delivered(?p)"),
					Delete:       logic.MustParseLiterals("in(?p, ?t)"),
				},
				{
					Name: "hand", Params: []logic.Term{p},
					Precondition: logic.MustParseLiterals("at(?p)"),
					Add:          logic.MustParseLiterals("delivered(?p)"),
					Delete:       logic.MustParseLiterals("at(?p)"),
				},
			},
			Methods: []*planning.Method{
				{
					Name: "by_truck", Params: []logic.Term{p, t},
					Task:    logic.MustParseLiteral("deliver(?p)"),
					Network: logic.MustParseLiterals("load(?p, ?t)", "unload(?p, ?t)"),
					Outputs: []logic.Term{t},
				},
				{
					Name: "direct", Params: []logic.Term{p},
					Task:         logic.MustParseLiteral("deliver(?p)"),
					Precondition: logic.MustParseLiterals("direct(?p)"),
					Network:      logic.MustParseLiterals("hand(?p)"),
				},
			},
		},
		Init:  logic.MustParseFactSet("at(pkg)"),
		Tasks: logic.MustParseLiterals("deliver(pkg)"),
	}
}

func plan(path search.Path[*htn.Node]) planning.Plan {
	var out planning.Plan
	for _, n := range path.Nodes {
		if a, ok := n.Action(); ok && a.Kind().IsPrimitive() {
			out.Actions = append(out.Actions, a)
		}
	}
	return out
}

var _ = Describe("GraphGenerator", func() {
	var (
		problem *planning.Problem
		gen     *htn.GraphGenerator
	)

	BeforeEach(func() {
		problem = deliveryProblem()
		var err error
		gen, err = htn.NewGraphGenerator(problem)
		Expect(err).ToNot(HaveOccurred())
	})

	It("decomposes the first task with applicable methods only", func() {
		root, err := gen.Root()
		Expect(err).ToNot(HaveOccurred())
		Expect(gen.IsGoal(root)).To(BeFalse())

		successors, err := gen.Successors(root)
		Expect(err).ToNot(HaveOccurred())
		Expect(successors).To(HaveLen(1))
		a, ok := successors[0].Action()
		Expect(ok).To(BeTrue())
		Expect(a.Kind()).To(Equal(planning.KindMethod))
		Expect(a.Name()).To(Equal("by_truck"))

		truck := a.Grounding().Resolve(t)
		Expect(truck.IsConstant()).To(BeTrue())
		Expect(successors[0].Tasks()).To(Equal([]logic.Literal{
			logic.NewLiteral("load", logic.Constant("pkg"), truck),
			logic.NewLiteral("unload", logic.Constant("pkg"), truck),
		}))
		Expect(successors[0].Delta().Equal(root.Delta())).To(BeTrue())
	})

	It("finds a plan of primitive actions that accomplishes the network", func() {
		dfs := search.NewRandomizedDepthFirst[*htn.Node](gen, search.WithRand(rand.New(rand.NewSource(1))))
		path, err := dfs.NextSolution(context.Background())
		Expect(err).ToNot(HaveOccurred())

		pl := plan(path)
		Expect(pl.Len()).To(Equal(2))
		final, ok := pl.Apply(problem.Init)
		Expect(ok).To(BeTrue())
		Expect(final.Contains(logic.MustParseLiteral("delivered(pkg)"))).To(BeTrue())
		Expect(path.Goal().Tasks()).To(BeEmpty())

		_, err = dfs.NextSolution(context.Background())
		Expect(err).To(MatchError(search.ErrExhausted))
	})

	It("offers every decomposition when several methods apply", func() {
		problem.Init.Add(logic.MustParseLiteral("direct(pkg)"))
		gen, err := htn.NewGraphGenerator(problem)
		Expect(err).ToNot(HaveOccurred())

		bf := search.NewBestFirst[*htn.Node](gen, search.PathLength[*htn.Node])
		var plans []string
		for {
			path, err := bf.NextSolution(context.Background())
			if err != nil {
				Expect(err).To(MatchError(search.ErrExhausted))
				break
			}
			plans = append(plans, plan(path).String())
		}
		sort.Strings(plans)
		Expect(plans).To(HaveLen(2))
		Expect(plans[0]).To(Equal("[hand(pkg)]"))
	})

	It("checks the goal once the network is done", func() {
		problem.Goal = planning.GoalState(logic.MustParseLiterals("at(pkg)"))
		gen, err := htn.NewGraphGenerator(problem)
		Expect(err).ToNot(HaveOccurred())
		_, err = search.NewBestFirst[*htn.Node](gen, search.PathLength[*htn.Node]).NextSolution(context.Background())
		Expect(err).To(MatchError(search.ErrExhausted))
	})

	It("serves the same decompositions incrementally as in bulk", func() {
		problem.Init.Add(logic.MustParseLiteral("direct(pkg)"))
		bulkGen, err := htn.NewGraphGenerator(problem)
		Expect(err).ToNot(HaveOccurred())
		incGen, err := htn.NewGraphGenerator(problem, htn.WithSampleLimit(1), htn.WithRand(rand.New(rand.NewSource(9))))
		Expect(err).ToNot(HaveOccurred())

		bulkRoot, _ := bulkGen.Root()
		bulk, err := bulkGen.Successors(bulkRoot)
		Expect(err).ToNot(HaveOccurred())

		incRoot, _ := incGen.Root()
		var names []string
		for i := 0; ; i++ {
			n, ok, err := incGen.Successor(incRoot, i)
			Expect(err).ToNot(HaveOccurred())
			if !ok {
				break
			}
			a, _ := n.Action()
			names = append(names, a.Name())
		}
		var bulkNames []string
		for _, n := range bulk {
			a, _ := n.Action()
			bulkNames = append(bulkNames, a.Name())
		}
		Expect(names).To(ConsistOf(bulkNames))
		Expect(names).To(HaveLen(2))
	})
})
