package strips_test

import (
	"context"
	"math/rand"
	"sort"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/operator-framework/hasco/internal/metrics"
	"github.com/operator-framework/hasco/internal/nodestore"
	"github.com/operator-framework/hasco/pkg/event"
	"github.com/operator-framework/hasco/pkg/logic"
	"github.com/operator-framework/hasco/pkg/planning"
	"github.com/operator-framework/hasco/pkg/search"
	"github.com/operator-framework/hasco/pkg/strips"
)

func pickupProblem(goal ...string) *planning.Problem {
	x := logic.Variable("x")
	return &planning.Problem{
		Domain: &planning.Domain{Operators: []*planning.Operator{
			{
				Name:         "pickup",
				Params:       []logic.Term{x},
				Precondition: logic.MustParseLiterals("!holding(?x)"),
				Add:          logic.MustParseLiterals("holding(?x)"),
			},
			{
				Name:         "drop",
				Params:       []logic.Term{x},
				Precondition: logic.MustParseLiterals("holding(?x)"),
				Delete:       logic.MustParseLiterals("holding(?x)"),
			},
		}},
		Init:    logic.NewFactSet(),
		Goal:    planning.GoalState(logic.MustParseLiterals(goal...)),
		Objects: logic.Constants("o1", "o2"),
	}
}

func actionNames(nodes []*strips.Node) []string {
	var out []string
	for _, n := range nodes {
		a, ok := n.Action()
		Expect(ok).To(BeTrue())
		out = append(out, a.String())
	}
	sort.Strings(out)
	return out
}

var _ = Describe("GraphGenerator", func() {
	var (
		problem *planning.Problem
		gen     *strips.GraphGenerator
	)

	BeforeEach(func() {
		problem = pickupProblem("holding(o1)")
		var err error
		gen, err = strips.NewGraphGenerator(problem)
		Expect(err).ToNot(HaveOccurred())
	})

	It("enumerates every applicable action of the root exactly once", func() {
		root, err := gen.Root()
		Expect(err).ToNot(HaveOccurred())
		_, ok := root.Action()
		Expect(ok).To(BeFalse())

		successors, err := gen.Successors(root)
		Expect(err).ToNot(HaveOccurred())
		Expect(actionNames(successors)).To(Equal([]string{"pickup(o1)", "pickup(o2)"}))
		Expect(root.ExpansionState()).To(Equal(nodestore.FullyExpanded))

		_, err = gen.Successors(root)
		Expect(err).To(MatchError(nodestore.ErrAlreadyExpanded))
	})

	It("finds the goal within one expansion", func() {
		bus := event.NewBus()
		expansions, stop := event.Collect[event.NodeExpanded](bus)
		defer stop()
		m, err := metrics.New(prometheus.NewRegistry())
		Expect(err).ToNot(HaveOccurred())

		gen, err = strips.NewGraphGenerator(problem, strips.WithEventBus(bus), strips.WithMetrics(m))
		Expect(err).ToNot(HaveOccurred())
		path, err := search.NewBestFirst[*strips.Node](gen, search.PathLength[*strips.Node]).NextSolution(context.Background())
		Expect(err).ToNot(HaveOccurred())

		Expect(path.Nodes).To(HaveLen(2))
		Expect(path.Goal().String()).To(Equal("pickup(o1)"))
		Expect(expansions()).To(HaveLen(1))
		Expect(testutil.ToFloat64(m.NodesExpanded)).To(Equal(1.0))
	})

	It("serves the same actions incrementally as in bulk", func() {
		incremental, err := strips.NewGraphGenerator(problem, strips.WithRand(rand.New(rand.NewSource(5))), strips.WithSampleLimit(1))
		Expect(err).ToNot(HaveOccurred())
		root, err := incremental.Root()
		Expect(err).ToNot(HaveOccurred())

		var served []*strips.Node
		for i := 0; i < 10; i++ {
			n, ok, err := incremental.Successor(root, i*7)
			Expect(err).ToNot(HaveOccurred())
			if !ok {
				break
			}
			served = append(served, n)
		}

		bulkRoot, err := gen.Root()
		Expect(err).ToNot(HaveOccurred())
		bulk, err := gen.Successors(bulkRoot)
		Expect(err).ToNot(HaveOccurred())
		Expect(actionNames(served)).To(Equal(actionNames(bulk)))
	})

	It("collapses equal states reached on different paths", func() {
		root, err := gen.Root()
		Expect(err).ToNot(HaveOccurred())
		first, err := gen.Successors(root)
		Expect(err).ToNot(HaveOccurred())
		Expect(first).To(HaveLen(2))

		var ids []int
		for _, n := range first {
			next, err := gen.Successors(n)
			Expect(err).ToNot(HaveOccurred())
			for _, s := range next {
				a, _ := s.Action()
				switch a.Name() {
				case "pickup":
					ids = append(ids, s.ID())
				case "drop":
					Expect(s.ID()).To(Equal(root.ID()))
				}
			}
		}
		Expect(ids).To(HaveLen(2))
		Expect(ids[0]).To(Equal(ids[1]))
	})

	It("keeps deltas normalised along random walks", func() {
		gen, err := strips.NewGraphGenerator(problem, strips.WithRand(rand.New(rand.NewSource(11))))
		Expect(err).ToNot(HaveOccurred())
		rng := rand.New(rand.NewSource(11))
		n, err := gen.Root()
		Expect(err).ToNot(HaveOccurred())
		state := problem.Init.Clone()

		for step := 0; step < 20; step++ {
			next, ok, err := gen.Successor(n, rng.Int())
			Expect(err).ToNot(HaveOccurred())
			if !ok {
				n, err = gen.Root()
				Expect(err).ToNot(HaveOccurred())
				state = problem.Init.Clone()
				continue
			}
			a, _ := next.Action()
			Expect(state.Satisfies(a.Precondition()...)).To(BeTrue())
			state = a.Apply(state)
			n = next

			d := n.Delta()
			Expect(d.Disjoint()).To(BeTrue())
			Expect(d.Added.Intersects(problem.Init)).To(BeFalse())
			Expect(d.Deleted.Difference(problem.Init).IsEmpty()).To(BeTrue())
			Expect(gen.State(n).Equal(state)).To(BeTrue())
		}
	})

	It("rejects a non-positive sample limit", func() {
		_, err := strips.NewGraphGenerator(problem, strips.WithSampleLimit(0))
		Expect(err).To(HaveOccurred())
	})
})
