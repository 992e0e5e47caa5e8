package logic_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/operator-framework/hasco/pkg/logic"
)

func keys(gs []logic.Grounding) []string {
	out := make([]string, len(gs))
	for i, g := range gs {
		out[i] = g.Key()
	}
	return out
}

var _ = Describe("Matcher", func() {
	var facts *logic.FactSet

	BeforeEach(func() {
		facts = logic.MustParseFactSet("on(a, b)", "on(b, c)", "clear(a)", "table(c)")
	})

	It("should find all groundings of a conjunctive pattern", func() {
		m := logic.NewMatcher(facts)
		gs, err := m.All(logic.MustParseLiterals("on(?x, ?y)", "on(?y, ?z)"), nil, nil, 0)
		Expect(err).ToNot(HaveOccurred())
		Expect(keys(gs)).To(ConsistOf("x=a,y=b,z=c"))
	})

	It("should apply closed-world negation", func() {
		m := logic.NewMatcher(facts)
		gs, err := m.All(logic.MustParseLiterals("on(?x, ?y)", "!clear(?x)"), nil, nil, 0)
		Expect(err).ToNot(HaveOccurred())
		Expect(keys(gs)).To(ConsistOf("x=b,y=c"))
	})

	It("should bind variables only occurring in negative literals to known constants", func() {
		m := logic.NewMatcher(logic.MustParseFactSet("holding(o1)"), logic.WithConstants(logic.Constants("o1", "o2")...))
		gs, err := m.All(logic.MustParseLiterals("!holding(?x)"), nil, nil, 0)
		Expect(err).ToNot(HaveOccurred())
		Expect(keys(gs)).To(ConsistOf("x=o2"))
	})

	It("should bind free variables over the domain", func() {
		m := logic.NewMatcher(logic.NewFactSet(), logic.WithConstants(logic.Constants("o1", "o2")...))
		gs, err := m.All(nil, nil, logic.Variables("x"), 0)
		Expect(err).ToNot(HaveOccurred())
		Expect(keys(gs)).To(ConsistOf("x=o1", "x=o2"))
	})

	It("should honour a seed grounding", func() {
		m := logic.NewMatcher(facts)
		gs, err := m.All(logic.MustParseLiterals("on(?x, ?y)"), logic.Grounding{logic.Variable("x"): logic.Constant("b")}, nil, 0)
		Expect(err).ToNot(HaveOccurred())
		Expect(keys(gs)).To(ConsistOf("x=b,y=c"))
	})

	It("should return an empty stream when nothing matches", func() {
		m := logic.NewMatcher(facts)
		gs, err := m.All(logic.MustParseLiterals("on(?x, ?x)"), nil, nil, 0)
		Expect(err).ToNot(HaveOccurred())
		Expect(gs).To(BeEmpty())
	})

	It("should stop streaming when the consumer asks to", func() {
		m := logic.NewMatcher(facts)
		calls := 0
		err := m.Match(logic.MustParseLiterals("on(?x, ?y)"), nil, nil, func(logic.Grounding) bool {
			calls++
			return false
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(calls).To(Equal(1))

		gs, err := m.All(logic.MustParseLiterals("on(?x, ?y)"), nil, nil, 1)
		Expect(err).ToNot(HaveOccurred())
		Expect(gs).To(HaveLen(1))
	})

	It("should sample from the full set when shuffled", func() {
		m := logic.NewMatcher(facts, logic.WithRand(rand.New(rand.NewSource(7))))
		gs, err := m.All(logic.MustParseLiterals("on(?x, ?y)"), nil, nil, 1)
		Expect(err).ToNot(HaveOccurred())
		Expect(keys(gs)).To(ConsistOf(BeElementOf("x=a,y=b", "x=b,y=c")))
	})

	It("should reject patterns with the wrong arity", func() {
		m := logic.NewMatcher(facts)
		_, err := m.All(logic.MustParseLiterals("on(?x)"), nil, nil, 0)
		Expect(err).To(MatchError(logic.ErrMalformedPattern))
	})

	It("should reject undeclared predicates when signatures are given", func() {
		m := logic.NewMatcher(facts, logic.WithSignatures(map[string]int{"on": 2}))
		_, err := m.All(logic.MustParseLiterals("clear(?x)"), nil, nil, 0)
		Expect(err).To(MatchError(logic.ErrMalformedPattern))
	})

	It("should produce only sound groundings", func() {
		m := logic.NewMatcher(facts, logic.WithConstants(logic.Constants("d")...))
		pattern := logic.MustParseLiterals("on(?x, ?y)", "!table(?y)", "!on(?z, ?x)")
		gs, err := m.All(pattern, nil, nil, 0)
		Expect(err).ToNot(HaveOccurred())
		Expect(gs).ToNot(BeEmpty())
		for _, g := range gs {
			Expect(facts.Satisfies(logic.ApplyAll(pattern, g)...)).To(BeTrue(), g.String())
		}
	})
})

var _ = Describe("Grounding", func() {
	It("should never rebind a variable to a different constant", func() {
		g := logic.Grounding{}
		Expect(g.Bind(logic.Variable("x"), logic.Constant("a"))).To(BeTrue())
		Expect(g.Bind(logic.Variable("x"), logic.Constant("a"))).To(BeTrue())
		Expect(g.Bind(logic.Variable("x"), logic.Constant("b"))).To(BeFalse())
		Expect(g.Resolve(logic.Variable("x"))).To(Equal(logic.Constant("a")))
	})

	It("should merge compatible groundings only", func() {
		a := logic.Grounding{logic.Variable("x"): logic.Constant("a")}
		_, ok := a.Merge(logic.Grounding{logic.Variable("x"): logic.Constant("b")})
		Expect(ok).To(BeFalse())
		m, ok := a.Merge(logic.Grounding{logic.Variable("y"): logic.Constant("b")})
		Expect(ok).To(BeTrue())
		Expect(m.Key()).To(Equal("x=a,y=b"))
	})
})
