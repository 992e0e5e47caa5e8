package logic_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/operator-framework/hasco/pkg/logic"
)

var _ = Describe("FactSet", func() {
	It("should not contain duplicates", func() {
		s := logic.MustParseFactSet("on(a, b)", "on(a, b)", "clear(a)")
		Expect(s.Len()).To(Equal(2))
		Expect(s.Add(logic.MustParseLiteral("on(a, b)"))).To(BeFalse())
		Expect(s.Add(logic.MustParseLiteral("on(b, a)"))).To(BeTrue())
		Expect(s.Len()).To(Equal(3))
	})

	It("should compute union, difference and intersection without mutating operands", func() {
		a := logic.MustParseFactSet("p(a)", "p(b)")
		b := logic.MustParseFactSet("p(b)", "p(c)")
		Expect(a.Union(b).Keys()).To(HaveLen(3))
		Expect(a.Difference(b).Literals()).To(Equal(logic.MustParseLiterals("p(a)")))
		Expect(a.Intersection(b).Literals()).To(Equal(logic.MustParseLiterals("p(b)")))
		Expect(a.Len()).To(Equal(2))
		Expect(b.Len()).To(Equal(2))
		Expect(a.Intersects(b)).To(BeTrue())
		Expect(a.Intersects(logic.MustParseFactSet("q(a)"))).To(BeFalse())
	})

	It("should detect contradictions", func() {
		Expect(logic.MustParseFactSet("p(a)", "!p(b)").IsContradictory()).To(BeFalse())
		Expect(logic.MustParseFactSet("p(a)", "!p(a)").IsContradictory()).To(BeTrue())
	})

	It("should evaluate literals under the closed-world assumption", func() {
		s := logic.MustParseFactSet("p(a)")
		Expect(s.Holds(logic.MustParseLiteral("p(a)"))).To(BeTrue())
		Expect(s.Holds(logic.MustParseLiteral("!p(a)"))).To(BeFalse())
		Expect(s.Holds(logic.MustParseLiteral("!p(b)"))).To(BeTrue())
		Expect(s.Satisfies(logic.MustParseLiterals("p(a)", "!q(a)")...)).To(BeTrue())
	})

	It("should treat the zero value as an empty set", func() {
		var s logic.FactSet
		Expect(s.Contains(logic.MustParseLiteral("p(a)"))).To(BeFalse())
		Expect(s.Add(logic.MustParseLiteral("p(a)"))).To(BeTrue())
		Expect(s.Equal(logic.MustParseFactSet("p(a)"))).To(BeTrue())
	})
})

var _ = Describe("Literal", func() {
	It("should parse variables, constants and negation", func() {
		l, err := logic.ParseLiteral("!near(?x, b)")
		Expect(err).ToNot(HaveOccurred())
		Expect(l.Negated).To(BeTrue())
		Expect(l.Predicate).To(Equal("near"))
		Expect(l.Terms).To(Equal([]logic.Term{logic.Variable("x"), logic.Constant("b")}))
		Expect(l.IsGround()).To(BeFalse())
		Expect(l.String()).To(Equal("!near(?x, b)"))
	})

	It("should reject malformed input", func() {
		_, err := logic.ParseLiteral("p(a,")
		Expect(err).To(MatchError(logic.ErrMalformedPattern))
		_, err = logic.ParseLiteral("p(a,,b)")
		Expect(err).To(MatchError(logic.ErrMalformedPattern))
	})

	It("should compare structurally", func() {
		Expect(logic.MustParseLiteral("p(a, ?x)").Equal(logic.NewLiteral("p", logic.Constant("a"), logic.Variable("x")))).To(BeTrue())
		Expect(logic.MustParseLiteral("p(a)").Equal(logic.MustParseLiteral("!p(a)"))).To(BeFalse())
	})
})
