package search_test

import (
	"context"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/operator-framework/hasco/pkg/search"
)

type vertex int

func (v vertex) ID() int { return int(v) }

// graph is a small explicit digraph honouring the search.Graph contract.
type graph struct {
	edges    map[vertex][]vertex
	goals    map[vertex]bool
	served   map[vertex]map[vertex]bool
	expanded map[vertex]int
}

func newGraph(edges map[vertex][]vertex, goals ...vertex) *graph {
	g := &graph{
		edges:    edges,
		goals:    map[vertex]bool{},
		served:   map[vertex]map[vertex]bool{},
		expanded: map[vertex]int{},
	}
	for _, v := range goals {
		g.goals[v] = true
	}
	return g
}

func (g *graph) Root() (vertex, error) { return 0, nil }

func (g *graph) Successors(n vertex) ([]vertex, error) {
	g.expanded[n]++
	return g.edges[n], nil
}

func (g *graph) Successor(n vertex, i int) (vertex, bool, error) {
	if g.served[n] == nil {
		g.served[n] = map[vertex]bool{}
	}
	var left []vertex
	for _, s := range g.edges[n] {
		if !g.served[n][s] {
			left = append(left, s)
		}
	}
	if len(left) == 0 {
		return 0, false, nil
	}
	s := left[i%len(left)]
	g.served[n][s] = true
	return s, true, nil
}

func (g *graph) IsGoal(n vertex) (bool, error) { return g.goals[n], nil }

func (g *graph) valid(path []vertex) bool {
	if len(path) == 0 || path[0] != 0 {
		return false
	}
	for i := 1; i < len(path); i++ {
		found := false
		for _, s := range g.edges[path[i-1]] {
			if s == path[i] {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// diamond: 0 -> 1 -> 3 -> 4, 0 -> 2 -> 3, 2 -> 5, with a cycle 3 -> 0.
func diamond() map[vertex][]vertex {
	return map[vertex][]vertex{
		0: {1, 2},
		1: {3},
		2: {3, 5},
		3: {4, 0},
	}
}

var _ = Describe("BestFirst", func() {
	It("returns the cheapest solution first", func() {
		g := newGraph(diamond(), 4, 5)
		bf := search.NewBestFirst[vertex](g, search.PathLength[vertex])

		first, err := bf.NextSolution(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(first.Nodes).To(Equal([]vertex{0, 2, 5}))
		Expect(first.Score).To(Equal(2.0))

		second, err := bf.NextSolution(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(second.Goal()).To(Equal(vertex(4)))
		Expect(second.Nodes).To(HaveLen(4))
		Expect(g.valid(second.Nodes)).To(BeTrue())

		_, err = bf.NextSolution(context.Background())
		Expect(err).To(MatchError(search.ErrExhausted))
	})

	It("returns every path into a goal and continues past returned goals", func() {
		g := newGraph(map[vertex][]vertex{
			0: {1, 2},
			1: {3},
			2: {3},
			3: {4, 1},
		}, 3, 4)
		bf := search.NewBestFirst[vertex](g, search.PathLength[vertex])

		var paths [][]vertex
		for {
			p, err := bf.NextSolution(context.Background())
			if err != nil {
				Expect(err).To(MatchError(search.ErrExhausted))
				break
			}
			paths = append(paths, p.Nodes)
		}
		Expect(paths).To(Equal([][]vertex{
			{0, 1, 3},
			{0, 2, 3},
			{0, 1, 3, 4},
		}))
		Expect(g.expanded[3]).To(Equal(1))
	})

	It("expands every node at most once", func() {
		g := newGraph(diamond())
		bf := search.NewBestFirst[vertex](g, search.PathLength[vertex])
		_, err := bf.NextSolution(context.Background())
		Expect(err).To(MatchError(search.ErrExhausted))
		for v, n := range g.expanded {
			Expect(n).To(Equal(1), "vertex %d", v)
		}
	})

	It("stops after Cancel", func() {
		bf := search.NewBestFirst[vertex](newGraph(diamond(), 4), search.PathLength[vertex])
		bf.Cancel()
		bf.Cancel()
		_, err := bf.NextSolution(context.Background())
		Expect(err).To(MatchError(search.ErrCanceled))
	})

	It("returns the context error", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		bf := search.NewBestFirst[vertex](newGraph(diamond(), 4), search.PathLength[vertex])
		_, err := bf.NextSolution(ctx)
		Expect(err).To(MatchError(context.Canceled))
	})
})

var _ = Describe("RandomizedDepthFirst", func() {
	It("finds every goal on valid paths before exhausting", func() {
		g := newGraph(diamond(), 4, 5)
		dfs := search.NewRandomizedDepthFirst[vertex](g, search.WithRand(rand.New(rand.NewSource(3))))

		goals := map[vertex]bool{}
		for {
			p, err := dfs.NextSolution(context.Background())
			if err != nil {
				Expect(err).To(MatchError(search.ErrExhausted))
				break
			}
			Expect(g.valid(p.Nodes)).To(BeTrue())
			goals[p.Goal()] = true
		}
		Expect(goals).To(HaveKey(vertex(4)))
		Expect(goals).To(HaveKey(vertex(5)))
	})

	It("returns the root when it is a goal", func() {
		dfs := search.NewRandomizedDepthFirst[vertex](newGraph(diamond(), 0))
		p, err := dfs.NextSolution(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(p.Nodes).To(Equal([]vertex{0}))
	})

	It("stops after Cancel", func() {
		dfs := search.NewRandomizedDepthFirst[vertex](newGraph(diamond(), 4))
		dfs.Cancel()
		_, err := dfs.NextSolution(context.Background())
		Expect(err).To(MatchError(search.ErrCanceled))
	})

	It("can be created through its factory", func() {
		var factory search.Factory[vertex] = search.RandomizedDepthFirstFactory[vertex]
		alg := factory(newGraph(map[vertex][]vertex{0: {1}}, 1))
		p, err := alg.NextSolution(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(p.Nodes).To(Equal([]vertex{0, 1}))
	})
})
