package twophase

import (
	"math"
	"math/rand"
	"sort"
	"time"
)

func expectedEvaluation(c Candidate, cfg Config) time.Duration {
	return time.Duration(float64(c.EvaluationTime) * cfg.SelectionBlowUp)
}

func expectedPostProcessing(c Candidate, cfg Config) time.Duration {
	return time.Duration(float64(expectedEvaluation(c, cfg)) * cfg.PostProcessingBlowUp)
}

// estimate returns the expected wall time of re-evaluating pool on
// cfg.CPUs workers and the longest expected post-processing.
func estimate(pool []Candidate, cfg Config) (makespan, post time.Duration) {
	var total, longest time.Duration
	for _, c := range pool {
		d := expectedEvaluation(c, cfg)
		total += d
		if d > longest {
			longest = d
		}
		if p := expectedPostProcessing(c, cfg); p > post {
			post = p
		}
	}
	makespan = total / time.Duration(cfg.CPUs)
	if longest > makespan {
		makespan = longest
	}
	return makespan, post
}

// selectPool picks the phase 2 candidates: those within the margin of
// best, the better half of them by score and a random sample of the rest,
// at most cfg.PoolSize in total. best is always first.
func selectPool(candidates []Candidate, best Candidate, cfg Config, rng *rand.Rand) []Candidate {
	threshold := best.Score + cfg.Margin*math.Abs(best.Score)
	seen := map[string]int{}
	var eligible []Candidate
	for _, c := range candidates {
		if math.IsNaN(c.Score) || c.Score > threshold {
			continue
		}
		key := c.Key()
		if i, ok := seen[key]; ok {
			if c.Score < eligible[i].Score {
				eligible[i] = c
			}
			continue
		}
		seen[key] = len(eligible)
		eligible = append(eligible, c)
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Score < eligible[j].Score
	})

	pool := []Candidate{best}
	bestKey := best.Key()
	rest := make([]Candidate, 0, len(eligible))
	for _, c := range eligible {
		if c.Key() != bestKey {
			rest = append(rest, c)
		}
	}
	if cfg.PoolSize <= 1 {
		return pool
	}
	if len(rest) <= cfg.PoolSize-1 {
		return append(pool, rest...)
	}

	half := (cfg.PoolSize + 1) / 2
	pool = append(pool, rest[:half-1]...)
	remainder := append([]Candidate(nil), rest[half-1:]...)
	rng.Shuffle(len(remainder), func(i, j int) { remainder[i], remainder[j] = remainder[j], remainder[i] })
	return append(pool, remainder[:cfg.PoolSize-half]...)
}

// trimPool drops the most expensive candidates, never the first, until
// the estimated cost of the pool fits into remaining.
func trimPool(pool []Candidate, remaining time.Duration, cfg Config) []Candidate {
	pool = append([]Candidate(nil), pool...)
	for len(pool) > 1 {
		makespan, post := estimate(pool, cfg)
		if makespan+post <= remaining {
			break
		}
		worst := 1
		for i := 2; i < len(pool); i++ {
			if cost(pool[i], cfg) > cost(pool[worst], cfg) {
				worst = i
			}
		}
		pool = append(pool[:worst], pool[worst+1:]...)
	}
	return pool
}

func cost(c Candidate, cfg Config) time.Duration {
	return expectedEvaluation(c, cfg) + expectedPostProcessing(c, cfg)
}

// choose returns the pool member with the lowest re-evaluated score.
// best wins ties and is returned when nothing was re-evaluated.
func choose(pool []Candidate, best Candidate, scores map[string]float64) (Candidate, bool) {
	selected, found := best, false
	lowest := math.Inf(1)
	if s, ok := scores[best.Key()]; ok {
		lowest, found = s, true
	}
	for _, c := range pool {
		s, ok := scores[c.Key()]
		if !ok || s >= lowest {
			continue
		}
		selected, lowest, found = c, s, true
	}
	return selected, found
}
