package twophase_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/operator-framework/hasco/internal/metrics"
	"github.com/operator-framework/hasco/pkg/components"
	"github.com/operator-framework/hasco/pkg/event"
	"github.com/operator-framework/hasco/pkg/twophase"
)

func candidate(name string, score float64, cost time.Duration) twophase.Candidate {
	return twophase.Candidate{Instance: &components.Instance{Component: name}, Score: score, EvaluationTime: cost}
}

// source emits its candidates in order. Unless stubborn, it stops early
// when its context is done or it is canceled; afterwards it lingers until
// one of both happens, or for linger if stubborn.
type source struct {
	candidates []twophase.Candidate
	stubborn   bool
	linger     time.Duration

	once     sync.Once
	stop     chan struct{}
	canceled atomic.Bool
}

func newSource(candidates ...twophase.Candidate) *source {
	return &source{candidates: candidates, stop: make(chan struct{})}
}

func (s *source) Run(ctx context.Context, emit func(twophase.Candidate)) error {
	for _, c := range s.candidates {
		if !s.stubborn && (ctx.Err() != nil || s.canceled.Load()) {
			return ctx.Err()
		}
		emit(c)
	}
	if s.stubborn {
		time.Sleep(s.linger)
		return nil
	}
	if s.linger == 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stop:
		return nil
	}
}

func (s *source) Cancel() {
	s.canceled.Store(true)
	s.once.Do(func() { close(s.stop) })
}

func scores(byComponent map[string]float64) twophase.EvaluatorFunc {
	return func(_ context.Context, i *components.Instance) (float64, error) {
		s, ok := byComponent[i.Component]
		if !ok {
			return 0, errors.New("no score")
		}
		return s, nil
	}
}

func logger() *zap.Logger {
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(GinkgoWriter), zap.DebugLevel))
}

func config() twophase.Config {
	cfg := twophase.DefaultConfig()
	cfg.Timeout = 5 * time.Second
	cfg.CPUs = 2
	cfg.SafetyMargin = 0
	return cfg
}

var _ = Describe("Controller", func() {
	var (
		leaks goleak.Option
		reg   *prometheus.Registry
		m     *metrics.Metrics
		bus   *event.Bus
	)

	BeforeEach(func() {
		leaks = goleak.IgnoreCurrent()
		reg = prometheus.NewRegistry()
		var err error
		m, err = metrics.New(reg)
		Expect(err).NotTo(HaveOccurred())
		bus = event.NewBus()
	})

	AfterEach(func() {
		goleak.VerifyNone(GinkgoT(), leaks)
	})

	run := func(src twophase.CandidateSource, selector twophase.Evaluator, cfg twophase.Config) *twophase.Result {
		c, err := twophase.New(src, selector, cfg,
			twophase.WithLogger(logger()),
			twophase.WithEventBus(bus),
			twophase.WithMetrics(m))
		Expect(err).NotTo(HaveOccurred())
		res, err := c.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		return res
	}

	It("selects the candidate with the lowest re-evaluated score", func() {
		src := newSource(
			candidate("a", 1, 0),
			candidate("b", 1.01, 0),
			candidate("c", 1.02, 0),
			candidate("d", 5, 0),
		)
		res := run(src, scores(map[string]float64{"a": 3, "b": 1, "c": 2, "d": 0}), config())

		Expect(res.Best.Key()).To(Equal("a"))
		Expect(res.Selected.Key()).To(Equal("b"))
		Expect(res.Reevaluated).To(BeTrue())
		Expect(res.Scores).To(Equal(map[string]float64{"a": 3, "b": 1, "c": 2}))
		Expect(testutil.ToFloat64(m.Phase2Evaluations.WithLabelValues(metrics.Succeeded))).To(Equal(3.0))
		Expect(testutil.ToFloat64(m.CandidatesFound)).To(Equal(4.0))
	})

	It("keeps the candidates in discovery order and the best score monotone", func() {
		solutions, unsubscribe := event.Collect[event.SolutionFound](bus)
		defer unsubscribe()
		src := newSource(
			candidate("a", 5, 0),
			candidate("b", 3, 0),
			candidate("c", 4, 0),
			candidate("d", 1, 0),
			candidate("e", 2, 0),
		)
		res := run(src, scores(nil), config())

		var order []string
		for _, c := range res.Candidates {
			order = append(order, c.Key())
		}
		Expect(order).To(Equal([]string{"a", "b", "c", "d", "e"}))

		var improvements []float64
		for _, s := range solutions() {
			if s.Best {
				improvements = append(improvements, s.Score)
			}
		}
		Expect(improvements).To(Equal([]float64{5, 3, 1}))
		Expect(res.Best.Key()).To(Equal("d"))
	})

	It("falls back to the best candidate when every re-evaluation fails", func() {
		src := newSource(candidate("a", 1, 0), candidate("b", 1, 0))
		res := run(src, scores(nil), config())

		Expect(res.Selected.Key()).To(Equal("a"))
		Expect(res.Reevaluated).To(BeFalse())
		Expect(res.Scores).To(BeEmpty())
		Expect(testutil.ToFloat64(m.Phase2Evaluations.WithLabelValues(metrics.Failed))).To(Equal(2.0))
	})

	It("recovers from a panicking evaluator", func() {
		src := newSource(candidate("a", 1, 0), candidate("b", 1, 0), candidate("c", 1, 0))
		selector := twophase.EvaluatorFunc(func(ctx context.Context, i *components.Instance) (float64, error) {
			if i.Component == "b" {
				panic("boom")
			}
			return scores(map[string]float64{"a": 2, "c": 1})(ctx, i)
		})
		res := run(src, selector, config())

		Expect(res.Selected.Key()).To(Equal("c"))
		Expect(res.Scores).NotTo(HaveKey("b"))
		Expect(testutil.ToFloat64(m.Phase2Evaluations.WithLabelValues(metrics.Failed))).To(Equal(1.0))
	})

	It("interrupts an evaluation that exceeds its tolerance", func() {
		src := newSource(candidate("a", 1, 10*time.Millisecond), candidate("slow", 1, 10*time.Millisecond))
		selector := twophase.EvaluatorFunc(func(ctx context.Context, i *components.Instance) (float64, error) {
			if i.Component == "slow" {
				<-ctx.Done()
				return 0, ctx.Err()
			}
			return 2, nil
		})
		cfg := config()
		cfg.Tolerance = 0.5
		start := time.Now()
		res := run(src, selector, cfg)

		Expect(time.Since(start)).To(BeNumerically("<", time.Second))
		Expect(res.Scores).To(Equal(map[string]float64{"a": 2}))
		Expect(res.Selected.Key()).To(Equal("a"))
		Expect(testutil.ToFloat64(m.Phase2Evaluations.WithLabelValues(metrics.TimedOut))).To(Equal(1.0))
	})

	It("gives cheap candidates at least the minimum evaluation timeout", func() {
		src := newSource(candidate("a", 1, time.Microsecond), candidate("b", 1, time.Microsecond))
		selector := twophase.EvaluatorFunc(func(ctx context.Context, i *components.Instance) (float64, error) {
			select {
			case <-time.After(20 * time.Millisecond):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
			if i.Component == "b" {
				return 0, nil
			}
			return 1, nil
		})
		cfg := config()
		cfg.MinEvaluationTimeout = time.Second
		res := run(src, selector, cfg)

		Expect(res.Scores).To(Equal(map[string]float64{"a": 1, "b": 0}))
		Expect(res.Selected.Key()).To(Equal("b"))
		Expect(res.Reevaluated).To(BeTrue())
	})

	It("bounds re-evaluating a candidate that cost nothing in phase 1", func() {
		src := newSource(candidate("a", 1, 0), candidate("hanging", 1, 0))
		selector := twophase.EvaluatorFunc(func(ctx context.Context, i *components.Instance) (float64, error) {
			if i.Component == "hanging" {
				<-ctx.Done()
				return 0, ctx.Err()
			}
			return 2, nil
		})
		cfg := config()
		cfg.Tolerance = 0
		cfg.MinEvaluationTimeout = 0
		start := time.Now()
		res := run(src, selector, cfg)

		Expect(time.Since(start)).To(BeNumerically("<", 2*time.Second))
		Expect(res.Scores).To(Equal(map[string]float64{"a": 2}))
		Expect(res.Selected.Key()).To(Equal("a"))
		Expect(testutil.ToFloat64(m.Phase2Evaluations.WithLabelValues(metrics.TimedOut))).To(Equal(1.0))
	})

	It("returns the best candidate when no time is left for phase 2", func() {
		src := newSource(candidate("a", 2, 0), candidate("b", 1, 0))
		src.stubborn = true
		src.linger = 300 * time.Millisecond
		var calls atomic.Int32
		selector := twophase.EvaluatorFunc(func(context.Context, *components.Instance) (float64, error) {
			calls.Add(1)
			return 0, nil
		})
		cfg := config()
		cfg.Timeout = 100 * time.Millisecond
		res := run(src, selector, cfg)

		Expect(res.Selected.Key()).To(Equal("b"))
		Expect(res.Selected).To(Equal(res.Best))
		Expect(res.Reevaluated).To(BeFalse())
		Expect(calls.Load()).To(BeZero())
	})

	It("stops phase 1 early to leave room for phase 2", func() {
		src := newSource(candidate("a", 1, 300*time.Millisecond))
		src.linger = time.Hour
		cfg := config()
		cfg.Timeout = time.Second
		cfg.SafetyMargin = 100 * time.Millisecond
		cfg.PostProcessingBlowUp = 0
		res := run(src, scores(map[string]float64{"a": 1}), cfg)

		Expect(src.canceled.Load()).To(BeTrue())
		Expect(res.Phase1).To(BeNumerically("<", 900*time.Millisecond))
		Expect(res.Selected.Key()).To(Equal("a"))
		Expect(res.Reevaluated).To(BeTrue())
	})

	It("skips candidates that cannot finish before the deadline", func() {
		src := newSource(candidate("huge", 0.5, time.Hour), candidate("a", 0.51, 0))
		cfg := config()
		cfg.Timeout = 500 * time.Millisecond
		res := run(src, scores(map[string]float64{"a": 1, "huge": 0}), cfg)

		Expect(res.Scores).To(BeEmpty())
		Expect(res.Selected.Key()).To(Equal("huge"))
		Expect(res.Reevaluated).To(BeFalse())
		Expect(testutil.ToFloat64(m.Phase2Evaluations.WithLabelValues(metrics.Skipped))).To(Equal(1.0))
	})

	It("announces both phases", func() {
		started, unsubscribeStarted := event.Collect[event.PhaseStarted](bus)
		defer unsubscribeStarted()
		completed, unsubscribeCompleted := event.Collect[event.PhaseCompleted](bus)
		defer unsubscribeCompleted()

		run(newSource(candidate("a", 1, 0)), scores(map[string]float64{"a": 1}), config())

		Expect(started()).To(Equal([]event.PhaseStarted{{Phase: event.PhaseSearch}, {Phase: event.PhaseSelection}}))
		Expect(completed()).To(HaveLen(2))
		Expect(completed()[0].Candidates).To(Equal(1))
	})

	It("fails without candidates", func() {
		c, err := twophase.New(newSource(), scores(nil), config())
		Expect(err).NotTo(HaveOccurred())
		_, err = c.Run(context.Background())
		Expect(err).To(MatchError(twophase.ErrNoCandidates))
	})

	It("rejects invalid configurations", func() {
		cfg := config()
		cfg.CPUs = 0
		_, err := twophase.New(newSource(), scores(nil), cfg)
		Expect(errors.Is(err, twophase.ErrInvalidConfig)).To(BeTrue())
		_, err = twophase.New(nil, scores(nil), config())
		Expect(errors.Is(err, twophase.ErrInvalidConfig)).To(BeTrue())
	})
})
