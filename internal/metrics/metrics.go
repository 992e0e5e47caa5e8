package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	Namespace = "hasco"

	OutcomeLabel = "outcome"
	PhaseLabel   = "phase"

	Succeeded = "succeeded"
	Failed    = "failed"
	TimedOut  = "timed_out"
	Skipped   = "skipped"
	Canceled  = "canceled"
)

// Metrics holds the collectors of one planning or configuration run. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	NodesExpanded     prometheus.Counter
	PlansFound        prometheus.Counter
	CandidatesFound   prometheus.Counter
	Phase2Evaluations *prometheus.CounterVec
	PhaseDuration     *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		NodesExpanded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "nodes_expanded_total",
			Help:      "Number of search graph node expansions",
		}),
		PlansFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "plans_found_total",
			Help:      "Number of plans returned by the planner",
		}),
		CandidatesFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "candidates_found_total",
			Help:      "Number of scored candidates received during phase 1",
		}),
		Phase2Evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "phase2_evaluations_total",
			Help:      "Outcomes of phase 2 re-evaluations",
		}, []string{OutcomeLabel}),
		PhaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "phase_duration_seconds",
			Help:      "Wall time spent in each configuration phase",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{PhaseLabel}),
	}
	for _, c := range []prometheus.Collector{m.NodesExpanded, m.PlansFound, m.CandidatesFound, m.Phase2Evaluations, m.PhaseDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) NodeExpanded() {
	if m == nil {
		return
	}
	m.NodesExpanded.Inc()
}

func (m *Metrics) PlanFound() {
	if m == nil {
		return
	}
	m.PlansFound.Inc()
}

func (m *Metrics) CandidateFound() {
	if m == nil {
		return
	}
	m.CandidatesFound.Inc()
}

func (m *Metrics) Evaluated(outcome string) {
	if m == nil {
		return
	}
	m.Phase2Evaluations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PhaseCompleted(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}
