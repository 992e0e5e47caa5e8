package event

import (
	"time"

	"github.com/operator-framework/hasco/pkg/planning"
)

// NodeExpanded is emitted by graph generators for every expansion.
type NodeExpanded struct {
	Node       int  `json:"node"`
	Successors int  `json:"successors"`
	Bulk       bool `json:"bulk"`
}

// PlanFound is emitted by the planner for every plan it returns.
type PlanFound struct {
	Plan  planning.Plan `json:"-"`
	Steps []string      `json:"steps"`
	Score float64       `json:"score"`
}

// SolutionFound is emitted when phase 1 receives a candidate.
type SolutionFound struct {
	Candidate      string        `json:"candidate"`
	Score          float64       `json:"score"`
	EvaluationTime time.Duration `json:"evaluationTime"`
	Best           bool          `json:"best"`
}

type Phase string

const (
	PhaseSearch    Phase = "search"
	PhaseSelection Phase = "selection"
)

type PhaseStarted struct {
	Phase Phase `json:"phase"`
}

type PhaseCompleted struct {
	Phase      Phase         `json:"phase"`
	Duration   time.Duration `json:"duration"`
	Candidates int           `json:"candidates"`
}
