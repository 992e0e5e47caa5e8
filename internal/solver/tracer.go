package solver

import (
	"fmt"
	"io"

	"go.uber.org/zap"
)

type SearchPosition interface {
	Variables() []Variable
	Conflicts() []AppliedConstraint
}

type Tracer interface {
	Trace(p SearchPosition)
}

type DefaultTracer struct{}

func (DefaultTracer) Trace(_ SearchPosition) {
}

type LoggingTracer struct {
	Writer io.Writer
}

func (t LoggingTracer) Trace(p SearchPosition) {
	fmt.Fprintf(t.Writer, "---\nAssumptions:\n")
	for _, i := range p.Variables() {
		fmt.Fprintf(t.Writer, "- %s\n", i.Identifier())
	}
	fmt.Fprintf(t.Writer, "Conflicts:\n")
	for _, a := range p.Conflicts() {
		fmt.Fprintf(t.Writer, "- %s\n", a)
	}
}

// ZapTracer reports every backtrack of the search at debug level.
type ZapTracer struct {
	Logger *zap.Logger
}

func (t ZapTracer) Trace(p SearchPosition) {
	if t.Logger == nil {
		return
	}
	variables := p.Variables()
	assumed := make([]string, len(variables))
	for i, v := range variables {
		assumed[i] = v.Identifier().String()
	}
	conflicts := p.Conflicts()
	reasons := make([]string, len(conflicts))
	for i, a := range conflicts {
		reasons[i] = a.String()
	}
	t.Logger.Debug("backtracking", zap.Strings("assumptions", assumed), zap.Strings("conflicts", reasons))
}
