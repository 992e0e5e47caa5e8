package plan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/operator-framework/hasco/internal/catalog"
	"github.com/operator-framework/hasco/pkg/planner"
	"github.com/operator-framework/hasco/pkg/search"
)

type options struct {
	timeout   time.Duration
	seed      int64
	algorithm string
	count     int
}

func NewPlanCommand(logger func() *zap.Logger) *cobra.Command {
	o := options{}
	cmd := &cobra.Command{
		Use:   "plan <path>",
		Short: "Finds plans for a planning problem given in yaml",
		Long: `Finds plans for a planning problem given in yaml. For instance:

operators:
- name: move
  params: ["?from", "?to"]
  pre: ["at(?from)", "road(?from, ?to)"]
  add: ["at(?to)"]
  del: ["at(?from)"]
init: ["at(a)", "road(a, b)"]
goal: ["at(b)"]

A problem with tasks is decomposed with its methods; otherwise the
planner searches forward towards the goal.
`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("file (%s) not found", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd.Context(), cmd, args[0], logger())
		},
	}
	cmd.Flags().DurationVar(&o.timeout, "timeout", 0, "stop searching after this long (0 means no limit)")
	cmd.Flags().Int64Var(&o.seed, "seed", 0, "seed for randomized search")
	cmd.Flags().StringVar(&o.algorithm, "algorithm", "bestfirst", "search algorithm, one of bestfirst or dfs")
	cmd.Flags().IntVar(&o.count, "count", 1, "number of plans to print (0 prints all)")
	return cmd
}

func algorithm(name string) (search.Factory[planner.Node], error) {
	switch strings.ToLower(name) {
	case "bestfirst":
		return search.BestFirstFactory[planner.Node](search.PathLength[planner.Node]), nil
	case "dfs":
		return search.RandomizedDepthFirstFactory[planner.Node], nil
	}
	return nil, fmt.Errorf("unknown algorithm %q", name)
}

func (o options) run(ctx context.Context, cmd *cobra.Command, path string, logger *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	factory, err := algorithm(o.algorithm)
	if err != nil {
		return err
	}
	problem, err := catalog.LoadProblemFile(path)
	if err != nil {
		return fmt.Errorf("error loading problem (%s): %w", path, err)
	}
	p, err := planner.New(problem,
		planner.WithAlgorithm(factory),
		planner.WithTimeout(o.timeout),
		planner.WithSeed(o.seed),
		planner.WithLogger(logger))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	found := 0
	for o.count <= 0 || found < o.count {
		evt, err := p.NextPlan(ctx)
		if errors.Is(err, planner.ErrNoMorePlans) {
			break
		}
		if err != nil {
			return err
		}
		found++
		fmt.Fprintf(out, "plan %d (score %g):\n", found, evt.Data().Score)
		for _, step := range evt.Data().Steps {
			fmt.Fprintf(out, "  %s\n", step)
		}
	}
	if found == 0 {
		fmt.Fprintln(out, "no plan found")
	}
	return nil
}
