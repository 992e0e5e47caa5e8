package resolve

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/operator-framework/hasco/internal/catalog"
	"github.com/operator-framework/hasco/pkg/components"
)

type options struct {
	exclude []string
	trace   bool
}

func NewResolveCommand(logger func() *zap.Logger) *cobra.Command {
	o := options{}
	cmd := &cobra.Command{
		Use:   "resolve <path> <interface>",
		Short: "Picks components that together provide an interface",
		Long: `Picks a set of components from a repository that provides the given
interface and satisfies every requirement of the picked components.
If no such set exists, explains which constraints are in conflict.`,
		Args: cobra.ExactArgs(2),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("file (%s) not found", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			repo, _, err := catalog.LoadRepositoryFile(args[0])
			if err != nil {
				return fmt.Errorf("error loading repository (%s): %w", args[0], err)
			}
			opts := []components.ResolveOption{components.WithLogger(logger()), components.WithExcluded(o.exclude...)}
			if o.trace {
				opts = append(opts, components.WithTraceWriter(cmd.ErrOrStderr()))
			}
			selected, err := components.Resolve(ctx, repo, args[1], opts...)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "no resolution found: %s\n", err)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "resolution found:")
			for _, c := range selected {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", c.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&o.exclude, "exclude", nil, "components that must not be picked")
	cmd.Flags().BoolVar(&o.trace, "trace", false, "write every backtracking step of the solver to stderr")
	return cmd
}
