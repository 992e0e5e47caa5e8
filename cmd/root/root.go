package root

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/operator-framework/hasco/cmd/configure"
	"github.com/operator-framework/hasco/cmd/plan"
	"github.com/operator-framework/hasco/cmd/resolve"
)

func NewRootCmd() *cobra.Command {
	var (
		verbose bool
		logger  = zap.NewNop()
	)
	rootCmd := &cobra.Command{
		Use:   "hasco",
		Short: "Hasco finds and tunes software configurations by planning",
		Long: `Hasco plans over hierarchical task networks to enumerate the
configurations of a component repository, scores them, and selects the
most promising one within a time budget.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewProductionConfig()
			cfg.Encoding = "console"
			cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
			if verbose {
				cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
			}
			l, err := cfg.Build()
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log search progress at debug level")

	loggerFn := func() *zap.Logger { return logger }

	// add sub-commands
	rootCmd.AddCommand(plan.NewPlanCommand(loggerFn))
	rootCmd.AddCommand(resolve.NewResolveCommand(loggerFn))
	rootCmd.AddCommand(configure.NewConfigureCommand(loggerFn))

	return rootCmd
}
