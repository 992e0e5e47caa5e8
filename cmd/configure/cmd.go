package configure

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/operator-framework/hasco/internal/catalog"
	"github.com/operator-framework/hasco/internal/metrics"
	"github.com/operator-framework/hasco/pkg/event"
	"github.com/operator-framework/hasco/pkg/hasco"
	"github.com/operator-framework/hasco/pkg/twophase"
)

type options struct {
	config      string
	timeout     time.Duration
	cpus        int
	seed        int64
	poolSize    int
	metricsAddr string
}

func NewConfigureCommand(logger func() *zap.Logger) *cobra.Command {
	o := options{}
	cmd := &cobra.Command{
		Use:   "configure <path> <interface>",
		Short: "Searches for the best configuration of an interface",
		Long: `Enumerates the configurations of the given interface that the
repository admits, scores them with the repository's cost model, and
re-evaluates the most promising ones before selecting one. Lower
costs are better.`,
		Args: cobra.ExactArgs(2),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range []string{args[0], o.config} {
				if path == "" {
					continue
				}
				if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("file (%s) not found", path)
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, args[0], args[1], logger())
		},
	}
	cmd.Flags().StringVar(&o.config, "config", "", "yaml file with controller settings")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 0, "overall time budget (overrides the config file)")
	cmd.Flags().IntVar(&o.cpus, "cpus", 0, "parallel phase 2 evaluations (overrides the config file)")
	cmd.Flags().Int64Var(&o.seed, "seed", 0, "seed for search and pool selection (overrides the config file)")
	cmd.Flags().IntVar(&o.poolSize, "pool-size", 0, "candidates to re-evaluate (overrides the config file)")
	cmd.Flags().StringVar(&o.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while running")
	return cmd
}

func (o options) settings(cmd *cobra.Command) (twophase.Config, error) {
	cfg := twophase.DefaultConfig()
	cfg.MinEvaluationTimeout = time.Second
	if o.config != "" {
		var err error
		if cfg, err = catalog.LoadConfigFile(o.config, cfg); err != nil {
			return cfg, fmt.Errorf("error loading config (%s): %w", o.config, err)
		}
	}
	flags := cmd.Flags()
	if flags.Changed("timeout") {
		cfg.Timeout = o.timeout
	}
	if flags.Changed("cpus") {
		cfg.CPUs = o.cpus
	}
	if flags.Changed("seed") {
		cfg.Seed = o.seed
	}
	if flags.Changed("pool-size") {
		cfg.PoolSize = o.poolSize
	}
	return cfg, cfg.Validate()
}

func (o options) run(cmd *cobra.Command, path, iface string, logger *zap.Logger) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := o.settings(cmd)
	if err != nil {
		return err
	}
	repo, costs, err := catalog.LoadRepositoryFile(path)
	if err != nil {
		return fmt.Errorf("error loading repository (%s): %w", path, err)
	}
	if costs == nil {
		return fmt.Errorf("repository (%s) has no cost model", path)
	}
	logger = logger.With(zap.String("run", uuid.NewString()))

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}
	if o.metricsAddr != "" {
		stop, err := serveMetrics(o.metricsAddr, reg, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	bus := event.NewBus()
	unsubscribe := bus.Subscribe(func(msg event.Message) {
		logger.Debug("event", zap.String("source", string(msg.Header().Source)), zap.Any("payload", msg.Payload()))
	})
	defer unsubscribe()

	source, err := hasco.NewSearch(repo, iface, costs,
		hasco.WithSeed(cfg.Seed),
		hasco.WithLogger(logger),
		hasco.WithEventBus(bus),
		hasco.WithMetrics(m))
	if err != nil {
		return err
	}
	controller, err := twophase.New(source, costs, cfg,
		twophase.WithLogger(logger),
		twophase.WithEventBus(bus),
		twophase.WithMetrics(m))
	if err != nil {
		return err
	}
	result, err := controller.Run(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	score := result.Selected.Score
	if s, ok := result.Scores[result.Selected.Key()]; ok {
		score = s
	}
	fmt.Fprintf(out, "selected: %s\n", result.Selected.Key())
	fmt.Fprintf(out, "score: %g\n", score)
	fmt.Fprintf(out, "reevaluated: %t\n", result.Reevaluated)
	fmt.Fprintf(out, "candidates: %d (search %s, selection %s)\n", len(result.Candidates), result.Phase1, result.Phase2)
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) (func(), error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("error listening on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", lis.Addr().String()))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
