// Command sweeper clears lapsed rate-limit records and expired confirmation
// tickets from a shared backend (redis or postgres) so the keyspace does not
// grow with one-off visitors.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"donodopedaco/internal/config"
	"donodopedaco/internal/gate"
	"donodopedaco/internal/ratelimit"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	interval time.Duration
	once     bool
	verbose  bool

	logger *zap.Logger
)

var ErrMemoryBackend = errors.New("nothing to sweep: RATE_LIMIT_BACKEND is memory")

var rootCmd = &cobra.Command{
	Use:          "sweeper",
	Short:        "Clear lapsed rate-limit records and used tickets from the shared store",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx)
	},
}

func init() {
	rootCmd.Flags().DurationVar(&interval, "interval", time.Minute, "Time between sweeps")
	rootCmd.Flags().BoolVar(&once, "once", false, "Sweep once and exit")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func run(ctx context.Context) error {
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	if env.RateLimitBackend == "memory" {
		return ErrMemoryBackend
	}
	store, err := config.LoadStore(env.StoreConfigPath)
	if err != nil {
		return err
	}

	rules := store.Orders.RateLimit
	backend, closeFn, err := ratelimit.OpenStore(ctx, env, max(2*rules.Window(), gate.DefaultTTL), logger)
	if err != nil {
		return fmt.Errorf("open rate limit store: %w", err)
	}
	defer closeFn()

	s := sweeper{
		limiter: ratelimit.New(backend, ratelimit.Config{
			MaxAttempts: rules.MaxAttempts,
			Window:      rules.Window(),
		}, logger),
		spent:  gate.NewSpent(backend, logger),
		logger: logger,
	}

	logger.Info("sweeper running",
		zap.String("backend", env.RateLimitBackend),
		zap.Duration("interval", interval),
	)

	if once {
		s.sweep(ctx)
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

type sweeper struct {
	limiter *ratelimit.Limiter
	spent   *gate.Spent
	logger  *zap.Logger
}

func (s sweeper) sweep(ctx context.Context) {
	if cleared, err := s.limiter.Refresh(ctx); err != nil {
		s.logger.Warn("rate limit sweep failed", zap.Error(err))
	} else if cleared > 0 {
		s.logger.Info("cleared lapsed records", zap.Int("count", cleared))
	}

	if cleared, err := s.spent.Sweep(ctx); err != nil {
		s.logger.Warn("ticket sweep failed", zap.Error(err))
	} else if cleared > 0 {
		s.logger.Info("cleared expired tickets", zap.Int("count", cleared))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
