package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"donodopedaco/internal/catalog"
	"donodopedaco/internal/config"
	"donodopedaco/internal/gate"
	"donodopedaco/internal/middleware"
	"donodopedaco/internal/order"
	"donodopedaco/internal/ratelimit"
	"donodopedaco/internal/router"
	"donodopedaco/internal/web"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var shutdownGrace time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	serveCmd.Flags().DurationVar(&shutdownGrace, "grace", 10*time.Second, "Shutdown grace period")
}

func serve(ctx context.Context) error {
	// ───────────────────────── ENV ─────────────────────────
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	store, err := loadStore(env)
	if err != nil {
		return err
	}
	if env.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	// ───────────────────────── RATE LIMIT ─────────────────────────
	backend, limiter, closeStore, err := openLimiter(ctx, env, store)
	if err != nil {
		return err
	}
	defer closeStore()
	go limiter.Run(ctx, time.Minute)

	// ───────────────────────── CONFIRMATION TICKETS ─────────────────────────
	tickets, err := gate.New(env.TicketSecret, gate.DefaultTTL)
	if err != nil {
		return err
	}
	spent := gate.NewSpent(backend, logger)
	go spent.Run(ctx, time.Minute)

	// ───────────────────────── CATALOG ─────────────────────────
	source, err := catalog.OpenSource(ctx, env)
	if err != nil {
		return err
	}
	holder, err := catalog.NewHolder(ctx, source, logger)
	if err != nil {
		return err
	}
	if env.CatalogSource == "file" {
		if err := holder.Watch(ctx, env.CatalogPath); err != nil {
			logger.Warn("catalog watch disabled", zap.Error(err))
		}
	}

	// ───────────────────────── HANDLERS ─────────────────────────
	tmpl, err := web.Templates()
	if err != nil {
		return err
	}

	orders := order.NewService(store, limiter, tickets, logger).WithSpent(spent)

	throttle := middleware.NewThrottle(env.RequestsPerSecond, int(env.RequestsPerSecond*2)+1)
	go throttle.Cleanup(ctx, 5*time.Minute)

	r := router.NewRouter(router.Deps{
		Logger:         logger,
		Templates:      tmpl,
		Pages:          web.NewPages(store, holder),
		Orders:         order.NewHandler(orders, logger),
		Catalog:        catalog.NewHandler(holder),
		CORSOrigins:    env.CORSOrigins,
		TrustedProxies: env.TrustedProxies,
		SecureCookie:   env.Production(),
		Throttle:       throttle,
	})

	// ───────────────────────── START ─────────────────────────
	srv := &http.Server{
		Addr:              ":" + env.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	logger.Info("server started",
		zap.String("addr", srv.Addr),
		zap.String("env", env.AppEnv),
		zap.String("rate_limit_backend", env.RateLimitBackend),
		zap.String("catalog", source.Name()),
	)

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// openLimiter builds the order limiter over the configured backend. Records
// outlive the rate window and the ticket lifetime so a sweep can still see
// them and a used ticket stays used.
func openLimiter(ctx context.Context, env config.Env, store config.Store) (ratelimit.Store, *ratelimit.Limiter, func(), error) {
	rules := store.Orders.RateLimit
	backend, closeFn, err := ratelimit.OpenStore(ctx, env, max(2*rules.Window(), gate.DefaultTTL), logger)
	if err != nil {
		return nil, nil, nil, err
	}
	limiter := ratelimit.New(backend, ratelimit.Config{
		MaxAttempts: rules.MaxAttempts,
		Window:      rules.Window(),
	}, logger)
	return backend, limiter, closeFn, nil
}
