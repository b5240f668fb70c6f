package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"moneytracker/internal/cache"
	"moneytracker/internal/cli"
	"moneytracker/internal/core"
	apphttp "moneytracker/internal/http"
	"moneytracker/internal/log"
	"moneytracker/internal/middleware/ratelimit"
	"moneytracker/internal/scheduler"
)

const (
	maintenanceSchedule = "@every 5m"
	shutdownTimeout     = 30 * time.Second
)

func serveCmd() *cobra.Command {
	var noScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API and run scheduled jobs",
		Long: `Serve the ledger over HTTP. Recurring templates are processed once at startup
and then on RECURRING_SCHEDULE; the ledger is checkpointed to the backend
after every change and on shutdown.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), !noScheduler)
		},
	}
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "serve without running scheduled jobs")
	return cmd
}

func runServe(parent context.Context, withScheduler bool) error {
	ctx, cancel := cli.ShutdownContext(parent, logger)
	defer cancel()

	logger.InfoContext(ctx, "Starting moneytracker", log.FieldOperation, log.OpStartup, "port", cfg.Port)

	app, err := cli.Bootstrap(ctx, cfg, logger, cli.WithPublishing())
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer closeCancel()
		if err := app.Close(closeCtx); err != nil {
			logger.Error("Failed to close application", log.FieldError, err)
		}
	}()

	statsCache := cache.NewRevisionCache[core.MonthlyStats](cfg.StatsCacheSize, cfg.StatsCacheTTL)
	var limiter *ratelimit.Limiter
	if cfg.RateLimitPerMinute > 0 {
		limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})
	}

	srv := apphttp.New(apphttp.Config{
		Addr:         ":" + cfg.Port,
		Store:        app.Store,
		Stats:        app.Stats,
		Processor:    app.Processor,
		Checkpointer: app.Checkpointer,
		StatsCache:   statsCache,
		Limiter:      limiter,
		Logger:       logger,

		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})

	if withScheduler {
		sched := scheduler.New(ctx, logger, cfg.Location())
		if err := registerJobs(sched, app, statsCache, limiter); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Server stopped", log.FieldOperation, log.OpShutdown)
	return nil
}

// registerJobs schedules the recurring pass, run once immediately, and the
// maintenance job that checkpoints and evicts expired cache and limiter state.
func registerJobs(sched *scheduler.Scheduler, app *cli.App, statsCache *cache.RevisionCache[core.MonthlyStats], limiter *ratelimit.Limiter) error {
	recurring := scheduler.NewJob("recurring", func(ctx context.Context) error {
		_, err := app.ProcessAndSave(ctx)
		return err
	})
	if err := sched.AddJob(cfg.RecurringSchedule, recurring); err != nil {
		return err
	}
	if err := sched.RunNow(recurring); err != nil {
		logger.Error("Initial recurring pass failed", log.FieldError, err)
	}

	maintenance := scheduler.NewJob("maintenance", func(ctx context.Context) error {
		cleaners := []cache.Cleaner{statsCache}
		if limiter != nil {
			cleaners = append(cleaners, limiter)
		}
		if n := cache.CleanAll(cleaners...); n > 0 {
			logger.DebugContext(ctx, "Evicted expired entries", "count", n)
		}
		_, err := app.Checkpointer.Checkpoint(ctx)
		return err
	})
	return sched.AddJob(maintenanceSchedule, maintenance)
}
