package main

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/younsl/bucketpulse/internal/api"
	"github.com/younsl/bucketpulse/pkg/aggregator"
	"github.com/younsl/bucketpulse/pkg/observability"
)

// shutdownTimeout bounds graceful HTTP shutdown
const shutdownTimeout = 10 * time.Second

func (a *app) serveCommand() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run aggregation cycles on a schedule and serve health, metrics and read APIs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen != "" {
				a.cfg.Metrics.Listen = listen
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (default from config metrics.listen)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	e, err := a.newEnv(ctx)
	if err != nil {
		return err
	}
	metrics := observability.New()
	svc := a.newService(e, metrics)

	var ready atomic.Bool
	scheduler := &aggregator.Scheduler{
		Service:  svc,
		Interval: a.cfg.Cycle.Interval,
		Logger:   a.logger,
		// Ready once a cycle could list the tracked prefixes
		OnCycle: func(_ aggregator.CycleSummary, err error) {
			if err == nil {
				ready.Store(true)
			}
		},
	}

	handler := api.NewHandler(api.Options{
		Health:  e.healthService(),
		Alerts:  e.stores.alerts,
		Metrics: metrics.Handler(),
		Ready:   ready.Load,
		Logger:  a.logger,
		Now:     a.now,
	})
	srv := &http.Server{
		Addr:              a.cfg.Metrics.Listen,
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return scheduler.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
