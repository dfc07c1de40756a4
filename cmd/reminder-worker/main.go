// Command reminder-worker runs the reminder scheduler without the RPC
// server. Run several replicas with REDIS_URL set so only one of them
// dispatches per cycle.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/paymenext/internal/app"
	"github.com/mmynk/paymenext/internal/config"
	"github.com/mmynk/paymenext/pkg/logging"
)

func main() {
	once := flag.Bool("once", false, "run a single dispatch cycle and exit")
	metricsAddr := flag.String("metrics-addr", "", "serve /metrics on this address (disabled when empty)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	a, err := app.New(ctx, cfg, reg, logger)
	if err != nil {
		logger.Error("Failed to start reminder worker", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if *once {
		sent := a.Scheduler.RunCycle(ctx)
		logger.Info("Single cycle complete", "sent", sent)
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	if *metricsAddr != "" {
		srv := &http.Server{
			Addr:              *metricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	logger.Info("Reminder worker started",
		"interval", cfg.SchedulerInterval,
		"distributed_lock", cfg.RedisURL != "",
	)
	a.Scheduler.Start(ctx)

	g.Go(func() error {
		<-ctx.Done()
		a.Scheduler.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Reminder worker failed", "error", err)
		a.Close()
		os.Exit(1)
	}
	logger.Info("Reminder worker stopped")
}
