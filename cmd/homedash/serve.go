package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/homedash/internal/agent"
	"github.com/nerrad567/homedash/internal/api"
	"github.com/nerrad567/homedash/internal/dashboard"
	"github.com/nerrad567/homedash/internal/infrastructure/config"
	"github.com/nerrad567/homedash/internal/poller"
	"github.com/nerrad567/homedash/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server and telemetry poller",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// run is the server lifecycle, separated from the command for testability.
// It returns nil on clean shutdown once ctx is cancelled.
func run(ctx context.Context) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	log.Info("starting homedash",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	svc, err := openServices(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer svc.close()

	if cfg.Lights.DiscoverOnStart {
		found, derr := svc.registry.Discover(ctx, cfg.Lights.DiscoveryTimeout)
		if derr != nil {
			log.Warn("initial light discovery failed", "error", derr)
		} else {
			log.Info("initial light discovery complete", "found", len(found))
		}
	}

	composer := dashboard.NewComposer(svc.store, composerOptions(cfg))
	composer.SetLogger(log.With("component", "dashboard"))

	actions := dashboard.NewActionHandler(agent.New(cfg.Agent), svc.store, composer)
	actions.SetLogger(log.With("component", "dashboard"))

	// The hub is created here so the poller can push to it.
	hub := api.NewHub(cfg.WebSocket, composer, log.With("component", "websocket"))
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go hub.Run(hubCtx)

	server, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Security:  cfg.Security,
		Dashboard: cfg.Dashboard,
		Lights:    cfg.Lights,
		Logger:    log,
		Registry:  svc.registry,
		States:    svc.store,
		Composer:  composer,
		Actions:   actions,
		Audit:     svc.audit,
		Hub:       hub,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if cfg.Poller.Enabled {
		sched, serr := svc.newScheduler()
		if serr != nil {
			return serr
		}
		sched.AddListener(hub)

		// Deferred after svc.close, so it runs first.
		stopPoller := startPoller(ctx, sched)
		defer stopPoller()
		log.Info("telemetry poller started", "interval", sched.Interval())
	} else {
		log.Info("telemetry poller disabled")
	}

	healthCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = svc.healthCheck(healthCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred closes run in reverse: poller, API server, hub, then services.
	log.Info("homedash stopped")
	return nil
}

// startPoller runs sched in the background. The returned stop cancels it
// and waits for the cycle in progress to finish.
func startPoller(ctx context.Context, sched *poller.Scheduler) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		sched.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

func composerOptions(cfg *config.Config) dashboard.Options {
	return dashboard.Options{
		Labels: dashboard.Labels{
			LightSubtitle:   cfg.Dashboard.Labels.LightSubtitle,
			ClimateSubtitle: cfg.Dashboard.Labels.ClimateSubtitle,
			NoData:          cfg.Dashboard.Labels.NoData,
		},
		Comfort: telemetry.ComfortBand{
			Low:  cfg.Climate.ComfortLow,
			High: cfg.Climate.ComfortHigh,
		},
	}
}
