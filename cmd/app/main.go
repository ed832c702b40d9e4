package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/osse101/WorldEvents_Go/internal/bootstrap"
	"github.com/osse101/WorldEvents_Go/internal/config"
	"github.com/osse101/WorldEvents_Go/internal/domain"
	"github.com/osse101/WorldEvents_Go/internal/notify"
	"github.com/osse101/WorldEvents_Go/internal/orchestrator"
	"github.com/osse101/WorldEvents_Go/internal/scheduler"
	"github.com/osse101/WorldEvents_Go/internal/server"
	"github.com/osse101/WorldEvents_Go/internal/sse"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("WorldEvents exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	policy, err := domain.ParseContestPolicy(cfg.ContestPolicy)
	if err != nil {
		return err
	}

	logFile, err := bootstrap.SetupLogger(cfg)
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := bootstrap.InitializeStorage(ctx, cfg)
	if err != nil {
		return err
	}

	cat, err := bootstrap.LoadCatalog(cfg)
	if err != nil {
		storage.Close()
		return err
	}

	_, publisher, err := bootstrap.InitializeEventSystem(cfg)
	if err != nil {
		storage.Close()
		return err
	}

	hub := sse.NewHub()
	hub.Start()

	spawner, granter := bootstrap.InitializeCollaborators(cfg)
	rewards, err := bootstrap.InitializeRewardQueue(ctx, cfg, storage.Pool, granter, storage.Store)
	if err != nil {
		hub.Stop()
		storage.Close()
		return err
	}

	orch := orchestrator.New(orchestrator.Config{
		TerritoryTick:  cfg.TerritoryTick,
		ContestPolicy:  policy,
		DecayRate:      cfg.DecayRate,
		CompletedGrace: cfg.CompletedGrace,
		PresenceTTL:    cfg.PresenceTTL,
		MailboxSize:    cfg.MailboxSize,
		FactDedupeSize: cfg.FactDedupeSize,
	}, orchestrator.Dependencies{
		Catalog:  cat,
		Store:    storage.Store,
		Notifier: notify.NewGateway(publisher, nil),
		Spawner:  spawner,
		Rewards:  rewards,
	})

	sched := scheduler.New(scheduler.Config{Interval: cfg.SchedulerInterval}, storage.Store, orch, cat, nil, nil)

	srv := server.NewServer(cfg.Port, cfg.APIKey, cfg.TrustedProxies, storage.Store, orch, storage.Store, sched, hub)

	components := bootstrap.ShutdownComponents{
		Server:             srv,
		Scheduler:          sched,
		Orchestrator:       orch,
		Rewards:            rewards,
		Hub:                hub,
		ResilientPublisher: publisher,
		Storage:            storage,
	}
	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		bootstrap.GracefulShutdown(shutdownCtx, components)
	}

	// Subscribers must be in place before recovery replays notifications.
	if err := bootstrap.RegisterEventHandlers(bootstrap.EventHandlerDependencies{
		EventBus:   publisher,
		Hub:        hub,
		Scheduler:  sched,
		WebhookURL: cfg.NotifyWebhookURL,
	}); err != nil {
		shutdown()
		return err
	}

	if err := orch.Recover(ctx); err != nil {
		shutdown()
		return fmt.Errorf("recover open events: %w", err)
	}

	if err := sched.Start(ctx); err != nil {
		shutdown()
		return fmt.Errorf("start scheduler: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err = <-serverErr:
	}

	shutdown()
	return err
}
