package bootstrap

import (
	"context"
	"log/slog"

	"github.com/osse101/WorldEvents_Go/internal/event"
	"github.com/osse101/WorldEvents_Go/internal/scheduler"
	"github.com/osse101/WorldEvents_Go/internal/server"
	"github.com/osse101/WorldEvents_Go/internal/sse"
)

// ShutdownComponents holds all components that need graceful shutdown.
// Nil fields are skipped.
type ShutdownComponents struct {
	Server             *server.Server
	Scheduler          *scheduler.Scheduler
	Orchestrator       shutdownableService
	Rewards            shutdownableService
	Hub                *sse.Hub
	ResilientPublisher *event.ResilientPublisher
	Storage            *Storage
}

// GracefulShutdown performs graceful shutdown of all application components.
// It shuts down in order:
// 1. HTTP server (stop accepting facts)
// 2. Scheduler (no new event starts)
// 3. Orchestrator (zone actors drain their mailboxes and persist)
// 4. Reward queue (in-flight grants finish)
// 5. Event publisher (flush pending notifications), then the SSE hub
// 6. Store connections
//
// Errors during shutdown are logged but do not stop the shutdown sequence.
func GracefulShutdown(ctx context.Context, components ShutdownComponents) {
	slog.Info(LogMsgShuttingDownServer)

	if components.Server != nil {
		if err := components.Server.Stop(ctx); err != nil {
			slog.Error(LogMsgServerForcedShutdown, "error", err)
		}
	}

	if components.Scheduler != nil {
		if err := components.Scheduler.Stop(); err != nil {
			slog.Error(LogMsgSchedulerStopFailed, "error", err)
		}
	}

	shutdownService(ctx, ServiceNameOrchestrator, components.Orchestrator)
	shutdownService(ctx, ServiceNameRewards, components.Rewards)

	if components.ResilientPublisher != nil {
		slog.Info(LogMsgShuttingDownEventPublisher)
		if err := components.ResilientPublisher.Shutdown(ctx); err != nil {
			slog.Error(LogMsgResilientPublisherFailed, "error", err)
		}
	}

	if components.Hub != nil {
		components.Hub.Stop()
	}

	if components.Storage != nil {
		components.Storage.Close()
	}

	slog.Info(LogMsgServerStopped)
}

type shutdownableService interface {
	Shutdown(context.Context) error
}

func shutdownService(ctx context.Context, name string, service shutdownableService) {
	if service == nil {
		return
	}
	if err := service.Shutdown(ctx); err != nil {
		slog.Error(name+LogMsgServiceShutdownFailed, "error", err)
	}
}
