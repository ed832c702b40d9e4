package bootstrap

import (
	"cmp"
	"fmt"
	"log/slog"

	"github.com/osse101/WorldEvents_Go/internal/config"
	"github.com/osse101/WorldEvents_Go/internal/event"
)

// InitializeEventSystem builds the in-process bus and the retrying publisher
// the orchestrator writes notifications to. Undeliverable notifications land
// in the dead-letter log.
func InitializeEventSystem(cfg *config.Config) (*event.MemoryBus, *event.ResilientPublisher, error) {
	deadLetters := cmp.Or(cfg.DeadLetterPath, EventDefaultDeadLetterPath)

	bus := event.NewMemoryBus()
	publisher, err := event.NewResilientPublisher(bus, cfg.PublishRetries, EventDefaultRetryDelay, deadLetters)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", LogMsgFailedCreateResilientPublisher, err)
	}

	slog.Info(LogMsgEventSystemInitialized,
		"publish_retries", publisher.MaxRetries(),
		"dead_letter_path", deadLetters)
	return bus, publisher, nil
}
