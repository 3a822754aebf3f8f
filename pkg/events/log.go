package events

import (
	"context"

	"github.com/LeeDigitalWorks/zapdrive/pkg/logger"
)

// LogPublisher writes events to the structured log. It is the default
// publisher on single-node installs where no broker is configured.
type LogPublisher struct{}

// NewLogPublisher creates a publisher that logs event payloads.
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

// Name returns the publisher type name.
func (p *LogPublisher) Name() string {
	return "log"
}

// Publish logs the event payload at info level.
func (p *LogPublisher) Publish(_ context.Context, ownerID string, event []byte) error {
	logger.Info().
		Str("owner", ownerID).
		RawJSON("event", event).
		Msg("lifecycle event")
	return nil
}

// Close is a no-op for the log publisher.
func (p *LogPublisher) Close() error {
	return nil
}
