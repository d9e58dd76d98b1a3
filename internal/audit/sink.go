package audit

import (
	"context"

	"go.uber.org/zap"
)

// Sink persists lifecycle events.
type Sink interface {
	LinkCreated(ctx context.Context, event *LinkCreatedEvent) error
	LinkUpdated(ctx context.Context, event *LinkUpdatedEvent) error
	LinkDeleted(ctx context.Context, event *LinkDeletedEvent) error
}

// LogSink writes every event to a structured audit log.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink logging under the "audit" name.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("audit")}
}

func (s *LogSink) LinkCreated(_ context.Context, event *LinkCreatedEvent) error {
	s.logger.Info("link created",
		zap.String("key", event.Key),
		zap.String("destination", event.Destination),
		zap.String("owner", event.Owner),
		zap.Uint32("ledger", event.Ledger),
		zap.Bool("generated", event.Generated),
		zap.Time("occurredAt", event.OccurredAt),
	)

	return nil
}

func (s *LogSink) LinkUpdated(_ context.Context, event *LinkUpdatedEvent) error {
	s.logger.Info("link updated",
		zap.String("key", event.Key),
		zap.String("destination", event.Destination),
		zap.String("owner", event.Owner),
		zap.Time("occurredAt", event.OccurredAt),
	)

	return nil
}

func (s *LogSink) LinkDeleted(_ context.Context, event *LinkDeletedEvent) error {
	s.logger.Info("link deleted",
		zap.String("key", event.Key),
		zap.String("owner", event.Owner),
		zap.Time("occurredAt", event.OccurredAt),
	)

	return nil
}
